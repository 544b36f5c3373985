// ABOUTME: Streaming speech recognition client package
// ABOUTME: Captures audio, streams PCM16 frames and emits transcription results
// Package asr streams microphone audio to a recognition service.
//
// A Client captures blocks through an input.Input, frames them to PCM16
// with a capture.Framer and sends each frame as a binary WebSocket
// message. Every text message received back is decoded as a Result and
// handed to the registered result listeners. Lifecycle changes and errors
// are reported to status listeners.
//
// Example:
//
//	client := asr.NewClient(asr.Config{Endpoint: "ws://localhost:6006/asr"})
//	client.OnResult(func(r asr.Result) {
//	    fmt.Println(r.Idx, r.Text, r.Finished)
//	})
//	if err := client.Start(ctx); err != nil {
//	    return err
//	}
//	defer client.Stop()
package asr
