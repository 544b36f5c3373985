// ABOUTME: Audio input package for capture devices and synthetic sources
// ABOUTME: Provides Input interface with malgo, PortAudio, file and tone inputs
// Package input delivers mono float blocks to an audio.Processor.
//
// Device inputs call the processor from the host audio callback. File and
// tone inputs run their own goroutine and can be paced in real time, so
// the rest of the pipeline sees the same cadence it would from a
// microphone. Unpaced, they wait on processors that implement Deliverer
// instead of outrunning them.
//
// Example:
//
//	in := input.NewFile("speech.flac", 16000, true)
//	err := in.Start(framer)
//	<-in.Done()
package input
