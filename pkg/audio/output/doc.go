// ABOUTME: Audio output package for pull-based playback
// ABOUTME: Provides Output interface with malgo, oto and PortAudio backends
// Package output plays audio by pulling it from a source.
//
// Every backend asks an audio.Processor to fill each device buffer, so a
// playback.Accumulator can be handed straight to Open. Volume and mute
// are applied after the pull.
//
// Example:
//
//	acc := playback.NewAccumulator(playback.Config{})
//	out := output.NewMalgo(engine.New(nil))
//	err := out.Open(16000, 1, acc)
package output
