// ABOUTME: Playback package for feeding output devices from pushed audio
// ABOUTME: Provides the Accumulator processor and its overflow policies
// Package playback buffers received audio until an output callback asks
// for it.
//
// Producers push variable-length blocks whenever they arrive. The output
// device pulls exactly N samples per callback; samples leave the backlog in
// the order they were pushed and any shortfall is filled with silence.
//
// Pushes travel to the pull side as messages, so the backlog has a single
// owner and the audio callback never takes a lock.
package playback
