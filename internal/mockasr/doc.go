// ABOUTME: Mock recognition server package
// ABOUTME: Lets the client and CLIs run end to end without a real recognizer
// Package mockasr implements a stand-in for a streaming recognition service.
//
// It speaks the same protocol as the real service: binary PCM16 frames in,
// JSON results out. Results describe the audio received (duration and
// level) instead of transcribing it. A partial result is sent every
// PartialEvery of audio and a final one after SegmentLength or when the
// client closes the socket.
package mockasr
