// ABOUTME: Audio engine package managing the shared host audio context
// ABOUTME: Provides Ensure/Suspend/Dispose lifecycle over malgo devices
// Package engine owns the host audio context and the devices opened on it.
//
// One Engine is shared by capture and playback. Ensure creates the context
// on first use, resumes it after Suspend and recreates it after Dispose.
//
// Example:
//
//	eng := engine.New(nil)
//	if err := eng.Ensure(); err != nil {
//	    return err
//	}
//	defer eng.Dispose()
package engine
