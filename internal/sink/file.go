// ABOUTME: File transcript sink
// ABOUTME: Writes a transcript with a metadata header when a session ends
package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/harperreed/asrstream/pkg/asr"
	log "github.com/sirupsen/logrus"
)

// File saves one transcript file per session in Dir
type File struct {
	Dir string
}

// NewFile creates the output directory if needed
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create transcript dir: %w", err)
	}
	return &File{Dir: dir}, nil
}

// Write is a no-op; transcripts are written whole on Finish
func (f *File) Write(context.Context, Session, asr.Result) error {
	return nil
}

// Finish writes the transcript. Empty transcripts are skipped.
func (f *File) Finish(_ context.Context, session Session, transcript string) error {
	if strings.TrimSpace(transcript) == "" {
		return nil
	}

	header := fmt.Sprintf("Session ID: %s\nEndpoint: %s\nStart Time: %s\nDuration: %v\nSample Rate: %dHz\n\n---TRANSCRIPT---\n\n",
		session.ID,
		session.Endpoint,
		session.Started.Format("2006-01-02 15:04:05"),
		session.Duration().Round(time.Millisecond),
		session.SampleRate,
	)

	path := f.Path(session)
	if err := os.WriteFile(path, []byte(header+transcript+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to save transcript: %w", err)
	}

	log.Printf("Session %s: transcript saved to %s", session.ID, path)
	return nil
}

// Path returns the transcript file name for session
func (f *File) Path(session Session) string {
	id := session.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return filepath.Join(f.Dir, fmt.Sprintf("%s_%s.txt", session.Started.Format("20060102_150405"), id))
}

// Close is a no-op
func (f *File) Close() error {
	return nil
}
