// ABOUTME: Logging setup from configuration
// ABOUTME: Sets the logrus level and routes output to the log file and console
package config

import (
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// Setup configures the standard logrus logger. With console set, output
// goes to stdout and the log file; otherwise only to the file (TUI mode).
// The returned closer releases the file.
func (l *LoggingConfig) Setup(console bool) (io.Closer, error) {
	level, err := log.ParseLevel(l.Level)
	if err != nil {
		return nil, err
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	if l.File == "" {
		if console {
			log.SetOutput(os.Stdout)
		} else {
			log.SetOutput(io.Discard)
		}
		return closerFunc(func() error { return nil }), nil
	}

	f, err := os.OpenFile(l.File, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
	if err != nil {
		return nil, fmt.Errorf("error opening log file: %w", err)
	}

	if console {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	} else {
		log.SetOutput(f)
	}
	return f, nil
}
