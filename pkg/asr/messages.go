// ABOUTME: Recognition event types
// ABOUTME: Result messages from the service and client status events
package asr

import (
	"encoding/json"
	"fmt"
)

// Result is one transcription update. Updates with the same Idx refine
// the same segment; Finished marks the last update for it.
type Result struct {
	Text     string `json:"text"`
	Finished bool   `json:"finished"`
	Idx      int    `json:"idx"`
}

// Status types
const (
	StatusInfo  = "info"
	StatusError = "error"
)

// Status reports client lifecycle changes and failures
type Status struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ParseResult decodes a result message
func ParseResult(data []byte) (Result, error) {
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return Result{}, fmt.Errorf("invalid result message: %w", err)
	}
	return r, nil
}
