// ABOUTME: Encoder interface definition
// ABOUTME: Common interface for float-to-wire audio encoders
package encode

import "github.com/harperreed/asrstream/pkg/audio"

// Encoder encodes float samples to a wire format
type Encoder interface {
	// Encode converts samples to encoded audio data
	Encode(samples audio.Block) ([]byte, error)

	// Close releases encoder resources
	Close() error
}
