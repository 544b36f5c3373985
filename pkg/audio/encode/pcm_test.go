// ABOUTME: Unit tests for PCM encoder
// ABOUTME: Tests frame serialization and 16/24/32-bit block encoding
package encode

import (
	"encoding/binary"
	"math"
	"strings"
	"testing"

	"github.com/harperreed/asrstream/pkg/audio"
)

func TestPCM16Bytes(t *testing.T) {
	frame := audio.Frame{0, 1, -1, 32767, -32768}
	data := PCM16Bytes(frame)

	expected := []byte{0x00, 0x00, 0x01, 0x00, 0xFF, 0xFF, 0xFF, 0x7F, 0x00, 0x80}
	if string(data) != string(expected) {
		t.Errorf("PCM16Bytes() = % x, want % x", data, expected)
	}

	back := PCM16Frame(data)
	for i := range frame {
		if back[i] != frame[i] {
			t.Errorf("sample %d: got %d, want %d", i, back[i], frame[i])
		}
	}
}

func TestPCM16FrameIgnoresOddByte(t *testing.T) {
	frame := PCM16Frame([]byte{0x01, 0x00, 0x02})
	if len(frame) != 1 || frame[0] != 1 {
		t.Errorf("PCM16Frame() = %v, want [1]", frame)
	}
}

func TestNewPCM(t *testing.T) {
	tests := []struct {
		name        string
		format      audio.Format
		wantErr     bool
		errContains string
	}{
		{
			name:   "valid 16-bit PCM",
			format: audio.Format{Codec: "pcm", SampleRate: 16000, Channels: 1, BitDepth: 16},
		},
		{
			name:   "valid 24-bit PCM",
			format: audio.Format{Codec: "pcm", SampleRate: 48000, Channels: 2, BitDepth: 24},
		},
		{
			name:   "valid float PCM",
			format: audio.Format{Codec: "pcm", SampleRate: 48000, Channels: 2, BitDepth: 32},
		},
		{
			name:        "invalid codec",
			format:      audio.Format{Codec: "opus", SampleRate: 48000, Channels: 2, BitDepth: 16},
			wantErr:     true,
			errContains: "invalid codec",
		},
		{
			name:        "unsupported bit depth",
			format:      audio.Format{Codec: "pcm", SampleRate: 48000, Channels: 2, BitDepth: 8},
			wantErr:     true,
			errContains: "unsupported bit depth",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoder, err := NewPCM(tt.format)
			if tt.wantErr {
				if err == nil {
					t.Fatal("NewPCM() expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("NewPCM() error = %v, want containing %q", err, tt.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewPCM() unexpected error = %v", err)
			}
			if encoder == nil {
				t.Fatal("NewPCM() returned nil encoder")
			}
		})
	}
}

func TestPCMEncoder_Encode16Bit(t *testing.T) {
	encoder, err := NewPCM(audio.Format{Codec: "pcm", BitDepth: 16})
	if err != nil {
		t.Fatalf("NewPCM() failed: %v", err)
	}
	defer encoder.Close()

	samples := audio.Block{0, 1.0, -1.0, 0.5, 2.0}
	output, err := encoder.Encode(samples)
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}

	if len(output) != len(samples)*2 {
		t.Fatalf("Encode() output size = %d, want %d", len(output), len(samples)*2)
	}

	expected := []int16{0, 32767, -32767, 16384, 32767}
	for i, want := range expected {
		got := int16(binary.LittleEndian.Uint16(output[i*2:]))
		if got != want {
			t.Errorf("Sample %d: got %d, want %d", i, got, want)
		}
	}
}

func TestPCMEncoder_Encode24Bit(t *testing.T) {
	encoder, err := NewPCM(audio.Format{Codec: "pcm", BitDepth: 24})
	if err != nil {
		t.Fatalf("NewPCM() failed: %v", err)
	}
	defer encoder.Close()

	samples := audio.Block{0, 1.0, -1.0, -4.0}
	output, err := encoder.Encode(samples)
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}

	if len(output) != len(samples)*3 {
		t.Fatalf("Encode() output size = %d, want %d", len(output), len(samples)*3)
	}

	expected := []int32{0, audio.Max24Bit, -audio.Max24Bit, audio.Min24Bit}
	for i, want := range expected {
		got := audio.SampleFrom24Bit([3]byte{output[i*3], output[i*3+1], output[i*3+2]})
		if got != want {
			t.Errorf("Sample %d: got %d, want %d", i, got, want)
		}
	}
}

func TestPCMEncoder_EncodeFloat(t *testing.T) {
	encoder, err := NewPCM(audio.Format{Codec: "pcm", BitDepth: 32})
	if err != nil {
		t.Fatalf("NewPCM() failed: %v", err)
	}

	output, err := encoder.Encode(audio.Block{0.125, -0.5})
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}

	if got := math.Float32frombits(binary.LittleEndian.Uint32(output[4:])); got != -0.5 {
		t.Errorf("second sample = %v, want -0.5", got)
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(output[0:])); got != 0.125 {
		t.Errorf("first sample = %v, want 0.125", got)
	}
}

func TestPCMEncoder_Close(t *testing.T) {
	encoder, err := NewPCM(audio.Format{Codec: "pcm", BitDepth: 16})
	if err != nil {
		t.Fatalf("NewPCM() failed: %v", err)
	}

	if err := encoder.Close(); err != nil {
		t.Errorf("Close() unexpected error = %v", err)
	}
}
