// ABOUTME: Tests for the Opus decode engine
// ABOUTME: Tests identification header parsing
package decode

import "testing"

func opusHead(channels byte) []byte {
	// Ogg page header and segment table precede the packet
	page := append([]byte("OggS"), make([]byte, 24)...)
	packet := append([]byte("OpusHead"), 1, channels, 0x38, 0x01, 0x80, 0xbb, 0, 0, 0, 0, 0)
	return append(page, packet...)
}

func TestOpusChannels(t *testing.T) {
	tests := []struct {
		name     string
		head     []byte
		expected int
		wantErr  bool
	}{
		{"mono", opusHead(1), 1, false},
		{"stereo", opusHead(2), 2, false},
		{"surround", opusHead(6), 6, false},
		{"zero channels", opusHead(0), 0, true},
		{"missing header", []byte("OggS vorbis stream"), 0, true},
		{"truncated", []byte("OpusHead\x01"), 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := opusChannels(tt.head)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %d channels", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %d channels, got %d", tt.expected, got)
			}
		})
	}
}
