// ABOUTME: Unit tests for PCM encoder and WAV headers
// ABOUTME: Tests 16-bit and 24-bit encoding and round trips through the WAV engine
package encode

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/Resonate-Protocol/streamplay/pkg/audio/decode"
)

func TestNewPCM(t *testing.T) {
	tests := []struct {
		name     string
		bitDepth int
		wantErr  bool
	}{
		{"valid 16-bit PCM", 16, false},
		{"valid 24-bit PCM", 24, false},
		{"unsupported 8-bit", 8, true},
		{"unsupported 32-bit", 32, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoder, err := NewPCM(tt.bitDepth)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if encoder.BitDepth() != tt.bitDepth {
				t.Errorf("expected bit depth %d, got %d", tt.bitDepth, encoder.BitDepth())
			}
		})
	}
}

func TestEncode16Bit(t *testing.T) {
	encoder, _ := NewPCM(16)
	samples := []int16{0, 1, -1, 32767, -32768}

	data, err := encoder.Encode(samples)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if len(data) != len(samples)*2 {
		t.Fatalf("expected %d bytes, got %d", len(samples)*2, len(data))
	}

	for i, want := range samples {
		got := int16(binary.LittleEndian.Uint16(data[i*2:]))
		if got != want {
			t.Errorf("sample %d: expected %d, got %d", i, want, got)
		}
	}
}

func TestEncode24Bit(t *testing.T) {
	encoder, _ := NewPCM(24)

	tests := []struct {
		sample int16
		want   [3]byte
	}{
		{0, [3]byte{0x00, 0x00, 0x00}},
		{1, [3]byte{0x00, 0x01, 0x00}},
		{-1, [3]byte{0x00, 0xFF, 0xFF}},
		{32767, [3]byte{0x00, 0xFF, 0x7F}},
		{-32768, [3]byte{0x00, 0x00, 0x80}},
	}

	for _, tt := range tests {
		data, err := encoder.Encode([]int16{tt.sample})
		if err != nil {
			t.Fatalf("encode failed: %v", err)
		}
		if !bytes.Equal(data, tt.want[:]) {
			t.Errorf("sample %d: expected % x, got % x", tt.sample, tt.want, data)
		}
	}
}

func TestWAVHeaderLayout(t *testing.T) {
	h := WAVHeader(44100, 2, 16, 1000)

	if len(h) != WAVHeaderSize {
		t.Fatalf("expected %d bytes, got %d", WAVHeaderSize, len(h))
	}
	if string(h[0:4]) != "RIFF" || string(h[8:12]) != "WAVE" || string(h[36:40]) != "data" {
		t.Errorf("unexpected chunk ids: %q", h)
	}
	if got := binary.LittleEndian.Uint32(h[4:8]); got != 1036 {
		t.Errorf("expected RIFF size 1036, got %d", got)
	}
	if got := binary.LittleEndian.Uint32(h[28:32]); got != 176400 {
		t.Errorf("expected byte rate 176400, got %d", got)
	}
	if got := binary.LittleEndian.Uint16(h[32:34]); got != 4 {
		t.Errorf("expected block align 4, got %d", got)
	}
}

func TestWAVRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		bitDepth int
	}{
		{"16-bit", 16},
		{"24-bit", 24},
	}

	samples := []int16{100, -100, 2000, -2000, 32767, -32768}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoder, _ := NewPCM(tt.bitDepth)
			pcm, _ := encoder.Encode(samples)

			var stream bytes.Buffer
			stream.Write(WAVHeader(8000, 2, tt.bitDepth, uint32(len(pcm))))
			stream.Write(pcm)

			engine := decode.NewWAV()
			info, err := engine.Start(&stream)
			if err != nil {
				t.Fatalf("start failed: %v", err)
			}
			if info.SampleRate != 8000 || info.Channels != 2 {
				t.Errorf("unexpected format %dHz %dch", info.SampleRate, info.Channels)
			}

			dst := make([]int16, 64)
			round, err := engine.Decode(dst)
			if err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if round.Samples != len(samples) {
				t.Fatalf("expected %d samples, got %d", len(samples), round.Samples)
			}
			for i, want := range samples {
				if dst[i] != want {
					t.Errorf("sample %d: expected %d, got %d", i, want, dst[i])
				}
			}
		})
	}
}
