// ABOUTME: Tests for the WAV decode engine
// ABOUTME: Tests header parsing, sample conversion and round statistics
package decode

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

type wavChunk struct {
	id   string
	data []byte
}

func buildWAV(sampleRate, channels, bitDepth int, pcm []byte, extra ...wavChunk) []byte {
	var fmtChunk bytes.Buffer
	blockAlign := channels * bitDepth / 8
	binary.Write(&fmtChunk, binary.LittleEndian, uint16(wavFormatPCM))
	binary.Write(&fmtChunk, binary.LittleEndian, uint16(channels))
	binary.Write(&fmtChunk, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&fmtChunk, binary.LittleEndian, uint32(sampleRate*blockAlign))
	binary.Write(&fmtChunk, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&fmtChunk, binary.LittleEndian, uint16(bitDepth))

	chunks := append(extra, wavChunk{"fmt ", fmtChunk.Bytes()})

	var body bytes.Buffer
	body.WriteString("WAVE")
	for _, c := range chunks {
		body.WriteString(c.id)
		binary.Write(&body, binary.LittleEndian, uint32(len(c.data)))
		body.Write(c.data)
		if len(c.data)%2 == 1 {
			body.WriteByte(0)
		}
	}
	body.WriteString("data")
	binary.Write(&body, binary.LittleEndian, uint32(len(pcm)))
	body.Write(pcm)

	var out bytes.Buffer
	out.WriteString("RIFF")
	binary.Write(&out, binary.LittleEndian, uint32(body.Len()))
	out.Write(body.Bytes())
	return out.Bytes()
}

func pcm16(samples ...int16) []byte {
	var buf bytes.Buffer
	for _, s := range samples {
		binary.Write(&buf, binary.LittleEndian, s)
	}
	return buf.Bytes()
}

func TestWAVStart(t *testing.T) {
	data := buildWAV(44100, 2, 16, pcm16(1, 2, 3, 4))

	engine := NewWAV()
	info, err := engine.Start(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	if info.Codec != CodecWAV {
		t.Errorf("expected codec wav, got %s", info.Codec)
	}
	if info.SampleRate != 44100 {
		t.Errorf("expected 44100Hz, got %d", info.SampleRate)
	}
	if info.Channels != 2 {
		t.Errorf("expected 2 channels, got %d", info.Channels)
	}
	if info.FrameSamples != wavFrameSize*2 {
		t.Errorf("expected frame samples %d, got %d", wavFrameSize*2, info.FrameSamples)
	}
}

func TestWAVSkipsUnknownChunks(t *testing.T) {
	list := wavChunk{"LIST", []byte("INFOsome tag")}
	odd := wavChunk{"junk", []byte{1, 2, 3}}
	data := buildWAV(22050, 1, 16, pcm16(7, -7), list, odd)

	engine := NewWAV()
	info, err := engine.Start(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if info.SampleRate != 22050 || info.Channels != 1 {
		t.Errorf("unexpected info: %+v", info)
	}

	dst := make([]int16, 8)
	round, err := engine.Decode(dst)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if round.Samples != 2 || dst[0] != 7 || dst[1] != -7 {
		t.Errorf("unexpected samples: %d %v", round.Samples, dst[:round.Samples])
	}
}

func TestWAVDecodeRounds(t *testing.T) {
	samples := make([]int16, 100)
	for i := range samples {
		samples[i] = int16(i * 100)
	}
	data := buildWAV(8000, 2, 16, pcm16(samples...))

	engine := NewWAV()
	if _, err := engine.Start(bytes.NewReader(data)); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer engine.Stop()

	dst := make([]int16, 64)

	round, err := engine.Decode(dst)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if round.Samples != 64 {
		t.Errorf("expected 64 samples, got %d", round.Samples)
	}
	if round.BytesConsumed != 128 {
		t.Errorf("expected 128 bytes consumed, got %d", round.BytesConsumed)
	}
	if round.Frames != 1 {
		t.Errorf("expected 1 frame, got %d", round.Frames)
	}
	if dst[63] != 6300 {
		t.Errorf("expected sample 6300, got %d", dst[63])
	}

	round, err = engine.Decode(dst)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if round.Samples != 36 {
		t.Errorf("expected 36 remaining samples, got %d", round.Samples)
	}

	round, err = engine.Decode(dst)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if round.Samples != 0 {
		t.Errorf("expected end of stream, got %d samples", round.Samples)
	}
}

func TestWAVBitDepths(t *testing.T) {
	tests := []struct {
		name     string
		bitDepth int
		pcm      []byte
		expected []int16
	}{
		{"8bit unsigned", 8, []byte{128, 255, 0}, []int16{0, 127 << 8, -128 << 8}},
		{"24bit", 24, []byte{0x56, 0x34, 0x12, 0x00, 0x00, 0x80}, []int16{0x1234, -32768}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewWAV()
			if _, err := engine.Start(bytes.NewReader(buildWAV(8000, 1, tt.bitDepth, tt.pcm))); err != nil {
				t.Fatalf("start failed: %v", err)
			}

			dst := make([]int16, 16)
			round, err := engine.Decode(dst)
			if err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if round.Samples != len(tt.expected) {
				t.Fatalf("expected %d samples, got %d", len(tt.expected), round.Samples)
			}
			for i, want := range tt.expected {
				if dst[i] != want {
					t.Errorf("sample %d: expected %d, got %d", i, want, dst[i])
				}
			}
		})
	}
}

func TestWAVInvalidHeader(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not riff", []byte("OggS0000WAVE")},
		{"no data chunk", []byte("RIFF\x04\x00\x00\x00WAVE")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewWAV().Start(bytes.NewReader(tt.data))
			if !errors.Is(err, ErrInvalidWAV) {
				t.Errorf("expected ErrInvalidWAV, got %v", err)
			}
		})
	}
}

func TestWAVUnsupportedBitDepth(t *testing.T) {
	_, err := NewWAV().Start(bytes.NewReader(buildWAV(8000, 1, 32, make([]byte, 8))))
	if err == nil {
		t.Fatal("expected error for 32-bit PCM")
	}
}
