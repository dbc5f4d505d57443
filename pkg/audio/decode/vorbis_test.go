// ABOUTME: Tests for the Vorbis decode engine
// ABOUTME: Uses a mock ogg reader to test float conversion and end of stream
package decode

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

type mockOggReader struct {
	sampleRate int
	channels   int
	values     []float32
	offset     int
	err        error
}

func (m *mockOggReader) SampleRate() int { return m.sampleRate }
func (m *mockOggReader) Channels() int   { return m.channels }

func (m *mockOggReader) Read(p []float32) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	if m.offset >= len(m.values) {
		return 0, io.EOF
	}
	// Deliver at most one short block per call
	n := copy(p[:min(len(p), 6)], m.values[m.offset:])
	m.offset += n
	return n, nil
}

func startMockVorbis(reader *mockOggReader) *Vorbis {
	e := NewVorbis()
	e.src = newCountingReader(bytes.NewReader(nil))
	e.start(reader)
	return e
}

func TestVorbisDecode(t *testing.T) {
	reader := &mockOggReader{
		sampleRate: 44100,
		channels:   2,
		values:     []float32{0, 1, -1, 0.5, -0.5, 0, 0.25, -0.25, 1, 1},
	}
	e := startMockVorbis(reader)

	dst := make([]int16, 7)
	round, err := e.Decode(dst)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	// Odd buffer length is trimmed to whole stereo frames
	if round.Samples != 6 {
		t.Fatalf("expected 6 samples, got %d", round.Samples)
	}
	expected := []int16{0, 32767, -32767, 16383, -16383, 0}
	for i, want := range expected {
		if dst[i] != want {
			t.Errorf("sample %d: expected %d, got %d", i, want, dst[i])
		}
	}
	if round.Frames != 1 {
		t.Errorf("expected 1 frame, got %d", round.Frames)
	}

	round, err = e.Decode(dst)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if round.Samples != 4 {
		t.Errorf("expected 4 remaining samples, got %d", round.Samples)
	}

	round, err = e.Decode(dst)
	if err != nil || round.Samples != 0 {
		t.Errorf("expected end of stream, got %d samples, err %v", round.Samples, err)
	}
}

func TestVorbisStartInfo(t *testing.T) {
	e := NewVorbis()
	e.src = newCountingReader(bytes.NewReader(nil))
	info := e.start(&mockOggReader{sampleRate: 48000, channels: 1})

	if info.Codec != CodecVorbis || info.SampleRate != 48000 || info.Channels != 1 {
		t.Errorf("unexpected info: %+v", info)
	}
	if info.FrameSamples != vorbisBlockSize {
		t.Errorf("expected %d frame samples, got %d", vorbisBlockSize, info.FrameSamples)
	}
}

func TestVorbisDecodeError(t *testing.T) {
	e := startMockVorbis(&mockOggReader{sampleRate: 44100, channels: 2, err: errors.New("corrupt packet")})

	if _, err := e.Decode(make([]int16, 8)); err == nil {
		t.Error("expected decode error")
	}
}

func TestVorbisStartInvalidStream(t *testing.T) {
	if _, err := NewVorbis().Start(bytes.NewReader([]byte("not an ogg stream"))); err == nil {
		t.Error("expected error for invalid stream")
	}
}
