// ABOUTME: Ogg/Vorbis decode engine
// ABOUTME: Decodes Vorbis to 16-bit PCM using jfreymuth/oggvorbis
package decode

import (
	"fmt"
	"io"
	"log"

	"github.com/jfreymuth/oggvorbis"

	"github.com/Resonate-Protocol/streamplay/pkg/audio"
)

// vorbisBlockSize approximates a Vorbis long block for frame statistics
const vorbisBlockSize = 1024

// oggReader is the subset of oggvorbis.Reader the engine uses
type oggReader interface {
	SampleRate() int
	Channels() int
	Read([]float32) (int, error)
}

// Vorbis decodes Ogg/Vorbis streams
type Vorbis struct {
	src      *countingReader
	reader   oggReader
	channels int
	buf      []float32
	ended    bool
}

// NewVorbis creates a Vorbis engine
func NewVorbis() *Vorbis {
	return &Vorbis{}
}

// Start parses the Vorbis headers and returns the stream parameters
func (e *Vorbis) Start(src io.Reader) (audio.StreamInfo, error) {
	e.src = newCountingReader(src)

	reader, err := oggvorbis.NewReader(e.src)
	if err != nil {
		return audio.StreamInfo{}, fmt.Errorf("failed to parse Vorbis stream: %w", err)
	}
	return e.start(reader), nil
}

func (e *Vorbis) start(reader oggReader) audio.StreamInfo {
	e.reader = reader
	e.channels = reader.Channels()

	info := audio.StreamInfo{
		Codec:         CodecVorbis,
		SampleRate:    reader.SampleRate(),
		Channels:      e.channels,
		FrameMaxBytes: e.src.take(),
		FrameSamples:  vorbisBlockSize * e.channels,
	}

	log.Printf("Vorbis: started %dHz %dch", info.SampleRate, info.Channels)
	return info
}

// Decode fills dst with interleaved samples
func (e *Vorbis) Decode(dst []int16) (Round, error) {
	if e.reader == nil {
		return Round{}, ErrNotStarted
	}
	if e.ended || e.channels <= 0 {
		return Round{}, nil
	}

	// Only whole sample frames fit
	want := len(dst) - len(dst)%e.channels
	if cap(e.buf) < want {
		e.buf = make([]float32, want)
	}
	buf := e.buf[:want]

	total := 0
	for total < want {
		n, err := e.reader.Read(buf[total:])
		total += n
		if err != nil {
			if isEndOfStream(err) {
				e.ended = true
				break
			}
			return Round{}, fmt.Errorf("Vorbis decode failed: %w", err)
		}
		if n == 0 {
			e.ended = true
			break
		}
	}

	for i := 0; i < total; i++ {
		dst[i] = audio.FloatToInt16(buf[i])
	}

	return Round{
		Samples:       total,
		BytesConsumed: e.src.take(),
		Frames:        approxFrames(total, vorbisBlockSize*e.channels),
	}, nil
}

// Stop releases the reader
func (e *Vorbis) Stop() error {
	e.reader = nil
	e.buf = nil
	return nil
}
