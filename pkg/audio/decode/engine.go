// ABOUTME: Decode engine contract
// ABOUTME: Round statistics, codec registry and shared engine errors
package decode

import (
	"errors"
	"fmt"
	"io"

	"github.com/Resonate-Protocol/streamplay/pkg/audio"
)

var (
	// ErrTooManyChannels is returned for streams with more than two channels
	ErrTooManyChannels = errors.New("too many channels")

	// ErrUnsupportedCodec is returned when no engine exists for a format
	ErrUnsupportedCodec = errors.New("unsupported codec")

	// ErrNotStarted is returned by Decode before a successful Start
	ErrNotStarted = errors.New("engine not started")
)

// Round reports the result of one Decode call
type Round struct {
	// Samples is the number of interleaved samples written to dst.
	// Zero means the stream has ended.
	Samples int

	// BytesConsumed is the number of encoded bytes pulled from the source
	BytesConsumed int

	// Frames is the number of codec frames decoded
	Frames int
}

// Engine decodes an encoded stream into interleaved 16-bit PCM
type Engine interface {
	// Start reads the stream header and returns the stream parameters
	Start(src io.Reader) (audio.StreamInfo, error)

	// Decode fills dst with as many samples as fit and reports the round
	Decode(dst []int16) (Round, error)

	// Stop releases the engine. It is safe to call more than once.
	Stop() error
}

// Codec names understood by New
const (
	CodecMP3    = "mp3"
	CodecFLAC   = "flac"
	CodecVorbis = "vorbis"
	CodecOpus   = "opus"
	CodecWAV    = "wav"
)

var registry = map[string]func() Engine{
	CodecMP3:    func() Engine { return NewMP3() },
	CodecFLAC:   func() Engine { return NewFLAC() },
	CodecVorbis: func() Engine { return NewVorbis() },
	CodecOpus:   func() Engine { return NewOpus() },
	CodecWAV:    func() Engine { return NewWAV() },
}

// New creates an engine for the named codec
func New(codec string) (Engine, error) {
	factory, ok := registry[codec]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCodec, codec)
	}
	return factory(), nil
}

// Codecs returns the codec names New accepts
func Codecs() []string {
	return []string{CodecMP3, CodecFLAC, CodecVorbis, CodecOpus, CodecWAV}
}

// isEndOfStream reports whether err marks a normal or truncated end
func isEndOfStream(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

// approxFrames converts a sample count into whole frames, rounding up
func approxFrames(samples, frameSamples int) int {
	if samples <= 0 {
		return 0
	}
	if frameSamples <= 0 {
		return 1
	}
	return (samples + frameSamples - 1) / frameSamples
}
