// ABOUTME: Ogg/Opus decode engine
// ABOUTME: Decodes Opus streams to 16-bit PCM at 48kHz using libopusfile
package decode

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log"

	"gopkg.in/hraban/opus.v2"

	"github.com/Resonate-Protocol/streamplay/pkg/audio"
)

const (
	// opusSampleRate is the only rate libopusfile decodes to
	opusSampleRate = 48000

	// opusFrameSize is a 20ms frame per channel at 48kHz
	opusFrameSize = 960

	// opusHeadPeek bounds the search for the identification header
	opusHeadPeek = 512
)

var opusHeadMagic = []byte("OpusHead")

// Opus decodes Ogg/Opus streams
type Opus struct {
	src      *countingReader
	stream   *opus.Stream
	channels int
	ended    bool
}

// NewOpus creates an Opus engine
func NewOpus() *Opus {
	return &Opus{}
}

// Start reads the identification header and opens the Opus stream
func (e *Opus) Start(src io.Reader) (audio.StreamInfo, error) {
	e.src = newCountingReader(src)
	buffered := bufio.NewReaderSize(e.src, opusHeadPeek)

	head, err := buffered.Peek(opusHeadPeek)
	if err != nil && !isEndOfStream(err) {
		return audio.StreamInfo{}, fmt.Errorf("failed to read Opus header: %w", err)
	}

	channels, err := opusChannels(head)
	if err != nil {
		return audio.StreamInfo{}, err
	}
	e.channels = channels

	stream, err := opus.NewStream(buffered)
	if err != nil {
		return audio.StreamInfo{}, fmt.Errorf("failed to open Opus stream: %w", err)
	}
	e.stream = stream

	info := audio.StreamInfo{
		Codec:         CodecOpus,
		SampleRate:    opusSampleRate,
		Channels:      channels,
		FrameMaxBytes: e.src.take(),
		FrameSamples:  opusFrameSize * channels,
	}

	log.Printf("Opus: started %dHz %dch", info.SampleRate, info.Channels)
	return info, nil
}

// opusChannels extracts the output channel count from an OpusHead packet
func opusChannels(head []byte) (int, error) {
	idx := bytes.Index(head, opusHeadMagic)
	if idx < 0 || idx+len(opusHeadMagic)+2 > len(head) {
		return 0, fmt.Errorf("invalid Opus stream: no OpusHead header")
	}

	// magic, version, channel count
	channels := int(head[idx+len(opusHeadMagic)+1])
	if channels == 0 {
		return 0, fmt.Errorf("invalid Opus stream: zero channels")
	}
	return channels, nil
}

// Decode fills dst with interleaved samples
func (e *Opus) Decode(dst []int16) (Round, error) {
	if e.stream == nil {
		return Round{}, ErrNotStarted
	}
	if e.ended {
		return Round{}, nil
	}

	want := len(dst) - len(dst)%e.channels
	written := 0
	frames := 0

	for written < want {
		n, err := e.stream.Read(dst[written:want])
		if err != nil {
			if isEndOfStream(err) {
				e.ended = true
				break
			}
			return Round{}, fmt.Errorf("Opus decode failed: %w", err)
		}
		if n == 0 {
			e.ended = true
			break
		}
		written += n * e.channels
		frames++
	}

	return Round{
		Samples:       written,
		BytesConsumed: e.src.take(),
		Frames:        frames,
	}, nil
}

// Stop closes the Opus stream
func (e *Opus) Stop() error {
	if e.stream == nil {
		return nil
	}
	err := e.stream.Close()
	e.stream = nil
	return err
}
