// ABOUTME: FLAC decode engine
// ABOUTME: Decodes FLAC frames to 16-bit PCM using mewkiz/flac
package decode

import (
	"fmt"
	"io"
	"log"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"

	"github.com/Resonate-Protocol/streamplay/pkg/audio"
)

// FLAC decodes native FLAC streams
type FLAC struct {
	src      *countingReader
	stream   *flac.Stream
	bitDepth int
	channels int

	// pending holds interleaved samples of a frame that did not fit dst
	pending []int16
	ended   bool
}

// NewFLAC creates a FLAC engine
func NewFLAC() *FLAC {
	return &FLAC{}
}

// Start parses the metadata blocks and returns the stream parameters
func (e *FLAC) Start(src io.Reader) (audio.StreamInfo, error) {
	e.src = newCountingReader(src)

	stream, err := flac.New(e.src)
	if err != nil {
		return audio.StreamInfo{}, fmt.Errorf("failed to parse FLAC stream: %w", err)
	}
	e.stream = stream
	e.bitDepth = int(stream.Info.BitsPerSample)
	e.channels = int(stream.Info.NChannels)

	info := audio.StreamInfo{
		Codec:         CodecFLAC,
		SampleRate:    int(stream.Info.SampleRate),
		Channels:      e.channels,
		FrameMaxBytes: int(stream.Info.FrameSizeMax),
		FrameSamples:  int(stream.Info.BlockSizeMax) * e.channels,
	}
	e.src.take()

	log.Printf("FLAC: started %dHz %dch %d-bit", info.SampleRate, info.Channels, e.bitDepth)
	return info, nil
}

// Decode fills dst with whole or partial FLAC frames
func (e *FLAC) Decode(dst []int16) (Round, error) {
	if e.stream == nil {
		return Round{}, ErrNotStarted
	}

	written := copy(dst, e.pending)
	e.pending = e.pending[written:]
	frames := 0

	for written < len(dst) && !e.ended {
		f, err := e.stream.ParseNext()
		if err != nil {
			if isEndOfStream(err) {
				e.ended = true
				break
			}
			return Round{}, fmt.Errorf("FLAC decode failed: %w", err)
		}
		frames++

		interleaved := e.interleave(f.Subframes, int(f.BlockSize))
		n := copy(dst[written:], interleaved)
		written += n
		e.pending = interleaved[n:]
	}

	return Round{
		Samples:       written,
		BytesConsumed: e.src.take(),
		Frames:        frames,
	}, nil
}

func (e *FLAC) interleave(subframes []*frame.Subframe, blockSize int) []int16 {
	out := make([]int16, 0, blockSize*len(subframes))
	for i := 0; i < blockSize; i++ {
		for _, sub := range subframes {
			out = append(out, audio.ScaleToInt16(sub.Samples[i], e.bitDepth))
		}
	}
	return out
}

// Stop closes the FLAC stream
func (e *FLAC) Stop() error {
	if e.stream == nil {
		return nil
	}
	err := e.stream.Close()
	e.stream = nil
	e.pending = nil
	return err
}
