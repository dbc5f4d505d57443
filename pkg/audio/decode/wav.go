// ABOUTME: WAV decode engine
// ABOUTME: Reads RIFF/WAVE PCM (8, 16 and 24-bit) as 16-bit samples
package decode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/Resonate-Protocol/streamplay/pkg/audio"
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE

	// wavFrameSize groups PCM into pseudo-frames for rate statistics
	wavFrameSize = 1024
)

// ErrInvalidWAV is returned for malformed RIFF/WAVE headers
var ErrInvalidWAV = errors.New("invalid WAV stream")

// WAV decodes uncompressed PCM in a RIFF/WAVE container
type WAV struct {
	src      *countingReader
	channels int
	bitDepth int
	buf      []byte
	ended    bool
	started  bool
}

// NewWAV creates a WAV engine
func NewWAV() *WAV {
	return &WAV{}
}

// Start walks the RIFF chunks up to the data chunk
func (e *WAV) Start(src io.Reader) (audio.StreamInfo, error) {
	e.src = newCountingReader(src)

	var riff [12]byte
	if _, err := io.ReadFull(e.src, riff[:]); err != nil {
		return audio.StreamInfo{}, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return audio.StreamInfo{}, fmt.Errorf("%w: missing RIFF/WAVE header", ErrInvalidWAV)
	}

	var sampleRate int
	haveFormat := false

	for {
		var header [8]byte
		if _, err := io.ReadFull(e.src, header[:]); err != nil {
			return audio.StreamInfo{}, fmt.Errorf("%w: no data chunk: %v", ErrInvalidWAV, err)
		}
		id := string(header[0:4])
		size := int64(binary.LittleEndian.Uint32(header[4:8]))

		if id == "data" {
			break
		}

		if id != "fmt " {
			if err := e.skip(size + size%2); err != nil {
				return audio.StreamInfo{}, err
			}
			continue
		}

		if size < 16 {
			return audio.StreamInfo{}, fmt.Errorf("%w: fmt chunk too short", ErrInvalidWAV)
		}
		var fmtChunk [16]byte
		if _, err := io.ReadFull(e.src, fmtChunk[:]); err != nil {
			return audio.StreamInfo{}, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
		}
		format := binary.LittleEndian.Uint16(fmtChunk[0:2])
		if format != wavFormatPCM && format != wavFormatExtensible {
			return audio.StreamInfo{}, fmt.Errorf("%w: WAV format %d", ErrUnsupportedCodec, format)
		}
		e.channels = int(binary.LittleEndian.Uint16(fmtChunk[2:4]))
		sampleRate = int(binary.LittleEndian.Uint32(fmtChunk[4:8]))
		e.bitDepth = int(binary.LittleEndian.Uint16(fmtChunk[14:16]))
		haveFormat = true

		if err := e.skip(size - 16 + size%2); err != nil {
			return audio.StreamInfo{}, err
		}
	}

	if !haveFormat {
		return audio.StreamInfo{}, fmt.Errorf("%w: data before fmt chunk", ErrInvalidWAV)
	}
	if e.channels <= 0 || sampleRate <= 0 {
		return audio.StreamInfo{}, fmt.Errorf("%w: %dHz %dch", ErrInvalidWAV, sampleRate, e.channels)
	}
	if e.bitDepth != 8 && e.bitDepth != 16 && e.bitDepth != 24 {
		return audio.StreamInfo{}, fmt.Errorf("unsupported bit depth: %d (supported: 8, 16, 24)", e.bitDepth)
	}

	e.src.take()
	e.started = true

	frameSamples := wavFrameSize * e.channels
	info := audio.StreamInfo{
		Codec:         CodecWAV,
		SampleRate:    sampleRate,
		Channels:      e.channels,
		FrameMaxBytes: frameSamples * e.bitDepth / 8,
		FrameSamples:  frameSamples,
	}

	log.Printf("WAV: started %dHz %dch %d-bit", sampleRate, e.channels, e.bitDepth)
	return info, nil
}

func (e *WAV) skip(n int64) error {
	if n <= 0 {
		return nil
	}
	if _, err := io.CopyN(io.Discard, e.src, n); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidWAV, err)
	}
	return nil
}

// Decode fills dst with samples converted to 16-bit
func (e *WAV) Decode(dst []int16) (Round, error) {
	if !e.started {
		return Round{}, ErrNotStarted
	}
	if e.ended {
		return Round{}, nil
	}

	width := e.bitDepth / 8
	need := len(dst) * width
	if cap(e.buf) < need {
		e.buf = make([]byte, need)
	}
	buf := e.buf[:need]

	n, err := io.ReadFull(e.src, buf)
	if err != nil {
		if !isEndOfStream(err) {
			return Round{}, fmt.Errorf("WAV read failed: %w", err)
		}
		e.ended = true
	}

	samples := n / width
	for i := 0; i < samples; i++ {
		dst[i] = e.sample(buf[i*width:])
	}

	return Round{
		Samples:       samples,
		BytesConsumed: e.src.take(),
		Frames:        approxFrames(samples, wavFrameSize*e.channels),
	}, nil
}

func (e *WAV) sample(b []byte) int16 {
	switch e.bitDepth {
	case 8:
		// 8-bit WAV is unsigned
		return audio.ScaleToInt16(int32(b[0])-128, 8)
	case 24:
		v := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
		if v&0x800000 != 0 {
			v |= ^0xFFFFFF
		}
		return audio.ScaleToInt16(v, 24)
	default:
		return int16(binary.LittleEndian.Uint16(b))
	}
}

// Stop releases the buffer
func (e *WAV) Stop() error {
	e.started = false
	e.buf = nil
	return nil
}
