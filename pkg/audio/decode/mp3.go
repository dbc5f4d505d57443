// ABOUTME: MP3 decode engine
// ABOUTME: Decodes MPEG audio to 16-bit stereo PCM using go-mp3
package decode

import (
	"encoding/binary"
	"fmt"
	"io"
	"log"

	"github.com/hajimehoshi/go-mp3"

	"github.com/Resonate-Protocol/streamplay/pkg/audio"
)

// go-mp3 always outputs stereo s16le
const (
	mp3Channels        = 2
	mp3SamplesPerFrame = 1152
)

// MP3 decodes MPEG-1/2 Layer III streams
type MP3 struct {
	src     *countingReader
	decoder *mp3.Decoder
	buf     []byte
	ended   bool
}

// NewMP3 creates an MP3 engine
func NewMP3() *MP3 {
	return &MP3{}
}

// Start parses the first frame and returns the stream parameters
func (e *MP3) Start(src io.Reader) (audio.StreamInfo, error) {
	e.src = newCountingReader(src)

	decoder, err := mp3.NewDecoder(e.src)
	if err != nil {
		return audio.StreamInfo{}, fmt.Errorf("failed to create MP3 decoder: %w", err)
	}
	e.decoder = decoder

	info := audio.StreamInfo{
		Codec:         CodecMP3,
		SampleRate:    decoder.SampleRate(),
		Channels:      mp3Channels,
		FrameMaxBytes: e.src.take(),
		FrameSamples:  mp3SamplesPerFrame * mp3Channels,
	}

	log.Printf("MP3: started %dHz stereo", info.SampleRate)
	return info, nil
}

// Decode fills dst with interleaved stereo samples
func (e *MP3) Decode(dst []int16) (Round, error) {
	if e.decoder == nil {
		return Round{}, ErrNotStarted
	}
	if e.ended {
		return Round{}, nil
	}

	need := len(dst) * audio.BytesPerSample
	if cap(e.buf) < need {
		e.buf = make([]byte, need)
	}
	buf := e.buf[:need]

	total := 0
	for total < len(buf) {
		n, err := e.decoder.Read(buf[total:])
		total += n
		if err != nil {
			if isEndOfStream(err) {
				e.ended = true
				break
			}
			return Round{}, fmt.Errorf("MP3 decode failed: %w", err)
		}
	}

	samples := total / audio.BytesPerSample
	for i := 0; i < samples; i++ {
		dst[i] = int16(binary.LittleEndian.Uint16(buf[i*2:]))
	}

	return Round{
		Samples:       samples,
		BytesConsumed: e.src.take(),
		Frames:        approxFrames(samples, mp3SamplesPerFrame*mp3Channels),
	}, nil
}

// Stop releases the decoder
func (e *MP3) Stop() error {
	e.decoder = nil
	e.buf = nil
	return nil
}
