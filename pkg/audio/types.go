// ABOUTME: Audio type definitions
// ABOUTME: Defines stream info, PCM blocks and sample/duration conversions
package audio

import "math"

const (
	// BytesPerSample is the size of one 16-bit PCM sample
	BytesPerSample = 2

	// MaxChannels is the highest channel count the pipeline can play
	MaxChannels = 2
)

// StreamInfo describes a decoded stream. It is established once when the
// decode engine starts and never changes afterwards.
type StreamInfo struct {
	Codec      string
	SampleRate int
	Channels   int

	// FrameMaxBytes is the largest number of encoded bytes a single frame
	// consumed so far (0 if unknown)
	FrameMaxBytes int

	// FrameSamples is the number of samples (all channels) per frame
	FrameSamples int

	// FirstSamples holds PCM already decoded while probing the stream
	FirstSamples []int16
}

// SamplesPerSecond returns the interleaved sample rate needed for real-time playback
func (i StreamInfo) SamplesPerSecond() int {
	return i.SampleRate * i.Channels
}

// PCMBlock is a reusable interleaved sample buffer with a valid-sample count
type PCMBlock struct {
	Samples []int16
	Count   int
}

// NewPCMBlock allocates a block able to hold size samples
func NewPCMBlock(size int) *PCMBlock {
	return &PCMBlock{Samples: make([]int16, size)}
}

// Valid returns the filled part of the block
func (b *PCMBlock) Valid() []int16 {
	return b.Samples[:b.Count]
}

// MsToBytes converts a duration to a 16-bit PCM buffer size in bytes
func MsToBytes(ms, sampleRate, channels int) int {
	return int(int64(ms) * int64(sampleRate) * int64(channels) / 500)
}

// MsToSamples converts a duration to an interleaved sample count
func MsToSamples(ms, sampleRate, channels int) int {
	return int(int64(ms) * int64(sampleRate) * int64(channels) / 1000)
}

// BytesToMs converts a 16-bit PCM buffer size in bytes to a duration
func BytesToMs(bytes, sampleRate, channels int) int {
	if sampleRate <= 0 || channels <= 0 {
		return 0
	}
	return int(500 * int64(bytes) / int64(sampleRate*channels))
}

// SamplesToMs converts an interleaved sample count to a duration
func SamplesToMs(samples, sampleRate, channels int) int {
	if sampleRate <= 0 || channels <= 0 {
		return 0
	}
	return int(1000 * int64(samples) / int64(sampleRate*channels))
}

// ScaleToInt16 converts a signed sample of the given bit depth to 16-bit
func ScaleToInt16(sample int32, bitDepth int) int16 {
	switch {
	case bitDepth == 16:
		return int16(sample)
	case bitDepth > 16:
		return int16(sample >> (bitDepth - 16))
	default:
		return int16(sample << (16 - bitDepth))
	}
}

// FloatToInt16 converts a normalized float sample with clipping
func FloatToInt16(sample float32) int16 {
	v := float64(sample) * 32767
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
