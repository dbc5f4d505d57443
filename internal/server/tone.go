// ABOUTME: Test tone generator for the stream server
// ABOUTME: Generates an interleaved 16-bit sine wave at a fixed frequency
package server

import (
	"math"
	"sync"
)

// ToneSource generates a sine tone duplicated to every channel
type ToneSource struct {
	sampleIndex uint64
	sampleMu    sync.Mutex
	frequency   float64
	sampleRate  int
	channels    int
}

// NewToneSource creates a new tone generator
func NewToneSource(sampleRate, channels int, frequency float64) *ToneSource {
	return &ToneSource{
		frequency:  frequency,
		sampleRate: sampleRate,
		channels:   channels,
	}
}

// Read fills samples with whole frames and returns the samples written
func (s *ToneSource) Read(samples []int16) int {
	s.sampleMu.Lock()
	defer s.sampleMu.Unlock()

	numFrames := len(samples) / s.channels

	for i := 0; i < numFrames; i++ {
		t := float64(s.sampleIndex+uint64(i)) / float64(s.sampleRate)
		sample := math.Sin(2 * math.Pi * s.frequency * t)

		// 50% volume
		pcmValue := int16(sample * 32767.0 * 0.5)

		for ch := 0; ch < s.channels; ch++ {
			samples[i*s.channels+ch] = pcmValue
		}
	}

	s.sampleIndex += uint64(numFrames)

	return numFrames * s.channels
}

func (s *ToneSource) SampleRate() int { return s.sampleRate }
func (s *ToneSource) Channels() int   { return s.channels }
