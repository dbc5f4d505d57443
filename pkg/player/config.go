// ABOUTME: Player configuration
// ABOUTME: Buffer sizes, bitrate assumption and playback thresholds with defaults
package player

import "time"

// Defaults applied to zero Config fields
const (
	DefaultAudioBufferCapacityMs  = 1500
	DefaultDecodeBufferCapacityMs = 700
	DefaultExpectedBitrateKbps    = 64
	DefaultMinPlayableMs          = 2000
	DefaultStartThreshold         = 0.5
	DefaultNotifyPeriodMs         = 200

	// minDeclaredBitrateKbps is the lowest declared bitrate taken seriously
	minDeclaredBitrateKbps = 8
)

// Sink timing
var (
	writeRetryDelay   = 50 * time.Millisecond
	drainPollInterval = 100 * time.Millisecond
	drainStablePolls  = 5
)

// Config holds player configuration
type Config struct {
	// AudioBufferCapacityMs is the device buffer size
	AudioBufferCapacityMs int

	// DecodeBufferCapacityMs is the size of one decoded PCM block
	DecodeBufferCapacityMs int

	// ExpectedBitrateKbps sizes the first byte chunks. Zero or negative
	// means unknown: the stream's declared bitrate is used if present.
	ExpectedBitrateKbps int

	// MinPlayableMs is the least audio a short stream is padded to
	MinPlayableMs int

	// StartThreshold is the buffered fraction of the device that starts playback
	StartThreshold float64

	// NotifyPeriodMs is the buffer status reporting period
	NotifyPeriodMs int
}

func (c Config) withDefaults() Config {
	if c.AudioBufferCapacityMs <= 0 {
		c.AudioBufferCapacityMs = DefaultAudioBufferCapacityMs
	}
	if c.DecodeBufferCapacityMs <= 0 {
		c.DecodeBufferCapacityMs = DefaultDecodeBufferCapacityMs
	}
	if c.MinPlayableMs <= 0 {
		c.MinPlayableMs = DefaultMinPlayableMs
	}
	if c.StartThreshold <= 0 || c.StartThreshold > 1 {
		c.StartThreshold = DefaultStartThreshold
	}
	if c.NotifyPeriodMs <= 0 {
		c.NotifyPeriodMs = DefaultNotifyPeriodMs
	}
	return c
}

// expectedBitrate picks the bitrate assumed before any data was decoded
func (c Config) expectedBitrate(declaredKbps int) int {
	if c.ExpectedBitrateKbps > 0 {
		return c.ExpectedBitrateKbps
	}
	if declaredKbps >= minDeclaredBitrateKbps {
		return declaredKbps
	}
	return DefaultExpectedBitrateKbps
}

// chunkCapacity is the number of encoded bytes holding one decode buffer
func (c Config) chunkCapacity(kbps int) int {
	return kbps * c.DecodeBufferCapacityMs / 8
}
