// ABOUTME: Audio device contract
// ABOUTME: Device interface, creation parameters and shared errors
package output

import (
	"errors"
	"fmt"

	"github.com/Resonate-Protocol/streamplay/pkg/audio"
)

var (
	// ErrNotInitialized is returned when a device is used before it was opened
	ErrNotInitialized = errors.New("output not initialized")

	// ErrReleased is returned when a device is used after Release
	ErrReleased = errors.New("output released")
)

// DeviceConfig describes the PCM format and buffer size of a device
type DeviceConfig struct {
	SampleRate    int
	Channels      int
	CapacityBytes int
}

// Validate checks that the configuration describes a playable device
func (c DeviceConfig) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate: %d", c.SampleRate)
	}
	if c.Channels < 1 || c.Channels > audio.MaxChannels {
		return fmt.Errorf("invalid channel count: %d", c.Channels)
	}
	if c.CapacityBytes < audio.BytesPerSample*c.Channels {
		return fmt.Errorf("invalid buffer capacity: %d bytes", c.CapacityBytes)
	}
	return nil
}

// CapacityFrames returns the buffer capacity in sample frames
func (c DeviceConfig) CapacityFrames() int {
	return c.CapacityBytes / (audio.BytesPerSample * c.Channels)
}

// Device is a buffered PCM output
type Device interface {
	// Write queues interleaved samples and returns how many were accepted.
	// It never blocks; a full buffer accepts fewer samples or none.
	Write(samples []int16) (int, error)

	// Play starts or resumes playback
	Play() error

	// Pause halts playback and keeps queued samples
	Pause() error

	// Flush drops queued samples
	Flush() error

	// Release frees the device. It is safe to call more than once.
	Release() error

	// PlaybackHeadPosition returns the number of frames played so far
	PlaybackHeadPosition() (int, error)

	// SetMarker arms a one-shot callback fired once the head reaches frame
	SetMarker(frame int, fn func())

	// SetPeriodicNotification fires fn every time the head advances by frames
	SetPeriodicNotification(frames int, fn func())
}

// VolumeSetter is implemented by devices with software volume (0-100)
type VolumeSetter interface {
	SetVolume(volume int)
}

// Factory creates a device for a session
type Factory func(cfg DeviceConfig) (Device, error)

// clampVolume limits volume to 0-100
func clampVolume(volume int) int {
	if volume < 0 {
		return 0
	}
	if volume > 100 {
		return 100
	}
	return volume
}

// getVolumeMultiplier calculates the gain for a 0-100 volume
func getVolumeMultiplier(volume int) float64 {
	return float64(clampVolume(volume)) / 100.0
}
