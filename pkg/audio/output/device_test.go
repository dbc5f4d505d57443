// ABOUTME: Tests for the device contract helpers
// ABOUTME: Tests configuration validation and volume scaling
package output

import "testing"

func TestOtoImplementsDevice(t *testing.T) {
	var _ Device = (*Oto)(nil)
	var _ VolumeSetter = (*Oto)(nil)
	var _ Factory = NewOto
	var _ Factory = NewPortAudio
}

func TestDeviceConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     DeviceConfig
		wantErr bool
	}{
		{"stereo", DeviceConfig{SampleRate: 44100, Channels: 2, CapacityBytes: 264600}, false},
		{"mono", DeviceConfig{SampleRate: 22050, Channels: 1, CapacityBytes: 4410}, false},
		{"zero rate", DeviceConfig{SampleRate: 0, Channels: 2, CapacityBytes: 1024}, true},
		{"surround", DeviceConfig{SampleRate: 48000, Channels: 6, CapacityBytes: 1024}, true},
		{"tiny buffer", DeviceConfig{SampleRate: 48000, Channels: 2, CapacityBytes: 2}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCapacityFrames(t *testing.T) {
	cfg := DeviceConfig{SampleRate: 44100, Channels: 2, CapacityBytes: 264600}
	if got := cfg.CapacityFrames(); got != 66150 {
		t.Errorf("expected 66150 frames, got %d", got)
	}
}

func TestGetVolumeMultiplier(t *testing.T) {
	tests := []struct {
		name     string
		volume   int
		expected float64
	}{
		{"full", 100, 1.0},
		{"half", 50, 0.5},
		{"silent", 0, 0.0},
		{"clamped high", 150, 1.0},
		{"clamped low", -10, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := getVolumeMultiplier(tt.volume); got != tt.expected {
				t.Errorf("expected %f, got %f", tt.expected, got)
			}
		})
	}
}
