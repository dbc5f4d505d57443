// ABOUTME: Audio output package for playing PCM
// ABOUTME: Provides the Device contract with oto and PortAudio implementations
// Package output provides buffered audio devices.
//
// A Device accepts interleaved 16-bit PCM into a bounded buffer, starts and
// pauses playback on request and reports the playback head so callers can
// tell how much audio is still queued. One-shot markers and periodic
// notifications fire from a watcher goroutine as the head advances.
//
// oto is the default backend. PortAudio is available with -tags portaudio.
//
// Example:
//
//	dev, err := output.NewOto(output.DeviceConfig{SampleRate: 44100, Channels: 2, CapacityBytes: 264600})
//	n, err := dev.Write(samples)
//	err = dev.Play()
package output
