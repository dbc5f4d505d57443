//go:build portaudio

// ABOUTME: PortAudio device implementation
// ABOUTME: Cross-platform audio output pulling from a ring buffer in the stream callback
package output

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"
)

// PortAudio is a Device backed by a PortAudio callback stream
type PortAudio struct {
	cfg     DeviceConfig
	stream  *portaudio.Stream
	ring    *RingBuffer
	watcher *headWatcher

	playing  atomic.Bool
	volume   atomic.Int32
	mu       sync.Mutex
	released bool
}

// NewPortAudio opens the default output stream. It satisfies Factory.
func NewPortAudio(cfg DeviceConfig) (Device, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	p := &PortAudio{
		cfg:  cfg,
		ring: NewRingBuffer(cfg.CapacityFrames() * cfg.Channels),
	}
	p.volume.Store(100)

	stream, err := portaudio.OpenDefaultStream(0, cfg.Channels, float64(cfg.SampleRate), 0, p.callback)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to start stream: %w", err)
	}

	p.stream = stream
	p.watcher = newHeadWatcher(p.PlaybackHeadPosition, watchInterval)

	log.Printf("PortAudio device opened: %dHz %dch", cfg.SampleRate, cfg.Channels)
	return p, nil
}

func (p *PortAudio) callback(out []int16) {
	if !p.playing.Load() {
		clear(out)
		return
	}

	p.ring.Read(out)

	if volume := p.volume.Load(); volume < 100 {
		gain := getVolumeMultiplier(int(volume))
		for i, s := range out {
			out[i] = int16(float64(s) * gain)
		}
	}
}

// Write queues samples without blocking and returns how many were accepted
func (p *PortAudio) Write(samples []int16) (int, error) {
	if p.isReleased() {
		return 0, ErrReleased
	}
	whole := len(samples) - len(samples)%p.cfg.Channels
	return p.ring.Write(samples[:whole]), nil
}

// Play starts or resumes playback
func (p *PortAudio) Play() error {
	if p.isReleased() {
		return ErrReleased
	}
	p.playing.Store(true)
	return nil
}

// Pause halts playback
func (p *PortAudio) Pause() error {
	if p.isReleased() {
		return ErrReleased
	}
	p.playing.Store(false)
	return nil
}

// Flush drops queued samples
func (p *PortAudio) Flush() error {
	if p.isReleased() {
		return ErrReleased
	}
	p.ring.Clear()
	p.watcher.reset()
	return nil
}

// Release stops and closes the stream
func (p *PortAudio) Release() error {
	p.mu.Lock()
	if p.released {
		p.mu.Unlock()
		return nil
	}
	p.released = true
	p.mu.Unlock()

	p.playing.Store(false)
	p.ring.Close()
	p.watcher.close()

	if err := p.stream.Stop(); err != nil {
		return err
	}
	if err := p.stream.Close(); err != nil {
		return err
	}
	return portaudio.Terminate()
}

// PlaybackHeadPosition returns frames handed to the stream
func (p *PortAudio) PlaybackHeadPosition() (int, error) {
	if p.stream == nil {
		return 0, ErrNotInitialized
	}
	return int(p.ring.Played(0)) / p.cfg.Channels, nil
}

// SetMarker arms a one-shot callback at frame
func (p *PortAudio) SetMarker(frame int, fn func()) {
	p.watcher.setMarker(frame, fn)
}

// SetPeriodicNotification fires fn every frames of playback
func (p *PortAudio) SetPeriodicNotification(frames int, fn func()) {
	p.watcher.setPeriodic(frames, fn)
}

// SetVolume sets the volume (0-100)
func (p *PortAudio) SetVolume(volume int) {
	p.volume.Store(int32(clampVolume(volume)))
}

func (p *PortAudio) isReleased() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.released
}
