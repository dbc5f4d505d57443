// ABOUTME: Oto-based audio device implementation
// ABOUTME: Feeds a persistent oto player from a ring buffer with resampling and volume
package output

import (
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/ebitengine/oto/v3"

	"github.com/Resonate-Protocol/streamplay/pkg/audio"
	"github.com/Resonate-Protocol/streamplay/pkg/audio/resample"
)

// otoChannels is the channel count of the shared context; mono is upmixed
const otoChannels = 2

// oto allows only one context per process, so every device shares it and
// sessions at another rate are resampled to the context rate.
var (
	otoMu   sync.Mutex
	otoCtx  *oto.Context
	otoRate int
)

func sharedContext(sampleRate int) (*oto.Context, int, error) {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoCtx != nil {
		return otoCtx, otoRate, nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: otoChannels,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create oto context: %w", err)
	}

	<-readyChan

	otoCtx = ctx
	otoRate = sampleRate
	log.Printf("Audio output initialized: %dHz, %d channels", sampleRate, otoChannels)

	return otoCtx, otoRate, nil
}

// Oto is a Device backed by the shared oto context
type Oto struct {
	cfg     DeviceConfig
	outRate int

	mu        sync.Mutex
	player    *oto.Player
	ring      *RingBuffer
	resampler *resample.Resampler
	watcher   *headWatcher
	scratch   []int16
	resampled []int16
	volume    int
	released  bool
}

// NewOto creates an oto device. It satisfies Factory.
func NewOto(cfg DeviceConfig) (Device, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ctx, outRate, err := sharedContext(cfg.SampleRate)
	if err != nil {
		return nil, err
	}

	o := &Oto{
		cfg:     cfg,
		outRate: outRate,
		volume:  100,
	}

	capacityFrames := cfg.CapacityFrames()
	if outRate != cfg.SampleRate {
		o.resampler = resample.New(cfg.SampleRate, outRate, otoChannels)
		capacityFrames = int(float64(capacityFrames)/o.resampler.Ratio()) + 2
		log.Printf("Audio output resampling %dHz -> %dHz", cfg.SampleRate, outRate)
	}
	o.ring = NewRingBuffer(capacityFrames * otoChannels)

	o.player = ctx.NewPlayer(&ringReader{ring: o.ring})
	o.watcher = newHeadWatcher(o.PlaybackHeadPosition, watchInterval)

	log.Printf("Audio device opened: %dHz %dch, %d frames", cfg.SampleRate, cfg.Channels, cfg.CapacityFrames())
	return o, nil
}

// Write queues samples without blocking and returns how many were accepted
func (o *Oto) Write(samples []int16) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.released {
		return 0, ErrReleased
	}

	ch := o.cfg.Channels
	frames := len(samples) / ch
	freeFrames := o.ring.Free() / otoChannels

	accept := min(frames, freeFrames)
	if o.resampler != nil {
		accept = min(frames, int(float64(freeFrames-2)*o.resampler.Ratio()))
	}
	if accept <= 0 {
		return 0, nil
	}

	out := o.upmix(samples[:accept*ch])
	if o.resampler != nil {
		o.resampled = o.resampler.Resample(o.resampled[:0], out)
		out = o.resampled
	}

	if n := o.ring.Write(out); n != len(out) {
		log.Printf("Audio device dropped %d samples", len(out)-n)
	}

	return accept * ch, nil
}

// upmix returns samples in the context's channel layout
func (o *Oto) upmix(samples []int16) []int16 {
	if o.cfg.Channels == otoChannels {
		return samples
	}

	o.scratch = o.scratch[:0]
	for _, s := range samples {
		o.scratch = append(o.scratch, s, s)
	}
	return o.scratch
}

// Play starts or resumes playback
func (o *Oto) Play() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.released {
		return ErrReleased
	}
	o.player.Play()
	return nil
}

// Pause halts playback
func (o *Oto) Pause() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.released {
		return ErrReleased
	}
	o.player.Pause()
	return nil
}

// Flush drops queued samples
func (o *Oto) Flush() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.released {
		return ErrReleased
	}
	o.ring.Clear()
	if o.resampler != nil {
		o.resampler.Reset()
	}
	o.watcher.reset()
	return nil
}

// Release stops the player; the shared context stays open
func (o *Oto) Release() error {
	o.mu.Lock()
	if o.released {
		o.mu.Unlock()
		return nil
	}
	o.released = true
	o.ring.Close()
	o.mu.Unlock()

	o.watcher.close()

	if err := o.player.Close(); err != nil {
		return fmt.Errorf("failed to close player: %w", err)
	}
	log.Printf("Audio device released")
	return nil
}

// PlaybackHeadPosition returns frames played, in the device's own rate
func (o *Oto) PlaybackHeadPosition() (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player == nil {
		return 0, ErrNotInitialized
	}
	if o.released {
		return 0, ErrReleased
	}

	buffered := o.player.BufferedSize() / audio.BytesPerSample
	frames := int(o.ring.Played(buffered) / otoChannels)

	if o.resampler != nil {
		frames = int(float64(frames) * o.resampler.Ratio())
	}
	return frames, nil
}

// SetMarker arms a one-shot callback at frame
func (o *Oto) SetMarker(frame int, fn func()) {
	o.watcher.setMarker(frame, fn)
}

// SetPeriodicNotification fires fn every frames of playback
func (o *Oto) SetPeriodicNotification(frames int, fn func()) {
	o.watcher.setPeriodic(frames, fn)
}

// SetVolume sets the volume (0-100)
func (o *Oto) SetVolume(volume int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.volume = clampVolume(volume)
	o.player.SetVolume(getVolumeMultiplier(o.volume))
	log.Printf("Volume set to %d", o.volume)
}

// ringReader exposes the ring as the little-endian byte stream oto pulls
type ringReader struct {
	ring *RingBuffer
	buf  []int16
}

func (r *ringReader) Read(p []byte) (int, error) {
	if r.ring.Closed() {
		return 0, io.EOF
	}

	n := len(p) / audio.BytesPerSample
	if n == 0 {
		return 0, nil
	}
	if cap(r.buf) < n {
		r.buf = make([]int16, n)
	}
	buf := r.buf[:n]

	r.ring.Read(buf)
	for i, s := range buf {
		binary.LittleEndian.PutUint16(p[i*2:], uint16(s))
	}
	return n * audio.BytesPerSample, nil
}
