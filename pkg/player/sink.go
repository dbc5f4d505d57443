// ABOUTME: PCM sink feeding the audio device
// ABOUTME: Single-slot hand-off, start threshold, buffer status and drain on stop
package player

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Resonate-Protocol/streamplay/pkg/audio"
	"github.com/Resonate-Protocol/streamplay/pkg/audio/output"
)

// SinkState is the lifecycle state of a Sink
type SinkState int

const (
	SinkIdle SinkState = iota
	SinkBuffering
	SinkPlaying
	SinkDraining
	SinkStopped
)

func (s SinkState) String() string {
	switch s {
	case SinkIdle:
		return "idle"
	case SinkBuffering:
		return "buffering"
	case SinkPlaying:
		return "playing"
	case SinkDraining:
		return "draining"
	case SinkStopped:
		return "stopped"
	default:
		return fmt.Sprintf("SinkState(%d)", int(s))
	}
}

// Sink consumes PCM blocks on its own goroutine and writes them to a device
type Sink struct {
	id        string
	info      audio.StreamInfo
	cfg       Config
	newDevice output.Factory
	callback  Callback

	capacityBytes  int
	thresholdBytes int
	minSamples     int
	notifyFrames   int

	mu        sync.Mutex
	cond      *sync.Cond
	pending   *audio.PCMBlock
	state     SinkState
	playing   bool
	started   bool
	ended     bool
	stopping  bool
	immediate bool
	err       error
	device    output.Device
	volume    int

	written atomic.Int64
	abort   chan struct{}
	done    chan struct{}
}

// NewSink creates a sink for a stream. Run must be started on its own goroutine.
func NewSink(id string, info audio.StreamInfo, cfg Config, newDevice output.Factory, callback Callback) *Sink {
	cfg = cfg.withDefaults()

	capacityBytes := audio.MsToBytes(cfg.AudioBufferCapacityMs, info.SampleRate, info.Channels)

	s := &Sink{
		id:             id,
		info:           info,
		cfg:            cfg,
		newDevice:      newDevice,
		callback:       callback,
		capacityBytes:  capacityBytes,
		thresholdBytes: int(float64(capacityBytes) * cfg.StartThreshold),
		minSamples:     audio.MsToSamples(cfg.MinPlayableMs, info.SampleRate, info.Channels),
		notifyFrames:   cfg.NotifyPeriodMs * info.SampleRate / 1000,
		volume:         -1,
		abort:          make(chan struct{}),
		done:           make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Run is the consumption loop. It returns after the device was released.
func (s *Sink) Run() {
	defer close(s.done)
	defer s.finish()

	s.mu.Lock()
	if s.stopping && s.immediate {
		s.mu.Unlock()
		log.Printf("Sink: [%s] stopped before start", s.id)
		return
	}
	s.mu.Unlock()

	device, err := s.newDevice(output.DeviceConfig{
		SampleRate:    s.info.SampleRate,
		Channels:      s.info.Channels,
		CapacityBytes: s.capacityBytes,
	})
	if err != nil {
		s.fail(&SinkError{Op: "open", Err: err})
		return
	}
	defer s.shutdown()

	s.mu.Lock()
	s.device = device
	s.state = SinkBuffering
	if setter, ok := device.(output.VolumeSetter); ok && s.volume >= 0 {
		setter.SetVolume(s.volume)
	}
	s.mu.Unlock()

	if s.notifyFrames > 0 {
		device.SetPeriodicNotification(s.notifyFrames, s.notify)
	}

	log.Printf("Sink: [%s] buffering %dHz %dch, capacity %d bytes, start at %d bytes",
		s.id, s.info.SampleRate, s.info.Channels, s.capacityBytes, s.thresholdBytes)

	for {
		block, ok := s.take()
		if !ok {
			break
		}
		if err := s.write(block.Valid()); err != nil {
			s.fail(&SinkError{Op: "write", Err: err})
			return
		}
	}

	if s.abortRequested() {
		return
	}
	s.drain()
}

// Feed hands a block to the sink, blocking until the previous block was
// taken. It returns false once the sink no longer accepts data.
func (s *Sink) Feed(block *audio.PCMBlock) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.pending != nil && s.accepting() {
		s.cond.Wait()
	}
	if !s.accepting() {
		return false
	}

	s.pending = block
	s.cond.Broadcast()
	return true
}

// accepting must be called with s.mu held
func (s *Sink) accepting() bool {
	return !s.stopping && s.err == nil && s.state != SinkStopped
}

// take waits for the next block. Pending data is still written after a
// draining stop and discarded after an immediate one.
func (s *Sink) take() (*audio.PCMBlock, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.pending == nil && !s.stopping {
		s.cond.Wait()
	}
	if s.immediate || s.pending == nil {
		return nil, false
	}

	block := s.pending
	s.pending = nil
	s.cond.Broadcast()
	return block, true
}

// write pushes samples into the device, retrying while it is full
func (s *Sink) write(samples []int16) error {
	for len(samples) > 0 {
		if s.abortRequested() || s.hasEnded() {
			return nil
		}

		n, err := s.device.Write(samples)
		if err != nil {
			return err
		}
		samples = samples[n:]
		s.written.Add(int64(n))

		// A full device starts even below the threshold
		if err := s.maybeStart(len(samples) > 0); err != nil {
			return err
		}

		if len(samples) > 0 {
			s.sleep(writeRetryDelay)
		}
	}
	return nil
}

// maybeStart starts playback once enough audio is buffered, or when the
// device is full. It never restarts a stream paused at its end.
func (s *Sink) maybeStart(full bool) error {
	s.mu.Lock()
	if s.playing || s.ended {
		s.mu.Unlock()
		return nil
	}
	buffered := int(s.written.Load()) * audio.BytesPerSample
	switch s.state {
	case SinkBuffering:
		if buffered < s.thresholdBytes && !full {
			s.mu.Unlock()
			return nil
		}
	case SinkDraining:
		if !full {
			s.mu.Unlock()
			return nil
		}
	default:
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	log.Printf("Sink: [%s] playing with %d bytes buffered", s.id, buffered)
	return s.start()
}

// start plays the device and reports Started the first time
func (s *Sink) start() error {
	s.mu.Lock()
	if s.playing {
		s.mu.Unlock()
		return nil
	}
	if err := s.device.Play(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.playing = true
	if s.state == SinkBuffering {
		s.state = SinkPlaying
	}
	first := !s.started
	s.started = true
	s.mu.Unlock()

	if first {
		s.callback.Started()
	}
	return nil
}

// drain plays out what is queued. Short streams are padded with silence
// to the minimum playable length and paused at their real end.
func (s *Sink) drain() {
	s.mu.Lock()
	wasPlaying := s.playing
	s.state = SinkDraining
	s.mu.Unlock()

	written := int(s.written.Load())
	if written == 0 {
		return
	}

	if !wasPlaying {
		log.Printf("Sink: [%s] short stream of %d samples, padding to %d", s.id, written, s.minSamples)

		s.device.SetMarker(written/s.info.Channels, s.pauseAtEnd)

		if written < s.minSamples {
			if err := s.write(make([]int16, s.minSamples-written)); err != nil {
				s.fail(&SinkError{Op: "pad", Err: err})
				return
			}
		}

		if !s.hasEnded() {
			if err := s.start(); err != nil {
				s.fail(&SinkError{Op: "play", Err: err})
				return
			}
		}
	}

	last := -1
	stable := 0
	for !s.abortRequested() {
		buffered, err := s.buffered()
		if err != nil {
			// The device will not report progress again
			log.Printf("Sink: [%s] head position unavailable, ending drain: %v", s.id, err)
			break
		}
		if buffered <= 0 {
			break
		}
		if buffered == last {
			stable++
			if stable >= drainStablePolls {
				break
			}
		} else {
			stable = 0
		}
		last = buffered
		s.sleep(drainPollInterval)
	}

	log.Printf("Sink: [%s] drained", s.id)
}

// pauseAtEnd runs on the device's notification goroutine when a padded
// stream reaches its real end
func (s *Sink) pauseAtEnd() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ended = true
	if s.device == nil || !s.playing || s.state == SinkStopped {
		return
	}
	if err := s.device.Pause(); err != nil {
		log.Printf("Sink: [%s] pause at end failed: %v", s.id, err)
		return
	}
	s.playing = false
}

func (s *Sink) hasEnded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

// buffered returns the samples written but not yet played
func (s *Sink) buffered() (int, error) {
	head, err := s.device.PlaybackHeadPosition()
	if err != nil {
		return 0, err
	}
	return int(s.written.Load()) - head*s.info.Channels, nil
}

// notify runs on the device's notification goroutine
func (s *Sink) notify() {
	buffered, err := s.buffered()
	if err != nil {
		log.Printf("Sink: [%s] head position unavailable: %v", s.id, err)
		return
	}

	s.mu.Lock()
	playing := s.playing
	s.mu.Unlock()

	s.callback.BufferStatus(
		playing,
		audio.SamplesToMs(buffered, s.info.SampleRate, s.info.Channels),
		s.cfg.AudioBufferCapacityMs,
	)
}

// shutdown releases the device: pause if playing, flush, release
func (s *Sink) shutdown() {
	s.mu.Lock()
	s.state = SinkStopped
	playing := s.playing
	s.playing = false
	device := s.device
	s.cond.Broadcast()
	s.mu.Unlock()

	device.SetPeriodicNotification(0, nil)
	device.SetMarker(0, nil)

	if playing {
		if err := device.Pause(); err != nil {
			log.Printf("Sink: [%s] pause failed: %v", s.id, err)
		}
	}
	if err := device.Flush(); err != nil {
		log.Printf("Sink: [%s] flush failed: %v", s.id, err)
	}
	if err := device.Release(); err != nil {
		log.Printf("Sink: [%s] release failed: %v", s.id, err)
	}

	log.Printf("Sink: [%s] released after %d samples", s.id, s.written.Load())
}

// finish marks the sink stopped and wakes any blocked Feed
func (s *Sink) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = SinkStopped
	s.pending = nil
	s.cond.Broadcast()
}

func (s *Sink) fail(err error) {
	log.Printf("Sink: [%s] %v", s.id, err)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
	s.cond.Broadcast()
}

// Stop ends the sink. A draining stop plays out queued audio first; an
// immediate stop discards it. Stop may be called more than once, before
// Run, and an immediate stop overrides a draining one.
func (s *Sink) Stop(immediate bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.stopping {
		log.Printf("Sink: [%s] stop requested (immediate=%v)", s.id, immediate)
	}
	s.stopping = true
	if immediate && !s.immediate {
		s.immediate = true
		close(s.abort)
	}
	s.cond.Broadcast()
}

// SetVolume applies a 0-100 volume to the device if it supports one
func (s *Sink) SetVolume(volume int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.volume = volume
	if setter, ok := s.device.(output.VolumeSetter); ok {
		setter.SetVolume(volume)
	}
}

// State returns the current lifecycle state
func (s *Sink) State() SinkState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the failure that stopped the sink, if any
func (s *Sink) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Written returns the total samples accepted by the device
func (s *Sink) Written() int64 {
	return s.written.Load()
}

// Done is closed when Run has returned
func (s *Sink) Done() <-chan struct{} {
	return s.done
}

func (s *Sink) abortRequested() bool {
	select {
	case <-s.abort:
		return true
	default:
		return false
	}
}

// sleep waits for d or until an immediate stop
func (s *Sink) sleep(d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-s.abort:
	case <-timer.C:
	}
}
