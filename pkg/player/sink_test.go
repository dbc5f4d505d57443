// ABOUTME: Tests for the PCM sink
// ABOUTME: Covers start threshold, drain padding, immediate stop and device failures
package player

import (
	"errors"
	"testing"
	"time"

	"github.com/Resonate-Protocol/streamplay/pkg/audio"
	"github.com/Resonate-Protocol/streamplay/pkg/audio/output"
)

func monoInfo(sampleRate int) audio.StreamInfo {
	return audio.StreamInfo{Codec: "test", SampleRate: sampleRate, Channels: 1}
}

func filledBlock(n int) *audio.PCMBlock {
	b := audio.NewPCMBlock(n)
	for i := range b.Samples {
		b.Samples[i] = 1000
	}
	b.Count = n
	return b
}

func waitDone(t *testing.T, s *Sink) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("sink did not finish")
	}
}

func waitStarted(t *testing.T, rec *recorder) {
	t.Helper()
	select {
	case <-rec.startCh:
	case <-time.After(2 * time.Second):
		t.Fatal("playback did not start")
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

// 1000Hz mono with a one second device: 1000 samples, threshold 500
var smallSinkConfig = Config{AudioBufferCapacityMs: 1000, MinPlayableMs: 500}

func TestSinkStartsAtThreshold(t *testing.T) {
	factory := &deviceFactory{}
	rec := newRecorder()
	s := NewSink("test", monoInfo(1000), smallSinkConfig, factory.create, rec)
	go s.Run()

	for i := 0; i < 4; i++ {
		if !s.Feed(filledBlock(100)) {
			t.Fatalf("feed %d rejected", i)
		}
	}
	time.Sleep(20 * time.Millisecond)

	if started, _, _ := rec.counts(); started != 0 {
		t.Fatalf("expected no start below threshold, got %d", started)
	}
	if s.State() != SinkBuffering {
		t.Errorf("expected buffering, got %v", s.State())
	}

	s.Feed(filledBlock(100))
	waitStarted(t, rec)

	if s.State() != SinkPlaying {
		t.Errorf("expected playing, got %v", s.State())
	}

	s.Feed(filledBlock(100))
	s.Feed(filledBlock(100))
	s.Stop(true)
	waitDone(t, s)

	d := factory.last().snapshot()
	if started, _, _ := rec.counts(); started != 1 {
		t.Errorf("expected Started once, got %d", started)
	}
	if d.plays != 1 {
		t.Errorf("expected one Play, got %d", d.plays)
	}
	if d.pauses != 1 || d.flushes != 1 || d.releases != 1 {
		t.Errorf("expected pause, flush and release once, got %d/%d/%d", d.pauses, d.flushes, d.releases)
	}
	if s.State() != SinkStopped {
		t.Errorf("expected stopped, got %v", s.State())
	}
}

func TestSinkImmediateStopDoesNotPad(t *testing.T) {
	factory := &deviceFactory{consume: true}
	rec := newRecorder()
	s := NewSink("test", monoInfo(1000), smallSinkConfig, factory.create, rec)
	go s.Run()

	s.Feed(filledBlock(100))
	waitFor(t, "first write", func() bool { return s.Written() == 100 })

	s.Stop(true)
	waitDone(t, s)

	d := factory.last().snapshot()
	if d.written != 100 {
		t.Errorf("expected 100 samples written without padding, got %d", d.written)
	}
	if d.plays != 0 || d.markerSet != 0 {
		t.Errorf("expected no playback and no marker, got plays=%d marker=%d", d.plays, d.markerSet)
	}
	if d.flushes != 1 || d.releases != 1 {
		t.Errorf("expected flush and release, got %d/%d", d.flushes, d.releases)
	}
	if started, _, _ := rec.counts(); started != 0 {
		t.Errorf("expected no Started, got %d", started)
	}
}

func TestSinkDrainPadsShortStream(t *testing.T) {
	factory := &deviceFactory{consume: true}
	rec := newRecorder()
	cfg := Config{AudioBufferCapacityMs: 3000, MinPlayableMs: 2000}
	s := NewSink("test", monoInfo(1000), cfg, factory.create, rec)
	go s.Run()

	for i := 0; i < 3; i++ {
		s.Feed(filledBlock(100))
	}
	s.Stop(false)
	waitDone(t, s)

	if err := s.Err(); err != nil {
		t.Fatalf("unexpected sink error: %v", err)
	}

	d := factory.last().snapshot()
	if d.written != 2000 {
		t.Errorf("expected stream padded to 2000 samples, got %d", d.written)
	}
	if d.markerSet != 300 {
		t.Errorf("expected end marker at frame 300, got %d", d.markerSet)
	}
	if d.head != 300 {
		t.Errorf("expected playback to stop at frame 300, got %d", d.head)
	}
	if d.pauses != 1 {
		t.Errorf("expected a single pause at the end marker, got %d", d.pauses)
	}
	if started, _, _ := rec.counts(); started != 1 {
		t.Errorf("expected Started once, got %d", started)
	}
}

func TestSinkDrainPlaysOutQueuedAudio(t *testing.T) {
	factory := &deviceFactory{consume: true}
	rec := newRecorder()
	s := NewSink("test", monoInfo(1000), smallSinkConfig, factory.create, rec)
	go s.Run()

	for i := 0; i < 10; i++ {
		s.Feed(filledBlock(100))
	}
	s.Stop(false)
	waitDone(t, s)

	d := factory.last().snapshot()
	if d.written != 1000 {
		t.Errorf("expected 1000 samples written, got %d", d.written)
	}
	if d.head != 1000 {
		t.Errorf("expected all 1000 frames played, got %d", d.head)
	}
	if d.markerSet != 0 {
		t.Errorf("expected no end marker for a long stream, got %d", d.markerSet)
	}
	if s.Written() != 1000 {
		t.Errorf("expected Written 1000, got %d", s.Written())
	}
}

func TestSinkDrainEndsWhenHeadUnavailable(t *testing.T) {
	factory := &deviceFactory{headErr: errors.New("invalid state")}
	rec := newRecorder()
	s := NewSink("test", monoInfo(1000), smallSinkConfig, factory.create, rec)
	go s.Run()

	for i := 0; i < 8; i++ {
		if !s.Feed(filledBlock(100)) {
			t.Fatalf("feed %d rejected", i)
		}
	}
	s.Stop(false)
	waitDone(t, s)

	if err := s.Err(); err != nil {
		t.Errorf("expected drain to end without a sink error, got %v", err)
	}
	if s.State() != SinkStopped {
		t.Errorf("expected stopped, got %v", s.State())
	}

	d := factory.last().snapshot()
	if d.written != 800 {
		t.Errorf("expected 800 samples written, got %d", d.written)
	}
	if d.pauses != 1 || d.flushes != 1 || d.releases != 1 {
		t.Errorf("expected pause, flush and release once, got %d/%d/%d", d.pauses, d.flushes, d.releases)
	}
}

func TestSinkStopBeforeRunIsHarmless(t *testing.T) {
	factory := &deviceFactory{}
	s := NewSink("test", monoInfo(1000), smallSinkConfig, factory.create, newRecorder())

	s.Stop(false)
	s.Stop(true)
	s.Stop(true)

	go s.Run()
	waitDone(t, s)

	if factory.count() != 0 {
		t.Errorf("expected no device to be opened, got %d", factory.count())
	}
	if s.Feed(filledBlock(10)) {
		t.Error("expected Feed to be rejected after stop")
	}
	if s.State() != SinkStopped {
		t.Errorf("expected stopped, got %v", s.State())
	}
}

func TestSinkDeviceOpenFailure(t *testing.T) {
	factory := &deviceFactory{err: errBoom}
	s := NewSink("test", monoInfo(1000), smallSinkConfig, factory.create, newRecorder())
	go s.Run()
	waitDone(t, s)

	var sinkErr *SinkError
	if !errors.As(s.Err(), &sinkErr) {
		t.Fatalf("expected SinkError, got %v", s.Err())
	}
	if sinkErr.Op != "open" {
		t.Errorf("expected open failure, got %q", sinkErr.Op)
	}
	if !errors.Is(s.Err(), errBoom) {
		t.Errorf("expected wrapped device error, got %v", s.Err())
	}
	if s.Feed(filledBlock(10)) {
		t.Error("expected Feed to be rejected after failure")
	}
}

func TestSinkWriteFailure(t *testing.T) {
	var device *fakeDevice
	create := func(cfg output.DeviceConfig) (output.Device, error) {
		device = &fakeDevice{cfg: cfg, capacity: 1000, writeErr: errBoom}
		return device, nil
	}

	s := NewSink("test", monoInfo(1000), smallSinkConfig, create, newRecorder())
	go s.Run()

	s.Feed(filledBlock(100))
	waitDone(t, s)

	var sinkErr *SinkError
	if !errors.As(s.Err(), &sinkErr) || sinkErr.Op != "write" {
		t.Fatalf("expected write SinkError, got %v", s.Err())
	}
	if d := device.snapshot(); d.releases != 1 {
		t.Errorf("expected device release after failure, got %d", d.releases)
	}
}

func TestSinkBufferStatus(t *testing.T) {
	factory := &deviceFactory{}
	rec := newRecorder()
	s := NewSink("test", monoInfo(1000), smallSinkConfig, factory.create, rec)
	go s.Run()
	defer func() {
		s.Stop(true)
		waitDone(t, s)
	}()

	for i := 0; i < 5; i++ {
		s.Feed(filledBlock(100))
	}
	waitStarted(t, rec)

	d := factory.last()
	d.mu.Lock()
	period := d.period
	notify := d.periodicFn
	d.mu.Unlock()

	if period != 200 {
		t.Errorf("expected notification every 200 frames, got %d", period)
	}
	if notify == nil {
		t.Fatal("expected periodic notification to be registered")
	}
	notify()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.statuses) != 1 {
		t.Fatalf("expected one buffer status, got %d", len(rec.statuses))
	}
	want := bufferStatus{playing: true, bufferedMs: 500, capacityMs: 1000}
	if rec.statuses[0] != want {
		t.Errorf("expected %+v, got %+v", want, rec.statuses[0])
	}
}

func TestSinkVolume(t *testing.T) {
	factory := &deviceFactory{}
	s := NewSink("test", monoInfo(1000), smallSinkConfig, factory.create, newRecorder())
	s.SetVolume(40)
	go s.Run()
	defer func() {
		s.Stop(true)
		waitDone(t, s)
	}()

	s.Feed(filledBlock(100))
	waitFor(t, "first write", func() bool { return s.Written() == 100 })

	d := factory.last()
	if v := d.snapshot().volume; v != 40 {
		t.Errorf("expected volume 40 applied on open, got %d", v)
	}

	s.SetVolume(60)
	if v := d.snapshot().volume; v != 60 {
		t.Errorf("expected volume 60, got %d", v)
	}
}

func TestSinkStateString(t *testing.T) {
	tests := []struct {
		state SinkState
		want  string
	}{
		{SinkIdle, "idle"},
		{SinkBuffering, "buffering"},
		{SinkPlaying, "playing"},
		{SinkDraining, "draining"},
		{SinkStopped, "stopped"},
		{SinkState(42), "SinkState(42)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.state.String(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestSinkDefaultSizing(t *testing.T) {
	info := audio.StreamInfo{Codec: "test", SampleRate: 44100, Channels: 2}
	s := NewSink("sizing", info, Config{}, (&deviceFactory{}).create, Callbacks{})

	if s.capacityBytes != 264600 {
		t.Errorf("expected device capacity 264600 bytes, got %d", s.capacityBytes)
	}
	if s.thresholdBytes != 132300 {
		t.Errorf("expected start threshold 132300 bytes, got %d", s.thresholdBytes)
	}
	if s.minSamples != 176400 {
		t.Errorf("expected 176400 minimum samples, got %d", s.minSamples)
	}
	if s.notifyFrames != 8820 {
		t.Errorf("expected notification every 8820 frames, got %d", s.notifyFrames)
	}
}
