// ABOUTME: Test doubles for the player package
// ABOUTME: Fake audio device, decode engine and recording callback
package player

import (
	"errors"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/Resonate-Protocol/streamplay/pkg/audio"
	"github.com/Resonate-Protocol/streamplay/pkg/audio/decode"
	"github.com/Resonate-Protocol/streamplay/pkg/audio/output"
)

func TestMain(m *testing.M) {
	writeRetryDelay = time.Millisecond
	drainPollInterval = 5 * time.Millisecond
	os.Exit(m.Run())
}

// fakeDevice queues samples up to its capacity. With consume set, a
// playing device plays everything queued whenever it is touched, stopping
// at an armed marker.
type fakeDevice struct {
	mu       sync.Mutex
	cfg      output.DeviceConfig
	capacity int
	consume  bool
	writeErr error
	headErr  error

	queued   int
	written  int
	head     int
	playing  bool
	plays    int
	pauses   int
	flushes  int
	releases int
	volume   int

	marker     int
	markerFn   func()
	markerSet  int
	period     int
	periodicFn func()
}

func (d *fakeDevice) Write(samples []int16) (int, error) {
	d.mu.Lock()
	if d.writeErr != nil {
		d.mu.Unlock()
		return 0, d.writeErr
	}
	n := min(len(samples), d.capacity-d.queued)
	d.queued += n
	d.written += n
	fire := d.advance()
	d.mu.Unlock()

	if fire != nil {
		fire()
	}
	return n, nil
}

// advance plays queued audio; must hold d.mu. It returns a marker to fire.
func (d *fakeDevice) advance() func() {
	if !d.consume || !d.playing {
		return nil
	}
	target := d.written / d.cfg.Channels
	var fire func()
	if d.markerFn != nil && target >= d.marker {
		target = max(d.head, d.marker)
		fire = d.markerFn
		d.markerFn = nil
	}
	d.queued -= (target - d.head) * d.cfg.Channels
	d.head = target
	return fire
}

func (d *fakeDevice) Play() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.playing = true
	d.plays++
	return nil
}

func (d *fakeDevice) Pause() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.playing = false
	d.pauses++
	return nil
}

func (d *fakeDevice) Flush() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queued = 0
	d.flushes++
	return nil
}

func (d *fakeDevice) Release() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.releases++
	return nil
}

func (d *fakeDevice) PlaybackHeadPosition() (int, error) {
	d.mu.Lock()
	if d.headErr != nil {
		d.mu.Unlock()
		return 0, d.headErr
	}
	fire := d.advance()
	head := d.head
	d.mu.Unlock()

	if fire != nil {
		fire()
	}
	return head, nil
}

func (d *fakeDevice) SetMarker(frame int, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.marker = frame
	d.markerFn = fn
	if fn != nil {
		d.markerSet = frame
	}
}

func (d *fakeDevice) SetPeriodicNotification(frames int, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.period = frames
	d.periodicFn = fn
}

func (d *fakeDevice) SetVolume(volume int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.volume = volume
}

func (d *fakeDevice) snapshot() fakeDevice {
	d.mu.Lock()
	defer d.mu.Unlock()
	return fakeDevice{
		written:   d.written,
		head:      d.head,
		playing:   d.playing,
		plays:     d.plays,
		pauses:    d.pauses,
		flushes:   d.flushes,
		releases:  d.releases,
		volume:    d.volume,
		markerSet: d.markerSet,
		period:    d.period,
	}
}

// deviceFactory records the devices it creates
type deviceFactory struct {
	mu      sync.Mutex
	consume bool
	err     error
	headErr error
	devices []*fakeDevice
}

func (f *deviceFactory) create(cfg output.DeviceConfig) (output.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	d := &fakeDevice{
		cfg:      cfg,
		capacity: cfg.CapacityBytes / audio.BytesPerSample,
		consume:  f.consume,
		headErr:  f.headErr,
		volume:   100,
	}
	f.devices = append(f.devices, d)
	return d, nil
}

func (f *deviceFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.devices)
}

func (f *deviceFactory) last() *fakeDevice {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.devices) == 0 {
		return nil
	}
	return f.devices[len(f.devices)-1]
}

// fakeEngine returns scripted rounds, pulling BytesConsumed bytes from the
// source for each. With endless set it produces full rounds forever.
type fakeEngine struct {
	info     audio.StreamInfo
	rounds   []decode.Round
	endless  bool
	startErr error
	failAt   int
	failErr  error
	onStop   func()

	mu      sync.Mutex
	src     io.Reader
	next    int
	stopped int
}

func (e *fakeEngine) Start(src io.Reader) (audio.StreamInfo, error) {
	if e.startErr != nil {
		return audio.StreamInfo{}, e.startErr
	}
	e.src = src
	return e.info, nil
}

func (e *fakeEngine) Decode(dst []int16) (decode.Round, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.failErr != nil && e.next == e.failAt {
		return decode.Round{}, e.failErr
	}

	var round decode.Round
	switch {
	case e.next < len(e.rounds):
		round = e.rounds[e.next]
	case e.endless:
		time.Sleep(time.Millisecond)
		round = decode.Round{Samples: len(dst), BytesConsumed: 100, Frames: 1}
	default:
		return decode.Round{}, nil
	}
	e.next++

	if round.BytesConsumed > 0 {
		buf := make([]byte, round.BytesConsumed)
		if _, err := io.ReadFull(e.src, buf); err != nil {
			return decode.Round{}, nil
		}
	}

	for i := 0; i < round.Samples; i++ {
		dst[i] = int16(i)
	}
	return round, nil
}

func (e *fakeEngine) Stop() error {
	if e.onStop != nil {
		e.onStop()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopped++
	return nil
}

func (e *fakeEngine) stopCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopped
}

// recorder is a Callback that records every notification
type recorder struct {
	mu       sync.Mutex
	started  int
	statuses []bufferStatus
	stopped  []int
	errs     []error
	meta     map[string]string
	startCh  chan struct{}
}

type bufferStatus struct {
	playing    bool
	bufferedMs int
	capacityMs int
}

func newRecorder() *recorder {
	return &recorder{
		meta:    make(map[string]string),
		startCh: make(chan struct{}, 16),
	}
}

func (r *recorder) Started() {
	r.mu.Lock()
	r.started++
	r.mu.Unlock()
	r.startCh <- struct{}{}
}

func (r *recorder) BufferStatus(isPlaying bool, bufferedMs, capacityMs int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, bufferStatus{isPlaying, bufferedMs, capacityMs})
}

func (r *recorder) Stopped(perf int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = append(r.stopped, perf)
}

func (r *recorder) FatalError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recorder) Metadata(key, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.meta[key] = value
}

func (r *recorder) counts() (started, stopped, errs int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started, len(r.stopped), len(r.errs)
}

var errBoom = errors.New("boom")
