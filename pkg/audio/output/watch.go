// ABOUTME: Playback head watcher
// ABOUTME: Polls a device head and fires marker and periodic callbacks
package output

import (
	"log"
	"sync"
	"time"
)

// watchInterval is how often the head is polled for notifications
const watchInterval = 20 * time.Millisecond

// headWatcher fires one-shot markers and periodic notifications as the
// playback head advances. Callbacks run on the watcher goroutine.
type headWatcher struct {
	head func() (int, error)

	mu         sync.Mutex
	marker     int
	markerFn   func()
	period     int
	periodFn   func()
	nextPeriod int

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func newHeadWatcher(head func() (int, error), interval time.Duration) *headWatcher {
	w := &headWatcher{
		head: head,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go w.run(interval)
	return w
}

func (w *headWatcher) run(interval time.Duration) {
	defer close(w.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			w.poll()
		}
	}
}

// setMarker arms fn for the first poll at or beyond frame. A nil fn disarms.
func (w *headWatcher) setMarker(frame int, fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.marker = frame
	w.markerFn = fn
}

// setPeriodic fires fn each time the head crosses a multiple of frames
func (w *headWatcher) setPeriodic(frames int, fn func()) {
	head, err := w.head()
	if err != nil {
		head = 0
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if frames <= 0 || fn == nil {
		w.period = 0
		w.periodFn = nil
		return
	}
	w.period = frames
	w.periodFn = fn
	w.nextPeriod = (head/frames + 1) * frames
}

// reset rewinds the periodic schedule after the head went back to zero
func (w *headWatcher) reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.period > 0 {
		w.nextPeriod = w.period
	}
}

func (w *headWatcher) poll() {
	head, err := w.head()
	if err != nil {
		log.Printf("Output: head position unavailable: %v", err)
		return
	}

	var fire []func()

	w.mu.Lock()
	if w.markerFn != nil && head >= w.marker {
		fire = append(fire, w.markerFn)
		w.markerFn = nil
	}
	if w.periodFn != nil && head >= w.nextPeriod {
		fire = append(fire, w.periodFn)
		w.nextPeriod = (head/w.period + 1) * w.period
	}
	w.mu.Unlock()

	for _, fn := range fire {
		fn()
	}
}

// close stops the watcher goroutine and waits for it to exit. It must not
// be called from a callback.
func (w *headWatcher) close() {
	w.once.Do(func() {
		close(w.stop)
	})
	<-w.done
}
