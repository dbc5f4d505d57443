// ABOUTME: Playback session state
// ABOUTME: Session identity, cancellation token and decode performance counters
package player

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Resonate-Protocol/streamplay/pkg/audio"
)

// Session is one invocation of Play. It is discarded after all of its
// goroutines have been joined.
type Session struct {
	ID string

	ctx     context.Context
	cancel  context.CancelFunc
	stopped atomic.Bool

	info      audio.StreamInfo
	estimator RateEstimator

	decodeTime time.Duration
	samples    int64
	rounds     int
}

func newSession(parent context.Context) *Session {
	ctx, cancel := context.WithCancel(parent)
	return &Session{
		ID:     uuid.New().String(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Cancel requests the session to stop. It is safe from any goroutine and
// may be called more than once.
func (s *Session) Cancel() {
	s.stopped.Store(true)
	s.cancel()
}

// end sets the token once the decode loop is over. The context stays
// live so a caller cancel can still stop a drain.
func (s *Session) end() {
	s.stopped.Store(true)
}

// Cancelled reports whether Cancel was called or the parent context ended
func (s *Session) Cancelled() bool {
	return s.stopped.Load() || s.ctx.Err() != nil
}

// Info returns the stream parameters, valid once decoding started
func (s *Session) Info() audio.StreamInfo {
	return s.info
}

func (s *Session) addRound(elapsed time.Duration, samples int) {
	s.decodeTime += elapsed
	s.samples += int64(samples)
	s.rounds++
}

// Performance returns how much faster than real time decoding ran, as a
// signed percentage. It is 0 when no decode time was measured.
func (s *Session) Performance() int {
	return performance(s.samples, s.decodeTime, s.info.SampleRate, s.info.Channels)
}

func performance(samples int64, elapsed time.Duration, sampleRate, channels int) int {
	ms := elapsed.Milliseconds()
	realtime := int64(sampleRate) * int64(channels)
	if ms <= 0 || realtime <= 0 {
		return 0
	}
	decoded := 1000 * samples / ms
	return int((decoded - realtime) * 100 / realtime)
}

// short returns a log-friendly prefix of the session ID
func (s *Session) short() string {
	if len(s.ID) > 8 {
		return s.ID[:8]
	}
	return s.ID
}
