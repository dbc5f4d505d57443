// ABOUTME: Bounded sample ring buffer
// ABOUTME: Queues PCM between writers and a device callback with play accounting
package output

import "sync"

// RingBuffer provides a thread-safe circular buffer for audio samples. It
// also keeps the accounting needed to derive a playback head: how many
// queued samples were delivered and where underrun silence was inserted.
type RingBuffer struct {
	mu       sync.Mutex
	buffer   []int16
	readPos  int
	writePos int
	count    int
	closed   bool

	emitted       int64 // all samples handed out, silence included
	delivered     int64 // queued samples handed out
	gaps          []silenceGap
	silencePlayed int64
}

// silenceGap is a run of underrun silence starting at emitted offset at
type silenceGap struct {
	at int64
	n  int64
}

// NewRingBuffer creates a ring buffer with given capacity (in samples)
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &RingBuffer{buffer: make([]int16, capacity)}
}

// Write adds samples to the ring buffer and returns how many fit
func (rb *RingBuffer) Write(samples []int16) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.closed {
		return 0
	}

	n := min(len(samples), len(rb.buffer)-rb.count)
	for written := 0; written < n; {
		end := len(rb.buffer)
		if rb.writePos+(n-written) < end {
			end = rb.writePos + (n - written)
		}
		c := copy(rb.buffer[rb.writePos:end], samples[written:n])
		written += c
		rb.writePos = (rb.writePos + c) % len(rb.buffer)
	}
	rb.count += n
	return n
}

// Read fills out with queued samples and zero-fills the rest on underrun.
// It returns the number of queued samples delivered.
func (rb *RingBuffer) Read(out []int16) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	n := min(len(out), rb.count)
	for read := 0; read < n; {
		end := len(rb.buffer)
		if rb.readPos+(n-read) < end {
			end = rb.readPos + (n - read)
		}
		c := copy(out[read:n], rb.buffer[rb.readPos:end])
		read += c
		rb.readPos = (rb.readPos + c) % len(rb.buffer)
	}
	rb.count -= n

	for i := n; i < len(out); i++ {
		out[i] = 0
	}

	rb.delivered += int64(n)
	rb.emitted += int64(n)

	if gap := int64(len(out) - n); gap > 0 {
		last := len(rb.gaps) - 1
		if last >= 0 && rb.gaps[last].at+rb.gaps[last].n == rb.emitted {
			rb.gaps[last].n += gap
		} else {
			rb.gaps = append(rb.gaps, silenceGap{at: rb.emitted, n: gap})
		}
		rb.emitted += gap
	}

	return n
}

// Played converts the device's own count of samples handed out minus what
// it still holds into queued samples actually heard.
func (rb *RingBuffer) Played(deviceBuffered int) int64 {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	total := rb.emitted - int64(deviceBuffered)
	if total <= 0 {
		return 0
	}

	for len(rb.gaps) > 0 && rb.gaps[0].at+rb.gaps[0].n <= total {
		rb.silencePlayed += rb.gaps[0].n
		rb.gaps = rb.gaps[1:]
	}

	played := total - rb.silencePlayed
	if len(rb.gaps) > 0 && total > rb.gaps[0].at {
		played -= total - rb.gaps[0].at
	}

	return max(0, min(played, rb.delivered))
}

// Available returns the number of samples available to read
func (rb *RingBuffer) Available() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.count
}

// Free returns the number of free slots in the buffer
func (rb *RingBuffer) Free() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return len(rb.buffer) - rb.count
}

// Clear drops queued samples and resets the play accounting
func (rb *RingBuffer) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.readPos = 0
	rb.writePos = 0
	rb.count = 0
	rb.emitted = 0
	rb.delivered = 0
	rb.gaps = nil
	rb.silencePlayed = 0
}

// Close rejects further writes
func (rb *RingBuffer) Close() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.closed = true
}

// Closed reports whether Close was called
func (rb *RingBuffer) Closed() bool {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.closed
}
