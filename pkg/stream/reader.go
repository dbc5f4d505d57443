// ABOUTME: Triple-buffered stream reader
// ABOUTME: Fills byte chunks from a source on its own goroutine and hands them to one consumer
package stream

import (
	"errors"
	"io"
	"log"
	"sync"
)

// ringSize is the number of chunks rotating between producer and consumer
const ringSize = 3

// Chunk is a block of undecoded bytes. Size is the filled part of Data.
type Chunk struct {
	Data []byte
	Size int
}

// Bytes returns the filled part of the chunk
func (c *Chunk) Bytes() []byte {
	return c.Data[:c.Size]
}

// Reader continuously reads a source into a ring of three chunks.
//
// One chunk is being filled by the read loop, one is held by the consumer
// (the one last returned by Next), and the third is either ready or free.
// The read loop never advances into the chunk held by the consumer.
type Reader struct {
	src io.Reader

	mu   sync.Mutex
	cond *sync.Cond

	chunks   [ringSize]*Chunk
	producer int // chunk being filled
	consumer int // chunk last returned by Next
	ready    int // completed chunks not yet returned by Next

	capacity int
	eof      bool
	stopped  bool
}

// NewReader creates a reader that fills chunks of capacity bytes from src
func NewReader(src io.Reader, capacity int) *Reader {
	if capacity <= 0 {
		capacity = 1
	}

	r := &Reader{
		src:      src,
		capacity: capacity,
		producer: 0,
		consumer: ringSize - 1,
	}
	r.cond = sync.NewCond(&r.mu)

	for i := range r.chunks {
		r.chunks[i] = &Chunk{Data: make([]byte, capacity)}
	}

	log.Printf("Reader: init capacity=%d", capacity)
	return r
}

// SetCapacity changes the chunk capacity. The chunk currently being filled
// keeps its size; the change applies from the next chunk on.
func (r *Reader) SetCapacity(capacity int) {
	if capacity <= 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	log.Printf("Reader: capacity %d -> %d", r.capacity, capacity)
	r.capacity = capacity
}

// Capacity returns the capacity that the next chunk will be filled with
func (r *Reader) Capacity() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.capacity
}

// Run is the read loop. It returns when the source is exhausted, a read
// error occurs or the reader is stopped. A read error is handled as EOF.
func (r *Reader) Run() {
	log.Printf("Reader: started")
	defer log.Printf("Reader: stopped")

	r.mu.Lock()
	capacity := r.capacity
	r.mu.Unlock()

	for {
		r.mu.Lock()
		if r.stopped {
			r.mu.Unlock()
			return
		}
		chunk := r.chunks[r.producer]
		if len(chunk.Data) != capacity {
			chunk = &Chunk{Data: make([]byte, capacity)}
			r.chunks[r.producer] = chunk
		}
		r.mu.Unlock()

		total, done := r.fill(chunk.Data)
		chunk.Size = total

		r.mu.Lock()
		if total > 0 && !r.stopped {
			r.publish()
		}
		if done {
			r.eof = true
			r.cond.Broadcast()
			r.mu.Unlock()
			return
		}
		capacity = r.capacity
		r.mu.Unlock()
	}
}

// fill reads into buf until it is full, the source ends or the reader stops.
// It reports whether the source is finished.
func (r *Reader) fill(buf []byte) (int, bool) {
	total := 0
	for total < len(buf) {
		if r.isStopped() {
			return total, true
		}

		n, err := r.src.Read(buf[total:])
		total += n

		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Printf("Reader: read error, treating as end of stream: %v", err)
			}
			return total, true
		}
	}
	return total, false
}

// publish waits until the slot after the producer is not held by the
// consumer, then hands the filled chunk over and advances. Must hold r.mu.
func (r *Reader) publish() {
	next := (r.producer + 1) % ringSize
	for !r.stopped && next == r.consumer {
		r.cond.Wait()
	}
	if r.stopped {
		return
	}

	r.producer = next
	r.ready++
	r.cond.Broadcast()
}

// Next returns the next completed chunk, blocking until one is available.
// The previously returned chunk is released back to the read loop. Next
// returns nil once the reader is stopped, or after the last chunk of a
// finished source has been returned.
func (r *Reader) Next() *Chunk {
	r.mu.Lock()
	defer r.mu.Unlock()

	for !r.stopped && r.ready == 0 && !r.eof {
		r.cond.Wait()
	}

	if r.stopped || r.ready == 0 {
		return nil
	}

	r.consumer = (r.consumer + 1) % ringSize
	r.ready--
	r.cond.Broadcast()

	return r.chunks[r.consumer]
}

// Stop stops the read loop and wakes any blocked caller. It is safe to call
// more than once and from any goroutine.
func (r *Reader) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.stopped {
		log.Printf("Reader: stop requested")
	}
	r.stopped = true
	r.cond.Broadcast()
}

// Stopped reports whether Stop was called
func (r *Reader) Stopped() bool {
	return r.isStopped()
}

func (r *Reader) isStopped() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopped
}

// indices returns the producer and consumer slots, for tests
func (r *Reader) indices() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.producer, r.consumer
}
