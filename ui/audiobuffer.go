package ui

import (
	"io"
	"sync"
)

// frameBytes is one stereo frame of 16-bit little-endian samples.
const frameBytes = 4

// AudioRingBuffer holds queued PCM between the render goroutine and oto.
// It implements io.Reader for oto's pull model. Read blocks while the
// buffer is empty; writes never block and drop the oldest whole frames
// on overflow so the channels stay aligned.
type AudioRingBuffer struct {
	mu       sync.Mutex
	cond     *sync.Cond
	buf      []byte
	readPos  int
	writePos int
	count    int
	closed   bool
	scratch  []byte
}

// NewAudioRingBuffer creates a ring buffer of capacity bytes, rounded down
// to whole frames (minimum one frame).
func NewAudioRingBuffer(capacity int) *AudioRingBuffer {
	capacity -= capacity % frameBytes
	if capacity < frameBytes {
		capacity = frameBytes
	}
	rb := &AudioRingBuffer{buf: make([]byte, capacity)}
	rb.cond = sync.NewCond(&rb.mu)
	return rb
}

// Capacity returns the buffer size in bytes.
func (rb *AudioRingBuffer) Capacity() int { return len(rb.buf) }

// WriteSamples encodes interleaved stereo samples and queues them. A
// trailing odd sample is dropped.
func (rb *AudioRingBuffer) WriteSamples(samples []int16) {
	samples = samples[:len(samples)&^1]
	if len(samples) == 0 {
		return
	}

	rb.mu.Lock()
	defer rb.mu.Unlock()

	if cap(rb.scratch) < len(samples)*2 {
		rb.scratch = make([]byte, 0, len(samples)*2)
	}
	b := rb.scratch[:0]
	for _, s := range samples {
		b = append(b, byte(s), byte(s>>8))
	}
	rb.scratch = b
	rb.write(b)
}

// write queues p, which must hold whole frames. Callers hold mu.
func (rb *AudioRingBuffer) write(p []byte) {
	if rb.closed {
		return
	}
	capacity := len(rb.buf)

	n := len(p)
	if n > capacity {
		p = p[n-capacity:]
		n = capacity
	}

	if overflow := rb.count + n - capacity; overflow > 0 {
		rb.readPos = (rb.readPos + overflow) % capacity
		rb.count -= overflow
	}

	first := capacity - rb.writePos
	if first >= n {
		copy(rb.buf[rb.writePos:], p)
	} else {
		copy(rb.buf[rb.writePos:], p[:first])
		copy(rb.buf, p[first:])
	}
	rb.writePos = (rb.writePos + n) % capacity
	rb.count += n

	rb.cond.Signal()
}

// Read implements io.Reader. It blocks until data is queued or the buffer
// is closed, and returns io.EOF once closed and drained.
func (rb *AudioRingBuffer) Read(p []byte) (int, error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	for rb.count == 0 {
		if rb.closed {
			return 0, io.EOF
		}
		rb.cond.Wait()
	}

	n := min(len(p), rb.count)
	capacity := len(rb.buf)

	first := capacity - rb.readPos
	if first >= n {
		copy(p, rb.buf[rb.readPos:rb.readPos+n])
	} else {
		copy(p, rb.buf[rb.readPos:])
		copy(p[first:], rb.buf[:n-first])
	}
	rb.readPos = (rb.readPos + n) % capacity
	rb.count -= n

	return n, nil
}

// Buffered returns the number of bytes queued.
func (rb *AudioRingBuffer) Buffered() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.count
}

// Clear discards everything queued.
func (rb *AudioRingBuffer) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.readPos = 0
	rb.writePos = 0
	rb.count = 0
}

// Close unblocks readers. Later writes are ignored.
func (rb *AudioRingBuffer) Close() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.closed = true
	rb.cond.Broadcast()
}
