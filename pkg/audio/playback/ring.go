// ABOUTME: Float ring buffer backing the playback backlog
// ABOUTME: Single-owner FIFO with optional growth, no locking
package playback

const minRingCapacity = 1024

// ring is a FIFO of float samples. It is not safe for concurrent use; the
// accumulator's pull side is its only owner.
type ring struct {
	buf  []float32
	head int
	size int
}

func newRing(capacity int) *ring {
	if capacity <= 0 {
		capacity = minRingCapacity
	}
	return &ring{buf: make([]float32, capacity)}
}

func (r *ring) len() int { return r.size }

func (r *ring) free() int { return len(r.buf) - r.size }

// grow reallocates so that at least n more samples fit
func (r *ring) grow(n int) {
	if r.free() >= n {
		return
	}

	newCap := len(r.buf) * 2
	if newCap < r.size+n {
		newCap = r.size + n
	}
	if newCap < minRingCapacity {
		newCap = minRingCapacity
	}

	buf := make([]float32, newCap)
	r.copyOut(buf[:r.size])
	r.buf = buf
	r.head = 0
}

// write appends samples; the caller guarantees they fit
func (r *ring) write(samples []float32) {
	tail := (r.head + r.size) % len(r.buf)
	n := copy(r.buf[tail:], samples)
	if n < len(samples) {
		copy(r.buf, samples[n:])
	}
	r.size += len(samples)
}

// copyOut copies the oldest len(dst) samples without consuming them
func (r *ring) copyOut(dst []float32) {
	n := copy(dst, r.buf[r.head:min(r.head+len(dst), len(r.buf))])
	if n < len(dst) {
		copy(dst[n:], r.buf)
	}
}

// read consumes up to len(out) samples into out and zero-fills the rest
func (r *ring) read(out []float32) int {
	n := min(len(out), r.size)
	r.copyOut(out[:n])
	r.discard(n)
	clear(out[n:])
	return n
}

// discard drops the oldest n samples
func (r *ring) discard(n int) {
	if n >= r.size {
		r.reset()
		return
	}
	r.head = (r.head + n) % len(r.buf)
	r.size -= n
}

func (r *ring) reset() {
	r.head = 0
	r.size = 0
}
