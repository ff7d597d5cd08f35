package device

import "sync"

// ring is a growable FIFO byte buffer. It sits between the receive pump
// goroutine and the polling tick, so all access is mutex-guarded.
type ring struct {
	mu   sync.Mutex
	buf  []byte
	head int
	n    int
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]byte, capacity)}
}

// write appends p to the buffer, doubling its capacity when full.
func (r *ring) write(p []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if need := r.n + len(p); need > len(r.buf) {
		grown := 2 * len(r.buf)
		for grown < need {
			grown *= 2
		}
		buf := make([]byte, grown)
		r.copyOut(buf[:r.n])
		r.buf = buf
		r.head = 0
	}

	tail := (r.head + r.n) % len(r.buf)
	m := copy(r.buf[tail:], p)
	copy(r.buf, p[m:])
	r.n += len(p)
}

// read pops up to len(p) bytes into p and reports how many were popped.
// It never blocks.
func (r *ring) read(p []byte) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(p) > r.n {
		p = p[:r.n]
	}
	n := r.copyOut(p)
	r.head = (r.head + n) % len(r.buf)
	r.n -= n
	return n
}

// copyOut copies the oldest len(p) stored bytes into p without consuming
// them. The caller holds mu and guarantees len(p) <= r.n.
func (r *ring) copyOut(p []byte) int {
	n := copy(p, r.buf[r.head:])
	if n < len(p) {
		n += copy(p[n:], r.buf)
	}
	return n
}

func (r *ring) length() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.n
}
