package device

import (
	"io"
	"sync"
)

// Pipe returns both ends of an in-memory serial link: the host end as an
// io.ReadWriteCloser whose Read blocks like a real port, and the
// controller end as a Transport. Writes on either end never block. Closing
// the host end makes its Read return io.EOF once drained and fails further
// transfers on both ends.
func Pipe() (io.ReadWriteCloser, Transport) {
	l := &pipeLink{}
	l.cond = sync.NewCond(&l.mu)
	return hostEnd{l}, deviceEnd{l}
}

type pipeLink struct {
	mu     sync.Mutex
	cond   *sync.Cond
	toDev  []byte
	toHost []byte
	closed bool
}

type hostEnd struct{ *pipeLink }

func (h hostEnd) Write(p []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return 0, io.ErrClosedPipe
	}
	h.toDev = append(h.toDev, p...)
	return len(p), nil
}

func (h hostEnd) Read(p []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for len(h.toHost) == 0 && !h.closed {
		h.cond.Wait()
	}
	if len(h.toHost) == 0 {
		return 0, io.EOF
	}
	n := copy(p, h.toHost)
	h.toHost = h.toHost[n:]
	return n, nil
}

func (h hostEnd) Close() error {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
	h.cond.Broadcast()
	return nil
}

type deviceEnd struct{ *pipeLink }

func (d deviceEnd) Buffered() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.toDev)
}

func (d deviceEnd) Read(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := copy(p, d.toDev)
	d.toDev = d.toDev[n:]
	if n == 0 && d.closed {
		return 0, io.ErrClosedPipe
	}
	return n, nil
}

func (d deviceEnd) WriteByte(b byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return io.ErrClosedPipe
	}
	d.toHost = append(d.toHost, b)
	d.cond.Broadcast()
	return nil
}
