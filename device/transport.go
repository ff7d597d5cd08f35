package device

import (
	"sync"

	"github.com/pkg/errors"
	"go.bug.st/serial"
)

// Transport is the byte link the controller polls. Buffered and Read must
// never block; WriteByte carries the acknowledgment back to the host.
// Implementations guarantee bytes arrive in order, none duplicated, none
// reordered.
type Transport interface {
	// Buffered returns the number of received bytes waiting to be read.
	Buffered() int
	// Read pops up to len(p) buffered bytes into p without blocking.
	Read(p []byte) (int, error)
	// WriteByte sends a single byte to the host.
	WriteByte(b byte) error
}

// SerialTransport adapts a serial port to the Transport interface. A pump
// goroutine reads the port continuously into a ring buffer, standing in
// for the receive interrupt of a UART driver; Buffered and Read touch only
// the ring. When the port fails the pump stops and, once the ring drains,
// the transport reads as permanently idle; the terminal error is available
// from Err.
type SerialTransport struct {
	port serial.Port
	rx   *ring
	done chan struct{}

	mu    sync.Mutex
	rxErr error
}

// OpenSerial opens the serial device at path with the given baud rate and
// starts the receive pump.
func OpenSerial(path string, baud int) (*SerialTransport, error) {
	port, err := serial.Open(path, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	return NewSerialTransport(port), nil
}

// NewSerialTransport wraps an already-open port and starts the receive
// pump.
func NewSerialTransport(port serial.Port) *SerialTransport {
	t := &SerialTransport{
		port: port,
		rx:   newRing(1024),
		done: make(chan struct{}),
	}
	go t.pump()
	return t
}

func (t *SerialTransport) pump() {
	defer close(t.done)
	buf := make([]byte, 256)
	for {
		n, err := t.port.Read(buf)
		if n > 0 {
			t.rx.write(buf[:n])
		}
		if err != nil {
			t.mu.Lock()
			t.rxErr = err
			t.mu.Unlock()
			return
		}
	}
}

// Buffered implements Transport.
func (t *SerialTransport) Buffered() int {
	return t.rx.length()
}

// Read implements Transport.
func (t *SerialTransport) Read(p []byte) (int, error) {
	return t.rx.read(p), nil
}

// WriteByte implements Transport.
func (t *SerialTransport) WriteByte(b byte) error {
	_, err := t.port.Write([]byte{b})
	return errors.Wrap(err, "write serial")
}

// Err returns the error that stopped the receive pump, or nil while the
// pump is alive.
func (t *SerialTransport) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rxErr
}

// Close closes the port and waits for the pump to stop.
func (t *SerialTransport) Close() error {
	err := t.port.Close()
	<-t.done
	return err
}
