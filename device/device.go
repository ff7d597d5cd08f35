// Package device runs the controller side of the pixelwire link: a
// single-threaded polling loop that pulls buffered bytes off a transport
// in bounded blocks and feeds them to the stream decoder. The decoder's
// display and acknowledgment writes flow back out through the same
// transport.
package device

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"libdb.so/pixelwire/ledstream"
)

// DefaultBlockSize bounds how many bytes a single tick pulls off the
// transport. It matches the chunk size of the deployed firmware.
const DefaultBlockSize = 64

// pollInterval is how long Run sleeps after a tick that consumed nothing.
const pollInterval = time.Millisecond

// Controller owns the decode state for one device. All of its state is
// mutated from a single logical thread: either an external scheduler
// calling Tick, or Run's own loop. Nothing is locked.
type Controller struct {
	transport Transport
	dec       *ledstream.Decoder
	logger    *slog.Logger
	block     []byte
}

// NewController creates a controller decoding frames for two strips of
// pixelsPerStrip LEDs each. Completed frames go to display; acks go back
// through the transport.
func NewController(transport Transport, display ledstream.Display, pixelsPerStrip int, logger *slog.Logger) *Controller {
	return &Controller{
		transport: transport,
		dec:       ledstream.NewDecoder(pixelsPerStrip, display, transport),
		logger:    logger,
		block:     make([]byte, DefaultBlockSize),
	}
}

// Decoder returns the controller's stream decoder.
func (c *Controller) Decoder() *ledstream.Decoder {
	return c.dec
}

// Tick polls the transport once: if any bytes are buffered, it reads at
// most one block of them and feeds the chunk to the decoder. It returns
// the number of bytes consumed. A tick with nothing buffered does no work
// and returns immediately.
func (c *Controller) Tick() (int, error) {
	avail := c.transport.Buffered()
	if avail == 0 {
		return 0, nil
	}
	if avail > len(c.block) {
		avail = len(c.block)
	}

	n, err := c.transport.Read(c.block[:avail])
	if err != nil {
		return n, errors.Wrap(err, "read transport")
	}
	if n == 0 {
		return 0, nil
	}

	if err := c.dec.Feed(c.block[:n]); err != nil {
		return n, err
	}
	return n, nil
}

// Run is the bare-loop scheduler around Tick: it polls until ctx is
// canceled, sleeping one poll interval after every idle tick. It returns
// the first transport or decode error.
func (c *Controller) Run(ctx context.Context) error {
	c.logger.Info(
		"controller running",
		"pixels_per_strip", len(c.dec.Strip(0)),
		"block_size", len(c.block))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := c.Tick()
		if err != nil {
			return err
		}
		if n == 0 {
			time.Sleep(pollInterval)
		}
	}
}
