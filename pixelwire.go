// Package pixelwire implements the host side of a two-strip LED pixel
// streamer: it renders pulse animations into a logical strip, streams the
// frames to a serial LED controller one acknowledged frame at a time, and
// takes commands over a small UDP JSON protocol.
package pixelwire

import (
	"context"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/pkg/errors"
	"go.bug.st/serial"
	"golang.org/x/sync/errgroup"
	"libdb.so/pixelwire/internal/animate"
	"libdb.so/pixelwire/ledstream"
)

// Daemon is the pixelwire host daemon.
type Daemon struct {
	cfg    *Config
	logger *slog.Logger
	engine *animate.Engine
	acks   chan struct{}
}

// NewDaemon creates a new pixelwire daemon.
func NewDaemon(cfg *Config, logger *slog.Logger) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	engine, err := animate.NewEngine(cfg.PixelsPerStrip, cfg.Pulse.MiddlePixel, cfg.Pulse.Width)
	if err != nil {
		return nil, errors.Wrap(err, "invalid pulse configuration")
	}

	return &Daemon{
		cfg:    cfg,
		logger: logger,
		engine: engine,
		acks:   make(chan struct{}, 1),
	}, nil
}

// Pulse starts a pulse of the given color traveling at speed pixels per
// millisecond. It returns the pulse's id. Control messages use this too.
func (d *Daemon) Pulse(color ledstream.RGBColor, speed float64) int {
	return d.engine.Pulse(color, speed)
}

// Run starts the daemon. It blocks until the given context is canceled.
func (d *Daemon) Run(ctx context.Context) error {
	port, err := serial.Open(d.cfg.Device, &serial.Mode{
		BaudRate: d.cfg.Baud,
	})
	if err != nil {
		return errors.Wrap(err, "failed to open serial port")
	}
	defer port.Close()

	return (&internalDaemon{Daemon: d, port: port}).Run(ctx)
}

type internalDaemon struct {
	*Daemon
	port io.ReadWriteCloser
}

func (d *internalDaemon) Run(ctx context.Context) error {
	conn, err := net.ListenPacket("udp", d.cfg.Listen)
	if err != nil {
		return errors.Wrap(err, "failed to listen for control messages")
	}
	defer conn.Close()

	d.logger.Info(
		"pixelwire daemon running",
		"device", d.cfg.Device,
		"baud", d.cfg.Baud,
		"pixels_per_strip", d.cfg.PixelsPerStrip,
		"control_addr", conn.LocalAddr())

	errg, ctx := errgroup.WithContext(ctx)
	errg.Go(func() error {
		<-ctx.Done()
		d.logger.Debug("closing serial port")
		if err := d.port.Close(); err != nil {
			return errors.Wrap(err, "failed to close serial port")
		}
		return ctx.Err()
	})
	errg.Go(func() error {
		<-ctx.Done()
		d.logger.Debug("closing control socket")
		if err := conn.Close(); err != nil {
			return errors.Wrap(err, "failed to close control socket")
		}
		return ctx.Err()
	})

	errg.Go(func() error {
		return d.animationLoop(ctx)
	})
	errg.Go(func() error {
		return d.senderLoop(ctx)
	})
	errg.Go(func() error {
		return d.readAcks(ctx)
	})
	errg.Go(func() error {
		return d.controlLoop(ctx, conn)
	})

	return errg.Wait()
}

// animationLoop advances the pulse engine at the configured rate.
func (d *internalDaemon) animationLoop(ctx context.Context) error {
	ticker := time.NewTicker(time.Second / time.Duration(d.cfg.Rate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			d.engine.Advance(now)
		}
	}
}

// senderLoop streams frames to the controller, keeping at most one frame
// in flight. After each frame it waits for the controller's ack, or for
// the ack timeout so a lost ack cannot wedge the stream.
func (d *internalDaemon) senderLoop(ctx context.Context) error {
	frame := ledstream.NewStrip(2 * d.cfg.PixelsPerStrip)

	frameTicker := time.NewTicker(time.Second / time.Duration(d.cfg.Rate))
	defer frameTicker.Stop()

	nextFrame := frameTicker.C
	var ackTimeout <-chan time.Time // nil unless a frame is in flight

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-d.acks:
			if ackTimeout == nil {
				d.logger.Debug("dropping ack with no frame in flight")
				continue
			}
			d.logger.Debug("frame acknowledged")
			nextFrame = frameTicker.C
			ackTimeout = nil

		case <-ackTimeout:
			d.logger.Warn(
				"timed out waiting for frame ack",
				"timeout", time.Duration(d.cfg.AckTimeout))
			nextFrame = frameTicker.C
			ackTimeout = nil

		case <-nextFrame:
			d.engine.Snapshot(frame)
			if _, err := frame.WriteTo(d.port); err != nil {
				return errors.Wrap(err, "failed to write frame")
			}

			// Hold further frames until the controller acks this one.
			nextFrame = nil
			ackTimeout = time.After(time.Duration(d.cfg.AckTimeout))
		}
	}
}

// readAcks reads from the serial port and signals the sender for every
// acknowledgment byte found.
func (d *internalDaemon) readAcks(ctx context.Context) error {
	buf := make([]byte, 128)

	for ctx.Err() == nil {
		n, err := d.port.Read(buf)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			return errors.Wrap(err, "failed to read from serial port")
		}

		for _, b := range buf[:n] {
			if b != ledstream.Ack {
				d.logger.Debug("ignoring stray serial byte", "byte", b)
				continue
			}
			select {
			case d.acks <- struct{}{}:
			default:
			}
		}
	}

	return ctx.Err()
}

// controlLoop answers control datagrams until the context is canceled.
func (d *internalDaemon) controlLoop(ctx context.Context, conn net.PacketConn) error {
	handler := controlHandler{
		logger:   d.logger,
		engine:   d.engine,
		identity: localIdentity(d.logger),
	}

	buf := make([]byte, 64*1024)
	for ctx.Err() == nil {
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			return errors.Wrap(err, "failed to read control message")
		}

		reply := handler.Handle(buf[:n])
		if reply == nil {
			continue
		}
		if _, err := conn.WriteTo(reply, addr); err != nil {
			d.logger.Warn(
				"failed to send control reply",
				"addr", addr,
				"error", err)
		}
	}

	return ctx.Err()
}
