package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"libdb.so/pixelwire/device"
	"libdb.so/pixelwire/ledstream"
)

var (
	devicePath = "/dev/ttyUSB0"
	baud       = ledstream.DefaultBaud
	pixels     = ledstream.DefaultPixelsPerStrip
	verbose    = false
)

func init() {
	pflag.StringVarP(&devicePath, "device", "d", devicePath, "serial device to listen on")
	pflag.IntVarP(&baud, "baud", "b", baud, "baud rate")
	pflag.IntVarP(&pixels, "pixels", "p", pixels, "pixels per strip")
	pflag.BoolVarP(&verbose, "verbose", "v", verbose, "verbose output")
}

func main() {
	pflag.Parse()

	logLevel := slog.LevelWarn
	if verbose {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	transport, err := device.OpenSerial(devicePath, baud)
	if err != nil {
		return errors.Wrap(err, "failed to open serial port")
	}
	defer transport.Close()

	display := &termDisplay{out: os.Stdout}
	controller := device.NewController(transport, display, pixels, slog.Default())

	errg, ctx := errgroup.WithContext(ctx)
	errg.Go(func() error {
		return controller.Run(ctx)
	})
	errg.Go(func() error {
		// The RX pump fails silently as far as Tick is concerned, so poll
		// for its error here.
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := transport.Err(); err != nil {
					return errors.Wrap(err, "serial transport failed")
				}
			}
		}
	})

	return errg.Wait()
}

// termDisplay draws both strips as rows of 24-bit background-colored cells,
// repainting in place after the first frame.
type termDisplay struct {
	out     io.Writer
	painted bool
}

func (d *termDisplay) Show(strip1, strip2 ledstream.Strip) error {
	var b strings.Builder
	if d.painted {
		// Move back up over the two strip rows.
		b.WriteString("\x1b[2A")
	}
	writeStripRow(&b, strip1)
	writeStripRow(&b, strip2)
	d.painted = true

	_, err := io.WriteString(d.out, b.String())
	return err
}

func writeStripRow(b *strings.Builder, strip ledstream.Strip) {
	b.WriteString("\r")
	for _, c := range strip {
		fmt.Fprintf(b, "\x1b[48;2;%d;%d;%dm ", c[0], c[1], c[2])
	}
	b.WriteString("\x1b[0m\x1b[K\n")
}
