package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"go.bug.st/serial"
	"libdb.so/pixelwire/ledstream"
)

var (
	device = "/dev/ttyUSB0"
	baud   = ledstream.DefaultBaud
	pixels = ledstream.DefaultPixelsPerStrip
)

func init() {
	pflag.StringVarP(&device, "device", "d", device, "serial device of the controller")
	pflag.IntVarP(&baud, "baud", "b", baud, "baud rate")
	pflag.IntVarP(&pixels, "pixels", "p", pixels, "pixels per strip")
}

// ackTimeout is generous since a human is watching the strip anyway.
const ackTimeout = 5 * time.Second

func main() {
	pflag.Parse()

	if err := run(pflag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	port, err := serial.Open(device, &serial.Mode{
		BaudRate: baud,
	})
	if err != nil {
		return errors.Wrap(err, "failed to open serial port")
	}
	defer port.Close()

	s := &sender{
		port:  port,
		strip: ledstream.NewStrip(2 * pixels),
		acks:  make(chan struct{}, 1),
	}
	go s.readAcks()

	shell := ishell.New()
	shell.Println("pixelwire sender; `help` lists commands")
	shell.SetPrompt(device + " > ")
	shell.AddCmd(&ishell.Cmd{
		Name: "fill",
		Help: "R G B: fill both strips with one color",
		Func: s.cmdFill,
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "half",
		Help: "light the first strip white, leave the second dark",
		Func: s.cmdHalf,
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "fade",
		Help: "R1 G1 B1 R2 G2 B2 STEPS STEPMS: fade both strips between two colors",
		Func: s.cmdFade,
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "test",
		Help: "INTERVALMS SECONDS: cycle red, green and blue",
		Func: s.cmdTest,
	})

	if len(args) > 0 {
		return shell.Process(args...)
	}
	shell.Run()
	return nil
}

// sender owns the serial port and the frame being edited. Commands mutate
// the frame and stream it out whole.
type sender struct {
	port  serial.Port
	strip ledstream.Strip
	acks  chan struct{}
}

// readAcks drains the port and signals every acknowledgment byte. The
// controller sends nothing else, but stray boot chatter is skipped.
func (s *sender) readAcks() {
	buf := make([]byte, 128)
	for {
		n, err := s.port.Read(buf)
		if err != nil {
			return
		}
		for _, b := range buf[:n] {
			if b != ledstream.Ack {
				continue
			}
			select {
			case s.acks <- struct{}{}:
			default:
			}
		}
	}
}

// send streams the whole frame and waits for the controller's ack. It
// reports whether the frame made it out.
func (s *sender) send(c *ishell.Context) bool {
	start := time.Now()
	n, err := s.strip.WriteTo(s.port)
	if err != nil {
		c.Err(errors.Wrap(err, "failed to write frame"))
		return false
	}
	elapsed := time.Since(start)
	c.Printf("sent %d bytes in %s (%.0f bytes/sec)\n", n, elapsed, float64(n)/elapsed.Seconds())

	select {
	case <-s.acks:
		return true
	case <-time.After(ackTimeout):
		c.Err(errors.New("timed out waiting for ack"))
		return false
	}
}

func (s *sender) cmdFill(c *ishell.Context) {
	color, err := parseColor(c.Args)
	if err != nil {
		c.Err(err)
		return
	}
	s.strip.Fill(color)
	s.send(c)
}

func (s *sender) cmdHalf(c *ishell.Context) {
	s.strip.SetRange(0, pixels, ledstream.RGB(255, 255, 255))
	s.strip.SetRange(pixels, len(s.strip), ledstream.RGBColor{})
	s.send(c)
}

func (s *sender) cmdFade(c *ishell.Context) {
	if len(c.Args) != 8 {
		c.Err(errors.New("usage: fade R1 G1 B1 R2 G2 B2 STEPS STEPMS"))
		return
	}

	from, err := parseColor(c.Args[:3])
	if err != nil {
		c.Err(err)
		return
	}
	to, err := parseColor(c.Args[3:6])
	if err != nil {
		c.Err(err)
		return
	}
	steps, err := strconv.Atoi(c.Args[6])
	if err != nil || steps <= 0 {
		c.Err(errors.New("steps must be a positive number"))
		return
	}
	stepMs, err := strconv.Atoi(c.Args[7])
	if err != nil || stepMs < 0 {
		c.Err(errors.New("step interval must be a number of milliseconds"))
		return
	}

	for step := 0; step <= steps; step++ {
		s.strip.Fill(lerp(from, to, step, steps))
		if !s.send(c) {
			return
		}
		time.Sleep(time.Duration(stepMs) * time.Millisecond)
	}
}

func (s *sender) cmdTest(c *ishell.Context) {
	if len(c.Args) != 2 {
		c.Err(errors.New("usage: test INTERVALMS SECONDS"))
		return
	}

	interval, err := strconv.Atoi(c.Args[0])
	if err != nil || interval < 0 {
		c.Err(errors.New("interval must be a number of milliseconds"))
		return
	}
	seconds, err := strconv.Atoi(c.Args[1])
	if err != nil || seconds <= 0 {
		c.Err(errors.New("duration must be a positive number of seconds"))
		return
	}

	colors := []ledstream.RGBColor{
		ledstream.RGB(255, 0, 0),
		ledstream.RGB(0, 255, 0),
		ledstream.RGB(0, 0, 255),
	}

	start := time.Now()
	for i := 0; time.Since(start) < time.Duration(seconds)*time.Second; i++ {
		s.strip.Fill(colors[i%len(colors)])
		if !s.send(c) {
			return
		}
		time.Sleep(time.Duration(interval) * time.Millisecond)
	}
}

func parseColor(args []string) (ledstream.RGBColor, error) {
	if len(args) != 3 {
		return ledstream.RGBColor{}, errors.New("expected R G B channel values")
	}

	var color ledstream.RGBColor
	for i, arg := range args {
		v, err := strconv.Atoi(arg)
		if err != nil || v < 0 || v > 255 {
			return ledstream.RGBColor{}, errors.Errorf("bad channel value %q, want 0-255", arg)
		}
		color[i] = uint8(v)
	}
	return color, nil
}

func lerp(from, to ledstream.RGBColor, step, steps int) ledstream.RGBColor {
	var color ledstream.RGBColor
	for i := range color {
		color[i] = uint8(int(from[i]) + (int(to[i])-int(from[i]))*step/steps)
	}
	return color
}
