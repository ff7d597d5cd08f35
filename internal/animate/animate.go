// Package animate renders the pulse effect that the daemon streams to the
// strips. Each pulse starts at the middle pixel of both strips and splits
// into two edges that travel outwards until they fall off the ends.
package animate

import (
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
	"libdb.so/pixelwire/ledstream"
)

// Engine renders frames for the active pulses. The frame is the logical
// concatenated strip in wire order: strip 1's pixels first, then strip 2's.
// All methods are safe for concurrent use.
type Engine struct {
	mu       sync.Mutex
	pulses   []*pulse
	frame    ledstream.Strip
	perStrip int
	middle   int
	radius   int
	lastID   int
}

type pulse struct {
	started time.Time
	color   ledstream.RGBColor
	speed   float64 // pixels per millisecond
}

// NewEngine creates an engine for two strips of pixelsPerStrip pixels each.
// middlePixel is the per-strip index both pulses start from. pulseWidth is
// how many pixels each traveling edge lights up; odd widths render
// symmetrically around the edge.
func NewEngine(pixelsPerStrip, middlePixel, pulseWidth int) (*Engine, error) {
	if pixelsPerStrip < 1 {
		return nil, errors.New("pixels per strip must be at least 1")
	}
	if middlePixel < 0 || middlePixel >= pixelsPerStrip {
		return nil, errors.Errorf("middle pixel %d outside strip of %d", middlePixel, pixelsPerStrip)
	}
	if pulseWidth < 1 {
		return nil, errors.New("pulse width must be at least 1")
	}
	return &Engine{
		frame:    ledstream.NewStrip(2 * pixelsPerStrip),
		perStrip: pixelsPerStrip,
		middle:   middlePixel,
		radius:   (pulseWidth - 1) / 2,
	}, nil
}

// Pulse registers a pulse of the given color starting now and returns its
// id. speed is how far each edge travels per millisecond; it must be
// positive, or the pulse sits at the middle forever.
func (e *Engine) Pulse(color ledstream.RGBColor, speed float64) int {
	return e.pulseAt(color, speed, time.Now())
}

func (e *Engine) pulseAt(color ledstream.RGBColor, speed float64, started time.Time) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.lastID++
	e.pulses = append(e.pulses, &pulse{
		started: started,
		color:   color,
		speed:   speed,
	})
	return e.lastID
}

// Advance recomputes the frame for the given instant, starting from black
// and blending every live pulse on top. Pulses that no longer light any
// pixel on either strip are dropped.
func (e *Engine) Advance(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.frame.Fill(ledstream.RGBColor{})

	live := e.pulses[:0]
	for _, p := range e.pulses {
		elapsed := float64(now.Sub(p.started).Milliseconds())
		distance := elapsed * p.speed

		lit := e.renderPulse(0, p, distance)
		lit = e.renderPulse(e.perStrip, p, distance) || lit
		if lit {
			live = append(live, p)
		}
	}
	for i := len(live); i < len(e.pulses); i++ {
		e.pulses[i] = nil
	}
	e.pulses = live
}

// renderPulse blends one pulse's two edges into the strip starting at base.
// It reports whether any pixel was lit.
func (e *Engine) renderPulse(base int, p *pulse, distance float64) bool {
	left := int(math.Round(float64(e.middle) - distance))
	right := int(math.Round(float64(e.middle) + distance))

	leftStart := max(0, left-e.radius)
	leftEnd := min(e.perStrip, left+e.radius+1)
	rightStart := max(0, right-e.radius)
	rightEnd := min(e.perStrip, right+e.radius+1)

	lit := false
	for i := leftStart; i < rightEnd; i++ {
		if i < leftEnd || i >= rightStart {
			lit = true
			px := &e.frame[base+i]
			px[0] = blend(px[0], p.color[0])
			px[1] = blend(px[1], p.color[1])
			px[2] = blend(px[2], p.color[2])
		}
	}
	return lit
}

// Snapshot copies the frame rendered by the last Advance into dst, which
// should hold both strips' worth of pixels.
func (e *Engine) Snapshot(dst ledstream.Strip) {
	e.mu.Lock()
	defer e.mu.Unlock()
	copy(dst, e.frame)
}

// ActivePulses returns how many pulses are still lighting pixels.
func (e *Engine) ActivePulses() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pulses)
}

// blend adds two channel values saturating at 255. Equal values merge
// instead of doubling.
func blend(a, b uint8) uint8 {
	if a == b {
		return a
	}
	sum := int(a) + int(b)
	if sum > 255 {
		return 255
	}
	return uint8(sum)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
