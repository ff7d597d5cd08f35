package animate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"libdb.so/pixelwire/ledstream"
)

func TestNewEngine(t *testing.T) {
	tests := []struct {
		name     string
		perStrip int
		middle   int
		width    int
		wantErr  bool
	}{
		{"valid", 150, 74, 3, false},
		{"tiny strip", 1, 0, 1, false},
		{"no pixels", 0, 0, 3, true},
		{"negative middle", 10, -1, 3, true},
		{"middle past end", 10, 10, 3, true},
		{"zero width", 10, 5, 0, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			e, err := NewEngine(test.perStrip, test.middle, test.width)
			if test.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, e)
		})
	}
}

func TestEnginePulseLifecycle(t *testing.T) {
	e, err := NewEngine(10, 5, 3)
	require.NoError(t, err)

	t0 := time.Unix(1000, 0)
	c := ledstream.RGB(10, 20, 30)

	id := e.pulseAt(c, 1, t0)
	require.Equal(t, 1, id)
	require.Equal(t, 1, e.ActivePulses())

	got := ledstream.NewStrip(20)

	// At start both edges overlap the middle pixel.
	e.Advance(t0)
	e.Snapshot(got)

	want := ledstream.NewStrip(20)
	want.SetRange(4, 7, c)
	want.SetRange(14, 17, c)
	require.Equal(t, want, got)

	// After 2ms at 1px/ms the edges sit at pixels 3 and 7 on each strip,
	// and the middle has gone dark again.
	e.Advance(t0.Add(2 * time.Millisecond))
	e.Snapshot(got)

	want.Fill(ledstream.RGBColor{})
	want.SetRange(2, 5, c)
	want.SetRange(6, 9, c)
	want.SetRange(12, 15, c)
	want.SetRange(16, 19, c)
	require.Equal(t, want, got)
	require.Equal(t, 1, e.ActivePulses())

	// Far enough out that both edges have left both strips: the pulse is
	// retired and the frame goes black.
	e.Advance(t0.Add(100 * time.Millisecond))
	e.Snapshot(got)

	want.Fill(ledstream.RGBColor{})
	require.Equal(t, want, got)
	require.Equal(t, 0, e.ActivePulses())
}

func TestEnginePulseIDs(t *testing.T) {
	e, err := NewEngine(10, 5, 3)
	require.NoError(t, err)

	t0 := time.Unix(1000, 0)
	require.Equal(t, 1, e.pulseAt(ledstream.RGB(1, 0, 0), 1, t0))
	require.Equal(t, 2, e.pulseAt(ledstream.RGB(0, 1, 0), 1, t0))
	require.Equal(t, 3, e.pulseAt(ledstream.RGB(0, 0, 1), 1, t0))
	require.Equal(t, 3, e.ActivePulses())
}

func TestEngineBlending(t *testing.T) {
	t0 := time.Unix(1000, 0)

	t.Run("saturating add", func(t *testing.T) {
		e, err := NewEngine(10, 5, 1)
		require.NoError(t, err)

		e.pulseAt(ledstream.RGB(100, 30, 0), 1, t0)
		e.pulseAt(ledstream.RGB(200, 40, 5), 1, t0)
		e.Advance(t0)

		got := ledstream.NewStrip(20)
		e.Snapshot(got)
		require.Equal(t, ledstream.RGB(255, 70, 5), got[5])
		require.Equal(t, ledstream.RGB(255, 70, 5), got[15])
	})

	t.Run("equal channels merge", func(t *testing.T) {
		e, err := NewEngine(10, 5, 1)
		require.NoError(t, err)

		e.pulseAt(ledstream.RGB(100, 100, 0), 1, t0)
		e.pulseAt(ledstream.RGB(100, 0, 0), 1, t0)
		e.Advance(t0)

		got := ledstream.NewStrip(20)
		e.Snapshot(got)
		require.Equal(t, ledstream.RGB(100, 100, 0), got[5])
	})
}

func TestEngineEdgeClipping(t *testing.T) {
	// Middle sits one pixel from the left end, so the left edge falls off
	// almost immediately while the right edge keeps walking.
	e, err := NewEngine(10, 1, 3)
	require.NoError(t, err)

	t0 := time.Unix(1000, 0)
	c := ledstream.RGB(50, 50, 50)
	e.pulseAt(c, 1, t0)

	e.Advance(t0.Add(5 * time.Millisecond))

	got := ledstream.NewStrip(20)
	e.Snapshot(got)

	// Left edge at -4 is gone; right edge at 6 lights 5..7 on each strip.
	want := ledstream.NewStrip(20)
	want.SetRange(5, 8, c)
	want.SetRange(15, 18, c)
	require.Equal(t, want, got)
	require.Equal(t, 1, e.ActivePulses())

	// Right edge past the end retires the pulse.
	e.Advance(t0.Add(20 * time.Millisecond))
	require.Equal(t, 0, e.ActivePulses())
}

func TestBlend(t *testing.T) {
	require.Equal(t, uint8(0), blend(0, 0))
	require.Equal(t, uint8(100), blend(100, 100))
	require.Equal(t, uint8(150), blend(100, 50))
	require.Equal(t, uint8(255), blend(200, 100))
	require.Equal(t, uint8(255), blend(255, 255))
}
