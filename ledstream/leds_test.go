package ledstream

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStripWriteTo(t *testing.T) {
	s := Strip{RGB(1, 2, 3), RGB(4, 5, 6)}

	var buf bytes.Buffer
	n, err := s.WriteTo(&buf)
	require.NoError(t, err)
	require.Equal(t, int64(6), n)
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6}, buf.Bytes())
}

func TestStripAsPixels(t *testing.T) {
	s := NewStrip(2)
	s.Set(1, RGB(7, 8, 9))

	pix := s.AsPixels()
	require.Equal(t, []uint8{0, 0, 0, 7, 8, 9}, pix)

	// The view aliases the strip.
	pix[0] = 255
	require.Equal(t, RGB(255, 0, 0), s[0])

	require.Nil(t, Strip(nil).AsPixels())
}

func TestStripSetRange(t *testing.T) {
	s := NewStrip(4)
	s.SetRange(1, 3, RGB(10, 20, 30))
	require.Equal(t, Strip{
		RGB(0, 0, 0),
		RGB(10, 20, 30),
		RGB(10, 20, 30),
		RGB(0, 0, 0),
	}, s)

	s.Fill(RGB(1, 1, 1))
	require.Equal(t, Strip{RGB(1, 1, 1), RGB(1, 1, 1), RGB(1, 1, 1), RGB(1, 1, 1)}, s)
}

func TestFrameBytes(t *testing.T) {
	require.Equal(t, 900, FrameBytes(150))
	require.Equal(t, 12, FrameBytes(2))
}
