package device

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRingReadWrite(t *testing.T) {
	r := newRing(8)
	r.write([]byte{1, 2, 3, 4, 5})
	require.Equal(t, 5, r.length())

	buf := make([]byte, 3)
	require.Equal(t, 3, r.read(buf))
	require.Equal(t, []byte{1, 2, 3}, buf)
	require.Equal(t, 2, r.length())

	buf = make([]byte, 8)
	require.Equal(t, 2, r.read(buf))
	require.Equal(t, []byte{4, 5}, buf[:2])
	require.Zero(t, r.length())
	require.Zero(t, r.read(buf))
}

func TestRingWrapAround(t *testing.T) {
	r := newRing(8)
	r.write([]byte{1, 2, 3, 4, 5, 6})

	buf := make([]byte, 4)
	require.Equal(t, 4, r.read(buf))

	// Head is at 4 with 2 bytes stored; this write wraps.
	r.write([]byte{7, 8, 9, 10, 11})
	require.Equal(t, 7, r.length())

	out := make([]byte, 7)
	require.Equal(t, 7, r.read(out))
	require.Equal(t, []byte{5, 6, 7, 8, 9, 10, 11}, out)
}

func TestRingGrowth(t *testing.T) {
	r := newRing(4)
	r.write([]byte{1, 2, 3})

	buf := make([]byte, 1)
	require.Equal(t, 1, r.read(buf))

	// Ten more bytes force the buffer to double twice while the stored
	// bytes straddle the wrap point.
	r.write([]byte{4, 5, 6, 7, 8, 9, 10, 11, 12, 13})
	require.Equal(t, 12, r.length())

	out := make([]byte, 12)
	require.Equal(t, 12, r.read(out))
	require.Equal(t, []byte{2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13}, out)
}
