// Package ledstream implements the dual-strip LED streaming protocol.
//
// A host streams whole frames of raw pixel data over a byte transport and
// the controller answers each consumed frame with a single acknowledgment
// byte. The wire format has no header, no length prefix and no per-pixel
// delimiter: one frame is exactly FrameBytes(pixelsPerStrip) bytes, laid
// out as a flat sequence of RGB triplets covering the first strip in order
// and then the second. Flow control is one frame in flight: the host must
// not start the next frame until it has read the Ack byte for the previous
// one.
package ledstream

// Protocol constants. These must match on both ends of the link.
const (
	// BytesPerPixel is the wire size of one pixel: red, green, blue.
	BytesPerPixel = 3
	// Ack is the byte the controller writes back after a frame has been
	// fully consumed and displayed.
	Ack byte = 0xAA
	// DefaultPixelsPerStrip is the strip length of the deployed hardware.
	DefaultPixelsPerStrip = 150
	// DefaultBaud is the serial symbol rate both ends are configured for.
	DefaultBaud = 115200
)

// FrameBytes returns the exact byte count of one full dual-strip frame for
// the given strip length.
func FrameBytes(pixelsPerStrip int) int {
	return 2 * pixelsPerStrip * BytesPerPixel
}
