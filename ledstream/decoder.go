package ledstream

import (
	"io"

	"github.com/pkg/errors"
)

// Display pushes both strips to physical output. Implementations must be
// safe to call once per completed frame and should treat the call as
// idempotent for identical strip contents.
type Display interface {
	Show(strip1, strip2 Strip) error
}

// DisplayFunc adapts a function to the Display interface.
type DisplayFunc func(strip1, strip2 Strip) error

// Show implements Display.
func (f DisplayFunc) Show(strip1, strip2 Strip) error {
	return f(strip1, strip2)
}

// Decoder turns an arbitrarily-chunked stream of frame bytes into pixel
// writes across two fixed-length strips.
//
// Bytes accumulate three at a time into a staging triplet. Each completed
// triplet is routed by its cumulative byte offset: the first
// pixelsPerStrip triplets of a frame fill strip 1 in order, the next
// pixelsPerStrip fill strip 2, so the two strips form one logical
// concatenated sequence split at the midpoint. When the frame byte count
// is reached the decoder shows both strips, writes the Ack byte, and
// resets for the next frame. There is no idle state: the decoder is
// always accumulating toward the next frame, including right after
// creation.
//
// There is no resynchronization. If the transport loses a byte, every
// later pixel shifts by one channel and the decoder cannot notice: no
// checksum, no delimiter, no timeout. It keeps accumulating with the
// shifted mapping until the byte count happens to land on a frame
// boundary again or the controller is reset.
//
// A Decoder is not safe for concurrent use. Bytes must be fed strictly in
// arrival order.
type Decoder struct {
	display Display
	ack     io.ByteWriter

	strips [2]Strip

	// triplet stages the pixel currently being assembled; fill is its
	// length and stays in [0, 2] between bytes.
	triplet [BytesPerPixel]byte
	fill    int

	// count is the number of bytes consumed toward the current frame,
	// in [0, frameBytes). It only ever touches frameBytes inside Feed,
	// at the instant the completion sequence runs.
	count      int
	frameBytes int
}

// NewDecoder creates a decoder for two strips of pixelsPerStrip LEDs each.
// Completed frames are pushed to display; the Ack byte is written to ack.
func NewDecoder(pixelsPerStrip int, display Display, ack io.ByteWriter) *Decoder {
	return &Decoder{
		display:    display,
		ack:        ack,
		strips:     [2]Strip{NewStrip(pixelsPerStrip), NewStrip(pixelsPerStrip)},
		frameBytes: FrameBytes(pixelsPerStrip),
	}
}

// Strip returns one of the two output strips. i is 0 or 1. The returned
// slice is the decoder's live buffer, overwritten as frames arrive.
func (d *Decoder) Strip(i int) Strip {
	return d.strips[i]
}

// Pending returns the number of bytes consumed toward the frame currently
// in progress.
func (d *Decoder) Pending() int {
	return d.count
}

// Feed consumes a chunk of stream bytes. Chunk boundaries carry no
// meaning: the resulting strip contents depend only on byte content and
// order. An error from the display or the ack write aborts the chunk and
// is returned; the decoder itself has no error states and remains usable.
func (d *Decoder) Feed(p []byte) error {
	for _, b := range p {
		if err := d.feedByte(b); err != nil {
			return err
		}
	}
	return nil
}

func (d *Decoder) feedByte(b byte) error {
	d.triplet[d.fill] = b
	d.fill++
	if d.fill == BytesPerPixel {
		// count still excludes the byte just staged, so dividing it
		// by the pixel size yields the index of this triplet.
		if strip, i, ok := LocatePixel(d.count, len(d.strips[0])); ok {
			d.strips[strip][i] = RGBColor(d.triplet)
		}
		d.fill = 0
	}
	d.count++
	if d.count == d.frameBytes {
		return d.finishFrame()
	}
	return nil
}

// finishFrame runs the completion sequence in order: display both strips,
// write the Ack byte, reset the counters. A failed display suppresses the
// ack so the host never reads an acknowledgment for a frame that was not
// shown. The counters reset regardless, returning the machine to the
// accumulating state.
func (d *Decoder) finishFrame() error {
	err := d.display.Show(d.strips[0], d.strips[1])
	if err != nil {
		err = errors.Wrap(err, "display")
	} else if werr := d.ack.WriteByte(Ack); werr != nil {
		err = errors.Wrap(werr, "write ack")
	}
	d.count = 0
	d.fill = 0
	return err
}

// LocatePixel maps a cumulative byte offset within a frame to the strip
// (0 or 1) and pixel index of the triplet enclosing that offset. ok is
// false when the offset lies beyond both strips; the decoder drops such
// triplets while still counting their bytes toward frame completion.
func LocatePixel(offset, pixelsPerStrip int) (strip, index int, ok bool) {
	pos := offset / BytesPerPixel
	switch {
	case pos < pixelsPerStrip:
		return 0, pos, true
	case pos < 2*pixelsPerStrip:
		return 1, pos - pixelsPerStrip, true
	default:
		return 0, 0, false
	}
}
