package ledstream

import (
	"io"
	"unsafe"
)

// RGBColor is one pixel's color as red, green and blue channel values.
type RGBColor [3]uint8

// RGB builds an RGBColor from individual channel values.
func RGB(r, g, b uint8) RGBColor {
	return RGBColor{r, g, b}
}

// Strip describes a strip of LEDs. It is a preallocated slice of RGBColor
// whose length stays fixed for the lifetime of whatever owns it.
type Strip []RGBColor

// NewStrip creates a strip of n LEDs. Colors are initialized to black
// (off).
func NewStrip(n int) Strip {
	return make(Strip, n)
}

// WriteTo implements io.WriterTo. It writes the strip in wire order as a
// flat sequence of RGB triplets.
func (s Strip) WriteTo(w io.Writer) (int64, error) {
	var written int64
	for _, c := range s {
		n, err := w.Write(c[:])
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

// AsPixels returns the strip as a flat slice of channel bytes, three per
// LED. The slice aliases the strip's memory.
func (s Strip) AsPixels() []uint8 {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*uint8)(unsafe.Pointer(&s[0])), BytesPerPixel*len(s))
}

// Set sets the color of the LED at the given index.
func (s Strip) Set(i int, c RGBColor) {
	s[i] = c
}

// SetRange sets the color of the LEDs in [start, end).
func (s Strip) SetRange(start, end int, c RGBColor) {
	for i := start; i < end; i++ {
		s[i] = c
	}
}

// Fill sets every LED in the strip to the given color.
func (s Strip) Fill(c RGBColor) {
	s.SetRange(0, len(s), c)
}
