package isopick

import (
	"fmt"
	"image/color"
)

// ColorIndex is the identity of a tracked object inside an index buffer.
// It is packed into the RGB channels of a single pixel: bits 16-23 are red,
// bits 8-15 green and bits 0-7 blue.
type ColorIndex uint32

const (
	// MaxColorIndex is the largest index that may be encoded. 0xFFFFFF is
	// never handed out.
	MaxColorIndex ColorIndex = 1<<24 - 2

	// indexSpace is the number of allocatable indices.
	indexSpace = int(MaxColorIndex) + 1
)

// Valid reports whether i lies in [0, MaxColorIndex].
func (i ColorIndex) Valid() bool {
	return i <= MaxColorIndex
}

// RGB returns the identity color channels for i.
// Panics if i is out of range.
func (i ColorIndex) RGB() (r, g, b uint8) {
	return EncodeIndex(i)
}

// Color returns the opaque identity color for i.
func (i ColorIndex) Color() color.RGBA {
	r, g, b := EncodeIndex(i)
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}

// EncodeIndex splits a 24-bit index into its identity color channels.
// Panics if i is greater than MaxColorIndex.
func EncodeIndex(i ColorIndex) (r, g, b uint8) {
	if !i.Valid() {
		panic(fmt.Sprintf("isopick: color index %d out of range [0, %d]", i, MaxColorIndex))
	}
	return uint8(i >> 16), uint8(i >> 8), uint8(i)
}

// DecodeIndex reassembles an index from identity color channels.
func DecodeIndex(r, g, b uint8) ColorIndex {
	return ColorIndex(r)<<16 | ColorIndex(g)<<8 | ColorIndex(b)
}
