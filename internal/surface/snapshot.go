package surface

import (
	"bytes"
	"image"
	"image/color"
)

// Snapshot is an immutable copy of a buffer's pixels.
type Snapshot struct {
	width, height int
	pix           []uint8
}

// Width returns the snapshot width in pixels.
func (s *Snapshot) Width() int { return s.width }

// Height returns the snapshot height in pixels.
func (s *Snapshot) Height() int { return s.height }

// RGBAAt returns the pixel at (x, y), or transparent black outside the snapshot.
func (s *Snapshot) RGBAAt(x, y int) color.RGBA {
	if x < 0 || y < 0 || x >= s.width || y >= s.height {
		return color.RGBA{}
	}
	i := (y*s.width + x) * 4
	return color.RGBA{R: s.pix[i], G: s.pix[i+1], B: s.pix[i+2], A: s.pix[i+3]}
}

// Equal reports whether two snapshots have the same size and pixels.
func (s *Snapshot) Equal(other *Snapshot) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.width == other.width && s.height == other.height && bytes.Equal(s.pix, other.pix)
}

// Image returns the snapshot as a new RGBA image.
func (s *Snapshot) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	copy(img.Pix, s.pix)
	return img
}
