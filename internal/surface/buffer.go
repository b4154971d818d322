// Package surface owns the raster pixel grid of the drawing canvas and the
// primitives that mutate it.
package surface

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"

	"sketchcalc/pkg/colorutil"
	"sketchcalc/pkg/geometry"
)

var (
	// ErrInvalidSize is returned when a buffer is initialized with a
	// non-positive dimension.
	ErrInvalidSize = errors.New("surface: invalid size")

	// ErrSizeMismatch is returned by RestoreSnapshot when the snapshot was
	// captured from a buffer of different dimensions.
	ErrSizeMismatch = errors.New("surface: snapshot size mismatch")
)

// DataURLPrefix prefixes the PNG export sent to the recognition service.
const DataURLPrefix = "data:image/png;base64,"

// Buffer is the raster canvas. The zero value and a nil *Buffer are valid and
// every operation on them is a no-op until Initialize succeeds.
type Buffer struct {
	img        *image.RGBA
	background color.RGBA
}

// New creates an unallocated buffer with the given background color.
func New(background color.RGBA) *Buffer {
	return &Buffer{background: colorutil.Opaque(background)}
}

// FromSnapshot builds an allocated buffer holding a copy of the snapshot.
func FromSnapshot(s *Snapshot, background color.RGBA) *Buffer {
	b := New(background)
	if s != nil {
		b.img = s.Image()
	}
	return b
}

func (b *Buffer) ready() bool {
	return b != nil && b.img != nil
}

// Ready reports whether the buffer has been allocated.
func (b *Buffer) Ready() bool {
	return b.ready()
}

// Background returns the fill color.
func (b *Buffer) Background() color.RGBA {
	if b == nil {
		return colorutil.Black
	}
	return b.background
}

// Size returns the buffer dimensions, or zeros when unallocated.
func (b *Buffer) Size() (width, height int) {
	if !b.ready() {
		return 0, 0
	}
	return b.img.Rect.Dx(), b.img.Rect.Dy()
}

// Initialize allocates the buffer and fills it with the background color.
// Calling it again with new dimensions keeps the previous content anchored at
// the origin; anything outside the new bounds is dropped, nothing is scaled.
func (b *Buffer) Initialize(width, height int) error {
	if b == nil {
		return nil
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}

	old := b.img
	if old != nil && old.Rect.Dx() == width && old.Rect.Dy() == height {
		return nil
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(b.background), image.Point{}, draw.Src)
	if old != nil {
		draw.Draw(img, img.Bounds(), old, image.Point{}, draw.Src)
	}
	b.img = img
	return nil
}

// Release drops the pixel grid. Later operations are no-ops until the buffer
// is initialized again.
func (b *Buffer) Release() {
	if b != nil {
		b.img = nil
	}
}

// Clear fills the whole buffer with the background color.
func (b *Buffer) Clear() {
	if !b.ready() {
		return
	}
	draw.Draw(b.img, b.img.Bounds(), image.NewUniform(b.background), image.Point{}, draw.Src)
}

// At returns the pixel at (x, y), or transparent black outside the buffer.
func (b *Buffer) At(x, y int) color.RGBA {
	if !b.ready() || !image.Pt(x, y).In(b.img.Rect) {
		return color.RGBA{}
	}
	return b.img.RGBAAt(x, y)
}

// Image returns a copy of the current pixels for display.
func (b *Buffer) Image() *image.RGBA {
	if !b.ready() {
		return nil
	}
	out := image.NewRGBA(b.img.Rect)
	copy(out.Pix, b.img.Pix)
	return out
}

// ExportSnapshot captures the full buffer. The snapshot does not share memory
// with the buffer.
func (b *Buffer) ExportSnapshot() *Snapshot {
	if !b.ready() {
		return nil
	}
	pix := make([]uint8, len(b.img.Pix))
	copy(pix, b.img.Pix)
	return &Snapshot{width: b.img.Rect.Dx(), height: b.img.Rect.Dy(), pix: pix}
}

// RestoreSnapshot overwrites every pixel with the snapshot's content. A
// snapshot taken at another size is refused with ErrSizeMismatch and the
// buffer is left untouched.
func (b *Buffer) RestoreSnapshot(s *Snapshot) error {
	if !b.ready() || s == nil {
		return nil
	}
	w, h := b.Size()
	if s.width != w || s.height != h {
		return fmt.Errorf("%w: snapshot %dx%d, buffer %dx%d", ErrSizeMismatch, s.width, s.height, w, h)
	}
	copy(b.img.Pix, s.pix)
	return nil
}

// Reconcile restores a snapshot of any size the way a resize would: the
// buffer keeps its dimensions, is filled with background and the snapshot is
// drawn at the origin, clipped.
func (b *Buffer) Reconcile(s *Snapshot) {
	if !b.ready() || s == nil {
		return
	}
	b.Clear()
	draw.Draw(b.img, b.img.Bounds(), s.Image(), image.Point{}, draw.Src)
}

// ContentBounds returns the bounding box of every pixel that differs from the
// background. ok is false when the canvas is blank.
func (b *Buffer) ContentBounds() (r geometry.RectInt, ok bool) {
	if !b.ready() {
		return geometry.RectInt{}, false
	}
	w, h := b.Size()
	minX, minY, maxX, maxY := w, h, -1, -1
	bg := b.background
	for y := 0; y < h; y++ {
		row := b.img.Pix[y*b.img.Stride : y*b.img.Stride+w*4]
		for x := 0; x < w; x++ {
			i := x * 4
			if row[i] == bg.R && row[i+1] == bg.G && row[i+2] == bg.B && row[i+3] == bg.A {
				continue
			}
			minX = min(minX, x)
			maxX = max(maxX, x)
			minY = min(minY, y)
			maxY = max(maxY, y)
		}
	}
	if maxX < 0 {
		return geometry.RectInt{}, false
	}
	return geometry.RectInt{X: minX, Y: minY, Width: maxX - minX + 1, Height: maxY - minY + 1}, true
}

// EncodePNG writes the buffer as a PNG image.
func (b *Buffer) EncodePNG(w io.Writer) error {
	if !b.ready() {
		return fmt.Errorf("%w: buffer not initialized", ErrInvalidSize)
	}
	return png.Encode(w, b.img)
}

// ExportForRecognition encodes the buffer as a PNG data URL.
func (b *Buffer) ExportForRecognition() (string, error) {
	var buf bytes.Buffer
	if err := b.EncodePNG(&buf); err != nil {
		return "", fmt.Errorf("failed to encode canvas: %w", err)
	}
	return DataURLPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
