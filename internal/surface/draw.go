package surface

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"sketchcalc/pkg/geometry"
)

// brush returns the pixel offsets of a round brush tip of the given width.
func brush(width int) []image.Point {
	r := float64(width) / 2
	r2 := r * r
	n := int(math.Ceil(r))
	pts := make([]image.Point, 0, (2*n+1)*(2*n+1))
	for dy := -n; dy <= n; dy++ {
		for dx := -n; dx <= n; dx++ {
			if float64(dx*dx+dy*dy) <= r2 {
				pts = append(pts, image.Pt(dx, dy))
			}
		}
	}
	return pts
}

func (b *Buffer) stamp(x, y int, tip []image.Point, col color.RGBA) {
	bounds := b.img.Rect
	for _, o := range tip {
		px, py := x+o.X, y+o.Y
		if px >= bounds.Min.X && px < bounds.Max.X && py >= bounds.Min.Y && py < bounds.Max.Y {
			b.img.SetRGBA(px, py, col)
		}
	}
}

// line stamps the brush tip along a Bresenham line.
func (b *Buffer) line(x1, y1, x2, y2 int, tip []image.Point, col color.RGBA) {
	dx := x2 - x1
	dy := y2 - y1
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}

	sx := 1
	if x1 > x2 {
		sx = -1
	}
	sy := 1
	if y1 > y2 {
		sy = -1
	}

	err := dx - dy
	for {
		b.stamp(x1, y1, tip, col)
		if x1 == x2 && y1 == y2 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

// DrawSegment draws a round-capped segment. Erasing overwrites with the
// background color exactly.
func (b *Buffer) DrawSegment(from, to geometry.Point2D, style Style) {
	if !b.ready() {
		return
	}
	p, q := from.Round(), to.Round()
	b.line(p.X, p.Y, q.X, q.Y, brush(style.width()), style.paint(b.background))
}

// DrawShapeOutline draws the outline of a line, circle or rectangle defined
// by an anchor and the current pointer position.
func (b *Buffer) DrawShapeOutline(kind ShapeKind, anchor, cursor geometry.Point2D, style Style) {
	if !b.ready() {
		return
	}
	col := style.paint(b.background)
	switch kind {
	case ShapeLine:
		b.DrawSegment(anchor, cursor, style)
	case ShapeCircle:
		b.ring(anchor, anchor.Distance(cursor), float64(style.width())/2, col)
	case ShapeRectangle:
		tip := brush(style.width())
		c := geometry.RectBetween(anchor.Round(), cursor.Round()).Corners()
		for i := range c {
			n := c[(i+1)%len(c)]
			b.line(c[i].X, c[i].Y, n.X, n.Y, tip, col)
		}
	}
}

// ring paints pixels whose distance from center differs from radius by at
// most half.
func (b *Buffer) ring(center geometry.Point2D, radius, half float64, col color.RGBA) {
	bounds := b.img.Rect
	outer := radius + half
	minX := max(int(math.Floor(center.X-outer))-1, bounds.Min.X)
	maxX := min(int(math.Ceil(center.X+outer))+1, bounds.Max.X-1)
	minY := max(int(math.Floor(center.Y-outer))-1, bounds.Min.Y)
	maxY := min(int(math.Ceil(center.Y+outer))+1, bounds.Max.Y-1)

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			d := math.Hypot(float64(x)-center.X, float64(y)-center.Y)
			if math.Abs(d-radius) <= half {
				b.img.SetRGBA(x, y, col)
			}
		}
	}
}

// TextScale returns the integer glyph magnification for a brush width. The
// target glyph height is five times the brush width.
func TextScale(width int) int {
	face := basicfont.Face7x13
	s := int(math.Round(float64(width*5) / float64(face.Height)))
	return max(s, 1)
}

// DrawText stamps text with its baseline at pos. Glyphs come from the 7x13
// bitmap face scaled with nearest-neighbour sampling so strokes keep hard
// edges.
func (b *Buffer) DrawText(text string, pos geometry.Point2D, style Style) {
	if !b.ready() || text == "" {
		return
	}
	face := basicfont.Face7x13
	ascent := face.Ascent
	advance := font.MeasureString(face, text).Ceil()
	if advance <= 0 {
		return
	}

	mask := image.NewAlpha(image.Rect(0, 0, advance, face.Height))
	d := font.Drawer{
		Dst:  mask,
		Src:  image.Opaque,
		Face: face,
		Dot:  fixed.P(0, ascent),
	}
	d.DrawString(text)

	scale := TextScale(style.width())
	scaled := image.NewAlpha(image.Rect(0, 0, advance*scale, face.Height*scale))
	xdraw.NearestNeighbor.Scale(scaled, scaled.Bounds(), mask, mask.Bounds(), xdraw.Src, nil)

	origin := pos.Round()
	dst := scaled.Bounds().Add(image.Pt(origin.X, origin.Y-ascent*scale))
	draw.DrawMask(b.img, dst, image.NewUniform(style.paint(b.background)), image.Point{}, scaled, image.Point{}, draw.Over)
}
