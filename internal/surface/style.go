package surface

import (
	"fmt"
	"image/color"
)

// Style is the brush applied by drawing operations.
type Style struct {
	Color color.RGBA
	Width int
	// Erase paints the background color instead of Color.
	Erase bool
}

func (s Style) width() int {
	if s.Width < 1 {
		return 1
	}
	return s.Width
}

func (s Style) paint(background color.RGBA) color.RGBA {
	if s.Erase {
		return background
	}
	c := s.Color
	c.A = 0xff
	return c
}

// ShapeKind selects the outline drawn by DrawShapeOutline.
type ShapeKind int

const (
	ShapeLine ShapeKind = iota
	ShapeCircle
	ShapeRectangle
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeLine:
		return "line"
	case ShapeCircle:
		return "circle"
	case ShapeRectangle:
		return "rectangle"
	default:
		return fmt.Sprintf("ShapeKind(%d)", int(k))
	}
}
