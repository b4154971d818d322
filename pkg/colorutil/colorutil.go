// Package colorutil provides shared color utilities for the drawing surface.
package colorutil

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Common colors used throughout the application.
var (
	Black = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// Swatch is a named palette entry.
type Swatch struct {
	Name  string
	Color color.RGBA
}

// swatches mirrors the toolbar palette of the web calculator.
var swatches = []Swatch{
	{"White", White},
	{"Red", color.RGBA{R: 0xee, G: 0x33, B: 0x33, A: 0xff}},
	{"Pink", color.RGBA{R: 0xe6, G: 0x49, B: 0x80, A: 0xff}},
	{"Grape", color.RGBA{R: 0xbe, G: 0x4b, B: 0xdb, A: 0xff}},
	{"Brown", color.RGBA{R: 0x89, G: 0x32, B: 0x00, A: 0xff}},
	{"Sky", color.RGBA{R: 0x22, G: 0x8b, B: 0xe6, A: 0xff}},
	{"Blue", color.RGBA{R: 0x33, G: 0x33, B: 0xee, A: 0xff}},
	{"Lime", color.RGBA{R: 0x40, G: 0xc0, B: 0x57, A: 0xff}},
	{"Green", color.RGBA{R: 0x00, G: 0xaa, B: 0x00, A: 0xff}},
	{"Yellow", color.RGBA{R: 0xfa, G: 0xb0, B: 0x05, A: 0xff}},
	{"Orange", color.RGBA{R: 0xfd, G: 0x7e, B: 0x14, A: 0xff}},
}

// Palette returns a copy of the default swatches.
func Palette() []Swatch {
	out := make([]Swatch, len(swatches))
	copy(out, swatches)
	return out
}

// ParseHex parses "#rgb", "#rrggbb" or "#rrggbbaa" (leading '#' optional).
func ParseHex(s string) (color.RGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) == 6 {
		h += "ff"
	}
	if len(h) != 8 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// Hex formats a color as "#rrggbb", appending alpha only when not opaque.
func Hex(c color.RGBA) string {
	if c.A == 0xff {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

// Opaque returns c with full alpha.
func Opaque(c color.RGBA) color.RGBA {
	c.A = 0xff
	return c
}

// Parse accepts a palette swatch name (case-insensitive) or a hex color.
func Parse(s string) (color.RGBA, error) {
	for _, sw := range swatches {
		if strings.EqualFold(sw.Name, strings.TrimSpace(s)) {
			return sw.Color, nil
		}
	}
	return ParseHex(s)
}
