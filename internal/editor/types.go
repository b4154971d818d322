package editor

import (
	"encoding/json"
	"fmt"
	"image/color"
	"strings"

	"sketchcalc/internal/surface"
	"sketchcalc/pkg/colorutil"
)

// State is the drawing state machine's current phase.
type State int

const (
	StateIdle State = iota
	StateFreehandStroking
	StateShapeTracking
	StateAwaitingTextInput
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFreehandStroking:
		return "freehand"
	case StateShapeTracking:
		return "shape"
	case StateAwaitingTextInput:
		return "awaiting_text"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ToolMode selects what a pointer gesture does.
type ToolMode int

const (
	ModeFreehand ToolMode = iota
	ModeLine
	ModeCircle
	ModeRectangle
	ModeText
)

var modeNames = []string{"freehand", "line", "circle", "rectangle", "text"}

// Modes returns every tool mode in toolbar order.
func Modes() []ToolMode {
	return []ToolMode{ModeFreehand, ModeLine, ModeCircle, ModeRectangle, ModeText}
}

func (m ToolMode) String() string {
	if m >= 0 && int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("ToolMode(%d)", int(m))
}

// MarshalText implements encoding.TextMarshaler.
func (m ToolMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *ToolMode) UnmarshalText(b []byte) error {
	v, err := ParseToolMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// ParseToolMode parses a mode name. "free" is accepted for freehand.
func ParseToolMode(s string) (ToolMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "free" {
		return ModeFreehand, nil
	}
	for i, name := range modeNames {
		if s == name {
			return ToolMode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown tool mode %q", s)
}

func (m ToolMode) shape() (surface.ShapeKind, bool) {
	switch m {
	case ModeLine:
		return surface.ShapeLine, true
	case ModeCircle:
		return surface.ShapeCircle, true
	case ModeRectangle:
		return surface.ShapeRectangle, true
	}
	return 0, false
}

// Brush width bounds.
const (
	MinWidth = 1
	MaxWidth = 50
)

// ClampWidth limits a brush width to MinWidth..MaxWidth.
func ClampWidth(w int) int {
	return max(MinWidth, min(MaxWidth, w))
}

// Tool is the current tool selection.
type Tool struct {
	Mode   ToolMode
	Color  color.RGBA
	Width  int
	Eraser bool
}

// MarshalJSON encodes the color as a hex string.
func (t Tool) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Mode   ToolMode `json:"mode"`
		Color  string   `json:"color"`
		Width  int      `json:"width"`
		Eraser bool     `json:"eraser"`
	}{t.Mode, colorutil.Hex(t.Color), t.Width, t.Eraser})
}

func (t Tool) style() surface.Style {
	return surface.Style{Color: t.Color, Width: t.Width, Erase: t.Eraser}
}
