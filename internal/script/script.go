// Package script replays drawing sessions described in YAML.
//
// A script is a list of steps, each naming exactly one action:
//
//	- tool: circle
//	- color: "#ee3333"
//	- width: 4
//	- stroke: [[40, 40], [90, 40]]
//	- down: [10, 10]
//	- move: [30, 30]
//	- up: [30, 30]
//	- text: {at: [20, 120], value: "x = 4"}
//	- undo: 1
//	- calculate: true
//	- wait: 2s
package script

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"sketchcalc/internal/editor"
	"sketchcalc/pkg/colorutil"
	"sketchcalc/pkg/geometry"
)

// Point is an [x, y] pair.
type Point [2]float64

func (p Point) toPoint() geometry.Point2D {
	return geometry.NewPoint2D(p[0], p[1])
}

// Text places text at a position.
type Text struct {
	At    Point  `yaml:"at"`
	Value string `yaml:"value"`
}

// Annotate places a label.
type Annotate struct {
	At      Point  `yaml:"at"`
	Content string `yaml:"content"`
}

// Step is one action. Exactly one field must be set.
type Step struct {
	Tool       *string        `yaml:"tool,omitempty"`
	Color      *string        `yaml:"color,omitempty"`
	Width      *int           `yaml:"width,omitempty"`
	Eraser     *bool          `yaml:"eraser,omitempty"`
	Down       *Point         `yaml:"down,omitempty"`
	Move       *Point         `yaml:"move,omitempty"`
	Up         *Point         `yaml:"up,omitempty"`
	Out        *Point         `yaml:"out,omitempty"`
	Stroke     []Point        `yaml:"stroke,omitempty"`
	Text       *Text          `yaml:"text,omitempty"`
	CancelText *bool          `yaml:"cancel_text,omitempty"`
	Undo       *int           `yaml:"undo,omitempty"`
	Redo       *int           `yaml:"redo,omitempty"`
	Resize     *[2]int        `yaml:"resize,omitempty"`
	Reset      *bool          `yaml:"reset,omitempty"`
	Annotate   *Annotate      `yaml:"annotate,omitempty"`
	Calculate  *bool          `yaml:"calculate,omitempty"`
	Wait       *time.Duration `yaml:"wait,omitempty"`
}

func (s Step) actions() int {
	n := 0
	for _, set := range []bool{
		s.Tool != nil, s.Color != nil, s.Width != nil, s.Eraser != nil,
		s.Down != nil, s.Move != nil, s.Up != nil, s.Out != nil,
		s.Stroke != nil, s.Text != nil, s.CancelText != nil,
		s.Undo != nil, s.Redo != nil, s.Resize != nil, s.Reset != nil,
		s.Annotate != nil, s.Calculate != nil, s.Wait != nil,
	} {
		if set {
			n++
		}
	}
	return n
}

// Script is a parsed replay file.
type Script struct {
	Steps []Step
}

// Parse decodes a YAML script.
func Parse(r io.Reader) (*Script, error) {
	var steps []Step
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&steps); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode script: %w", err)
	}
	for i, s := range steps {
		if n := s.actions(); n != 1 {
			return nil, fmt.Errorf("step %d: expected one action, got %d", i+1, n)
		}
	}
	return &Script{Steps: steps}, nil
}

// Load reads a script file.
func Load(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Run applies every step to the editor in order. A text step selects the text
// tool. Calculate steps wait for the recognizer's response; use a wait step to
// let staggered results land.
func Run(ctx context.Context, e *editor.Editor, s *Script) error {
	for i, step := range s.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := apply(ctx, e, step); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return nil
}

func apply(ctx context.Context, e *editor.Editor, s Step) error {
	switch {
	case s.Tool != nil:
		m, err := editor.ParseToolMode(*s.Tool)
		if err != nil {
			return err
		}
		e.SetMode(m)
	case s.Color != nil:
		c, err := colorutil.Parse(*s.Color)
		if err != nil {
			return err
		}
		e.SetColor(c)
	case s.Width != nil:
		e.SetWidth(*s.Width)
	case s.Eraser != nil:
		e.SetEraser(*s.Eraser)
	case s.Down != nil:
		e.PointerDown(s.Down.toPoint())
	case s.Move != nil:
		e.PointerMove(s.Move.toPoint())
	case s.Up != nil:
		e.PointerUp(s.Up.toPoint())
	case s.Out != nil:
		e.PointerOut(s.Out.toPoint())
	case s.Stroke != nil:
		if len(s.Stroke) == 0 {
			return fmt.Errorf("empty stroke")
		}
		e.PointerDown(s.Stroke[0].toPoint())
		for _, p := range s.Stroke[1:] {
			e.PointerMove(p.toPoint())
		}
		e.PointerUp(s.Stroke[len(s.Stroke)-1].toPoint())
	case s.Text != nil:
		e.SetMode(editor.ModeText)
		e.PointerDown(s.Text.At.toPoint())
		return e.SubmitText(s.Text.Value)
	case s.CancelText != nil:
		e.CancelText()
	case s.Undo != nil:
		for i, n := 0, *s.Undo; i < n; i++ {
			e.Undo()
		}
	case s.Redo != nil:
		for i, n := 0, *s.Redo; i < n; i++ {
			e.Redo()
		}
	case s.Resize != nil:
		return e.Resize(s.Resize[0], s.Resize[1])
	case s.Reset != nil:
		if *s.Reset {
			e.Reset()
		}
	case s.Annotate != nil:
		e.AddAnnotation(s.Annotate.Content, s.Annotate.At.toPoint())
	case s.Calculate != nil:
		if *s.Calculate {
			return <-e.Calculate(ctx)
		}
	case s.Wait != nil:
		select {
		case <-time.After(*s.Wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
