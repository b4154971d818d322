// Package annotation manages the positioned, draggable result labels that
// float above the drawing surface.
package annotation

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"sketchcalc/pkg/geometry"
)

// Item is one positioned label.
type Item struct {
	ID       string           `json:"id" yaml:"id"`
	Content  string           `json:"content" yaml:"content"`
	Position geometry.Point2D `json:"position" yaml:"position"`
}

// Generator produces annotation identifiers.
type Generator func() string

// UUIDv7 returns a Generator of time-sortable RFC 9562 identifiers.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Sequence returns a Generator of prefixed counters ("a1", "a2", ...).
func Sequence(prefix string) Generator {
	var n atomic.Uint64
	return func() string {
		return prefix + strconv.FormatUint(n.Add(1), 10)
	}
}

// FormatResult builds the display markup for a recognized expression.
func FormatResult(expr, result string) string {
	return fmt.Sprintf(`\[\text{%s} = \text{%s}\]`, expr, result)
}

var markup = strings.NewReplacer(`\[`, "", `\]`, "", `\text{`, "", "}", "")

// PlainText strips display markup for renderers without math typesetting.
func PlainText(content string) string {
	return strings.TrimSpace(markup.Replace(content))
}

// Placement controls where and when recognition results appear.
type Placement struct {
	Anchor geometry.Point2D `json:"anchor"`
	Offset geometry.Point2D `json:"offset"`
	Delay  time.Duration    `json:"delay"`
}

// DefaultPlacement returns the placement used when nothing has been drawn.
func DefaultPlacement() Placement {
	return Placement{
		Anchor: geometry.NewPoint2D(10, 200),
		Offset: geometry.NewPoint2D(50, 50),
		Delay:  time.Second,
	}
}

// Position returns where the i-th result of a batch is placed.
func (p Placement) Position(anchor geometry.Point2D, i int) geometry.Point2D {
	return anchor.Add(p.Offset.Scale(float64(i)))
}

// DelayFor returns how long after the response the i-th result appears.
func (p Placement) DelayFor(i int) time.Duration {
	return time.Duration(i+1) * p.Delay
}
