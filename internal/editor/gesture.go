package editor

import (
	"image/color"
	"strings"

	"sketchcalc/internal/surface"
	"sketchcalc/pkg/colorutil"
	"sketchcalc/pkg/geometry"
)

// PointerDown starts a gesture with the current tool. In text mode it only
// captures the position and waits for SubmitText. It is ignored while a
// stroke is already open.
func (e *Editor) PointerDown(p geometry.Point2D) {
	e.update(func() []event {
		if !e.buf.Ready() {
			return nil
		}
		switch e.state {
		case StateFreehandStroking, StateShapeTracking:
			return nil
		case StateAwaitingTextInput:
			if e.tool.Mode != ModeText {
				return nil
			}
		}

		if e.tool.Mode == ModeText {
			e.textAt = p
			return e.setState(StateAwaitingTextInput, nil)
		}

		var events []event
		if e.checkpoint() {
			events = append(events, event{EventHistoryChanged, nil})
		}

		if kind, ok := e.tool.Mode.shape(); ok {
			e.gesture = gesture{kind: kind, anchor: p, last: p, base: e.buf.ExportSnapshot()}
			return e.setState(StateShapeTracking, events)
		}

		e.gesture = gesture{anchor: p, last: p}
		e.buf.DrawSegment(p, p, e.tool.style())
		events = append(events, event{EventCanvasChanged, nil})
		return e.setState(StateFreehandStroking, events)
	})
}

// PointerMove extends a freehand stroke or redraws the shape preview.
func (e *Editor) PointerMove(p geometry.Point2D) {
	e.update(func() []event {
		switch e.state {
		case StateFreehandStroking:
			e.buf.DrawSegment(e.gesture.last, p, e.tool.style())
		case StateShapeTracking:
			e.previewShape(p)
		default:
			return nil
		}
		e.gesture.last = p
		return []event{{EventCanvasChanged, nil}}
	})
}

// PointerUp completes the open stroke at p and records it.
func (e *Editor) PointerUp(p geometry.Point2D) {
	e.update(func() []event {
		return e.finish(p, nil)
	})
}

// PointerOut behaves like PointerUp: leaving the canvas ends the stroke.
func (e *Editor) PointerOut(p geometry.Point2D) {
	e.PointerUp(p)
}

func (e *Editor) previewShape(p geometry.Point2D) {
	if err := e.buf.RestoreSnapshot(e.gesture.base); err != nil {
		e.buf.Reconcile(e.gesture.base)
	}
	e.buf.DrawShapeOutline(e.gesture.kind, e.gesture.anchor, p, e.tool.style())
}

// finish closes a freehand or shape stroke at p. Other states are left alone.
func (e *Editor) finish(p geometry.Point2D, events []event) []event {
	switch e.state {
	case StateFreehandStroking:
		e.buf.DrawSegment(e.gesture.last, p, e.tool.style())
	case StateShapeTracking:
		e.previewShape(p)
	default:
		return events
	}
	e.gesture = gesture{}
	events = e.setState(StateIdle, events)
	events = append(events, event{EventCanvasChanged, nil})
	if e.checkpoint() {
		events = append(events, event{EventHistoryChanged, nil})
	}
	return events
}

// settle completes an open stroke at its last point and drops a pending text
// capture, leaving the machine idle.
func (e *Editor) settle(events []event) []event {
	switch e.state {
	case StateFreehandStroking, StateShapeTracking:
		return e.finish(e.gesture.last, events)
	case StateAwaitingTextInput:
		return e.setState(StateIdle, events)
	}
	return events
}

// SubmitText draws text at the captured position. Blank text is refused and
// the capture stays open.
func (e *Editor) SubmitText(text string) error {
	var err error
	e.update(func() []event {
		if e.state != StateAwaitingTextInput {
			err = ErrNotAwaitingText
			return nil
		}
		if strings.TrimSpace(text) == "" {
			err = ErrEmptyText
			return nil
		}

		e.checkpoint()
		e.buf.DrawText(text, e.textAt, e.tool.style())
		e.checkpoint()

		events := e.setState(StateIdle, nil)
		return append(events, event{EventCanvasChanged, nil}, event{EventHistoryChanged, nil})
	})
	return err
}

// CancelText discards a pending text capture.
func (e *Editor) CancelText() {
	e.update(func() []event {
		if e.state != StateAwaitingTextInput {
			return nil
		}
		return e.setState(StateIdle, nil)
	})
}

// setTool applies a tool change, completing any open stroke first.
func (e *Editor) setTool(change func(t *Tool)) {
	e.update(func() []event {
		next := e.tool
		change(&next)
		next.Width = ClampWidth(next.Width)
		if next == e.tool {
			return nil
		}
		events := e.settle(nil)
		e.tool = next
		return append(events, event{EventToolChanged, next})
	})
}

// SetMode selects the tool mode.
func (e *Editor) SetMode(m ToolMode) {
	e.setTool(func(t *Tool) { t.Mode = m })
}

// SetColor selects the stroke color and leaves eraser mode.
func (e *Editor) SetColor(c color.RGBA) {
	e.setTool(func(t *Tool) {
		t.Color = colorutil.Opaque(c)
		t.Eraser = false
	})
}

// SetWidth sets the brush width, clamped to MinWidth..MaxWidth.
func (e *Editor) SetWidth(w int) {
	e.setTool(func(t *Tool) { t.Width = w })
}

// SetEraser turns eraser mode on or off. Turning it on selects freehand.
func (e *Editor) SetEraser(on bool) {
	e.setTool(func(t *Tool) {
		t.Eraser = on
		if on {
			t.Mode = ModeFreehand
		}
	})
}

// ToggleEraser flips eraser mode and selects freehand.
func (e *Editor) ToggleEraser() {
	e.setTool(func(t *Tool) {
		t.Eraser = !t.Eraser
		t.Mode = ModeFreehand
	})
}

// Style returns the brush the current tool draws with.
func (e *Editor) Style() surface.Style {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tool.style()
}
