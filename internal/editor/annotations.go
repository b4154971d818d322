package editor

import (
	"sketchcalc/internal/annotation"
	"sketchcalc/pkg/geometry"
)

func (e *Editor) annotationsChanged(events []event) []event {
	events = append(events, event{EventAnnotationsChanged, nil})
	if e.checkpoint() {
		events = append(events, event{EventHistoryChanged, nil})
	}
	return events
}

// AddAnnotation places a label and records history.
func (e *Editor) AddAnnotation(content string, pos geometry.Point2D) annotation.Item {
	var it annotation.Item
	e.update(func() []event {
		it = e.layer.Add(content, pos)
		return e.annotationsChanged(nil)
	})
	return it
}

// MoveAnnotation sets a label's position and records history. Unknown ids
// are ignored.
func (e *Editor) MoveAnnotation(id string, pos geometry.Point2D) bool {
	var ok bool
	e.update(func() []event {
		if ok = e.layer.Move(id, pos); !ok {
			return nil
		}
		return e.annotationsChanged(nil)
	})
	return ok
}

// RemoveAnnotation deletes a label and records history. Unknown ids are
// ignored.
func (e *Editor) RemoveAnnotation(id string) bool {
	var ok bool
	e.update(func() []event {
		if ok = e.layer.Remove(id); !ok {
			return nil
		}
		return e.annotationsChanged(nil)
	})
	return ok
}

// BeginAnnotationDrag grabs a label at the given pointer position.
func (e *Editor) BeginAnnotationDrag(id string, pointer geometry.Point2D) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.layer.BeginDrag(id, pointer)
}

// DraggingAnnotation returns the id of the grabbed label, if any.
func (e *Editor) DraggingAnnotation() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.layer.Dragging()
}

// DragAnnotation moves the grabbed label with the pointer. Nothing is recorded
// until the drag ends.
func (e *Editor) DragAnnotation(pointer geometry.Point2D) (geometry.Point2D, bool) {
	var (
		pos geometry.Point2D
		ok  bool
	)
	e.update(func() []event {
		if pos, ok = e.layer.DragTo(pointer); !ok {
			return nil
		}
		return []event{{EventAnnotationsChanged, nil}}
	})
	return pos, ok
}

// EndAnnotationDrag drops the grabbed label and records one history entry if
// it moved.
func (e *Editor) EndAnnotationDrag(pointer geometry.Point2D) (string, bool) {
	var (
		id    string
		moved bool
	)
	e.update(func() []event {
		id, moved = e.layer.EndDrag(pointer)
		if id == "" {
			return nil
		}
		return e.annotationsChanged(nil)
	})
	return id, moved
}

// CancelAnnotationDrag returns the grabbed label to where the drag started.
func (e *Editor) CancelAnnotationDrag() {
	e.update(func() []event {
		if _, ok := e.layer.Dragging(); !ok {
			return nil
		}
		e.layer.CancelDrag()
		return []event{{EventAnnotationsChanged, nil}}
	})
}
