package annotation

import "sketchcalc/pkg/geometry"

type dragSession struct {
	id      string
	start   geometry.Point2D
	pointer geometry.Point2D
}

// BeginDrag starts moving an annotation with the pointer. It returns false for
// unknown ids or when another drag is already open.
func (l *Layer) BeginDrag(id string, pointer geometry.Point2D) bool {
	if l.drag != nil {
		return false
	}
	it, ok := l.Get(id)
	if !ok {
		return false
	}
	l.drag = &dragSession{id: id, start: it.Position, pointer: pointer}
	return true
}

// Dragging returns the id of the annotation being dragged.
func (l *Layer) Dragging() (string, bool) {
	if l.drag == nil {
		return "", false
	}
	return l.drag.id, true
}

// DragTo moves the dragged annotation by the pointer's travel since
// BeginDrag and returns its live position.
func (l *Layer) DragTo(pointer geometry.Point2D) (geometry.Point2D, bool) {
	if l.drag == nil {
		return geometry.Point2D{}, false
	}
	pos := l.drag.start.Add(pointer.Sub(l.drag.pointer))
	if !l.Move(l.drag.id, pos) {
		l.drag = nil
		return geometry.Point2D{}, false
	}
	return pos, true
}

// EndDrag commits the drag at the final pointer position. moved reports
// whether the annotation ended somewhere other than where it started.
func (l *Layer) EndDrag(pointer geometry.Point2D) (id string, moved bool) {
	if l.drag == nil {
		return "", false
	}
	s := l.drag
	pos, ok := l.DragTo(pointer)
	l.drag = nil
	if !ok {
		return "", false
	}
	return s.id, pos != s.start
}

// CancelDrag returns the dragged annotation to its starting position.
func (l *Layer) CancelDrag() {
	if l.drag == nil {
		return
	}
	l.Move(l.drag.id, l.drag.start)
	l.drag = nil
}
