package annotation

import (
	"slices"

	"sketchcalc/pkg/geometry"
)

// Layer is an insertion-ordered set of annotations keyed by id. It is not
// safe for concurrent use; the editor serialises access.
type Layer struct {
	items []Item
	newID Generator
	drag  *dragSession
}

// NewLayer creates an empty layer. A nil generator selects UUIDv7.
func NewLayer(gen Generator) *Layer {
	if gen == nil {
		gen = UUIDv7()
	}
	return &Layer{newID: gen}
}

func (l *Layer) indexOf(id string) int {
	return slices.IndexFunc(l.items, func(it Item) bool { return it.ID == id })
}

// Add appends a new annotation with a fresh id and returns it.
func (l *Layer) Add(content string, pos geometry.Point2D) Item {
	id := l.newID()
	for l.indexOf(id) >= 0 {
		id = l.newID()
	}
	it := Item{ID: id, Content: content, Position: pos}
	l.items = append(l.items, it)
	return it
}

// Move sets the position of an annotation. Unknown ids are ignored.
func (l *Layer) Move(id string, pos geometry.Point2D) bool {
	i := l.indexOf(id)
	if i < 0 {
		return false
	}
	l.items[i].Position = pos
	return true
}

// Remove deletes an annotation. Unknown ids are ignored.
func (l *Layer) Remove(id string) bool {
	i := l.indexOf(id)
	if i < 0 {
		return false
	}
	l.items = slices.Delete(l.items, i, i+1)
	if l.drag != nil && l.drag.id == id {
		l.drag = nil
	}
	return true
}

// Get returns the annotation with the given id.
func (l *Layer) Get(id string) (Item, bool) {
	i := l.indexOf(id)
	if i < 0 {
		return Item{}, false
	}
	return l.items[i], true
}

// Len returns the number of annotations.
func (l *Layer) Len() int {
	return len(l.items)
}

// SnapshotAll returns a copy of every annotation in insertion order.
func (l *Layer) SnapshotAll() []Item {
	return Clone(l.items)
}

// ReplaceAll swaps the whole set, as done by undo and redo. Any drag in
// progress is abandoned.
func (l *Layer) ReplaceAll(items []Item) {
	l.items = Clone(items)
	l.drag = nil
}

// Clear removes every annotation.
func (l *Layer) Clear() {
	l.items = nil
	l.drag = nil
}

// Clone copies a slice of annotations. A nil or empty input yields an empty,
// non-nil slice.
func Clone(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	return out
}

// Equal reports whether two annotation lists hold the same items in order.
func Equal(a, b []Item) bool {
	return slices.Equal(a, b)
}
