// Package history keeps the linear undo/redo log of canvas states.
package history

import (
	"sketchcalc/internal/annotation"
	"sketchcalc/internal/surface"
)

// Entry is one recorded state: the pixels and the annotations alongside them.
type Entry struct {
	Snapshot    *surface.Snapshot
	Annotations []annotation.Item
}

func (e Entry) clone() Entry {
	return Entry{Snapshot: e.Snapshot, Annotations: annotation.Clone(e.Annotations)}
}

// Log is an ordered list of entries with a cursor at the live state. The
// cursor is -1 while the log is empty. Log is not safe for concurrent use.
type Log struct {
	entries    []Entry
	cursor     int
	maxEntries int
}

// New creates an empty log. maxEntries <= 0 means unbounded; otherwise the
// oldest entries are dropped once the limit is exceeded.
func New(maxEntries int) *Log {
	return &Log{cursor: -1, maxEntries: maxEntries}
}

// Record discards every entry after the cursor, appends e and moves the
// cursor onto it.
func (l *Log) Record(e Entry) {
	l.entries = append(l.entries[:l.cursor+1], e.clone())
	l.cursor = len(l.entries) - 1

	if l.maxEntries > 0 && len(l.entries) > l.maxEntries {
		drop := len(l.entries) - l.maxEntries
		clear(l.entries[:drop])
		l.entries = l.entries[drop:]
		l.cursor -= drop
	}
}

// Undo steps the cursor back and returns the entry now under it. At the
// oldest entry it does nothing and returns false.
func (l *Log) Undo() (Entry, bool) {
	if !l.CanUndo() {
		return Entry{}, false
	}
	l.cursor--
	return l.entries[l.cursor].clone(), true
}

// Redo steps the cursor forward and returns the entry now under it. At the
// newest entry it does nothing and returns false.
func (l *Log) Redo() (Entry, bool) {
	if !l.CanRedo() {
		return Entry{}, false
	}
	l.cursor++
	return l.entries[l.cursor].clone(), true
}

// CanUndo reports whether an older entry exists.
func (l *Log) CanUndo() bool {
	return l.cursor > 0
}

// CanRedo reports whether a newer entry exists.
func (l *Log) CanRedo() bool {
	return l.cursor < len(l.entries)-1
}

// Current returns the entry under the cursor.
func (l *Log) Current() (Entry, bool) {
	if l.cursor < 0 {
		return Entry{}, false
	}
	return l.entries[l.cursor].clone(), true
}

// Cursor returns the index of the live entry, -1 when empty.
func (l *Log) Cursor() int {
	return l.cursor
}

// Len returns the number of entries.
func (l *Log) Len() int {
	return len(l.entries)
}

// Clear empties the log.
func (l *Log) Clear() {
	l.entries = nil
	l.cursor = -1
}
