package history

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sketchcalc/internal/annotation"
	"sketchcalc/internal/surface"
	"sketchcalc/pkg/colorutil"
	"sketchcalc/pkg/geometry"
)

// states returns n distinct snapshots of a small buffer.
func states(t *testing.T, n int) []*surface.Snapshot {
	t.Helper()
	b := surface.New(colorutil.Black)
	require.NoError(t, b.Initialize(16, 16))
	out := []*surface.Snapshot{b.ExportSnapshot()}
	for i := 1; i < n; i++ {
		p := geometry.NewPoint2D(float64(i), float64(i))
		b.DrawSegment(p, p, surface.Style{Color: color.RGBA{R: 0xff, A: 0xff}, Width: 1})
		out = append(out, b.ExportSnapshot())
	}
	return out
}

func TestEmptyLog(t *testing.T) {
	l := New(0)
	assert.Equal(t, -1, l.Cursor())
	assert.False(t, l.CanUndo())
	assert.False(t, l.CanRedo())

	_, ok := l.Undo()
	assert.False(t, ok)
	_, ok = l.Redo()
	assert.False(t, ok)
	_, ok = l.Current()
	assert.False(t, ok)
}

func TestUndoRedoWalk(t *testing.T) {
	s := states(t, 3)
	l := New(0)
	for _, snap := range s {
		l.Record(Entry{Snapshot: snap})
	}
	assert.Equal(t, 2, l.Cursor())
	assert.False(t, l.CanRedo())

	e, ok := l.Undo()
	require.True(t, ok)
	assert.True(t, e.Snapshot.Equal(s[1]))

	e, ok = l.Undo()
	require.True(t, ok)
	assert.True(t, e.Snapshot.Equal(s[0]))

	_, ok = l.Undo()
	assert.False(t, ok, "undo stops at the oldest entry")
	assert.Equal(t, 0, l.Cursor())

	e, ok = l.Redo()
	require.True(t, ok)
	assert.True(t, e.Snapshot.Equal(s[1]))
	assert.True(t, l.CanRedo())
}

func TestRecordPrunesRedoBranch(t *testing.T) {
	s := states(t, 4)
	l := New(0)
	l.Record(Entry{Snapshot: s[0]})
	l.Record(Entry{Snapshot: s[1]})
	l.Record(Entry{Snapshot: s[2]})
	l.Undo()
	l.Undo()

	l.Record(Entry{Snapshot: s[3]})
	assert.Equal(t, 2, l.Len())
	assert.Equal(t, 1, l.Cursor())
	assert.False(t, l.CanRedo())

	e, ok := l.Current()
	require.True(t, ok)
	assert.True(t, e.Snapshot.Equal(s[3]))
}

func TestAnnotationsAreCopied(t *testing.T) {
	items := []annotation.Item{{ID: "a1", Content: "x", Position: geometry.NewPoint2D(1, 1)}}
	l := New(0)
	l.Record(Entry{Annotations: items})
	l.Record(Entry{})

	items[0].Content = "mutated"
	e, ok := l.Undo()
	require.True(t, ok)
	require.Len(t, e.Annotations, 1)
	assert.Equal(t, "x", e.Annotations[0].Content)

	e.Annotations[0].Position = geometry.NewPoint2D(50, 50)
	e, _ = l.Current()
	assert.Equal(t, geometry.NewPoint2D(1, 1), e.Annotations[0].Position)
}

func TestMaxEntriesDropsOldest(t *testing.T) {
	s := states(t, 5)
	l := New(3)
	for _, snap := range s {
		l.Record(Entry{Snapshot: snap})
	}
	assert.Equal(t, 3, l.Len())
	assert.Equal(t, 2, l.Cursor())

	l.Undo()
	e, ok := l.Undo()
	require.True(t, ok)
	assert.True(t, e.Snapshot.Equal(s[2]))
	assert.False(t, l.CanUndo())
}

func TestClear(t *testing.T) {
	l := New(0)
	l.Record(Entry{})
	l.Record(Entry{})
	l.Clear()
	assert.Equal(t, -1, l.Cursor())
	assert.Zero(t, l.Len())
	assert.False(t, l.CanUndo())
}
