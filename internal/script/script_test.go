package script

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sketchcalc/internal/annotation"
	"sketchcalc/internal/editor"
	"sketchcalc/internal/recognize"
	"sketchcalc/pkg/colorutil"
	"sketchcalc/pkg/geometry"
)

func newEditor(t *testing.T, rec recognize.Recognizer) *editor.Editor {
	t.Helper()
	e, err := editor.New(editor.Options{
		Width:      120,
		Height:     100,
		Recognizer: rec,
		IDs:        annotation.Sequence("a"),
	})
	require.NoError(t, err)
	return e
}

func TestParseRejectsAmbiguousSteps(t *testing.T) {
	_, err := Parse(strings.NewReader("- tool: line\n  width: 3\n"))
	assert.ErrorContains(t, err, "step 1")

	_, err = Parse(strings.NewReader("- {}\n"))
	assert.Error(t, err)

	_, err = Parse(strings.NewReader("- paint: [1, 2]\n"))
	assert.Error(t, err)

	s, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, s.Steps)
}

func TestRunDrawsAndUndoes(t *testing.T) {
	s, err := Parse(strings.NewReader(`
- color: "#ee3333"
- width: 1
- stroke: [[10, 10], [50, 10]]
- tool: rectangle
- down: [20, 30]
- move: [40, 40]
- up: [60, 70]
- undo: 1
- redo: 1
- annotate: {content: "note", at: [5, 6]}
`))
	require.NoError(t, err)

	e := newEditor(t, nil)
	require.NoError(t, Run(context.Background(), e, s))

	red, _ := colorutil.ParseHex("#ee3333")
	snap := e.Snapshot()
	assert.Equal(t, red, snap.RGBAAt(30, 10))
	assert.Equal(t, red, snap.RGBAAt(60, 50))
	assert.Equal(t, colorutil.Black, snap.RGBAAt(40, 40))

	items := e.Annotations()
	require.Len(t, items, 1)
	assert.Equal(t, geometry.NewPoint2D(5, 6), items[0].Position)
	assert.Equal(t, editor.ModeRectangle, e.Tool().Mode)
}

func TestRunText(t *testing.T) {
	s, err := Parse(strings.NewReader(`
- text: {at: [10, 40], value: "7"}
- text: {at: [10, 80], value: ""}
`))
	require.NoError(t, err)

	e := newEditor(t, nil)
	err = Run(context.Background(), e, s)
	assert.ErrorIs(t, err, editor.ErrEmptyText)
	assert.ErrorContains(t, err, "step 2")
	assert.Equal(t, editor.StateAwaitingTextInput, e.State())
}

func TestRunCalculateAndWait(t *testing.T) {
	rec := recognize.Func(func(ctx context.Context, req recognize.Request) ([]recognize.Result, error) {
		return []recognize.Result{{Expr: "x", Result: "2", Assign: true}}, nil
	})
	s, err := Parse(strings.NewReader(`
- stroke: [[10, 10], [30, 10]]
- calculate: true
- resize: [200, 150]
`))
	require.NoError(t, err)

	e := newEditor(t, rec)
	require.NoError(t, Run(context.Background(), e, s))
	assert.Equal(t, recognize.Vars{"x": "2"}, e.Vars())
	assert.Equal(t, 1, e.PendingResults())
	w, _ := e.Size()
	assert.Equal(t, 200, w)

	e.Reset()
	assert.Equal(t, 0, e.PendingResults())
}

func TestRunStopsOnCancel(t *testing.T) {
	s, err := Parse(strings.NewReader("- wait: 10s\n"))
	require.NoError(t, err)
	require.Equal(t, 10*time.Second, *s.Steps[0].Wait)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Run(ctx, newEditor(t, nil), s), context.Canceled)
}

func TestRunEraserAndReset(t *testing.T) {
	s, err := Parse(strings.NewReader(`
- width: 4
- stroke: [[10, 10], [50, 30]]
- eraser: true
- stroke: [[10, 10], [50, 30]]
- reset: true
`))
	require.NoError(t, err)

	e := newEditor(t, nil)
	blank := e.Snapshot()
	require.NoError(t, Run(context.Background(), e, s))
	assert.True(t, blank.Equal(e.Snapshot()))
	assert.Equal(t, 0, e.Status().HistoryLen)
	assert.True(t, e.Tool().Eraser)
}
