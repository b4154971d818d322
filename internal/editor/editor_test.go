package editor

import (
	"context"
	"image/color"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sketchcalc/internal/annotation"
	"sketchcalc/internal/recognize"
	"sketchcalc/internal/surface"
	"sketchcalc/pkg/colorutil"
	"sketchcalc/pkg/geometry"
)

var red = color.RGBA{R: 0xee, G: 0x33, B: 0x33, A: 0xff}

func pt(x, y float64) geometry.Point2D { return geometry.NewPoint2D(x, y) }

func newEditor(t *testing.T, opts Options) (*Editor, *manualScheduler) {
	t.Helper()
	sched := &manualScheduler{}
	if opts.Width == 0 && opts.Height == 0 {
		opts.Width, opts.Height = 120, 100
	}
	opts.Scheduler = sched
	if opts.IDs == nil {
		opts.IDs = annotation.Sequence("a")
	}
	e, err := New(opts)
	require.NoError(t, err)
	return e, sched
}

func stroke(e *Editor, pts ...geometry.Point2D) {
	e.PointerDown(pts[0])
	for _, p := range pts[1:] {
		e.PointerMove(p)
	}
	e.PointerUp(pts[len(pts)-1])
}

func pixel(e *Editor, x, y int) color.RGBA {
	return e.Snapshot().RGBAAt(x, y)
}

func TestNewRecordsInitialState(t *testing.T) {
	e, _ := newEditor(t, Options{})
	st := e.Status()
	assert.Equal(t, 1, st.HistoryLen)
	assert.Equal(t, 0, st.HistoryCursor)
	assert.False(t, st.CanUndo)
	assert.Equal(t, StateIdle, st.State)
	assert.Equal(t, DefaultTool(), st.Tool)
}

func TestNewRejectsInvalidSize(t *testing.T) {
	_, err := New(Options{Width: -1, Height: 10})
	assert.Error(t, err)
}

func TestFreehandStrokeAndUndo(t *testing.T) {
	e, _ := newEditor(t, Options{})
	blank := e.Snapshot()

	e.PointerDown(pt(10, 10))
	assert.Equal(t, StateFreehandStroking, e.State())
	e.PointerMove(pt(50, 10))
	e.PointerUp(pt(50, 10))

	assert.Equal(t, StateIdle, e.State())
	assert.Equal(t, colorutil.White, pixel(e, 30, 10))
	assert.True(t, e.CanUndo())

	require.True(t, e.Undo())
	assert.True(t, blank.Equal(e.Snapshot()))
	assert.True(t, e.CanRedo())

	require.True(t, e.Redo())
	assert.Equal(t, colorutil.White, pixel(e, 30, 10))
}

func TestEachStrokeIsOneUndo(t *testing.T) {
	e, _ := newEditor(t, Options{})
	blank := e.Snapshot()

	stroke(e, pt(10, 10), pt(40, 10))
	stroke(e, pt(10, 30), pt(40, 30))
	stroke(e, pt(10, 50), pt(40, 50))

	for i := 0; i < 3; i++ {
		require.True(t, e.Undo(), "undo %d", i)
	}
	assert.True(t, blank.Equal(e.Snapshot()))
	assert.False(t, e.Undo())
	assert.True(t, blank.Equal(e.Snapshot()))
}

func TestNewStrokeDiscardsRedo(t *testing.T) {
	e, _ := newEditor(t, Options{})
	stroke(e, pt(10, 10), pt(40, 10))
	stroke(e, pt(10, 30), pt(40, 30))
	require.True(t, e.Undo())

	stroke(e, pt(10, 60), pt(40, 60))
	assert.False(t, e.CanRedo())
	assert.Equal(t, colorutil.Black, pixel(e, 25, 30))
	assert.Equal(t, colorutil.White, pixel(e, 25, 60))
}

func TestShapePreviewDoesNotAccumulate(t *testing.T) {
	e, _ := newEditor(t, Options{})
	stroke(e, pt(10, 90), pt(100, 90))
	e.SetMode(ModeCircle)
	pre := e.Snapshot()

	e.PointerDown(pt(50, 50))
	assert.Equal(t, StateShapeTracking, e.State())
	e.PointerMove(pt(60, 50))
	assert.Equal(t, colorutil.White, pixel(e, 60, 50))
	e.PointerMove(pt(75, 50))
	e.PointerMove(pt(70, 50))

	want := surface.FromSnapshot(pre, colorutil.Black)
	want.DrawShapeOutline(surface.ShapeCircle, pt(50, 50), pt(70, 50), e.Style())
	assert.True(t, e.Snapshot().Equal(want.ExportSnapshot()), "pre-stroke pixels plus exactly one outline")

	e.PointerUp(pt(70, 50))
	assert.True(t, e.Snapshot().Equal(want.ExportSnapshot()))
	assert.Equal(t, colorutil.Black, pixel(e, 60, 50), "earlier preview is gone")
	assert.Equal(t, 3, e.Status().HistoryLen)

	require.True(t, e.Undo())
	assert.True(t, e.Snapshot().Equal(pre))
}

func TestShapeFinalOutlineUsesReleasePoint(t *testing.T) {
	e, _ := newEditor(t, Options{})
	e.SetWidth(1)
	e.SetMode(ModeRectangle)

	e.PointerDown(pt(80, 80))
	e.PointerMove(pt(60, 60))
	e.PointerUp(pt(20, 40))

	assert.Equal(t, colorutil.White, pixel(e, 20, 40))
	assert.Equal(t, colorutil.White, pixel(e, 80, 60))
	assert.Equal(t, colorutil.Black, pixel(e, 60, 60), "preview corner is gone")
	assert.Equal(t, colorutil.Black, pixel(e, 50, 60))
}

func TestLineShape(t *testing.T) {
	e, _ := newEditor(t, Options{})
	e.SetMode(ModeLine)
	stroke(e, pt(10, 10), pt(30, 30), pt(90, 10))
	assert.Equal(t, colorutil.White, pixel(e, 50, 10))
	assert.Equal(t, colorutil.Black, pixel(e, 20, 20))
}

func TestPointerDownDuringStrokeIgnored(t *testing.T) {
	e, _ := newEditor(t, Options{})
	e.PointerDown(pt(10, 10))
	e.PointerDown(pt(80, 80))
	e.PointerMove(pt(20, 10))
	e.PointerUp(pt(20, 10))

	assert.Equal(t, colorutil.Black, pixel(e, 80, 80))
	assert.Equal(t, 2, e.Status().HistoryLen)
}

func TestPointerOutEndsStroke(t *testing.T) {
	e, _ := newEditor(t, Options{})
	e.PointerDown(pt(10, 10))
	e.PointerMove(pt(30, 10))
	e.PointerOut(pt(119, 10))
	assert.Equal(t, StateIdle, e.State())
	assert.Equal(t, colorutil.White, pixel(e, 100, 10))
	assert.True(t, e.CanUndo())
}

func TestMoveWithoutStrokeIsNoop(t *testing.T) {
	e, _ := newEditor(t, Options{})
	blank := e.Snapshot()
	e.PointerMove(pt(10, 10))
	e.PointerUp(pt(10, 10))
	assert.True(t, blank.Equal(e.Snapshot()))
	assert.Equal(t, 1, e.Status().HistoryLen)
}

func TestTextInput(t *testing.T) {
	e, _ := newEditor(t, Options{})
	blank := e.Snapshot()
	e.SetMode(ModeText)

	assert.ErrorIs(t, e.SubmitText("1"), ErrNotAwaitingText)

	e.PointerDown(pt(20, 40))
	assert.Equal(t, StateAwaitingTextInput, e.State())
	assert.True(t, blank.Equal(e.Snapshot()))
	assert.Equal(t, 1, e.Status().HistoryLen)

	e.PointerDown(pt(30, 50))
	at, ok := e.PendingText()
	require.True(t, ok)
	assert.Equal(t, pt(30, 50), at)

	assert.ErrorIs(t, e.SubmitText("  "), ErrEmptyText)
	assert.Equal(t, StateAwaitingTextInput, e.State())

	require.NoError(t, e.SubmitText("12"))
	assert.Equal(t, StateIdle, e.State())
	assert.False(t, blank.Equal(e.Snapshot()))

	require.True(t, e.Undo())
	assert.True(t, blank.Equal(e.Snapshot()))
}

func TestCancelText(t *testing.T) {
	e, _ := newEditor(t, Options{})
	e.SetMode(ModeText)
	e.PointerDown(pt(20, 40))
	e.CancelText()
	assert.Equal(t, StateIdle, e.State())
	_, ok := e.PendingText()
	assert.False(t, ok)
	assert.ErrorIs(t, e.SubmitText("x"), ErrNotAwaitingText)
}

func TestModeSwitchCancelsText(t *testing.T) {
	e, _ := newEditor(t, Options{})
	e.SetMode(ModeText)
	e.PointerDown(pt(20, 40))
	e.SetMode(ModeLine)
	assert.Equal(t, StateIdle, e.State())
}

func TestToolChangeCompletesOpenStroke(t *testing.T) {
	e, _ := newEditor(t, Options{})
	e.PointerDown(pt(10, 10))
	e.PointerMove(pt(40, 10))
	e.SetColor(red)

	assert.Equal(t, StateIdle, e.State())
	assert.Equal(t, 2, e.Status().HistoryLen)
	assert.Equal(t, colorutil.White, pixel(e, 40, 10))

	stroke(e, pt(10, 30), pt(40, 30))
	assert.Equal(t, red, pixel(e, 25, 30))
}

func TestToolChangeCompletesShapeAtLastPoint(t *testing.T) {
	e, _ := newEditor(t, Options{})
	e.SetMode(ModeLine)
	e.PointerDown(pt(10, 10))
	e.PointerMove(pt(50, 10))
	e.SetWidth(9)

	assert.Equal(t, StateIdle, e.State())
	assert.Equal(t, colorutil.White, pixel(e, 30, 10))
	assert.Equal(t, 9, e.Tool().Width)
}

func TestSetWidthClamps(t *testing.T) {
	e, _ := newEditor(t, Options{})
	e.SetWidth(0)
	assert.Equal(t, MinWidth, e.Tool().Width)
	e.SetWidth(80)
	assert.Equal(t, MaxWidth, e.Tool().Width)
}

func TestEraser(t *testing.T) {
	e, _ := newEditor(t, Options{})
	blank := e.Snapshot()
	e.SetWidth(5)
	stroke(e, pt(10, 10), pt(60, 40))

	e.SetMode(ModeCircle)
	e.ToggleEraser()
	tool := e.Tool()
	assert.True(t, tool.Eraser)
	assert.Equal(t, ModeFreehand, tool.Mode)

	stroke(e, pt(10, 10), pt(60, 40))
	assert.True(t, blank.Equal(e.Snapshot()))

	e.SetColor(red)
	assert.False(t, e.Tool().Eraser)

	e.SetEraser(true)
	assert.True(t, e.Tool().Eraser)
	e.ToggleEraser()
	assert.False(t, e.Tool().Eraser)
}

func TestEventsEmittedOutsideLock(t *testing.T) {
	e, _ := newEditor(t, Options{})
	var canvas, tool atomic.Int32
	e.On(EventCanvasChanged, func(any) {
		_ = e.Status()
		canvas.Add(1)
	})
	e.On(EventToolChanged, func(data any) {
		assert.Equal(t, ModeLine, data.(Tool).Mode)
		tool.Add(1)
	})

	stroke(e, pt(10, 10), pt(20, 10))
	e.SetMode(ModeLine)
	e.SetMode(ModeLine)

	assert.Positive(t, canvas.Load())
	assert.Equal(t, int32(1), tool.Load())
}

func TestAnnotationHistory(t *testing.T) {
	e, _ := newEditor(t, Options{})
	it := e.AddAnnotation("note", pt(10, 20))
	assert.Equal(t, "a1", it.ID)
	require.Len(t, e.Annotations(), 1)

	require.True(t, e.Undo())
	assert.Empty(t, e.Annotations())
	require.True(t, e.Redo())
	require.Len(t, e.Annotations(), 1)

	assert.False(t, e.MoveAnnotation("missing", pt(0, 0)))
	require.True(t, e.MoveAnnotation(it.ID, pt(30, 30)))
	assert.Equal(t, pt(30, 30), e.Annotations()[0].Position)

	assert.False(t, e.RemoveAnnotation("missing"))
	require.True(t, e.RemoveAnnotation(it.ID))
	assert.Empty(t, e.Annotations())

	require.True(t, e.Undo())
	assert.Equal(t, pt(30, 30), e.Annotations()[0].Position)
}

func TestAnnotationDragRecordsOnce(t *testing.T) {
	e, _ := newEditor(t, Options{})
	it := e.AddAnnotation("note", pt(100, 100))
	before := e.Status().HistoryLen

	require.True(t, e.BeginAnnotationDrag(it.ID, pt(0, 0)))
	pos, ok := e.DragAnnotation(pt(5, 5))
	require.True(t, ok)
	assert.Equal(t, pt(105, 105), pos)
	e.DragAnnotation(pt(10, 10))
	assert.Equal(t, before, e.Status().HistoryLen)

	id, moved := e.EndAnnotationDrag(pt(20, -10))
	assert.Equal(t, it.ID, id)
	assert.True(t, moved)
	assert.Equal(t, before+1, e.Status().HistoryLen)
	assert.Equal(t, pt(120, 90), e.Annotations()[0].Position)

	require.True(t, e.Undo())
	assert.Equal(t, pt(100, 100), e.Annotations()[0].Position)
}

func TestCancelAnnotationDrag(t *testing.T) {
	e, _ := newEditor(t, Options{})
	it := e.AddAnnotation("note", pt(100, 100))
	require.True(t, e.BeginAnnotationDrag(it.ID, pt(0, 0)))
	e.DragAnnotation(pt(30, 30))
	e.CancelAnnotationDrag()
	assert.Equal(t, pt(100, 100), e.Annotations()[0].Position)
	_, moved := e.EndAnnotationDrag(pt(1, 1))
	assert.False(t, moved)
}

func TestResizeKeepsContentWithoutHistory(t *testing.T) {
	e, _ := newEditor(t, Options{})
	stroke(e, pt(10, 10), pt(20, 10))
	before := e.Status().HistoryLen

	require.NoError(t, e.Resize(200, 150))
	w, h := e.Size()
	assert.Equal(t, 200, w)
	assert.Equal(t, 150, h)
	assert.Equal(t, colorutil.White, pixel(e, 15, 10))
	assert.Equal(t, before, e.Status().HistoryLen)

	assert.Error(t, e.Resize(0, 10))
}

func TestUndoAcrossResizePlacesAtOrigin(t *testing.T) {
	e, _ := newEditor(t, Options{Width: 50, Height: 50})
	stroke(e, pt(10, 10), pt(20, 10))
	require.NoError(t, e.Resize(100, 100))

	require.True(t, e.Undo())
	w, h := e.Size()
	assert.Equal(t, 100, w)
	assert.Equal(t, 100, h)
	assert.Equal(t, colorutil.Black, pixel(e, 15, 10))
}

func TestUnsizedEditor(t *testing.T) {
	e, err := New(Options{Scheduler: &manualScheduler{}})
	require.NoError(t, err)

	stroke(e, pt(1, 1), pt(5, 5))
	assert.Nil(t, e.Image())
	assert.Equal(t, 0, e.Status().HistoryLen)
	assert.ErrorIs(t, <-e.Calculate(context.Background()), ErrNoRecognizer)

	require.NoError(t, e.Resize(40, 30))
	assert.Equal(t, 1, e.Status().HistoryLen)
	assert.NotNil(t, e.Image())
}

func TestHistoryLimit(t *testing.T) {
	e, _ := newEditor(t, Options{HistoryLimit: 3})
	for i := 0; i < 5; i++ {
		y := float64(10 + 10*i)
		stroke(e, pt(10, y), pt(40, y))
	}
	st := e.Status()
	assert.Equal(t, 3, st.HistoryLen)
	require.True(t, e.Undo())
	require.True(t, e.Undo())
	assert.False(t, e.Undo())
}

func TestAnnotationDuringFreehandStrokeIsNotRecordedMidStroke(t *testing.T) {
	e, _ := newEditor(t, Options{})
	e.PointerDown(pt(10, 10))
	e.PointerMove(pt(50, 10))

	e.AddAnnotation("note", pt(5, 5))
	assert.Equal(t, 1, e.Status().HistoryLen, "nothing recorded while the stroke is open")

	e.PointerMove(pt(100, 10))
	e.PointerUp(pt(100, 10))
	st := e.Status()
	assert.Equal(t, 2, st.HistoryLen)
	require.Len(t, st.Annotations, 1)

	require.True(t, e.Undo())
	assert.Equal(t, colorutil.Black, pixel(e, 30, 10), "no half-drawn stroke in history")
	assert.Equal(t, colorutil.Black, pixel(e, 80, 10))
	assert.Empty(t, e.Annotations())

	require.True(t, e.Redo())
	assert.Equal(t, colorutil.White, pixel(e, 30, 10))
	assert.Equal(t, colorutil.White, pixel(e, 80, 10))
	assert.Len(t, e.Annotations(), 1)
}

func TestRemoveAnnotationDuringStrokeWaitsForStrokeEnd(t *testing.T) {
	e, _ := newEditor(t, Options{})
	it := e.AddAnnotation("x", pt(5, 5))
	before := e.Status().HistoryLen

	e.SetMode(ModeRectangle)
	e.PointerDown(pt(20, 20))
	e.PointerMove(pt(40, 40))
	require.True(t, e.RemoveAnnotation(it.ID))
	assert.Equal(t, before, e.Status().HistoryLen)

	e.PointerUp(pt(40, 40))
	assert.Equal(t, before+1, e.Status().HistoryLen)

	require.True(t, e.Undo())
	assert.Len(t, e.Annotations(), 1)
	assert.Equal(t, colorutil.Black, pixel(e, 20, 30))
}

func TestResultLandingDuringFreehandStroke(t *testing.T) {
	rec := staticRecognizer(recognize.Result{Expr: "1+2", Result: "3"})
	e, sched := newEditor(t, Options{Recognizer: rec})
	require.NoError(t, <-e.Calculate(context.Background()))

	e.PointerDown(pt(10, 10))
	e.PointerMove(pt(50, 10))
	sched.Advance(time.Second)
	require.Len(t, e.Annotations(), 1)
	assert.Equal(t, 1, e.Status().HistoryLen)

	e.PointerMove(pt(100, 10))
	e.PointerUp(pt(100, 10))
	assert.Equal(t, 2, e.Status().HistoryLen)

	require.True(t, e.Undo())
	assert.Equal(t, colorutil.Black, pixel(e, 30, 10))
	assert.Empty(t, e.Annotations())
}
