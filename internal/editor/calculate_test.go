package editor

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sketchcalc/internal/annotation"
	"sketchcalc/internal/recognize"
)

func staticRecognizer(results ...recognize.Result) recognize.Recognizer {
	return recognize.Func(func(ctx context.Context, req recognize.Request) ([]recognize.Result, error) {
		return results, nil
	})
}

func TestCalculatePlacesResultsOnSchedule(t *testing.T) {
	var got recognize.Request
	rec := recognize.Func(func(ctx context.Context, req recognize.Request) ([]recognize.Result, error) {
		got = req
		return []recognize.Result{
			{Expr: "x", Result: "5", Assign: true},
			{Expr: "x+1", Result: "6"},
		}, nil
	})
	e, sched := newEditor(t, Options{Recognizer: rec})
	e.SetWidth(1)
	stroke(e, pt(20, 30), pt(60, 30))
	before := e.Status().HistoryLen

	require.NoError(t, <-e.Calculate(context.Background()))
	assert.True(t, strings.HasPrefix(got.Image, "data:image/png;base64,"))
	assert.Empty(t, got.Vars)
	assert.Equal(t, recognize.Vars{"x": "5"}, e.Vars())
	assert.Equal(t, 2, e.PendingResults())
	assert.Empty(t, e.Annotations())

	sched.Advance(999 * time.Millisecond)
	assert.Empty(t, e.Annotations())

	sched.Advance(time.Millisecond)
	items := e.Annotations()
	require.Len(t, items, 1)
	assert.Equal(t, annotation.FormatResult("x", "5"), items[0].Content)
	assert.Equal(t, pt(40, 30), items[0].Position)

	sched.Advance(time.Second)
	items = e.Annotations()
	require.Len(t, items, 2)
	assert.Equal(t, `\[\text{x+1} = \text{6}\]`, items[1].Content)
	assert.Equal(t, pt(90, 80), items[1].Position)

	assert.Equal(t, 0, e.PendingResults())
	assert.Equal(t, before+2, e.Status().HistoryLen)

	require.True(t, e.Undo())
	assert.Len(t, e.Annotations(), 1)
}

func TestCalculateSendsDictionary(t *testing.T) {
	var calls atomic.Int32
	var seen recognize.Vars
	rec := recognize.Func(func(ctx context.Context, req recognize.Request) ([]recognize.Result, error) {
		if calls.Add(1) == 2 {
			seen = req.Vars
		}
		return []recognize.Result{{Expr: "y", Result: "2", Assign: true}}, nil
	})
	e, _ := newEditor(t, Options{Recognizer: rec})

	require.NoError(t, <-e.Calculate(context.Background()))
	require.NoError(t, <-e.Calculate(context.Background()))
	assert.Equal(t, recognize.Vars{"y": "2"}, seen)
}

func TestCalculateBlankCanvasUsesAnchor(t *testing.T) {
	e, sched := newEditor(t, Options{Recognizer: staticRecognizer(
		recognize.Result{Expr: "1+1", Result: "2"},
	)})

	require.NoError(t, <-e.Calculate(context.Background()))
	sched.Advance(time.Second)
	items := e.Annotations()
	require.Len(t, items, 1)
	assert.Equal(t, annotation.DefaultPlacement().Anchor, items[0].Position)
	assert.Equal(t, pt(60, 250), e.Status().Anchor)
}

func TestResetCancelsPendingResults(t *testing.T) {
	e, sched := newEditor(t, Options{Recognizer: staticRecognizer(
		recognize.Result{Expr: "a", Result: "1", Assign: true},
		recognize.Result{Expr: "2*3", Result: "6"},
	)})
	stroke(e, pt(10, 10), pt(30, 10))

	require.NoError(t, <-e.Calculate(context.Background()))
	sched.Advance(time.Second)
	require.Len(t, e.Annotations(), 1)

	e.Reset()
	sched.Advance(5 * time.Second)

	st := e.Status()
	assert.Empty(t, st.Annotations)
	assert.Empty(t, st.Vars)
	assert.Equal(t, 0, st.PendingResults)
	assert.Equal(t, 0, st.HistoryLen)
	assert.Equal(t, -1, st.HistoryCursor)
	assert.Equal(t, annotation.DefaultPlacement().Anchor, st.Anchor)
	assert.False(t, e.CanUndo())
}

func TestStrokeAfterResetUndoesToBlank(t *testing.T) {
	e, _ := newEditor(t, Options{})
	stroke(e, pt(10, 10), pt(30, 10))
	e.Reset()
	blank := e.Snapshot()

	stroke(e, pt(10, 50), pt(30, 50))
	assert.Equal(t, 2, e.Status().HistoryLen)
	require.True(t, e.Undo())
	assert.True(t, blank.Equal(e.Snapshot()))
}

func TestResetDiscardsLateResponse(t *testing.T) {
	release := make(chan struct{})
	rec := recognize.Func(func(ctx context.Context, req recognize.Request) ([]recognize.Result, error) {
		<-release
		return []recognize.Result{{Expr: "z", Result: "9", Assign: true}}, nil
	})
	e, sched := newEditor(t, Options{Recognizer: rec})

	done := e.Calculate(context.Background())
	e.Reset()
	close(release)
	require.NoError(t, <-done)

	sched.Advance(10 * time.Second)
	assert.Empty(t, e.Vars())
	assert.Empty(t, e.Annotations())
	assert.Equal(t, 0, e.PendingResults())
}

func TestCalculateFailure(t *testing.T) {
	boom := errors.New("boom")
	e, _ := newEditor(t, Options{Recognizer: recognize.Func(func(ctx context.Context, req recognize.Request) ([]recognize.Result, error) {
		return nil, boom
	})})
	stroke(e, pt(10, 10), pt(30, 10))
	before := e.Snapshot()
	historyLen := e.Status().HistoryLen

	failed := make(chan any, 1)
	e.On(EventRecognitionFailed, func(data any) { failed <- data })

	err := <-e.Calculate(context.Background())
	assert.ErrorIs(t, err, boom)

	select {
	case data := <-failed:
		assert.ErrorIs(t, data.(error), boom)
	case <-time.After(time.Second):
		t.Fatal("no failure event")
	}
	assert.True(t, before.Equal(e.Snapshot()))
	assert.Equal(t, historyLen, e.Status().HistoryLen)
	assert.Empty(t, e.Annotations())
}

func TestCalculateTimeout(t *testing.T) {
	rec := recognize.Func(func(ctx context.Context, req recognize.Request) ([]recognize.Result, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	e, _ := newEditor(t, Options{Recognizer: rec, RecognizeTimeout: 10 * time.Millisecond})
	assert.ErrorIs(t, <-e.Calculate(context.Background()), context.DeadlineExceeded)
}

func TestCalculateWithoutRecognizer(t *testing.T) {
	e, _ := newEditor(t, Options{})
	assert.ErrorIs(t, <-e.Calculate(context.Background()), ErrNoRecognizer)

	e.SetRecognizer(staticRecognizer())
	assert.NoError(t, <-e.Calculate(context.Background()))
}

func TestSetPlacementMovesDefaultAnchor(t *testing.T) {
	e, _ := newEditor(t, Options{})
	p := annotation.DefaultPlacement()
	p.Anchor = pt(0, 0)
	p.Delay = 2 * time.Second
	e.SetPlacement(p)
	assert.Equal(t, pt(0, 0), e.Status().Anchor)
	assert.Equal(t, 2*time.Second, e.Placement().Delay)
}

func TestCalculateStaggersThreeResultsFromContentCenter(t *testing.T) {
	rec := staticRecognizer(
		recognize.Result{Expr: "1+1", Result: "2"},
		recognize.Result{Expr: "2+2", Result: "4"},
		recognize.Result{Expr: "3+3", Result: "6"},
	)
	e, sched := newEditor(t, Options{Recognizer: rec})
	e.SetWidth(1)
	stroke(e, pt(20, 30), pt(60, 30))

	require.NoError(t, <-e.Calculate(context.Background()))
	assert.Equal(t, 3, e.PendingResults())

	sched.Advance(time.Second)
	assert.Len(t, e.Annotations(), 1)
	sched.Advance(time.Second)
	assert.Len(t, e.Annotations(), 2)
	sched.Advance(time.Second)

	items := e.Annotations()
	require.Len(t, items, 3)
	assert.Equal(t, pt(40, 30), items[0].Position)
	assert.Equal(t, pt(90, 80), items[1].Position)
	assert.Equal(t, pt(140, 130), items[2].Position)
	assert.Equal(t, `\[\text{3+3} = \text{6}\]`, items[2].Content)
	assert.Equal(t, pt(190, 180), e.Status().Anchor)
	assert.Equal(t, 0, e.PendingResults())
}

func TestCalculateDuringShapeTrackingIgnoresPreview(t *testing.T) {
	var got recognize.Request
	rec := recognize.Func(func(ctx context.Context, req recognize.Request) ([]recognize.Result, error) {
		got = req
		return []recognize.Result{{Expr: "a", Result: "1"}}, nil
	})
	e, sched := newEditor(t, Options{Recognizer: rec})
	e.SetMode(ModeCircle)
	e.PointerDown(pt(50, 50))
	e.PointerMove(pt(70, 50))
	before := e.Status().HistoryLen

	require.NoError(t, <-e.Calculate(context.Background()))
	data, err := recognize.DecodeDataURL(got.Image)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			require.Zero(t, r|g|bl, "preview pixel exported at (%d,%d)", x, y)
		}
	}

	sched.Advance(time.Second)
	items := e.Annotations()
	require.Len(t, items, 1)
	assert.Equal(t, pt(10, 200), items[0].Position, "blank committed canvas uses the anchor")
	assert.Equal(t, before, e.Status().HistoryLen, "result landing mid-stroke is not recorded yet")

	e.PointerUp(pt(70, 50))
	assert.Equal(t, before+1, e.Status().HistoryLen)
	require.True(t, e.Undo())
	assert.Empty(t, e.Annotations())
}
