// Package editor is the drawing session: it owns the surface buffer, the
// annotation layer and the history log, and turns pointer, keyboard and
// toolbar input into mutations of them.
package editor

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"sync"
	"time"

	"sketchcalc/internal/annotation"
	"sketchcalc/internal/history"
	"sketchcalc/internal/recognize"
	"sketchcalc/internal/surface"
	"sketchcalc/pkg/colorutil"
	"sketchcalc/pkg/geometry"
)

var (
	// ErrNotAwaitingText is returned by SubmitText when no text position has
	// been captured.
	ErrNotAwaitingText = errors.New("editor: not awaiting text input")

	// ErrEmptyText is returned by SubmitText for blank input.
	ErrEmptyText = errors.New("editor: empty text")

	// ErrNoRecognizer is reported by Calculate when no recognizer is set.
	ErrNoRecognizer = errors.New("editor: no recognizer configured")

	// ErrNotReady is reported when the canvas has not been sized yet.
	ErrNotReady = errors.New("editor: canvas not initialized")
)

// Options configures a new Editor. Zero values select defaults.
type Options struct {
	Width, Height int
	Background    color.RGBA
	Tool          Tool
	Placement     annotation.Placement
	Recognizer    recognize.Recognizer
	Scheduler     Scheduler
	Logger        *slog.Logger
	IDs           annotation.Generator
	HistoryLimit  int
	// RecognizeTimeout bounds each recognition request; zero leaves the
	// deadline to the caller's context.
	RecognizeTimeout time.Duration
}

// DefaultTool is the tool selection of a fresh session.
func DefaultTool() Tool {
	return Tool{Mode: ModeFreehand, Color: colorutil.White, Width: 3}
}

type gesture struct {
	kind   surface.ShapeKind
	anchor geometry.Point2D
	last   geometry.Point2D
	// base is the pre-stroke buffer that shape previews are drawn over.
	base *surface.Snapshot
}

// Editor is one drawing session. All methods are safe for concurrent use.
type Editor struct {
	mu sync.Mutex

	buf   *surface.Buffer
	layer *annotation.Layer
	log   *history.Log

	state   State
	tool    Tool
	gesture gesture
	textAt  geometry.Point2D

	vars       recognize.Vars
	placement  annotation.Placement
	anchor     geometry.Point2D
	generation uint64
	timers     map[uint64]Timer
	timerSeq   uint64

	recognizer recognize.Recognizer
	scheduler  Scheduler
	timeout    time.Duration
	logger     *slog.Logger

	lmu       sync.RWMutex
	listeners map[EventType][]EventListener
}

// New creates an editor. When Width and Height are zero the canvas stays
// unallocated, and every drawing operation is a no-op, until Resize.
func New(opts Options) (*Editor, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Scheduler == nil {
		opts.Scheduler = RealScheduler()
	}
	if opts.Background == (color.RGBA{}) {
		opts.Background = colorutil.Black
	}
	if opts.Tool == (Tool{}) {
		opts.Tool = DefaultTool()
	}
	opts.Tool.Width = ClampWidth(opts.Tool.Width)
	if opts.Placement == (annotation.Placement{}) {
		opts.Placement = annotation.DefaultPlacement()
	}

	e := &Editor{
		buf:        surface.New(opts.Background),
		layer:      annotation.NewLayer(opts.IDs),
		log:        history.New(opts.HistoryLimit),
		tool:       opts.Tool,
		vars:       recognize.Vars{},
		placement:  opts.Placement,
		anchor:     opts.Placement.Anchor,
		timers:     make(map[uint64]Timer),
		recognizer: opts.Recognizer,
		scheduler:  opts.Scheduler,
		timeout:    opts.RecognizeTimeout,
		logger:     opts.Logger,
		listeners:  make(map[EventType][]EventListener),
	}

	if opts.Width != 0 || opts.Height != 0 {
		if err := e.buf.Initialize(opts.Width, opts.Height); err != nil {
			return nil, err
		}
		e.checkpoint()
	}
	return e, nil
}

// committed returns the buffer without an in-progress shape preview. While a
// shape is tracked it is a copy built from the pre-stroke snapshot.
func (e *Editor) committed() *surface.Buffer {
	if e.state == StateShapeTracking && e.gesture.base != nil {
		return surface.FromSnapshot(e.gesture.base, e.buf.Background())
	}
	return e.buf
}

// checkpoint records the live state unless it is already the entry under the
// history cursor. Nothing is recorded while a stroke is open; the stroke's
// own post-stroke record picks up whatever changed meanwhile.
func (e *Editor) checkpoint() bool {
	if !e.buf.Ready() {
		return false
	}
	if e.state == StateFreehandStroking || e.state == StateShapeTracking {
		return false
	}
	snap := e.buf.ExportSnapshot()
	items := e.layer.SnapshotAll()
	if cur, ok := e.log.Current(); ok && cur.Snapshot.Equal(snap) && annotation.Equal(cur.Annotations, items) {
		return false
	}
	e.log.Record(history.Entry{Snapshot: snap, Annotations: items})
	e.logger.Debug("history recorded", "cursor", e.log.Cursor(), "entries", e.log.Len())
	return true
}

// apply makes a history entry the live state.
func (e *Editor) apply(entry history.Entry) {
	if err := e.buf.RestoreSnapshot(entry.Snapshot); err != nil {
		e.logger.Warn("history entry size differs from canvas, placing at origin", "error", err)
		e.buf.Reconcile(entry.Snapshot)
	}
	e.layer.ReplaceAll(entry.Annotations)
}

func (e *Editor) setState(s State, events []event) []event {
	if e.state == s {
		return events
	}
	e.state = s
	return append(events, event{EventStateChanged, s})
}

// Undo restores the previous history entry. An open stroke is completed
// first and a pending text capture is cancelled.
func (e *Editor) Undo() bool {
	return e.step(e.log.Undo)
}

// Redo restores the next history entry.
func (e *Editor) Redo() bool {
	return e.step(e.log.Redo)
}

func (e *Editor) step(move func() (history.Entry, bool)) bool {
	var ok bool
	e.update(func() []event {
		events := e.settle(nil)
		var entry history.Entry
		entry, ok = move()
		if !ok {
			return events
		}
		e.apply(entry)
		return append(events,
			event{EventCanvasChanged, nil},
			event{EventAnnotationsChanged, nil},
			event{EventHistoryChanged, nil})
	})
	return ok
}

// CanUndo reports whether Undo would change anything.
func (e *Editor) CanUndo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.log.CanUndo()
}

// CanRedo reports whether Redo would change anything.
func (e *Editor) CanRedo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.log.CanRedo()
}

// Reset returns the session to a blank canvas: no annotations, no history,
// no variables, the default result anchor. Pending recognition results are
// discarded.
func (e *Editor) Reset() {
	e.update(func() []event {
		e.generation++
		for seq, t := range e.timers {
			t.Stop()
			delete(e.timers, seq)
		}

		e.gesture = gesture{}
		events := e.setState(StateIdle, nil)
		e.buf.Clear()
		e.layer.Clear()
		e.log.Clear()
		e.vars = recognize.Vars{}
		e.anchor = e.placement.Anchor

		e.logger.Info("canvas reset", "generation", e.generation)
		return append(events,
			event{EventCanvasChanged, nil},
			event{EventAnnotationsChanged, nil},
			event{EventHistoryChanged, nil},
			event{EventVarsChanged, recognize.Vars{}},
			event{EventReset, nil})
	})
}

// Resize reallocates the canvas keeping existing pixels at the origin. It
// does not record history. The first successful Resize of an unallocated
// editor records the initial blank state.
func (e *Editor) Resize(width, height int) error {
	var err error
	e.update(func() []event {
		events := e.settle(nil)
		first := !e.buf.Ready()
		if err = e.buf.Initialize(width, height); err != nil {
			return events
		}
		if first && e.log.Len() == 0 {
			e.checkpoint()
			events = append(events, event{EventHistoryChanged, nil})
		}
		return append(events, event{EventCanvasChanged, nil})
	})
	if err != nil {
		return fmt.Errorf("failed to resize canvas: %w", err)
	}
	return nil
}

// SetPlacement changes where future recognition results appear. The current
// anchor moves only if it still sits at the old default.
func (e *Editor) SetPlacement(p annotation.Placement) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.anchor == e.placement.Anchor {
		e.anchor = p.Anchor
	}
	e.placement = p
}

// Placement returns the result placement settings.
func (e *Editor) Placement() annotation.Placement {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.placement
}

// SetRecognizer replaces the recognition backend.
func (e *Editor) SetRecognizer(r recognize.Recognizer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recognizer = r
}

// SetLogger replaces the logger.
func (e *Editor) SetLogger(l *slog.Logger) {
	if l == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.logger = l
}

// Image returns a copy of the canvas for display, or nil before the first
// Resize.
func (e *Editor) Image() *image.RGBA {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buf.Image()
}

// Snapshot returns the current canvas pixels.
func (e *Editor) Snapshot() *surface.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buf.ExportSnapshot()
}

// EncodePNG writes the canvas as PNG.
func (e *Editor) EncodePNG(w io.Writer) error {
	img := e.Image()
	if img == nil {
		return ErrNotReady
	}
	return png.Encode(w, img)
}

// Size returns the canvas dimensions.
func (e *Editor) Size() (width, height int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buf.Size()
}

// Background returns the canvas background color.
func (e *Editor) Background() color.RGBA {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buf.Background()
}

// State returns the state machine phase.
func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Tool returns the current tool selection.
func (e *Editor) Tool() Tool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tool
}

// PendingText returns the captured text position while awaiting input.
func (e *Editor) PendingText() (geometry.Point2D, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.textAt, e.state == StateAwaitingTextInput
}

// Annotations returns a copy of the annotation layer.
func (e *Editor) Annotations() []annotation.Item {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.layer.SnapshotAll()
}

// Vars returns a copy of the symbol dictionary.
func (e *Editor) Vars() recognize.Vars {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.vars.Clone()
}

// Status summarizes the session.
type Status struct {
	State          State             `json:"state"`
	Tool           Tool              `json:"tool"`
	Width          int               `json:"width"`
	Height         int               `json:"height"`
	CanUndo        bool              `json:"can_undo"`
	CanRedo        bool              `json:"can_redo"`
	HistoryLen     int               `json:"history_len"`
	HistoryCursor  int               `json:"history_cursor"`
	Annotations    []annotation.Item `json:"annotations"`
	Vars           recognize.Vars    `json:"vars"`
	PendingResults int               `json:"pending_results"`
	Anchor         geometry.Point2D  `json:"anchor"`
}

// Status returns a consistent view of the session.
func (e *Editor) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	w, h := e.buf.Size()
	return Status{
		State:          e.state,
		Tool:           e.tool,
		Width:          w,
		Height:         h,
		CanUndo:        e.log.CanUndo(),
		CanRedo:        e.log.CanRedo(),
		HistoryLen:     e.log.Len(),
		HistoryCursor:  e.log.Cursor(),
		Annotations:    e.layer.SnapshotAll(),
		Vars:           e.vars.Clone(),
		PendingResults: len(e.timers),
		Anchor:         e.anchor,
	}
}
