package editor

// EventType identifies editor events.
type EventType int

const (
	// EventCanvasChanged fires after pixels change.
	EventCanvasChanged EventType = iota
	// EventAnnotationsChanged fires after the annotation set changes,
	// including live drag positions.
	EventAnnotationsChanged
	// EventHistoryChanged fires when undo/redo availability may have changed.
	EventHistoryChanged
	// EventStateChanged carries the new State.
	EventStateChanged
	// EventToolChanged carries the new Tool.
	EventToolChanged
	// EventRecognitionFailed carries the error.
	EventRecognitionFailed
	// EventReset fires after a full reset.
	EventReset
	// EventVarsChanged carries a copy of the symbol dictionary.
	EventVarsChanged
)

func (t EventType) String() string {
	switch t {
	case EventCanvasChanged:
		return "canvas"
	case EventAnnotationsChanged:
		return "annotations"
	case EventHistoryChanged:
		return "history"
	case EventStateChanged:
		return "state"
	case EventToolChanged:
		return "tool"
	case EventRecognitionFailed:
		return "recognition_failed"
	case EventReset:
		return "reset"
	case EventVarsChanged:
		return "vars"
	}
	return "unknown"
}

// EventListener is called when an event occurs.
type EventListener func(data any)

type event struct {
	typ  EventType
	data any
}

// On registers an event listener for the specified event type. Listeners run
// on the goroutine that caused the event, after the editor lock is released.
func (e *Editor) On(typ EventType, listener EventListener) {
	e.lmu.Lock()
	defer e.lmu.Unlock()
	e.listeners[typ] = append(e.listeners[typ], listener)
}

// Emit triggers all listeners for the specified event type.
func (e *Editor) Emit(typ EventType, data any) {
	e.lmu.RLock()
	listeners := e.listeners[typ]
	e.lmu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

func (e *Editor) emitAll(events []event) {
	for _, ev := range events {
		e.Emit(ev.typ, ev.data)
	}
}

// update runs fn under the editor lock and emits the events it returns once
// the lock is released.
func (e *Editor) update(fn func() []event) {
	e.mu.Lock()
	events := fn()
	e.mu.Unlock()
	e.emitAll(events)
}
