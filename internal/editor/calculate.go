package editor

import (
	"context"
	"fmt"
	"time"

	"sketchcalc/internal/annotation"
	"sketchcalc/internal/recognize"
	"sketchcalc/pkg/geometry"
)

// Calculate sends the canvas and the symbol dictionary to the recognizer
// without blocking. Results are placed as annotations one at a time on the
// placement schedule, starting at the center of the drawn content. The
// channel receives the request's outcome and is then closed; callers may
// ignore it. A Reset before the response or before a result's timer fires
// discards it.
func (e *Editor) Calculate(ctx context.Context) <-chan error {
	done := make(chan error, 1)

	e.mu.Lock()
	rec := e.recognizer
	if rec == nil {
		e.mu.Unlock()
		done <- ErrNoRecognizer
		close(done)
		return done
	}
	if !e.buf.Ready() {
		e.mu.Unlock()
		done <- ErrNotReady
		close(done)
		return done
	}

	src := e.committed()
	img, err := src.ExportForRecognition()
	if err != nil {
		e.mu.Unlock()
		done <- err
		close(done)
		return done
	}
	req := recognize.Request{Image: img, Vars: e.vars.Clone()}
	anchor := e.anchor
	if r, ok := src.ContentBounds(); ok {
		anchor = r.Center()
	}
	gen := e.generation
	timeout := e.timeout
	logger := e.logger
	e.mu.Unlock()

	go func() {
		defer close(done)
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		start := time.Now()
		results, err := rec.Recognize(ctx, req)
		if err != nil {
			err = fmt.Errorf("recognition failed: %w", err)
			logger.Error("recognition failed", "error", err, "duration", time.Since(start))
			e.Emit(EventRecognitionFailed, err)
			done <- err
			return
		}
		logger.Info("recognition complete", "results", len(results), "duration", time.Since(start))
		e.deliver(gen, anchor, results)
		done <- nil
	}()
	return done
}

// deliver applies assignments and schedules result placement. Responses from
// before the last Reset are dropped.
func (e *Editor) deliver(gen uint64, anchor geometry.Point2D, results []recognize.Result) {
	e.update(func() []event {
		if gen != e.generation {
			e.logger.Debug("discarding stale recognition response", "generation", gen)
			return nil
		}

		var events []event
		assigned := false
		for _, r := range results {
			if r.Assign {
				e.vars[r.Expr] = r.Result
				assigned = true
			}
		}
		if assigned {
			events = append(events, event{EventVarsChanged, e.vars.Clone()})
		}

		for i, r := range results {
			e.schedule(gen, e.placement.DelayFor(i),
				annotation.FormatResult(r.Expr, r.Result),
				e.placement.Position(anchor, i))
		}
		e.anchor = e.placement.Position(anchor, len(results))
		return events
	})
}

// schedule arms one result timer. Caller holds e.mu.
func (e *Editor) schedule(gen uint64, d time.Duration, content string, pos geometry.Point2D) {
	e.timerSeq++
	seq := e.timerSeq
	e.timers[seq] = e.scheduler.AfterFunc(d, func() {
		e.place(gen, seq, content, pos)
	})
}

func (e *Editor) place(gen, seq uint64, content string, pos geometry.Point2D) {
	e.update(func() []event {
		if gen != e.generation {
			return nil
		}
		delete(e.timers, seq)
		e.layer.Add(content, pos)
		return e.annotationsChanged(nil)
	})
}

// PendingResults returns the number of results waiting for their timer.
func (e *Editor) PendingResults() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.timers)
}
