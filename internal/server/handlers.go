package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/color"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sketchcalc/internal/editor"
	"sketchcalc/pkg/colorutil"
	"sketchcalc/pkg/geometry"
)

type pointRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p pointRequest) point() geometry.Point2D {
	return geometry.NewPoint2D(p.X, p.Y)
}

func (s *Server) status(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, s.editor.Status())
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.status(w)
}

func (s *Server) handleCanvas(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.editor.EncodePNG(&buf); err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handlePointer(w http.ResponseWriter, r *http.Request) {
	var req pointRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	p := req.point()
	switch action := chi.URLParam(r, "action"); action {
	case "down":
		s.editor.PointerDown(p)
	case "move":
		s.editor.PointerMove(p)
	case "up":
		s.editor.PointerUp(p)
	case "out":
		s.editor.PointerOut(p)
	default:
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown pointer action %q", action))
		return
	}
	s.status(w)
}

type textRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleText(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	switch err := s.editor.SubmitText(req.Text); {
	case errors.Is(err, editor.ErrNotAwaitingText):
		writeError(w, http.StatusConflict, err)
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.status(w)
}

func (s *Server) handleTextCancel(w http.ResponseWriter, r *http.Request) {
	s.editor.CancelText()
	s.status(w)
}

type toolRequest struct {
	Mode   *string `json:"mode"`
	Color  *string `json:"color"`
	Width  *int    `json:"width"`
	Eraser *bool   `json:"eraser"`
}

func (s *Server) handleTool(w http.ResponseWriter, r *http.Request) {
	var req toolRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	// Validate everything before applying anything.
	var (
		mode editor.ToolMode
		err  error
	)
	if req.Mode != nil {
		if mode, err = editor.ParseToolMode(*req.Mode); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	var col color.RGBA
	if req.Color != nil {
		if col, err = colorutil.Parse(*req.Color); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	if req.Mode != nil {
		s.editor.SetMode(mode)
	}
	if req.Color != nil {
		s.editor.SetColor(col)
	}
	if req.Width != nil {
		s.editor.SetWidth(*req.Width)
	}
	if req.Eraser != nil {
		s.editor.SetEraser(*req.Eraser)
	}
	s.status(w)
}

type stepResponse struct {
	Changed bool          `json:"changed"`
	Status  editor.Status `json:"status"`
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	changed := s.editor.Undo()
	writeJSON(w, http.StatusOK, stepResponse{Changed: changed, Status: s.editor.Status()})
}

func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) {
	changed := s.editor.Redo()
	writeJSON(w, http.StatusOK, stepResponse{Changed: changed, Status: s.editor.Status()})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.editor.Reset()
	s.status(w)
}

type resizeRequest struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (s *Server) handleResize(w http.ResponseWriter, r *http.Request) {
	var req resizeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.editor.Resize(req.Width, req.Height); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.status(w)
}

// handleCalculate starts recognition. With ?wait=1 it responds once the
// recognizer has answered; otherwise it returns 202 immediately.
func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	wait := r.URL.Query().Get("wait")
	if wait == "" || wait == "0" || wait == "false" {
		done := s.editor.Calculate(context.WithoutCancel(r.Context()))
		select {
		case err := <-done:
			if err != nil && isSetupError(err) {
				writeError(w, http.StatusConflict, err)
				return
			}
		default:
		}
		writeJSON(w, http.StatusAccepted, s.editor.Status())
		return
	}

	if err := <-s.editor.Calculate(r.Context()); err != nil {
		if isSetupError(err) {
			writeError(w, http.StatusConflict, err)
			return
		}
		writeError(w, http.StatusBadGateway, err)
		return
	}
	s.status(w)
}

func isSetupError(err error) bool {
	return errors.Is(err, editor.ErrNoRecognizer) || errors.Is(err, editor.ErrNotReady)
}

func (s *Server) handleAnnotations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.editor.Annotations())
}

type annotationRequest struct {
	Content string  `json:"content"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

func (s *Server) handleAddAnnotation(w http.ResponseWriter, r *http.Request) {
	var req annotationRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	it := s.editor.AddAnnotation(req.Content, geometry.NewPoint2D(req.X, req.Y))
	writeJSON(w, http.StatusCreated, it)
}

func (s *Server) handleMoveAnnotation(w http.ResponseWriter, r *http.Request) {
	var req pointRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	id := chi.URLParam(r, "id")
	if !s.editor.MoveAnnotation(id, req.point()) {
		writeError(w, http.StatusNotFound, fmt.Errorf("annotation %q not found", id))
		return
	}
	writeJSON(w, http.StatusOK, s.editor.Annotations())
}

func (s *Server) handleRemoveAnnotation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.editor.RemoveAnnotation(id) {
		writeError(w, http.StatusNotFound, fmt.Errorf("annotation %q not found", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type dragResponse struct {
	ID       string           `json:"id"`
	Position geometry.Point2D `json:"position"`
	Moved    bool             `json:"moved,omitempty"`
}

func (s *Server) handleDrag(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	phase := chi.URLParam(r, "phase")

	var req pointRequest
	if phase != "cancel" {
		if err := decode(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	if phase != "begin" {
		if cur, ok := s.editor.DraggingAnnotation(); ok && cur != id {
			writeError(w, http.StatusConflict, fmt.Errorf("annotation %q is being dragged, not %q", cur, id))
			return
		}
	}

	switch phase {
	case "begin":
		if !s.editor.BeginAnnotationDrag(id, req.point()) {
			writeError(w, http.StatusConflict, fmt.Errorf("cannot drag annotation %q", id))
			return
		}
		s.writeDrag(w, id, false)
	case "move":
		if _, ok := s.editor.DragAnnotation(req.point()); !ok {
			writeError(w, http.StatusConflict, fmt.Errorf("no drag in progress"))
			return
		}
		s.writeDrag(w, id, false)
	case "end":
		ended, moved := s.editor.EndAnnotationDrag(req.point())
		if ended == "" {
			writeError(w, http.StatusConflict, fmt.Errorf("no drag in progress"))
			return
		}
		s.writeDrag(w, ended, moved)
	case "cancel":
		s.editor.CancelAnnotationDrag()
		s.writeDrag(w, id, false)
	default:
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown drag phase %q", phase))
	}
}

func (s *Server) writeDrag(w http.ResponseWriter, id string, moved bool) {
	resp := dragResponse{ID: id, Moved: moved}
	for _, it := range s.editor.Annotations() {
		if it.ID == id {
			resp.Position = it.Position
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
