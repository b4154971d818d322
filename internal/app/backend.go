package app

import (
	"fmt"
	"log/slog"

	"sketchcalc/internal/editor"
	"sketchcalc/internal/ocr"
	"sketchcalc/internal/recognize"
)

// NewRecognizer builds the configured recognition backend. The returned close
// function releases backend resources and is never nil. BackendNone yields a
// nil recognizer.
func NewRecognizer(cfg RecognitionConfig, logger *slog.Logger) (recognize.Recognizer, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Backend {
	case BackendHTTP, "":
		return recognize.NewHTTPClient(cfg.Endpoint, cfg.Timeout.Duration, logger), noop, nil
	case BackendTesseract:
		engine, err := ocr.NewEngine(cfg.Language, logger)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to start tesseract: %w", err)
		}
		return engine, engine.Close, nil
	case BackendNone:
		return nil, noop, nil
	}
	return nil, noop, fmt.Errorf("unknown recognition backend %q", cfg.Backend)
}

// EditorOptions maps the configuration onto editor options.
func (c *Config) EditorOptions(rec recognize.Recognizer, logger *slog.Logger) (editor.Options, error) {
	tool, err := c.Tool()
	if err != nil {
		return editor.Options{}, err
	}
	return editor.Options{
		Width:            c.Canvas.Width,
		Height:           c.Canvas.Height,
		Background:       c.BackgroundColor(),
		Tool:             tool,
		Placement:        c.Placement(),
		Recognizer:       rec,
		Logger:           logger,
		HistoryLimit:     c.History.MaxEntries,
		RecognizeTimeout: c.Recognition.Timeout.Duration,
	}, nil
}
