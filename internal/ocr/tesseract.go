// Package ocr provides an offline recognizer that reads handwritten
// arithmetic from the canvas with Tesseract.
package ocr

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
	"gocv.io/x/gocv"

	"sketchcalc/internal/recognize"
)

// MathChars is the character set accepted from Tesseract.
const MathChars = "0123456789+-*/=()?.xyzabcnmkpqrstuvw×÷"

// Engine implements recognize.Recognizer using Tesseract.
type Engine struct {
	mu     sync.Mutex
	client *gosseract.Client
	logger *slog.Logger
}

// NewEngine creates a new OCR engine for the given Tesseract language.
func NewEngine(language string, logger *slog.Logger) (*Engine, error) {
	if language == "" {
		language = "eng"
	}
	if logger == nil {
		logger = slog.Default()
	}
	client := gosseract.NewClient()

	if err := client.SetLanguage(language); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set OCR language: %w", err)
	}

	// Expressions are not dictionary words.
	_ = client.SetVariable("load_system_dawg", "false")
	_ = client.SetVariable("load_freq_dawg", "false")

	return &Engine{client: client, logger: logger}, nil
}

// Close releases OCR resources.
func (e *Engine) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

// Recognize reads one expression per text line from the request image and
// evaluates them against the request's variables.
func (e *Engine) Recognize(ctx context.Context, req recognize.Request) ([]recognize.Result, error) {
	data, err := recognize.DecodeDataURL(req.Image)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text, err := e.readText(data)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lines := strings.Split(text, "\n")
	results := recognize.Interpret(lines, req.Vars)
	e.logger.Debug("ocr complete", "lines", len(lines), "results", len(results))
	return results, nil
}

func (e *Engine) readText(png []byte) (string, error) {
	img, err := gocv.IMDecode(png, gocv.IMReadGrayScale)
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}
	defer img.Close()
	if img.Empty() {
		return "", fmt.Errorf("empty image")
	}

	processed := preprocessForOCR(img)
	defer processed.Close()

	buf, err := gocv.IMEncode(gocv.PNGFileExt, processed)
	if err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		return "", fmt.Errorf("failed to set PSM: %w", err)
	}
	if err := e.client.SetWhitelist(MathChars); err != nil {
		return "", fmt.Errorf("failed to set whitelist: %w", err)
	}
	if err := e.client.SetImageFromBytes(buf.GetBytes()); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	text, err := e.client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return text, nil
}

// preprocessForOCR binarizes a grayscale canvas into dark strokes on a light
// page, upscaling thin drawings so Tesseract sees usable glyph heights.
func preprocessForOCR(gray gocv.Mat) gocv.Mat {
	h, w := gray.Rows(), gray.Cols()

	var scaled gocv.Mat
	minDim := min(h, w)
	if minDim < 150 {
		scale := 150.0 / float64(minDim)
		scaled = gocv.NewMat()
		gocv.Resize(gray, &scaled, image.Point{}, scale, scale, gocv.InterpolationCubic)
	} else {
		scaled = gray.Clone()
	}

	binary := gocv.NewMat()
	gocv.Threshold(scaled, &binary, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)
	scaled.Close()

	// The canvas draws light strokes on a dark background.
	whiteCount := gocv.CountNonZero(binary)
	if float64(whiteCount) < float64(binary.Rows()*binary.Cols())/2 {
		gocv.BitwiseNot(binary, &binary)
	}
	return binary
}
