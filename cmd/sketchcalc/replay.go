package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"sketchcalc/internal/app"
	"sketchcalc/internal/editor"
	"sketchcalc/internal/script"
)

var (
	replayOutput  string
	replayBackend string
	replayWidth   int
	replayHeight  int
	replaySettle  time.Duration
)

var replayCmd = &cobra.Command{
	Use:   "replay <script.yaml>",
	Short: "Replay a scripted drawing and write the canvas as PNG",
	Long: `Apply every step of a YAML script to a fresh canvas, write the resulting
pixels to a PNG file and list the annotations and variables the session ends
with.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().StringVarP(&replayOutput, "output", "o", "canvas.png", "output PNG file")
	replayCmd.Flags().StringVar(&replayBackend, "backend", "", "recognition backend (overrides recognition.backend)")
	replayCmd.Flags().IntVar(&replayWidth, "width", 0, "canvas width (overrides canvas.width)")
	replayCmd.Flags().IntVar(&replayHeight, "height", 0, "canvas height (overrides canvas.height)")
	replayCmd.Flags().DurationVar(&replaySettle, "settle", 0, "wait for pending results before writing, at most this long")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	rt, err := load()
	if err != nil {
		return err
	}
	if replayBackend != "" {
		rt.cfg.Recognition.Backend = replayBackend
	}
	if replayWidth > 0 {
		rt.cfg.Canvas.Width = replayWidth
	}
	if replayHeight > 0 {
		rt.cfg.Canvas.Height = replayHeight
	}

	s, err := script.Load(args[0])
	if err != nil {
		return fmt.Errorf("failed to load script: %w", err)
	}

	rec, closeRec, err := app.NewRecognizer(rt.cfg.Recognition, rt.logger)
	if err != nil {
		return err
	}
	defer closeRec()

	opts, err := rt.cfg.EditorOptions(rec, rt.logger)
	if err != nil {
		return err
	}
	e, err := editor.New(opts)
	if err != nil {
		return fmt.Errorf("failed to create editor: %w", err)
	}
	e.On(editor.EventRecognitionFailed, func(data any) {
		fmt.Fprintf(os.Stderr, "recognition failed: %v\n", data)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := script.Run(ctx, e, s); err != nil {
		return err
	}
	if replaySettle > 0 {
		deadline := time.Now().Add(replaySettle)
		for e.PendingResults() > 0 && time.Now().Before(deadline) {
			time.Sleep(20 * time.Millisecond)
		}
	}

	f, err := os.Create(replayOutput)
	if err != nil {
		return err
	}
	if err := e.EncodePNG(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", replayOutput, err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	w, h := e.Size()
	fmt.Printf("Wrote %s (%dx%d)\n", replayOutput, w, h)
	for _, it := range e.Annotations() {
		fmt.Printf("  [%s] (%.0f, %.0f) %s\n", it.ID, it.Position.X, it.Position.Y, it.Content)
	}
	for name, value := range e.Vars() {
		fmt.Printf("  %s = %s\n", name, value)
	}
	return nil
}
