// Package main provides the entry point for the Sketch Calculator window.
package main

import (
	"log"
	"log/slog"
	"os"
	"time"

	fyneapp "fyne.io/fyne/v2/app"

	"sketchcalc/internal/app"
	"sketchcalc/internal/editor"
	"sketchcalc/internal/version"
	"sketchcalc/ui/mainwindow"
	"sketchcalc/ui/prefs"
)

const appTitle = "Sketch Calculator"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("Starting %s v%s", appTitle, version.Version)

	configPath := app.DefaultConfigFile
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config %s: %v", configPath, err)
	}
	logger, level, err := app.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}

	rec, closeRec, err := app.NewRecognizer(cfg.Recognition, logger)
	if err != nil {
		log.Printf("Recognition disabled: %v", err)
	}
	defer closeRec()

	// The window sizes the canvas.
	cfg.Canvas.Width, cfg.Canvas.Height = 0, 0
	opts, err := cfg.EditorOptions(rec, logger)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	e, err := editor.New(opts)
	if err != nil {
		log.Fatalf("Failed to create editor: %v", err)
	}

	a := fyneapp.NewWithID("io.sketchcalc.app")
	a.Settings().SetTheme(&app.CalculatorTheme{})

	win := mainwindow.New(a, e, prefs.Load())
	win.SetTitle(appTitle)

	setupConfigReload(configPath, e, level)

	win.ShowAndRun()
}

// setupConfigReload applies placement and log level changes from the
// configuration file while the window is open.
func setupConfigReload(path string, e *editor.Editor, level *slog.LevelVar) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	w, err := app.WatchConfig(path, 500*time.Millisecond, nil)
	if err != nil {
		log.Printf("Config reload: %v", err)
		return
	}
	log.Printf("Config reload: watching %s", path)
	w.OnChange(func(cfg *app.Config) {
		e.SetPlacement(cfg.Placement())
		if lvl, err := app.ParseLevel(cfg.Log.Level); err == nil {
			level.Set(lvl)
		}
		log.Printf("Config reload: applied %s", path)
	})
}
