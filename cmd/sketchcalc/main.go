package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"sketchcalc/internal/app"
	"sketchcalc/internal/version"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "sketchcalc",
	Short: "Headless tools for the sketch calculator",
	Long: `sketchcalc drives the sketch calculator's drawing engine without a window.
It can serve the engine over HTTP, replay scripted drawings to PNG, and send
images to the configured recognition backend.`,
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", app.DefaultConfigFile,
		"configuration file (toml, yaml or json)")
}

// session is the configuration and logger shared by every subcommand.
type session struct {
	cfg    *app.Config
	logger *slog.Logger
	level  *slog.LevelVar
}

func load() (*session, error) {
	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger, level, err := app.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return &session{cfg: cfg, logger: logger, level: level}, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
