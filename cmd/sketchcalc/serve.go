package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"sketchcalc/internal/app"
	"sketchcalc/internal/editor"
	"sketchcalc/internal/server"
)

var (
	serveAddr  string
	serveWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a shared drawing session over HTTP",
	Long: `Start the HTTP API on the configured address. Every client drives the same
canvas. With --watch the configuration file is reloaded on change and the new
result placement and log level take effect immediately.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", true, "reload the configuration file on change")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	rt, err := load()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		rt.cfg.Server.Addr = serveAddr
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

	if serveWatch {
		if _, statErr := os.Stat(configPath); statErr == nil {
			w, err := app.WatchConfig(configPath, 250*time.Millisecond, rt.logger)
			if err != nil {
				return err
			}
			defer w.Close()
			w.OnChange(func(cfg *app.Config) {
				e.SetPlacement(cfg.Placement())
				if lvl, err := app.ParseLevel(cfg.Log.Level); err == nil {
					rt.level.Set(lvl)
				}
			})
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.New(e, rt.logger).ListenAndServe(ctx, rt.cfg.Server.Addr, rt.cfg.Server.ShutdownTimeout.Duration)
}
