package app

import (
	"encoding/json"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"sketchcalc/internal/annotation"
	"sketchcalc/internal/editor"
	"sketchcalc/pkg/colorutil"
	"sketchcalc/pkg/geometry"
)

// DefaultConfigFile is looked up in the working directory when no path is
// given.
const DefaultConfigFile = "sketchcalc.toml"

// Duration is a time.Duration written as "1s", "250ms" in config files.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", b, err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config is the application configuration.
type Config struct {
	Canvas      CanvasConfig      `toml:"canvas" yaml:"canvas" json:"canvas"`
	Brush       BrushConfig       `toml:"brush" yaml:"brush" json:"brush"`
	History     HistoryConfig     `toml:"history" yaml:"history" json:"history"`
	Annotations AnnotationsConfig `toml:"annotations" yaml:"annotations" json:"annotations"`
	Recognition RecognitionConfig `toml:"recognition" yaml:"recognition" json:"recognition"`
	Server      ServerConfig      `toml:"server" yaml:"server" json:"server"`
	Log         LogConfig         `toml:"log" yaml:"log" json:"log"`
}

// CanvasConfig sizes the drawing surface. Zero width and height let the GUI
// size the canvas to its window.
type CanvasConfig struct {
	Width      int    `toml:"width" yaml:"width" json:"width"`
	Height     int    `toml:"height" yaml:"height" json:"height"`
	Background string `toml:"background" yaml:"background" json:"background"`
}

// BrushConfig is the initial tool selection.
type BrushConfig struct {
	Mode  string `toml:"mode" yaml:"mode" json:"mode"`
	Color string `toml:"color" yaml:"color" json:"color"`
	Width int    `toml:"width" yaml:"width" json:"width"`
}

// HistoryConfig bounds the undo log. Zero keeps every entry.
type HistoryConfig struct {
	MaxEntries int `toml:"max_entries" yaml:"max_entries" json:"max_entries"`
}

// AnnotationsConfig places recognition results.
type AnnotationsConfig struct {
	Anchor  [2]float64 `toml:"anchor" yaml:"anchor" json:"anchor"`
	Offset  [2]float64 `toml:"offset" yaml:"offset" json:"offset"`
	Stagger Duration   `toml:"stagger" yaml:"stagger" json:"stagger"`
}

// RecognitionConfig selects the recognition backend.
type RecognitionConfig struct {
	// Backend is "http", "tesseract" or "none".
	Backend  string   `toml:"backend" yaml:"backend" json:"backend"`
	Endpoint string   `toml:"endpoint" yaml:"endpoint" json:"endpoint"`
	Timeout  Duration `toml:"timeout" yaml:"timeout" json:"timeout"`
	Language string   `toml:"language" yaml:"language" json:"language"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string   `toml:"addr" yaml:"addr" json:"addr"`
	ShutdownTimeout Duration `toml:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `toml:"level" yaml:"level" json:"level"`
	Format string `toml:"format" yaml:"format" json:"format"`
}

// Recognition backends.
const (
	BackendHTTP      = "http"
	BackendTesseract = "tesseract"
	BackendNone      = "none"
)

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	p := annotation.DefaultPlacement()
	return &Config{
		Canvas: CanvasConfig{Width: 1280, Height: 800, Background: "#000000"},
		Brush:  BrushConfig{Mode: "freehand", Color: "#ffffff", Width: 3},
		History: HistoryConfig{
			MaxEntries: 256,
		},
		Annotations: AnnotationsConfig{
			Anchor:  [2]float64{p.Anchor.X, p.Anchor.Y},
			Offset:  [2]float64{p.Offset.X, p.Offset.Y},
			Stagger: Duration{p.Delay},
		},
		Recognition: RecognitionConfig{
			Backend:  BackendHTTP,
			Endpoint: "https://ai-powered-calc-be-zz4u.onrender.com/calculate",
			Timeout:  Duration{60 * time.Second},
			Language: "eng",
		},
		Server: ServerConfig{Addr: ":8900", ShutdownTimeout: Duration{5 * time.Second}},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}

// LoadConfig reads a TOML, YAML or JSON file over the defaults. A missing
// file yields the defaults. Environment overrides are applied and the result
// is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := decode(path, data, cfg); err != nil {
				return nil, err
			}
		}
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("decode YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("decode JSON: %w", err)
		}
	default:
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("decode TOML: %w", err)
		}
	}
	return nil
}

// ApplyEnvOverrides applies SKETCHCALC_* environment variables.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("SKETCHCALC_ENDPOINT"); v != "" {
		c.Recognition.Endpoint = v
	}
	if v := os.Getenv("SKETCHCALC_BACKEND"); v != "" {
		c.Recognition.Backend = v
	}
	if v := os.Getenv("SKETCHCALC_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("SKETCHCALC_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Canvas.Width < 0 || c.Canvas.Height < 0 {
		return fmt.Errorf("canvas size must not be negative")
	}
	if (c.Canvas.Width == 0) != (c.Canvas.Height == 0) {
		return fmt.Errorf("canvas width and height must both be set or both be zero")
	}
	if _, err := colorutil.ParseHex(c.Canvas.Background); err != nil {
		return fmt.Errorf("canvas.background: %w", err)
	}
	if _, err := c.Tool(); err != nil {
		return err
	}
	if c.History.MaxEntries < 0 {
		return fmt.Errorf("history.max_entries must not be negative")
	}
	if c.Annotations.Stagger.Duration < 0 {
		return fmt.Errorf("annotations.stagger must not be negative")
	}
	switch c.Recognition.Backend {
	case BackendHTTP, BackendTesseract, BackendNone:
	default:
		return fmt.Errorf("unknown recognition backend %q", c.Recognition.Backend)
	}
	if c.Recognition.Timeout.Duration < 0 {
		return fmt.Errorf("recognition.timeout must not be negative")
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

// BackgroundColor returns the parsed canvas background.
func (c *Config) BackgroundColor() color.RGBA {
	bg, err := colorutil.ParseHex(c.Canvas.Background)
	if err != nil {
		return colorutil.Black
	}
	return colorutil.Opaque(bg)
}

// Tool returns the initial tool selection.
func (c *Config) Tool() (editor.Tool, error) {
	mode, err := editor.ParseToolMode(c.Brush.Mode)
	if err != nil {
		return editor.Tool{}, fmt.Errorf("brush.mode: %w", err)
	}
	col, err := colorutil.ParseHex(c.Brush.Color)
	if err != nil {
		return editor.Tool{}, fmt.Errorf("brush.color: %w", err)
	}
	if c.Brush.Width < editor.MinWidth || c.Brush.Width > editor.MaxWidth {
		return editor.Tool{}, fmt.Errorf("brush.width must be between %d and %d", editor.MinWidth, editor.MaxWidth)
	}
	return editor.Tool{Mode: mode, Color: colorutil.Opaque(col), Width: c.Brush.Width}, nil
}

// Placement returns the result placement settings.
func (c *Config) Placement() annotation.Placement {
	return annotation.Placement{
		Anchor: geometry.NewPoint2D(c.Annotations.Anchor[0], c.Annotations.Anchor[1]),
		Offset: geometry.NewPoint2D(c.Annotations.Offset[0], c.Annotations.Offset[1]),
		Delay:  c.Annotations.Stagger.Duration,
	}
}
