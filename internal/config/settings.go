package config

import (
	"fmt"
	"time"

	"github.com/dshills/todols/internal/highlight"
)

// Trace exporters accepted by Settings.TraceExporter.
const (
	TraceExporterNone   = "none"
	TraceExporterStdout = "stdout"
	TraceExporterOTLP   = "otlp"
)

// Settings are the process-level options read from the settings file,
// the environment and command-line flags, in increasing priority.
type Settings struct {
	// LogLevel is debug, info, warn or error.
	LogLevel string `toml:"log_level" yaml:"log_level" json:"log_level"`

	// LogFile receives logs instead of stderr when set.
	LogFile string `toml:"log_file" yaml:"log_file" json:"log_file"`

	// Watch enables the file system watcher for files not open in the editor.
	Watch bool `toml:"watch" yaml:"watch" json:"watch"`

	// WatchDebounce is a Go duration string, e.g. "150ms".
	WatchDebounce string `toml:"watch_debounce" yaml:"watch_debounce" json:"watch_debounce"`

	// TraceExporter is none, stdout or otlp.
	TraceExporter string `toml:"trace_exporter" yaml:"trace_exporter" json:"trace_exporter"`

	// MetricsAddr serves Prometheus metrics on /metrics when set.
	MetricsAddr string `toml:"metrics_addr" yaml:"metrics_addr" json:"metrics_addr"`

	// ScanWorkers bounds concurrent file scans. Zero means GOMAXPROCS.
	ScanWorkers int `toml:"scan_workers" yaml:"scan_workers" json:"scan_workers"`

	// Highlights replaces the built-in keyword table when non-empty.
	Highlights map[string]HighlightEntry `toml:"highlights" yaml:"highlights" json:"highlights"`
}

// HighlightEntry is one keyword in the settings file.
type HighlightEntry struct {
	Background string `toml:"background" yaml:"background" json:"background"`
}

// DefaultSettings returns the settings used without a settings file.
func DefaultSettings() Settings {
	return Settings{
		LogLevel:      "info",
		Watch:         true,
		WatchDebounce: "100ms",
		TraceExporter: TraceExporterNone,
	}
}

// Validate checks value ranges and enumerations.
func (s Settings) Validate() error {
	if _, err := s.Debounce(); err != nil {
		return err
	}
	switch s.TraceExporter {
	case "", TraceExporterNone, TraceExporterStdout, TraceExporterOTLP:
	default:
		return fmt.Errorf("%w: trace_exporter %q", ErrValidationFailed, s.TraceExporter)
	}
	if s.ScanWorkers < 0 {
		return fmt.Errorf("%w: scan_workers must not be negative", ErrValidationFailed)
	}
	_, err := s.Palette()
	return err
}

// Debounce parses WatchDebounce. An empty value yields zero.
func (s Settings) Debounce() (time.Duration, error) {
	if s.WatchDebounce == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s.WatchDebounce)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%w: watch_debounce %q", ErrValidationFailed, s.WatchDebounce)
	}
	return d, nil
}

// Palette returns the keyword table to use as the default mapping: the
// settings file table when present, otherwise DefaultHighlights.
func (s Settings) Palette() (map[string]highlight.Colors, error) {
	if len(s.Highlights) == 0 {
		return DefaultHighlights(), nil
	}

	out := make(map[string]highlight.Colors, len(s.Highlights))
	for keyword, entry := range s.Highlights {
		colors := highlight.DefaultColors()
		if entry.Background != "" {
			c, err := ParseHexColor(entry.Background)
			if err != nil {
				return nil, fmt.Errorf("highlights.%s: %w", keyword, err)
			}
			colors.Background = c
		}
		out[keyword] = colors
	}
	return out, nil
}
