package config

import (
	"os"
	"strconv"
	"strings"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TODOLS_"

// LookupFunc reads one environment variable.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides settings from TODOLS_* variables read with
// os.LookupEnv. Empty values are treated as set.
func (s *Settings) ApplyEnv() {
	s.ApplyEnvFrom(os.LookupEnv)
}

// ApplyEnvFrom overrides settings from variables read with lookup.
// Values that do not parse for their field are ignored.
func (s *Settings) ApplyEnvFrom(lookup LookupFunc) {
	if v, ok := lookup(EnvPrefix + "LOG_LEVEL"); ok {
		s.LogLevel = v
	}
	if v, ok := lookup(EnvPrefix + "LOG_FILE"); ok {
		s.LogFile = v
	}
	if v, ok := lookup(EnvPrefix + "WATCH"); ok {
		if b, ok := parseBool(v); ok {
			s.Watch = b
		}
	}
	if v, ok := lookup(EnvPrefix + "WATCH_DEBOUNCE"); ok {
		s.WatchDebounce = v
	}
	if v, ok := lookup(EnvPrefix + "TRACE_EXPORTER"); ok {
		s.TraceExporter = strings.ToLower(v)
	}
	if v, ok := lookup(EnvPrefix + "METRICS_ADDR"); ok {
		s.MetricsAddr = v
	}
	if v, ok := lookup(EnvPrefix + "SCAN_WORKERS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			s.ScanWorkers = n
		}
	}
}

// parseBool accepts the spellings people put in shell profiles.
func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	default:
		return false, false
	}
}
