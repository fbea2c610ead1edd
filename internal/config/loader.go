package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// LoadSettings reads the settings file at path on top of DefaultSettings.
// The format is chosen by extension: .toml, .yaml, .yml or .json. An empty
// path or a missing file yields the defaults.
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()
	if path == "" {
		return settings, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil // File doesn't exist, not an error
		}
		return settings, fmt.Errorf("reading settings file %s: %w", path, err)
	}

	if err := decodeSettings(path, data, &settings); err != nil {
		return DefaultSettings(), err
	}
	if err := settings.Validate(); err != nil {
		return DefaultSettings(), fmt.Errorf("settings file %s: %w", path, err)
	}
	return settings, nil
}

func decodeSettings(path string, data []byte, settings *Settings) error {
	var err error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.Unmarshal(data, settings)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, settings)
	case ".json":
		err = json.Unmarshal(data, settings)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	if err != nil {
		return &ParseError{
			Path:    path,
			Message: err.Error(),
			Err:     err,
		}
	}
	return nil
}
