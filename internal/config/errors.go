package config

import (
	"errors"
	"fmt"
)

// Errors returned by configuration operations.
var (
	// ErrInvalidColor indicates a color string is not #RGB, #RGBA, #RRGGBB
	// or #RRGGBBAA.
	ErrInvalidColor = errors.New("invalid hex color")

	// ErrUnsupportedFormat indicates a settings file extension with no decoder.
	ErrUnsupportedFormat = errors.New("unsupported settings format")

	// ErrValidationFailed indicates a settings value is out of range.
	ErrValidationFailed = errors.New("validation failed")
)

// ParseError represents an error while parsing a settings file.
type ParseError struct {
	// Path is the file path that failed to parse.
	Path string
	// Message describes the parse error.
	Message string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error in %s: %s", e.Path, e.Message)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}
