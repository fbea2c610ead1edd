// Package search finds keyword matches in files, text buffers and whole
// workspace trees.
//
// An Engine owns the compiled keyword pattern and a VFS to read from. All
// scans produce index types: a FileState per file with matches and a State
// for a workspace walk.
package search

import (
	"errors"
	"fmt"
	"regexp"
)

// Common errors.
var (
	// ErrInvalidRegex is matched by every InvalidRegexError.
	ErrInvalidRegex = errors.New("invalid regex")
)

// InvalidRegexError reports a keyword set that cannot be compiled into a
// pattern.
type InvalidRegexError struct {
	Reason string
}

// Error implements error.
func (e *InvalidRegexError) Error() string {
	return fmt.Sprintf("invalid regex: %s", e.Reason)
}

// Unwrap returns ErrInvalidRegex.
func (e *InvalidRegexError) Unwrap() error {
	return ErrInvalidRegex
}

// Matcher finds pattern occurrences in a single line.
type Matcher interface {
	// FindAllIndex returns the [start, end) byte offsets of every
	// non-overlapping match, leftmost first.
	FindAllIndex(line []byte) [][]int

	// String returns the source pattern.
	String() string
}

// RegexMatcher is a Matcher backed by an RE2 regular expression.
type RegexMatcher struct {
	re *regexp.Regexp
}

// CompileRegex compiles pattern into a RegexMatcher.
func CompileRegex(pattern string) (*RegexMatcher, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, &InvalidRegexError{Reason: err.Error()}
	}
	return &RegexMatcher{re: re}, nil
}

// FindAllIndex implements Matcher.
func (m *RegexMatcher) FindAllIndex(line []byte) [][]int {
	return m.re.FindAllIndex(line, -1)
}

// String implements Matcher.
func (m *RegexMatcher) String() string {
	return m.re.String()
}

// Ensure RegexMatcher implements Matcher.
var _ Matcher = (*RegexMatcher)(nil)
