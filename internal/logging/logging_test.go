package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestNew_SessionAndComponent(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Options{Level: "debug", Output: &buf, Session: "s-1"})
	require.NoError(t, err)
	defer l.Close()

	WithComponent(l.Logger, "search").Debug("scanned", "files", 3)

	out := buf.String()
	assert.Contains(t, out, "session=s-1")
	assert.Contains(t, out, "component=search")
	assert.Contains(t, out, "files=3")
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Options{Level: "warn", Output: &buf})
	require.NoError(t, err)

	l.Info("hidden")
	l.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.NotEmpty(t, l.Session, "random session assigned")
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todols.log")
	l, err := New(Options{File: path})
	require.NoError(t, err)

	l.Info("to file")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}

func TestNew_BadFile(t *testing.T) {
	_, err := New(Options{File: filepath.Join(t.TempDir(), "missing", "x.log")})
	assert.Error(t, err)
}

func TestWithComponent_NilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		WithComponent(nil, "x").Info("dropped")
	})
}
