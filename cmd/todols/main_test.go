package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/todols/internal/lsp"
)

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"version"}, strings.NewReader(""), &stdout, &stderr)

	assert.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "todols dev")
}

func TestRun_Scan(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n\n   // FIXME: later\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "node_modules"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "node_modules", "dep.js"), []byte("// FIXME\n"), 0o644))

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"scan", dir, "--keyword", "FIXME", "--log-level", "error"}, strings.NewReader(""), &stdout, &stderr)

	require.Equal(t, 0, code, stderr.String())
	assert.Equal(t, filepath.Join(dir, "main.go")+":3:7: FIXME\n", stdout.String())
}

func TestRun_ScanReportsTotals(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("// TODO one TODO two\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.go"), []byte("clean\n"), 0o644))

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"scan", dir, "--log-level", "info"}, strings.NewReader(""), &stdout, &stderr)

	require.Equal(t, 0, code, stderr.String())
	assert.Equal(t, 2, strings.Count(stdout.String(), ": TODO\n"))
	assert.Contains(t, stderr.String(), "scan complete")
	assert.Contains(t, stderr.String(), "files=1")
	assert.Contains(t, stderr.String(), "matches=2")
}

func TestRun_ScanMissingDir(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"scan", filepath.Join(t.TempDir(), "missing")}, strings.NewReader(""), &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "Error:")
}

func TestRun_InvalidLogLevel(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"scan", "--log-level", "loud"}, strings.NewReader(""), &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "invalid log level")
}

func frame(t *testing.T, w io.Writer, id int, method string, params any) {
	t.Helper()
	msg := map[string]any{"jsonrpc": "2.0", "method": method}
	if id > 0 {
		msg["id"] = id
	}
	if params != nil {
		msg["params"] = params
	}
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	_, err = fmt.Fprintf(w, "Content-Length: %d\r\n\r\n%s", len(data), data)
	require.NoError(t, err)
}

func readMessages(t *testing.T, r io.Reader) []lsp.Message {
	t.Helper()
	tr := lsp.NewTransport(r, io.Discard)
	var out []lsp.Message
	for {
		body, err := tr.ReadMessage()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		var msg lsp.Message
		require.NoError(t, json.Unmarshal(body, &msg))
		out = append(out, msg)
	}
}

func TestRun_Serve(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "main.go")
	require.NoError(t, os.WriteFile(file, []byte("// TODO: serve\n"), 0o644))

	var stdin bytes.Buffer
	frame(t, &stdin, 1, "initialize", map[string]any{
		"processId":        nil,
		"workspaceFolders": []map[string]string{{"uri": string(lsp.FilePathToURI(dir)), "name": "ws"}},
	})
	frame(t, &stdin, 0, "initialized", map[string]any{})
	frame(t, &stdin, 2, "textDocument/documentColor", map[string]any{
		"textDocument": map[string]string{"uri": string(lsp.FilePathToURI(file))},
	})
	frame(t, &stdin, 3, "shutdown", nil)
	frame(t, &stdin, 0, "exit", nil)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"serve", "--no-watch", "--log-level", "error"}, &stdin, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	responses := map[string]lsp.Message{}
	for _, msg := range readMessages(t, &stdout) {
		if msg.Method == "" {
			responses[string(msg.ID)] = msg
		}
	}
	require.Len(t, responses, 3)

	var colors []lsp.ColorInformation
	require.NoError(t, json.Unmarshal(responses["2"].Result, &colors))
	require.Len(t, colors, 1)
	assert.Equal(t, lsp.Range{Start: lsp.Position{Line: 0, Character: 0}, End: lsp.Position{Line: 0, Character: 14}}, colors[0].Range)
}

func TestRun_ServeEOFWithoutShutdown(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--no-watch", "--log-level", "error"}, strings.NewReader(""), &stdout, &stderr)
	assert.Equal(t, 1, code)
}
