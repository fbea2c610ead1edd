package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/todols/internal/highlight"
	"github.com/dshills/todols/internal/project/search"
	"github.com/dshills/todols/internal/project/vfs"
)

type serveResult struct {
	code int
	err  error
}

// harness drives a Server through a pair of pipes, the way an editor would.
type harness struct {
	t        *testing.T
	server   *Server
	client   *Transport
	input    *io.PipeWriter
	incoming chan Message
	done     chan serveResult
	nextID   int

	mu            sync.Mutex
	notifications []Message
}

func newHarness(t *testing.T, setup func(*Server)) *harness {
	t.Helper()

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	server := NewServer(NewTransport(inR, outW), nil)
	if setup != nil {
		setup(server)
	}

	h := &harness{
		t:        t,
		server:   server,
		client:   NewTransport(outR, inW),
		input:    inW,
		incoming: make(chan Message, 64),
		done:     make(chan serveResult, 1),
	}

	go func() {
		defer close(h.incoming)
		for {
			body, err := h.client.ReadMessage()
			if err != nil {
				return
			}
			var msg Message
			if json.Unmarshal(body, &msg) == nil {
				h.incoming <- msg
			}
		}
	}()

	go func() {
		code, err := server.Serve(context.Background())
		h.done <- serveResult{code, err}
	}()

	t.Cleanup(func() {
		_ = inW.Close()
		_ = outW.Close()
	})
	return h
}

func (h *harness) request(method string, params any) Message {
	h.t.Helper()
	h.nextID++
	id := strconv.Itoa(h.nextID)

	data, err := json.Marshal(params)
	require.NoError(h.t, err)
	require.NoError(h.t, h.client.WriteMessage(&Message{ID: json.RawMessage(id), Method: method, Params: data}))
	return h.await(id)
}

func (h *harness) await(id string) Message {
	h.t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case msg, ok := <-h.incoming:
			require.True(h.t, ok, "connection closed while waiting for %s", id)
			if msg.Method != "" {
				h.mu.Lock()
				h.notifications = append(h.notifications, msg)
				h.mu.Unlock()
				continue
			}
			if string(msg.ID) == id {
				return msg
			}
		case <-timeout:
			h.t.Fatalf("no response for request %s", id)
		}
	}
}

func (h *harness) notify(method string, params any) {
	h.t.Helper()
	data, err := json.Marshal(params)
	require.NoError(h.t, err)
	require.NoError(h.t, h.client.WriteMessage(&Message{Method: method, Params: data}))
}

func (h *harness) wait() serveResult {
	h.t.Helper()
	select {
	case res := <-h.done:
		return res
	case <-time.After(2 * time.Second):
		h.t.Fatal("server did not stop")
		return serveResult{}
	}
}

func requireErrorCode(t *testing.T, msg Message, code int) {
	t.Helper()
	require.NotNil(t, msg.Error, "expected error response, got result %s", msg.Result)
	assert.Equal(t, code, msg.Error.Code)
}

func echoSetup(calls *[]string) func(*Server) {
	return func(s *Server) {
		s.HandleRequest(MethodInitialize, func(ctx context.Context, _ json.RawMessage) (any, error) {
			return map[string]string{"ok": "yes"}, nil
		})
		s.HandleRequest(MethodShutdown, func(ctx context.Context, _ json.RawMessage) (any, error) {
			return nil, nil
		})
		s.HandleRequest(MethodDocumentColor, Request(func(ctx context.Context, p DocumentColorParams) ([]ColorInformation, error) {
			return []ColorInformation{}, nil
		}))
		s.HandleRequest("test/fail", func(ctx context.Context, _ json.RawMessage) (any, error) {
			return nil, fmt.Errorf("boom")
		})
		s.HandleRequest("test/panic", func(ctx context.Context, _ json.RawMessage) (any, error) {
			panic("bad handler")
		})
		s.HandleNotification(MethodDidOpen, Notification(func(ctx context.Context, p DidOpenTextDocumentParams) error {
			*calls = append(*calls, string(p.TextDocument.URI))
			return nil
		}))
	}
}

func TestServer_RejectsBeforeInitialize(t *testing.T) {
	var calls []string
	h := newHarness(t, echoSetup(&calls))

	h.notify(MethodDidOpen, DidOpenTextDocumentParams{TextDocument: TextDocumentItem{URI: "file:///early"}})
	resp := h.request(MethodDocumentColor, DocumentColorParams{})
	requireErrorCode(t, resp, CodeServerNotInitialized)
	assert.Empty(t, calls, "notifications before initialize are dropped")

	resp = h.request(MethodInitialize, InitializeParams{})
	require.Nil(t, resp.Error)
	assert.JSONEq(t, `{"ok":"yes"}`, string(resp.Result))

	h.notify(MethodDidOpen, DidOpenTextDocumentParams{TextDocument: TextDocumentItem{URI: "file:///late"}})
	h.notify("$/setTrace", map[string]string{"value": "off"})
	resp = h.request(MethodDocumentColor, DocumentColorParams{})
	require.Nil(t, resp.Error)
	assert.Equal(t, "[]", string(resp.Result))
	assert.Equal(t, []string{"file:///late"}, calls)
}

func TestServer_Lifecycle(t *testing.T) {
	var calls []string
	h := newHarness(t, echoSetup(&calls))

	require.Nil(t, h.request(MethodInitialize, InitializeParams{}).Error)
	requireErrorCode(t, h.request(MethodInitialize, InitializeParams{}), CodeInvalidRequest)
	requireErrorCode(t, h.request("textDocument/hover", nil), CodeMethodNotFound)
	requireErrorCode(t, h.request("test/fail", nil), CodeInternalError)
	requireErrorCode(t, h.request("test/panic", nil), CodeInternalError)
	requireErrorCode(t, h.request(MethodDocumentColor, "not an object"), CodeInvalidParams)

	resp := h.request(MethodShutdown, nil)
	require.Nil(t, resp.Error)
	assert.Equal(t, "null", string(resp.Result))

	requireErrorCode(t, h.request(MethodDocumentColor, DocumentColorParams{}), CodeInvalidRequest)

	h.notify(MethodExit, nil)
	res := h.wait()
	assert.NoError(t, res.err)
	assert.Equal(t, 0, res.code)
}

func TestServer_ExitWithoutShutdown(t *testing.T) {
	var calls []string
	h := newHarness(t, echoSetup(&calls))

	require.Nil(t, h.request(MethodInitialize, InitializeParams{}).Error)
	h.notify(MethodExit, nil)

	res := h.wait()
	assert.NoError(t, res.err)
	assert.Equal(t, 1, res.code)
}

func TestServer_EndOfInput(t *testing.T) {
	var calls []string
	h := newHarness(t, echoSetup(&calls))

	require.Nil(t, h.request(MethodInitialize, InitializeParams{}).Error)
	require.Nil(t, h.request(MethodShutdown, nil).Error)
	require.NoError(t, h.input.Close())

	res := h.wait()
	assert.NoError(t, res.err)
	assert.Equal(t, 0, res.code)
}

func TestServer_ParseError(t *testing.T) {
	h := newHarness(t, nil)

	body := `{not json`
	_, err := fmt.Fprintf(h.input, "Content-Length: %d\r\n\r\n%s", len(body), body)
	require.NoError(t, err)

	resp := h.await("null")
	requireErrorCode(t, resp, CodeParseError)
}

func TestServer_FramingErrorStops(t *testing.T) {
	h := newHarness(t, nil)

	_, err := io.WriteString(h.input, "Content-Length: nope\r\n\r\n")
	require.NoError(t, err)

	res := h.wait()
	assert.ErrorIs(t, res.err, ErrInvalidHeader)
	assert.Equal(t, 1, res.code)
}

func TestRegister_EndToEnd(t *testing.T) {
	fsys := vfs.NewMemFS()
	fsys.AddFile("/ws/main.go", "package main\n\n// TODO: wire it up\n")

	h := newHarness(t, func(s *Server) {
		engine := search.NewEngine(fsys)
		backend := NewBackend(engine, highlight.NewColorProvider(nil), s, Options{Version: "test"})
		t.Cleanup(func() { _ = backend.Close() })
		Register(s, backend)
	})

	resp := h.request(MethodInitialize, initParams(`{"highlights":{"TODO":{"background":"#ff000080"}}}`, "/ws"))
	require.Nil(t, resp.Error)

	var result InitializeResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	assert.Equal(t, "todols", result.ServerInfo.Name)
	assert.True(t, result.Capabilities.ColorProvider)

	h.notify(MethodInitialized, InitializedParams{})

	resp = h.request(MethodDocumentColor, DocumentColorParams{TextDocument: docID("/ws/main.go")})
	require.Nil(t, resp.Error)

	var colors []ColorInformation
	require.NoError(t, json.Unmarshal(resp.Result, &colors))
	require.Len(t, colors, 1)
	assert.Equal(t, Range{Start: Position{2, 0}, End: Position{2, 19}}, colors[0].Range)
	assert.InDelta(t, 1.0, colors[0].Color.Red, 1e-9)
	assert.InDelta(t, 128.0/255, colors[0].Color.Alpha, 1e-9)

	resp = h.request(MethodColorPresentation, ColorPresentationParams{TextDocument: docID("/ws/main.go")})
	require.Nil(t, resp.Error)
	assert.Equal(t, "[]", string(resp.Result))

	h.mu.Lock()
	var sawInitialized bool
	for _, n := range h.notifications {
		var p LogMessageParams
		if n.Method == MethodLogMessage && json.Unmarshal(n.Params, &p) == nil && p.Message == "server initialized!" {
			sawInitialized = true
		}
	}
	h.mu.Unlock()
	assert.True(t, sawInitialized)

	require.Nil(t, h.request(MethodShutdown, nil).Error)
	h.notify(MethodExit, nil)
	assert.Equal(t, 0, h.wait().code)
}
