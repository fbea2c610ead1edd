package lsp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// RequestHandler answers a request. Returning an *RPCError chooses the
// error code; any other error is sent as CodeInternalError.
type RequestHandler func(ctx context.Context, params json.RawMessage) (any, error)

// NotificationHandler handles a notification. Errors are logged only.
type NotificationHandler func(ctx context.Context, params json.RawMessage) error

// Request adapts a typed request function to a RequestHandler. Params that
// do not decode into P are rejected with CodeInvalidParams.
func Request[P, R any](fn func(context.Context, P) (R, error)) RequestHandler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var params P
		if err := decodeParams(raw, &params); err != nil {
			return nil, err
		}
		return fn(ctx, params)
	}
}

// Notification adapts a typed notification function to a NotificationHandler.
func Notification[P any](fn func(context.Context, P) error) NotificationHandler {
	return func(ctx context.Context, raw json.RawMessage) error {
		var params P
		if err := decodeParams(raw, &params); err != nil {
			return err
		}
		return fn(ctx, params)
	}
}

func decodeParams(raw json.RawMessage, v any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return invalidParams("decode params: %v", err)
	}
	return nil
}

type lifecycle int

const (
	stateUninitialized lifecycle = iota
	stateRunning
	stateShutdown
)

// Server reads messages from a Transport and dispatches them to registered
// handlers one at a time, in arrival order.
type Server struct {
	transport *Transport
	logger    *slog.Logger

	requests      map[string]RequestHandler
	notifications map[string]NotificationHandler

	state lifecycle
}

// NewServer creates a server on transport.
func NewServer(transport *Transport, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		transport:     transport,
		logger:        logger,
		requests:      make(map[string]RequestHandler),
		notifications: make(map[string]NotificationHandler),
	}
}

// HandleRequest registers h for method.
func (s *Server) HandleRequest(method string, h RequestHandler) {
	s.requests[method] = h
}

// HandleNotification registers h for method.
func (s *Server) HandleNotification(method string, h NotificationHandler) {
	s.notifications[method] = h
}

// Notify sends a notification to the client.
func (s *Server) Notify(method string, params any) error {
	return s.transport.Notify(method, params)
}

// Serve runs the message loop until exit, end of input or ctx is done. It
// returns the process exit code: 0 when shutdown preceded the end, else 1.
// A framing error ends the loop and is returned.
func (s *Server) Serve(ctx context.Context) (int, error) {
	for {
		if err := ctx.Err(); err != nil {
			return s.exitCode(), err
		}

		body, err := s.transport.ReadMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.logger.Info("input closed")
				return s.exitCode(), nil
			}
			return 1, fmt.Errorf("read message: %w", err)
		}

		var msg Message
		if err := json.Unmarshal(body, &msg); err != nil {
			s.logger.Warn("malformed message", "error", err)
			s.reply(nil, nil, &RPCError{Code: CodeParseError, Message: err.Error()})
			continue
		}

		switch {
		case msg.IsRequest():
			s.handleRequest(ctx, &msg)
		case msg.IsNotification():
			if msg.Method == MethodExit {
				s.logger.Info("exit received", "after_shutdown", s.state == stateShutdown)
				return s.exitCode(), nil
			}
			s.handleNotification(ctx, &msg)
		default:
			// Responses to server requests; the server sends none.
			s.logger.Debug("ignoring message without method")
		}
	}
}

func (s *Server) exitCode() int {
	if s.state == stateShutdown {
		return 0
	}
	return 1
}

func (s *Server) handleRequest(ctx context.Context, msg *Message) {
	switch {
	case s.state == stateShutdown:
		s.reply(msg.ID, nil, &RPCError{Code: CodeInvalidRequest, Message: "server is shutting down"})
		return
	case s.state == stateUninitialized && msg.Method != MethodInitialize:
		s.reply(msg.ID, nil, &RPCError{Code: CodeServerNotInitialized, Message: "server not initialized"})
		return
	case s.state == stateRunning && msg.Method == MethodInitialize:
		s.reply(msg.ID, nil, &RPCError{Code: CodeInvalidRequest, Message: "server already initialized"})
		return
	}

	h, ok := s.requests[msg.Method]
	if !ok {
		s.reply(msg.ID, nil, &RPCError{Code: CodeMethodNotFound, Message: "method not found: " + msg.Method})
		return
	}

	result, err := s.call(ctx, msg.Method, h, msg.Params)
	if err != nil {
		rpcErr := toRPCError(err)
		s.logger.Warn("request failed", "method", msg.Method, "code", rpcErr.Code, "error", rpcErr.Message)
		s.reply(msg.ID, nil, rpcErr)
		return
	}

	switch msg.Method {
	case MethodInitialize:
		s.state = stateRunning
	case MethodShutdown:
		s.state = stateShutdown
	}
	s.reply(msg.ID, result, nil)
}

// call runs h, turning a panic into an internal error so one bad request
// does not take the connection down.
func (s *Server) call(ctx context.Context, method string, h RequestHandler, params json.RawMessage) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("request handler panicked", "method", method, "panic", r)
			err = &RPCError{Code: CodeInternalError, Message: fmt.Sprintf("internal error in %s", method)}
		}
	}()
	return h(ctx, params)
}

func (s *Server) handleNotification(ctx context.Context, msg *Message) {
	if strings.HasPrefix(msg.Method, "$/") {
		return
	}
	if s.state != stateRunning {
		s.logger.Debug("dropping notification", "method", msg.Method, "state", s.state)
		return
	}

	h, ok := s.notifications[msg.Method]
	if !ok {
		s.logger.Debug("unhandled notification", "method", msg.Method)
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("notification handler panicked", "method", msg.Method, "panic", r)
		}
	}()
	if err := h(ctx, msg.Params); err != nil {
		s.logger.Warn("notification failed", "method", msg.Method, "error", err)
	}
}

func (s *Server) reply(id json.RawMessage, result any, rpcErr *RPCError) {
	if err := s.transport.Reply(id, result, rpcErr); err != nil {
		s.logger.Error("write response", "error", err)
	}
}
