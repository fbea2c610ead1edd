package lsp

import (
	"errors"
	"fmt"
)

// Errors returned by the transport and server.
var (
	// ErrInvalidHeader indicates a message header without a usable
	// Content-Length.
	ErrInvalidHeader = errors.New("invalid message header")

	// ErrMessageTooLarge indicates a Content-Length above MaxMessageSize.
	ErrMessageTooLarge = errors.New("message too large")
)

// RPCError is a JSON-RPC error object. Handlers return it to choose the
// error code sent to the client.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("rpc error %d: %s (data: %v)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Standard JSON-RPC error codes.
const (
	// JSON-RPC standard errors
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	// LSP-specific errors
	CodeServerNotInitialized = -32002
	CodeRequestFailed        = -32803
)

// invalidParams builds a CodeInvalidParams error.
func invalidParams(format string, args ...any) *RPCError {
	return &RPCError{Code: CodeInvalidParams, Message: fmt.Sprintf(format, args...)}
}

// toRPCError returns err as an RPCError, wrapping unknown errors as
// CodeInternalError.
func toRPCError(err error) *RPCError {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	return &RPCError{Code: CodeInternalError, Message: err.Error()}
}
