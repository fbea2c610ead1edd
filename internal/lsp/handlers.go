package lsp

import (
	"context"
	"encoding/json"

	"github.com/dshills/todols/internal/highlight"
)

// Register wires the backend operations into server.
func Register[S Searcher, P highlight.Palette](server *Server, backend *Backend[S, P]) {
	server.HandleRequest(MethodInitialize, Request(backend.Initialize))
	server.HandleRequest(MethodShutdown, func(ctx context.Context, _ json.RawMessage) (any, error) {
		return nil, backend.Shutdown(ctx)
	})
	server.HandleRequest(MethodDocumentColor, Request(backend.DocumentColor))
	server.HandleRequest(MethodColorPresentation, Request(backend.ColorPresentation))

	server.HandleNotification(MethodInitialized, Notification(backend.Initialized))
	server.HandleNotification(MethodDidOpen, Notification(backend.DidOpen))
	server.HandleNotification(MethodDidChange, Notification(backend.DidChange))
	server.HandleNotification(MethodDidClose, Notification(backend.DidClose))
	server.HandleNotification(MethodDidChangeConfiguration, Notification(backend.DidChangeConfiguration))
}
