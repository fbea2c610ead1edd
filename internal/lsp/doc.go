// Package lsp implements the todols language server.
//
// The server speaks the Language Server Protocol over a Content-Length framed
// JSON-RPC 2.0 stream, normally stdin and stdout. It indexes keyword matches
// in the first workspace folder and answers textDocument/documentColor with
// one colored range per match, so editors without a syntax highlighting hook
// can still paint TODO-style comments.
//
// # Architecture
//
//	Transport   framing: reads and writes single messages
//	Server      lifecycle and dispatch: one message at a time, in order
//	Backend     the protocol operations over the shared index
//
// Backend keeps the workspace index, the search engine and the color palette
// behind a single sync.RWMutex. documentColor takes the read lock; every
// mutation takes the write lock. The Server handles messages sequentially,
// which is what orders successive edits of the same document.
//
// # Usage
//
//	transport := lsp.NewTransport(os.Stdin, os.Stdout)
//	server := lsp.NewServer(transport, logger)
//	backend := lsp.NewBackend(engine, palette, server, lsp.Options{Version: version})
//	lsp.Register(server, backend)
//	code, err := server.Serve(ctx)
package lsp
