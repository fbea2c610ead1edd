package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/codes"

	"github.com/dshills/todols/internal/config"
	"github.com/dshills/todols/internal/highlight"
	"github.com/dshills/todols/internal/project/index"
	"github.com/dshills/todols/internal/project/watcher"
)

// ServerName is reported in the initialize result.
const ServerName = "todols"

// settingsSection is the key under which editors nest the server's
// workspace configuration.
const settingsSection = "todols"

// Searcher finds keyword matches.
//
// Implementations must allow concurrent scans. The Backend calls Recompile
// under its write lock.
type Searcher interface {
	ScanText(text string) (*index.FileState, bool)
	ScanFile(path string) (*index.FileState, bool)
	ScanWorkspace(ctx context.Context, root string) *index.State
	Recompile(keywords []string) error
}

// Client receives server-initiated notifications.
type Client interface {
	Notify(method string, params any) error
}

// WatcherFactory creates the disk watcher started after initialization.
type WatcherFactory func() (watcher.Watcher, error)

// Options configure a Backend.
type Options struct {
	// Version is reported in serverInfo.
	Version string

	// Defaults seed the palette and replace missing highlight tables.
	// Nil means config.DefaultHighlights.
	Defaults map[string]highlight.Colors

	Logger *slog.Logger

	// Watcher, when set, is used to follow changes to files not open in
	// the editor.
	Watcher WatcherFactory
}

// Backend implements the language server operations over the workspace
// index.
//
// The index, searcher, palette, workspace root and open documents form one
// aggregate guarded by mu. Readers take the read lock; every mutation takes
// the write lock.
type Backend[S Searcher, P highlight.Palette] struct {
	client   Client
	logger   *slog.Logger
	version  string
	defaults map[string]highlight.Colors
	newWatch WatcherFactory

	mu       sync.RWMutex
	state    *index.State
	searcher S
	palette  P
	root     string
	open     map[string]string

	// pending records watcher events seen while a configuration refresh
	// rescans the root, so they can be replayed on the fresh index.
	refreshing bool
	pending    map[string]watcher.Event

	watchMu     sync.Mutex
	watch       watcher.Watcher
	watchCancel context.CancelFunc
	watchDone   chan struct{}
}

// NewBackend creates a Backend and seeds palette with the defaults.
func NewBackend[S Searcher, P highlight.Palette](searcher S, palette P, client Client, opts Options) *Backend[S, P] {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	defaults := opts.Defaults
	if len(defaults) == 0 {
		defaults = config.DefaultHighlights()
	}

	palette.Update(defaults)

	return &Backend[S, P]{
		client:   client,
		logger:   logger,
		version:  opts.Version,
		defaults: defaults,
		newWatch: opts.Watcher,
		state:    index.NewState(),
		searcher: searcher,
		palette:  palette,
		open:     make(map[string]string),
	}
}

// Initialize applies the initialization options, compiles the keyword
// pattern and indexes the first workspace folder. The scan runs under the
// write lock, so requests that follow wait for a complete index.
func (b *Backend[S, P]) Initialize(ctx context.Context, params InitializeParams) (result InitializeResult, err error) {
	ctx, done := b.begin(ctx, "Initialize", "")
	defer func() { done(b.indexLen(), err) }()

	b.mu.Lock()
	defer b.mu.Unlock()

	cfg := config.ParseWithDefaults(params.InitializationOptions, b.defaults)
	b.palette.Update(cfg.Highlights)
	b.logClient(MessageTypeLog, "config: "+cfg.String())

	if err := b.searcher.Recompile(b.palette.Keywords()); err != nil {
		return InitializeResult{}, invalidParams("%v", err)
	}

	if len(params.WorkspaceFolders) == 0 {
		return InitializeResult{}, invalidParams("at least one workspace folder is required")
	}
	if extra := params.WorkspaceFolders[1:]; len(extra) > 0 {
		b.logger.Info("only the first workspace folder is indexed", "ignored", len(extra))
	}

	b.root = URIToFilePath(params.WorkspaceFolders[0].URI)
	start := time.Now()
	b.state.Extend(b.searcher.ScanWorkspace(ctx, b.root))
	b.logger.Info("workspace indexed", "root", b.root, "files", b.state.Len(), "elapsed", time.Since(start))
	recordIndexSize(ctx, b.state.Len())

	return InitializeResult{
		ServerInfo: &InitializeServerInfo{Name: ServerName, Version: b.version},
		Capabilities: ServerCapabilities{
			TextDocumentSync: &TextDocumentSyncOptions{
				OpenClose: true,
				Change:    TextDocumentSyncKindFull,
			},
			ColorProvider: true,
			Workspace: &ServerWorkspaceCapabilities{
				WorkspaceFolders: &WorkspaceFoldersServerCapabilities{
					Supported:           true,
					ChangeNotifications: true,
				},
			},
		},
	}, nil
}

// Initialized greets the client and starts the disk watcher, if any.
func (b *Backend[S, P]) Initialized(ctx context.Context, _ InitializedParams) error {
	b.logClient(MessageTypeInfo, "server initialized!")

	if b.newWatch == nil {
		return nil
	}

	b.mu.RLock()
	root := b.root
	b.mu.RUnlock()

	return b.startWatcher(root)
}

// DidOpen indexes the opened text and marks the document as open. Open
// documents follow the editor buffer, not the disk.
func (b *Backend[S, P]) DidOpen(ctx context.Context, params DidOpenTextDocumentParams) error {
	path := URIToFilePath(params.TextDocument.URI)
	ctx, done := b.begin(ctx, "DidOpen", path)

	fs, ok := b.searcher.ScanText(params.TextDocument.Text)

	b.mu.Lock()
	b.open[path] = params.TextDocument.Text
	b.apply(path, fs, ok)
	n := b.state.Len()
	b.mu.Unlock()

	recordIndexSize(ctx, n)
	done(n, nil)
	return nil
}

// DidChange rescans the document from the last content change, which with
// full sync is the whole text.
func (b *Backend[S, P]) DidChange(ctx context.Context, params DidChangeTextDocumentParams) error {
	if len(params.ContentChanges) == 0 {
		return nil
	}

	path := URIToFilePath(params.TextDocument.URI)
	ctx, done := b.begin(ctx, "DidChange", path)

	text := params.ContentChanges[len(params.ContentChanges)-1].Text
	fs, ok := b.searcher.ScanText(text)

	b.mu.Lock()
	b.open[path] = text
	b.apply(path, fs, ok)
	n := b.state.Len()
	b.mu.Unlock()

	recordIndexSize(ctx, n)
	done(n, nil)
	return nil
}

// DidClose forgets the editor buffer and indexes the file as saved on disk.
func (b *Backend[S, P]) DidClose(ctx context.Context, params DidCloseTextDocumentParams) error {
	path := URIToFilePath(params.TextDocument.URI)
	ctx, done := b.begin(ctx, "DidClose", path)

	fs, ok := b.searcher.ScanFile(path)

	b.mu.Lock()
	delete(b.open, path)
	b.apply(path, fs, ok)
	n := b.state.Len()
	b.mu.Unlock()

	recordIndexSize(ctx, n)
	done(n, nil)
	return nil
}

// DocumentColor returns one colored range per match in the document. The
// result is never nil.
func (b *Backend[S, P]) DocumentColor(ctx context.Context, params DocumentColorParams) ([]ColorInformation, error) {
	path := URIToFilePath(params.TextDocument.URI)
	ctx, done := b.begin(ctx, "DocumentColor", path)

	b.mu.RLock()
	defer b.mu.RUnlock()

	infos := []ColorInformation{}
	fs, ok := b.state.Get(path)
	if !ok {
		done(0, nil)
		return infos, nil
	}

	for _, row := range fs.Rows() {
		rm, _ := fs.Row(row)
		intervals := highlight.ColorIntervals(rm.Matches, rm.Meta)
		for i, iv := range intervals {
			keyword := rm.Matches[i].Keyword
			color, ok := b.palette.Lookup(keyword, highlight.Background)
			if !ok {
				b.logger.Debug("no color for keyword", "keyword", keyword, "path", path)
				continue
			}
			infos = append(infos, ColorInformation{
				Range: Range{
					Start: Position{Line: int(row), Character: int(iv.Start)},
					End:   Position{Line: int(row), Character: int(iv.End)},
				},
				Color: NewColor(color),
			})
		}
	}

	recordColorResults(ctx, len(infos))
	done(len(infos), nil)
	return infos, nil
}

// ColorPresentation offers no alternative ways to write a color.
func (b *Backend[S, P]) ColorPresentation(ctx context.Context, _ ColorPresentationParams) ([]ColorPresentation, error) {
	return []ColorPresentation{}, nil
}

// DidChangeConfiguration merges new highlights into the palette and
// recompiles the pattern. If recompiling fails the palette keeps the new
// entries while the old pattern stays in effect. On success the workspace
// is rescanned into a fresh index that replaces the current one.
func (b *Backend[S, P]) DidChangeConfiguration(ctx context.Context, params DidChangeConfigurationParams) (err error) {
	ctx, done := b.begin(ctx, "DidChangeConfiguration", "")
	defer func() { done(b.indexLen(), err) }()

	raw := params.Settings
	if section := gjson.GetBytes(raw, settingsSection); section.IsObject() {
		raw = json.RawMessage(section.Raw)
	}
	cfg := config.ParseWithDefaults(raw, b.defaults)

	b.mu.Lock()
	b.palette.Update(cfg.Highlights)
	if err := b.searcher.Recompile(b.palette.Keywords()); err != nil {
		b.mu.Unlock()
		b.logger.Warn("configuration not applied", "error", err)
		b.logClient(MessageTypeWarning, "configuration not applied: "+err.Error())
		return fmt.Errorf("recompile: %w", err)
	}
	b.logClient(MessageTypeLog, "config: "+cfg.String())
	root := b.root
	b.refreshing = true
	b.pending = make(map[string]watcher.Event)
	b.mu.Unlock()

	fresh := index.NewState()
	if root != "" {
		fresh = b.searcher.ScanWorkspace(ctx, root)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for path, ev := range b.pending {
		if _, isOpen := b.open[path]; !isOpen {
			b.applyFileChange(ctx, fresh, ev)
		}
	}
	for path, text := range b.open {
		fs, ok := b.searcher.ScanText(text)
		if ok {
			fresh.Replace(path, fs)
		} else {
			fresh.Remove(path)
		}
	}
	b.state = fresh
	b.refreshing = false
	b.pending = nil

	b.logger.Info("workspace reindexed", "root", root, "files", fresh.Len())
	recordIndexSize(ctx, fresh.Len())
	return nil
}

// FileChanged applies a disk change reported by the watcher. Files open in
// the editor are ignored; their buffer is authoritative. A created
// directory is scanned as a whole, since the watcher reports only the
// directory itself.
func (b *Backend[S, P]) FileChanged(ctx context.Context, ev watcher.Event) {
	path := ev.Path
	ctx, done := b.begin(ctx, "FileChanged", path)

	b.mu.Lock()
	if _, isOpen := b.open[path]; isOpen {
		b.mu.Unlock()
		done(0, nil)
		return
	}
	if b.refreshing {
		if prev, ok := b.pending[path]; ok {
			ev.Op |= prev.Op
			ev.Dir = ev.Dir || prev.Dir
		}
		b.pending[path] = ev
	}
	b.applyFileChange(ctx, b.state, ev)
	n := b.state.Len()
	b.mu.Unlock()

	b.logger.Debug("file changed", "path", path, "op", ev.Op.String(), "dir", ev.Dir)
	recordIndexSize(ctx, n)
	done(n, nil)
}

// Shutdown stops the watcher. It never fails.
func (b *Backend[S, P]) Shutdown(ctx context.Context) error {
	b.stopWatcher()
	return nil
}

// Close releases background resources. It is safe to call after Shutdown.
func (b *Backend[S, P]) Close() error {
	b.stopWatcher()
	return nil
}

// IndexedPaths returns the indexed file paths in sorted order.
func (b *Backend[S, P]) IndexedPaths() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state.Paths()
}

// apply stores or drops the scan result for path. Caller holds mu.
func (b *Backend[S, P]) apply(path string, fs *index.FileState, ok bool) {
	if ok {
		b.state.Replace(path, fs)
		return
	}
	b.state.Remove(path)
}

// applyFileChange updates state from disk for ev.Path. A path that went
// away and came back, or a new directory, first loses everything indexed
// under it. Open documents keep their buffer contents. Caller holds mu.
func (b *Backend[S, P]) applyFileChange(ctx context.Context, state *index.State, ev watcher.Event) {
	path := ev.Path
	if ev.Op.Gone() || ev.Dir {
		state.Remove(path)
		state.RemoveUnder(path, string(filepath.Separator))
		defer b.restoreOpenUnder(state, path)
		if !ev.Op.Has(watcher.OpCreate) {
			return
		}
	}

	if ev.Dir {
		state.Extend(b.searcher.ScanWorkspace(ctx, path))
		return
	}
	if fs, ok := b.searcher.ScanFile(path); ok {
		state.Replace(path, fs)
		return
	}
	state.Remove(path)
}

// restoreOpenUnder reindexes the open documents below dir from their
// buffers. Caller holds mu.
func (b *Backend[S, P]) restoreOpenUnder(state *index.State, dir string) {
	prefix := dir + string(filepath.Separator)
	for path, text := range b.open {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		if fs, ok := b.searcher.ScanText(text); ok {
			state.Replace(path, fs)
		} else {
			state.Remove(path)
		}
	}
}

func (b *Backend[S, P]) indexLen() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state.Len()
}

func (b *Backend[S, P]) startWatcher(root string) error {
	b.watchMu.Lock()
	defer b.watchMu.Unlock()

	if b.watch != nil || root == "" {
		return nil
	}

	w, err := b.newWatch()
	if err != nil {
		b.logger.Warn("file watcher unavailable", "error", err)
		return nil
	}
	if err := w.WatchRecursive(root); err != nil {
		b.logger.Warn("cannot watch workspace", "root", root, "error", err)
		_ = w.Close()
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	b.watch, b.watchCancel, b.watchDone = w, cancel, done

	go func() {
		defer close(done)
		watcher.Run(ctx, w,
			func(ev watcher.Event) { b.FileChanged(ctx, ev) },
			func(err error) { b.logger.Warn("file watcher error", "error", err) },
		)
	}()

	b.logger.Info("watching workspace", "root", root, "directories", len(w.WatchedPaths()))
	return nil
}

func (b *Backend[S, P]) stopWatcher() {
	b.watchMu.Lock()
	defer b.watchMu.Unlock()

	if b.watch == nil {
		return
	}
	b.watchCancel()
	if err := b.watch.Close(); err != nil {
		b.logger.Warn("close file watcher", "error", err)
	}
	<-b.watchDone
	b.watch, b.watchCancel, b.watchDone = nil, nil, nil
}

func (b *Backend[S, P]) logClient(typ MessageType, message string) {
	if b.client == nil {
		return
	}
	if err := b.client.Notify(MethodLogMessage, LogMessageParams{Type: typ, Message: message}); err != nil {
		b.logger.Warn("send log message", "error", err)
	}
}

// begin starts the span and returns the function that ends it and records
// the operation metrics.
func (b *Backend[S, P]) begin(ctx context.Context, operation, path string) (context.Context, func(resultCnt int, err error)) {
	start := time.Now()
	ctx, span := startOperationSpan(ctx, operation, path)
	return ctx, func(resultCnt int, err error) {
		success := err == nil
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		setOperationSpanResult(span, resultCnt, success)
		span.End()
		recordOperationMetrics(ctx, operation, time.Since(start), success)
	}
}
