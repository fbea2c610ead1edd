package search

import (
	"context"
	"log/slog"
	"runtime"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/todols/internal/project/index"
	"github.com/dshills/todols/internal/project/vfs"
)

// DefaultPattern is the pattern a new Engine starts with.
const DefaultPattern = "TODO"

// Engine scans files and workspaces for keyword matches.
//
// Engine is safe for concurrent use. Recompile swaps the pattern atomically;
// a scan in flight keeps using the pattern it started with.
type Engine struct {
	fs      vfs.VFS
	logger  *slog.Logger
	workers int

	mu      sync.RWMutex
	matcher Matcher
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for skipped entries.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithWorkers bounds the number of files scanned concurrently during a
// workspace scan. Values below 1 are ignored.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithMatcher sets the initial matcher.
func WithMatcher(m Matcher) Option {
	return func(e *Engine) {
		if m != nil {
			e.matcher = m
		}
	}
}

// NewEngine creates an engine reading from fsys, matching DefaultPattern.
func NewEngine(fsys vfs.VFS, opts ...Option) *Engine {
	m, _ := CompileRegex(DefaultPattern)
	e := &Engine{
		fs:      fsys,
		logger:  slog.New(slog.DiscardHandler),
		workers: runtime.GOMAXPROCS(0),
		matcher: m,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Pattern returns the source of the current pattern.
func (e *Engine) Pattern() string {
	return e.currentMatcher().String()
}

// Recompile replaces the pattern with the alternation of keywords. Keywords
// are used as regular expressions verbatim. On error the previous pattern
// stays in effect.
func (e *Engine) Recompile(keywords []string) error {
	if len(keywords) == 0 {
		return &InvalidRegexError{Reason: "cannot build a pattern from an empty keyword list"}
	}

	sorted := make([]string, len(keywords))
	copy(sorted, keywords)
	sort.Strings(sorted)

	m, err := CompileRegex(strings.Join(sorted, "|"))
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.matcher = m
	e.mu.Unlock()
	return nil
}

func (e *Engine) currentMatcher() Matcher {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.matcher
}

// ScanText scans a text buffer. It returns false when the text has no
// matches.
func (e *Engine) ScanText(text string) (*index.FileState, bool) {
	return scanContent(e.currentMatcher(), []byte(text))
}

// ScanFile reads and scans the file at path. Unreadable files report no
// matches.
func (e *Engine) ScanFile(path string) (*index.FileState, bool) {
	content, err := e.fs.ReadFile(path)
	if err != nil {
		e.logger.Debug("skipping unreadable file", "path", path, "error", err)
		return nil, false
	}
	return scanContent(e.currentMatcher(), content)
}

// ScanWorkspace walks root and scans every file not excluded by ShouldSkip.
// Unreadable directories and files are skipped. Cancelling ctx stops new
// files from being scheduled; files already scanned are kept.
func (e *Engine) ScanWorkspace(ctx context.Context, root string) *index.State {
	state := index.NewState()
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	e.walk(gctx, g, root, func(path string, fs *index.FileState) {
		mu.Lock()
		state.Replace(path, fs)
		mu.Unlock()
	})

	_ = g.Wait()
	return state
}

func (e *Engine) walk(ctx context.Context, g *errgroup.Group, dir string, add func(string, *index.FileState)) {
	entries, err := e.fs.ReadDir(dir)
	if err != nil {
		e.logger.Debug("skipping unreadable directory", "path", dir, "error", err)
		return
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}
		if ShouldSkip(entry.Name()) || entry.IsSymlink() {
			continue
		}

		path := entry.Path()
		if entry.IsDir() {
			e.walk(ctx, g, path, add)
			continue
		}

		g.Go(func() error {
			if fs, ok := e.ScanFile(path); ok {
				add(path, fs)
			}
			return nil
		})
	}
}

// scanContent indexes every line of content against m.
func scanContent(m Matcher, content []byte) (*index.FileState, bool) {
	if m == nil {
		return nil, false
	}

	rows := make(map[index.Row]index.RowMatches)
	for i, line := range splitLines(content) {
		body := trimTerminator(line)
		locs := m.FindAllIndex(body)
		if len(locs) == 0 {
			continue
		}

		matches := make([]index.Match, 0, len(locs))
		for _, loc := range locs {
			if loc[0] == loc[1] {
				// Empty matches have nothing to color.
				continue
			}
			matches = append(matches, index.Match{
				Column:  index.Column(utf16Len(body[:loc[0]])),
				Keyword: string(body[loc[0]:loc[1]]),
			})
		}
		if len(matches) == 0 {
			continue
		}

		rows[index.Row(i)] = index.RowMatches{
			Meta:    index.NewRowMetadata(utf16Len(line), FirstNonWhitespace(line)),
			Matches: matches,
		}
	}
	return index.NewFileState(rows)
}
