package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/todols/internal/config"
	"github.com/dshills/todols/internal/highlight"
	"github.com/dshills/todols/internal/logging"
	"github.com/dshills/todols/internal/lsp"
	"github.com/dshills/todols/internal/project/search"
	"github.com/dshills/todols/internal/project/vfs"
	"github.com/dshills/todols/internal/project/watcher"
	"github.com/dshills/todols/internal/telemetry"
)

func serveCmd(opts *globalOptions, stdin io.Reader, stdout, stderr io.Writer, exitCode *int) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the Language Server Protocol on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(cmd, opts)
			if err != nil {
				return err
			}
			code, err := serve(cmd.Context(), settings, stdin, stdout, stderr)
			*exitCode = code
			return err
		},
	}
}

// serve runs the language server until the client exits or the input ends.
func serve(ctx context.Context, settings config.Settings, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
	logger, err := logging.New(logging.Options{
		Level:  settings.LogLevel,
		File:   settings.LogFile,
		Output: stderr,
	})
	if err != nil {
		return 1, err
	}
	defer logger.Close()

	tel, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    "todols",
		ServiceVersion: version,
		TraceExporter:  settings.TraceExporter,
		Metrics:        settings.MetricsAddr != "",
		TraceOutput:    stderr,
	})
	if err != nil {
		return 1, err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown", "error", err)
		}
	}()

	if settings.MetricsAddr != "" {
		addr, err := telemetry.ServeMetrics(ctx, settings.MetricsAddr, tel.MetricsHandler(), logging.WithComponent(logger.Logger, "metrics"))
		if err != nil {
			return 1, err
		}
		logger.Info("serving metrics", "addr", addr.String())
	}

	defaults, err := settings.Palette()
	if err != nil {
		return 1, err
	}
	debounce, err := settings.Debounce()
	if err != nil {
		return 1, err
	}

	engine := search.NewEngine(vfs.NewOSFS(),
		search.WithLogger(logging.WithComponent(logger.Logger, "search")),
		search.WithWorkers(settings.ScanWorkers),
	)

	server := lsp.NewServer(lsp.NewTransport(stdin, stdout), logging.WithComponent(logger.Logger, "server"))

	var newWatcher lsp.WatcherFactory
	if settings.Watch {
		newWatcher = func() (watcher.Watcher, error) {
			w, err := watcher.NewFSNotifyWatcher(watcher.WithSkip(search.ShouldSkip))
			if err != nil {
				return nil, fmt.Errorf("create watcher: %w", err)
			}
			return watcher.NewDebouncedWatcher(w, debounce), nil
		}
	}

	backend := lsp.NewBackend(engine, highlight.NewColorProvider(nil), server, lsp.Options{
		Version:  version,
		Defaults: defaults,
		Logger:   logging.WithComponent(logger.Logger, "backend"),
		Watcher:  newWatcher,
	})
	defer backend.Close()
	lsp.Register(server, backend)

	logger.Info("server starting", "version", version, "pattern", engine.Pattern(), "watch", settings.Watch)
	code, err := server.Serve(ctx)
	logger.Info("server stopped", "exit_code", code)
	return code, err
}
