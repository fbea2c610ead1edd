// Package main is the entry point for the todols language server.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/todols/internal/config"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// globalOptions are the flags shared by every command. Flags that were set
// explicitly override the settings file and the environment.
type globalOptions struct {
	configPath    string
	logLevel      string
	logFile       string
	traceExporter string
	metricsAddr   string
	workers       int
	noWatch       bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	exitCode := 0
	root := newRootCmd(stdin, stdout, stderr, &exitCode)
	root.SetArgs(args)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if exitCode == 0 {
			exitCode = 1
		}
	}
	return exitCode
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer, exitCode *int) *cobra.Command {
	opts := &globalOptions{}

	serve := serveCmd(opts, stdin, stdout, stderr, exitCode)

	rootCmd := &cobra.Command{
		Use:   "todols",
		Short: "Language server that highlights TODO-style keywords",
		Long: `todols indexes keyword comments such as TODO and FIXME across a workspace
and paints them through the LSP documentColor request.

Run without a subcommand to serve the Language Server Protocol on stdio.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Path to a settings file (.toml, .yaml or .json)")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFile, "log-file", "", "Write logs to this file instead of stderr")
	flags.StringVar(&opts.traceExporter, "trace-exporter", config.TraceExporterNone, "Trace exporter (none, stdout, otlp)")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	flags.IntVar(&opts.workers, "workers", 0, "Concurrent file scans (0 means one per CPU)")
	flags.BoolVar(&opts.noWatch, "no-watch", false, "Do not watch the workspace for changes on disk")

	rootCmd.AddCommand(serve)
	rootCmd.AddCommand(scanCmd(opts))
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

// loadSettings merges the settings file, the environment and the flags set
// on cmd, in increasing priority.
func loadSettings(cmd *cobra.Command, opts *globalOptions) (config.Settings, error) {
	settings, err := config.LoadSettings(opts.configPath)
	if err != nil {
		return config.Settings{}, err
	}
	settings.ApplyEnv()

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		settings.LogLevel = opts.logLevel
	}
	if flags.Changed("log-file") {
		settings.LogFile = opts.logFile
	}
	if flags.Changed("trace-exporter") {
		settings.TraceExporter = opts.traceExporter
	}
	if flags.Changed("metrics-addr") {
		settings.MetricsAddr = opts.metricsAddr
	}
	if flags.Changed("workers") {
		settings.ScanWorkers = opts.workers
	}
	if flags.Changed("no-watch") {
		settings.Watch = !opts.noWatch
	}

	// Validate log level
	switch settings.LogLevel {
	case "debug", "info", "warn", "error":
		// Valid
	default:
		return config.Settings{}, fmt.Errorf("invalid log level %q (must be debug, info, warn, or error)", settings.LogLevel)
	}

	if err := settings.Validate(); err != nil {
		return config.Settings{}, err
	}
	return settings, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "todols %s\n", version)
			fmt.Fprintf(out, "Commit: %s\n", commit)
			fmt.Fprintf(out, "Built: %s\n", date)
		},
	}
}
