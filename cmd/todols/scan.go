package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dshills/todols/internal/config"
	"github.com/dshills/todols/internal/logging"
	"github.com/dshills/todols/internal/project/index"
	"github.com/dshills/todols/internal/project/search"
	"github.com/dshills/todols/internal/project/vfs"
)

func scanCmd(opts *globalOptions) *cobra.Command {
	var keywords []string

	cmd := &cobra.Command{
		Use:   "scan [dir]",
		Short: "Print every keyword match in a directory",
		Long: `Scan walks a directory the way the server indexes a workspace and prints
one line per match as path:line:column: keyword, with 1-based positions.

Keywords default to the settings file highlights table, or TODO.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(cmd, opts)
			if err != nil {
				return err
			}

			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}

			if len(keywords) == 0 {
				palette, err := settings.Palette()
				if err != nil {
					return err
				}
				keywords = config.Config{Highlights: palette}.Keywords()
			}

			logger, err := logging.New(logging.Options{
				Level:  settings.LogLevel,
				File:   settings.LogFile,
				Output: cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}
			defer logger.Close()

			fsys := vfs.NewOSFS()
			root, err := fsys.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolve %s: %w", dir, err)
			}
			if _, err := fsys.Stat(root); err != nil {
				return fmt.Errorf("scan %s: %w", dir, err)
			}

			engine := search.NewEngine(fsys,
				search.WithLogger(logging.WithComponent(logger.Logger, "search")),
				search.WithWorkers(settings.ScanWorkers),
			)
			if err := engine.Recompile(keywords); err != nil {
				return err
			}

			state := engine.ScanWorkspace(cmd.Context(), root)
			matches, err := printState(cmd.OutOrStdout(), state)
			if err != nil {
				return err
			}
			logger.Info("scan complete", "root", root, "files", state.Len(), "matches", matches)
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&keywords, "keyword", "k", nil, "Keyword to search for (repeatable)")
	return cmd
}

// printState writes one line per match in path, row and column order and
// returns the number of matches.
func printState(w io.Writer, state *index.State) (int, error) {
	total := 0
	for _, path := range state.Paths() {
		fs, _ := state.Get(path)
		for _, row := range fs.Rows() {
			rm, _ := fs.Row(row)
			for _, m := range rm.Matches {
				if _, err := fmt.Fprintf(w, "%s:%d:%d: %s\n", path, int(row)+1, int(m.Column)+1, m.Keyword); err != nil {
					return total, err
				}
			}
		}
		total += fs.MatchCount()
	}
	return total, nil
}
