package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/anthropic/engram/internal/config"
	"github.com/anthropic/engram/internal/engine"
	"github.com/anthropic/engram/internal/engramfs"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "engram",
		Short: "On-demand coupled-file risk analysis from git history",
		Long:  "engram analyzes a repository's commit history to surface files that tend to change together with a target file, scores how risky that coupling is, and attaches any notes or test coverage already on record for them.",
	}

	var repoRoot string
	var compact bool
	rootCmd.PersistentFlags().StringVar(&repoRoot, "repo", "", "Repository root (default: current directory)")
	rootCmd.PersistentFlags().BoolVar(&compact, "compact", false, "Emit compact (non-indented) JSON regardless of terminal")

	rootCmd.AddCommand(analyzeCmd(&repoRoot, &compact))
	rootCmd.AddCommand(noteCmd(&repoRoot, &compact))
	rootCmd.AddCommand(metricsCmd(&repoRoot, &compact))
	rootCmd.AddCommand(watchCmd(&repoRoot))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// printJSON writes v to stdout as the canonical result document
// (spec.md §6's stdout/stderr contract: diagnostics go to stderr via
// the coordinator's logger, stdout carries exactly one JSON value).
// Output is indented when stdout is a terminal, compact otherwise (or
// when --compact forces it), so piping into jq or a file gets the
// same dense form either way.
func printJSON(v any, compact bool) error {
	enc := json.NewEncoder(os.Stdout)
	if !compact && (isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())) {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

func resolveRepoRoot(repoRoot string) (string, error) {
	if repoRoot != "" {
		return filepath.Abs(repoRoot)
	}
	return os.Getwd()
}

func openCoordinator(repoRoot string) (*engine.Coordinator, string, error) {
	root, err := resolveRepoRoot(repoRoot)
	if err != nil {
		return nil, "", fmt.Errorf("resolve repository root: %w", err)
	}

	cfgPath := filepath.Join(root, engramfs.DirName, "config.json")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, "", fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	coord, err := engine.Open(root, cfg, logger)
	if err != nil {
		return nil, "", fmt.Errorf("open engram database: %w", err)
	}
	return coord, root, nil
}

func analyzeCmd(repoRoot *string, compact *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <path>",
		Short: "Show files coupled to a target file, scored by risk",
		Long: `Analyze a target file's git history for other files that tend to
change alongside it, score the coupling, and attach any notes or
discoverable test coverage already on record.

The underlying commit index is brought up to date on demand; engram
never requires a separate indexing step or a background daemon.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, _, err := openCoordinator(*repoRoot)
			if err != nil {
				return err
			}
			defer coord.Close()

			result, err := coord.Analyze(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("analyze %s: %w", args[0], err)
			}
			return printJSON(result, *compact)
		},
	}
}

func noteCmd(repoRoot *string, compact *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "note",
		Short: "Add, search, or list notes attached to files",
	}
	cmd.AddCommand(noteAddCmd(repoRoot, compact))
	cmd.AddCommand(noteSearchCmd(repoRoot, compact))
	cmd.AddCommand(noteListCmd(repoRoot, compact))
	return cmd
}

func noteAddCmd(repoRoot *string, compact *bool) *cobra.Command {
	var symbol string

	cmd := &cobra.Command{
		Use:   "add <path> <content>",
		Short: "Attach a note to a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, _, err := openCoordinator(*repoRoot)
			if err != nil {
				return err
			}
			defer coord.Close()

			resp, err := coord.AddNote(args[0], symbol, args[1])
			if err != nil {
				return fmt.Errorf("add note: %w", err)
			}
			return printJSON(resp, *compact)
		},
	}
	cmd.Flags().StringVar(&symbol, "symbol", "", "Symbol (function/type) the note refers to")
	return cmd
}

func noteSearchCmd(repoRoot *string, compact *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search notes by content or path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, _, err := openCoordinator(*repoRoot)
			if err != nil {
				return err
			}
			defer coord.Close()

			resp, err := coord.SearchNotes(args[0])
			if err != nil {
				return fmt.Errorf("search notes: %w", err)
			}
			return printJSON(resp, *compact)
		},
	}
}

func noteListCmd(repoRoot *string, compact *bool) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notes, optionally scoped to a path",
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, _, err := openCoordinator(*repoRoot)
			if err != nil {
				return err
			}
			defer coord.Close()

			resp, err := coord.ListNotes(path)
			if err != nil {
				return fmt.Errorf("list notes: %w", err)
			}
			return printJSON(resp, *compact)
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "Scope to a single file path")
	return cmd
}

func metricsCmd(repoRoot *string, compact *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Show aggregated telemetry for this repository",
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, _, err := openCoordinator(*repoRoot)
			if err != nil {
				return err
			}
			defer coord.Close()

			summary, err := coord.MetricsSummary()
			if err != nil {
				return fmt.Errorf("metrics summary: %w", err)
			}
			return printJSON(summary, *compact)
		},
	}
}

func watchCmd(repoRoot *string) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Keep the commit index warm as new commits land",
		Long: `Watch the repository's .git directory and reindex in the background
whenever new commits appear, so a subsequent analyze call is more
likely to find the index already fresh.

Runs until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, root, err := openCoordinator(*repoRoot)
			if err != nil {
				return err
			}
			defer coord.Close()

			cancel, err := coord.WatchAndBackfill()
			if err != nil {
				return fmt.Errorf("start watcher: %w", err)
			}
			defer cancel()

			fmt.Fprintf(os.Stderr, "watching %s for new commits (ctrl-c to stop)\n", root)
			<-cmd.Context().Done()
			return nil
		},
	}
}
