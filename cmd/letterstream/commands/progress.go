// ABOUTME: CLI commands to inspect and reset per-session letter progress
// ABOUTME: Reads and writes the same progress keys the proxy uses
package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harper/letterstream/internal/kv"
	"github.com/harper/letterstream/internal/progress"
)

// NewProgressCmd creates the progress command group
func NewProgressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Inspect and reset letter-reading progress",
		Long: `Inspect and reset per-session letter-reading progress.

Each session has a cursor recording the last chunk read and the
collection size at the time of reading. Resetting a session makes the
next letter request start from chunk 1 again.

Examples:
  letterstream progress show family-42
  letterstream progress reset family-42`,
	}

	cmd.AddCommand(newProgressShowCmd())
	cmd.AddCommand(newProgressResetCmd())

	return cmd
}

func newProgressShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [session-id]",
		Short: "Show a session's progress, or all sessions",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runProgressShow,
	}
}

func newProgressResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <session-id>",
		Short: "Reset a session back to chunk 1",
		Args:  cobra.ExactArgs(1),
		RunE:  runProgressReset,
	}
}

func runProgressShow(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	tracker := progress.NewTracker(store)

	if len(args) == 1 {
		p, err := tracker.Load(args[0])
		if err != nil {
			return fmt.Errorf("loading progress: %w", err)
		}
		if p == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "No progress for session %s\n", args[0])
			return nil
		}
		printProgress(cmd, args[0], p)
		return nil
	}

	keys, err := store.Keys(kv.ProgressPrefix)
	if err != nil {
		return fmt.Errorf("listing progress keys: %w", err)
	}
	if len(keys) == 0 {
		if !quiet {
			fmt.Fprintln(cmd.OutOrStdout(), "No sessions with progress")
		}
		return nil
	}
	for _, key := range keys {
		sessionID := key[len(kv.ProgressPrefix):]
		p, err := tracker.Load(sessionID)
		if err != nil || p == nil {
			continue
		}
		printProgress(cmd, sessionID, p)
	}
	return nil
}

func printProgress(cmd *cobra.Command, sessionID string, p *progress.Progress) {
	if outputFormat == "json" {
		data, _ := json.MarshalIndent(map[string]any{
			"sessionId":   sessionID,
			"lastChunk":   p.LastChunk,
			"totalChunks": p.TotalChunks,
			"updatedAt":   p.UpdatedAt,
		}, "", "  ")
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", data)
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: chunk %d of %d (updated %s)\n",
		sessionID, p.LastChunk, p.TotalChunks, formatTime(p.UpdatedAt))
}

func runProgressReset(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := progress.NewTracker(store).Reset(args[0]); err != nil {
		return fmt.Errorf("resetting progress: %w", err)
	}
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "Progress reset for session %s\n", args[0])
	}
	return nil
}
