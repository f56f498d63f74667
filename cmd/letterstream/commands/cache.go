// ABOUTME: CLI command to summarize the response cache
// ABOUTME: Counts entries, hits, and expired records across cache keys
package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harper/letterstream/internal/cache"
)

// NewCacheCmd creates the cache command group
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the response cache",
		Long: `Inspect the content-addressed response cache.

Expired entries stay in the store until overwritten; "stats" counts
them separately so the numbers explain what a request will actually
hit.

Examples:
  letterstream cache stats
  letterstream cache stats --format json`,
	}

	cmd.AddCommand(newCacheStatsCmd())

	return cmd
}

func newCacheStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache entry and hit counts",
		RunE:  runCacheStats,
	}
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	stats, err := cache.New(store).Stats()
	if err != nil {
		return fmt.Errorf("collecting cache stats: %w", err)
	}

	if outputFormat == "json" {
		data, err := json.MarshalIndent(map[string]int{
			"entries":   stats.Entries,
			"totalHits": stats.TotalHits,
			"expired":   stats.Expired,
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", data)
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Entries: %d\n", stats.Entries)
	fmt.Fprintf(cmd.OutOrStdout(), "Hits:    %d\n", stats.TotalHits)
	fmt.Fprintf(cmd.OutOrStdout(), "Expired: %d\n", stats.Expired)
	return nil
}
