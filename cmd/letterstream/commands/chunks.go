// ABOUTME: CLI commands for the letter chunk collection
// ABOUTME: Lists the cached collection and reloads it from the origin
package commands

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/harper/letterstream/internal/chunks"
	"github.com/harper/letterstream/internal/config"
)

// NewChunksCmd creates the chunks command group
func NewChunksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chunks",
		Short: "Manage the letter chunk collection",
		Long: `Manage the cached letter chunk collection.

The proxy serves letter content from a chunk collection cached in the
KV store. "list" shows what is cached; "reload" fetches a fresh copy
from the configured origin and replaces the cache.

Examples:
  letterstream chunks list
  letterstream chunks reload`,
	}

	cmd.AddCommand(newChunksListCmd())
	cmd.AddCommand(newChunksReloadCmd())

	return cmd
}

func newChunksListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the cached chunk collection",
		RunE:  runChunksList,
	}
}

func newChunksReloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Fetch the collection from the origin and replace the cache",
		RunE:  runChunksReload,
	}
}

func runChunksList(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	loader := chunks.NewLoader(store, cfg.ChunkOriginURL, cfg.OriginRetries, cfg.RetryDelay)
	collection, err := loader.Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("loading chunks: %w", err)
	}
	return printChunks(cmd, collection)
}

func runChunksReload(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if cfg.ChunkOriginURL == "" {
		return fmt.Errorf("CHUNK_ORIGIN_URL is not configured")
	}

	loader := chunks.NewLoader(store, cfg.ChunkOriginURL, cfg.OriginRetries, cfg.RetryDelay)
	collection, err := loader.Reload(cmd.Context())
	if err != nil {
		return fmt.Errorf("reloading chunks: %w", err)
	}
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "Reloaded %d chunks from %s\n", len(collection), cfg.ChunkOriginURL)
	}
	return printChunks(cmd, collection)
}

func printChunks(cmd *cobra.Command, collection []chunks.Chunk) error {
	if len(collection) == 0 {
		if !quiet {
			fmt.Fprintln(cmd.OutOrStdout(), "No chunks cached")
		}
		return nil
	}

	if outputFormat == "json" {
		data, err := json.MarshalIndent(collection, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", data)
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "CHUNK\tSTYLE\tTEXT\n")
	for _, c := range collection {
		fmt.Fprintf(w, "%d\t%s\t%s\n", c.ChunkNumber, c.StyleHint, truncate(c.Text, 60))
	}
	return w.Flush()
}
