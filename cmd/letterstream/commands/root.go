// ABOUTME: Root CLI command with global flags and subcommand registration
// ABOUTME: Entry point for the letterstream ops CLI
package commands

import (
	"github.com/spf13/cobra"
)

var (
	verbose      bool
	quiet        bool
	outputFormat string
)

const banner = `
██╗     ███████╗████████╗████████╗███████╗██████╗
██║     ██╔════╝╚══██╔══╝╚══██╔══╝██╔════╝██╔══██╗
██║     █████╗     ██║      ██║   █████╗  ██████╔╝
██║     ██╔══╝     ██║      ██║   ██╔══╝  ██╔══██╗
███████╗███████╗   ██║      ██║   ███████╗██║  ██║
╚══════╝╚══════╝   ╚═╝      ╚═╝   ╚══════╝╚═╝  ╚═╝
`

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "letterstream",
		Short: "Operate the letterstream proxy's session state",
		Long: banner + `
Letterstream ops CLI.

Inspect and manage the proxy's durable state: per-session letter
progress, the letter chunk collection, and the response cache.

State lives in the same Charm KV store the server uses, so commands
here act on the live system.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-essential output")
	cmd.PersistentFlags().StringVar(&outputFormat, "format", "auto", "Output format (auto, json, table)")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddCommand(NewProgressCmd())
	cmd.AddCommand(NewChunksCmd())
	cmd.AddCommand(NewCacheCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}
