package app

import (
	"github.com/spf13/cobra"
)

var (
	configPath string
	dbPath     string
	verbose    bool

	// RootCmd is the root command for btrbak
	RootCmd = &cobra.Command{
		Use:   "btrbak",
		Short: "Incremental btrfs subvolume backup with tiered retention",
		Long: `btrbak backs up btrfs subvolumes by taking periodic read-only
snapshots, sending them incrementally to a remote host over SSH, and
pruning old snapshots on both sides under a tiered retention policy.

Snapshots are named <RFC3339 timestamp>_<suffix>. Incremental transfers
reuse the newest snapshot both sides still share as the parent, so only
changed blocks cross the wire.

Configuration is a single JSON file, found through --config, the
BTRBAK_CONFIG environment variable, or ~/.config/btrbak/config.json.

Examples:
  # One full backup cycle: snapshot, send, prune both sides
  btrbak run

  # Take a local snapshot without sending it
  btrbak snapshot

  # See what pruning would delete
  btrbak prune --dry-run

  # Prune only the remote side
  btrbak prune --side remote

  # Run history and recently pruned snapshots
  btrbak status

  # Unattended cycles every six hours
  btrbak daemon --interval 6h`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	// Global flags
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "configuration file (default: $BTRBAK_CONFIG or ~/.config/btrbak/config.json)")
	RootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "run history database path (default: ~/.btrbak/btrbak.db)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	// Enable cobra's built-in suggestion feature for unknown subcommands
	RootCmd.SuggestionsMinimumDistance = 2

	// Register subcommands
	RootCmd.AddCommand(runCmd)
	RootCmd.AddCommand(snapshotCmd)
	RootCmd.AddCommand(pruneCmd)
	RootCmd.AddCommand(statusCmd)
	RootCmd.AddCommand(daemonCmd)
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}
