package app

import (
	"fmt"

	"github.com/spf13/cobra"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Take a local snapshot without sending it",
	Long: `Create a read-only snapshot of the configured source subvolume in the
snapshot directory. Nothing is transferred and nothing is pruned.`,
	Example: `  btrbak snapshot`,
	RunE:    runSnapshot,
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	runner := newRunner(cfg, nil)
	info, err := runner.CreateSnapshot()
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created snapshot %s\n", info.FsPath)
	return nil
}
