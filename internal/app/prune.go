package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/btrbak/internal/store"
)

var (
	pruneSide   string
	pruneDryRun bool

	pruneCmd = &cobra.Command{
		Use:   "prune",
		Short: "Prune snapshots outside the retention policies",
		Long: `Apply the retention policies without taking or sending a snapshot.
Snapshots whose age falls outside their side's policy are deleted; every
retention bucket keeps its one survivor.`,
		Example: `  # Prune both sides
  btrbak prune

  # Show what would be deleted
  btrbak prune --dry-run

  # Prune only the local snapshot directory
  btrbak prune --side local`,
		RunE: runPrune,
	}
)

func init() {
	pruneCmd.Flags().StringVar(&pruneSide, "side", "both", "which side to prune: local, remote or both")
	pruneCmd.Flags().BoolVar(&pruneDryRun, "dry-run", false, "list snapshots that would be deleted without deleting them")
}

func pruneSides(side string) ([]string, error) {
	switch side {
	case "local":
		return []string{store.SideLocal}, nil
	case "remote":
		return []string{store.SideRemote}, nil
	case "both":
		return []string{store.SideLocal, store.SideRemote}, nil
	default:
		return nil, fmt.Errorf("invalid --side %q: must be local, remote or both", side)
	}
}

func runPrune(cmd *cobra.Command, args []string) error {
	sides, err := pruneSides(pruneSide)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	runner := newRunner(cfg, st)
	runner.DryRun = pruneDryRun

	var runID int64
	if !pruneDryRun {
		runID, err = st.BeginRun(runner.Now())
		if err != nil {
			return err
		}
	}

	var pruneErr error
	total := 0
	for _, side := range sides {
		pruned, err := runner.Police(side, "", runID)
		if err != nil && pruneErr == nil {
			pruneErr = err
		}
		total += len(pruned)

		for _, path := range pruned {
			if pruneDryRun {
				fmt.Fprintf(cmd.OutOrStdout(), "would delete %s (%s)\n", path, side)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s (%s)\n", path, side)
			}
		}
	}

	if !pruneDryRun {
		if err := st.FinishRun(runID, runner.Now(), pruneErr); err != nil && pruneErr == nil {
			pruneErr = err
		}
	}

	if total == 0 && pruneErr == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "Nothing to prune.")
	}
	return pruneErr
}
