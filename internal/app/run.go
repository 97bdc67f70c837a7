package app

import (
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/btrbak/internal/output"
	"github.com/blackwell-systems/btrbak/internal/store"
)

var (
	runDryRun bool

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Execute one full backup cycle",
		Long: `Run a complete backup cycle: take a read-only snapshot of the source
subvolume, send it to the backup host (incrementally when a common
parent exists), then prune both sides against their retention policies.

The cycle is recorded in the run history shown by 'btrbak status'.
With --dry-run nothing is created, sent, or deleted, and no history
is recorded; every step only logs what it would have done.`,
		Example: `  # One backup cycle
  btrbak run

  # Walk the cycle without touching anything
  btrbak run --dry-run`,
		RunE: runRun,
	}
)

func init() {
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "log actions without creating, sending, or deleting anything")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Dry runs leave the run history untouched.
	var st *store.Store
	if !runDryRun {
		st, err = openStore()
		if err != nil {
			return err
		}
		defer st.Close()
	}

	runner := newRunner(cfg, st)
	runner.DryRun = runDryRun

	spinner := output.NewSpinner("Running backup cycle").WithElapsed()
	spinner.Start()
	err = runner.Run()
	spinner.Stop()

	return err
}
