package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/btrbak/internal/output"
)

var (
	statusLimit int

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show run history and recently pruned snapshots",
		Long: `Display the recorded backup runs, newest first, followed by the
snapshots pruned during those runs.`,
		Example: `  btrbak status

  # Only the last three runs
  btrbak status --limit 3`,
		RunE: runStatus,
	}
)

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 10, "number of runs and pruned snapshots to show")
}

func runStatus(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(statusLimit)
	if err != nil {
		return err
	}
	pruned, err := st.ListPruned(statusLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, output.RenderRunTable(runs))
	fmt.Fprintln(out)
	fmt.Fprint(out, output.RenderPrunedTable(pruned))
	return nil
}
