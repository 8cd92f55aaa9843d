package cmd

import (
	"github.com/spf13/cobra"

	"github.com/arkcheck/arkcheck/store"
)

// RunsHandler - Listet die gespeicherten Auswertungen
func RunsHandler(cmd *cobra.Command, _ []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	st := &store.Store{}
	defer st.Close()

	runs, err := st.Runs(limit)
	if err != nil {
		return err
	}

	renderRuns(cmd.OutOrStdout(), runs)
	return nil
}

// DeleteRunHandler - Loescht gespeicherte Auswertungen
func DeleteRunHandler(cmd *cobra.Command, args []string) error {
	st := &store.Store{}
	defer st.Close()

	for _, id := range args {
		if err := st.DeleteRun(id); err != nil {
			return err
		}
		cmd.Printf("deleted '%s'\n", id)
	}
	return nil
}

// newRunsCmd - Erstellt den runs Command
func newRunsCmd() *cobra.Command {
	runsCmd := &cobra.Command{
		Use:     "runs",
		Aliases: []string{"history"},
		Short:   "List stored evaluation runs",
		Args:    cobra.ExactArgs(0),
		RunE:    RunsHandler,
	}
	runsCmd.Flags().Int("limit", 20, "Maximum number of runs (0 = all)")

	runsCmd.AddCommand(&cobra.Command{
		Use:   "rm RUN [RUN...]",
		Short: "Delete stored runs",
		Args:  cobra.MinimumNArgs(1),
		RunE:  DeleteRunHandler,
	})
	return runsCmd
}
