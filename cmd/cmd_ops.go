package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arkcheck/arkcheck/fetch"
	"github.com/arkcheck/arkcheck/harness"
)

// OpsHandler - Zeigt die Operationen des Modells und des Backends
func OpsHandler(cmd *cobra.Command, _ []string) error {
	modelOnly, _ := cmd.Flags().GetBool("model-only")
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if modelOnly {
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := harness.ReadModelConfig(configPath)
		if err != nil {
			return err
		}

		h := harness.New(harness.WithFetcher(fetch.New()))
		defer h.Close()
		if _, err := h.Load(ctx, cfg); err != nil {
			return err
		}

		raw := h.RawModel()
		fmt.Fprintf(out, "%s model %s\n\n", raw.Format(), cfg.ModelFile)
		renderOps(out, raw.Ops(), raw.OpCounts())
		return nil
	}

	h, err := openHarness(ctx, cmd)
	if err != nil {
		return err
	}
	defer h.Close()

	raw := h.RawModel()
	backend, prefer := h.Backend()
	fmt.Fprintf(out, "%s model %s on %s/%s\n\n", raw.Format(), h.Config().ModelFile, backend, prefer)

	ops, err := h.RequiredOps(ctx)
	if err != nil {
		return err
	}
	renderOps(out, ops, raw.OpCounts())

	if subgraphs := h.SubgraphsSummary(); len(subgraphs) > 0 {
		fmt.Fprintln(out)
		for _, s := range subgraphs {
			fmt.Fprintln(out, s)
		}
	}
	return nil
}

// newOpsCmd - Erstellt den ops Command
func newOpsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ops",
		Short: "Show the operations a model needs from its backend",
		Args:  cobra.ExactArgs(0),
		RunE:  OpsHandler,
	}

	addModelFlags(cmd)
	cmd.Flags().Bool("model-only", false, "Only decode the model, do not initialize a backend")
	return cmd
}
