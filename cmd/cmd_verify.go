package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/cheggaaa/pb/v3"
	"github.com/spf13/cobra"

	"github.com/arkcheck/arkcheck/evaluate"
	"github.com/arkcheck/arkcheck/fetch"
	"github.com/arkcheck/arkcheck/harness"
	"github.com/arkcheck/arkcheck/store"
)

// openHarness - Liest den Deskriptor, laedt das Modell und initialisiert das Backend
func openHarness(ctx context.Context, cmd *cobra.Command) (*harness.Harness, error) {
	configPath, _ := cmd.Flags().GetString("config")
	backend, _ := cmd.Flags().GetString("backend")
	prefer, _ := cmd.Flags().GetString("prefer")

	cfg, err := harness.ReadModelConfig(configPath)
	if err != nil {
		return nil, err
	}

	var opts []fetch.Option
	bar := &downloadBar{}
	if showProgress() {
		opts = append(opts, fetch.WithProgress(bar.update))
	}
	h := harness.New(harness.WithFetcher(fetch.New(opts...)))

	loadStatus, err := h.Load(ctx, cfg)
	bar.finish()
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("load %s: %w", cfg.ModelFile, err)
	}

	initStatus, err := h.Init(ctx, backend, prefer)
	if err != nil {
		h.Close()
		return nil, err
	}
	slog.Debug("harness ready", "load", loadStatus, "init", initStatus)

	return h, nil
}

func addModelFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "", "Model descriptor (JSON)")
	cmd.Flags().StringP("backend", "b", "", "Backend (cpu, cuda, xnnpack)")
	cmd.Flags().StringP("prefer", "p", "", "Preference (fast, sustained, low)")
	_ = cmd.MarkFlagRequired("config")
}

// VerifyHandler - Vergleicht Model-Outputs mit Referenz-Frames
func VerifyHandler(cmd *cobra.Command, _ []string) error {
	inputs, _ := cmd.Flags().GetStringSlice("input")
	references, _ := cmd.Flags().GetStringSlice("reference")
	rows, _ := cmd.Flags().GetInt("rows")
	cols, _ := cmd.Flags().GetInt("cols")
	save, _ := cmd.Flags().GetBool("save")

	if len(inputs) == 0 {
		return errors.New("at least one --input frame is required")
	}
	if len(inputs) != len(references) {
		return fmt.Errorf("got %d input frames but %d reference frames", len(inputs), len(references))
	}

	pairs := make([]evaluate.Pair, len(inputs))
	for i := range inputs {
		pairs[i] = evaluate.Pair{Input: inputs[i], Reference: references[i]}
	}

	ctx := cmd.Context()
	h, err := openHarness(ctx, cmd)
	if err != nil {
		return err
	}
	defer h.Close()

	opts := evaluate.Options{Rows: rows, Cols: cols}
	if save {
		st := &store.Store{}
		defer st.Close()
		opts.Recorder = st
	}

	if showProgress() && len(pairs) > 1 {
		bar := pb.New(len(pairs)).SetWriter(os.Stderr).Start()
		opts.OnFrame = func(int, int, int) { bar.Increment() }
		defer bar.Finish()
	}

	res, err := evaluate.Run(ctx, h, pairs, opts)
	if err != nil {
		return err
	}

	return renderResult(cmd.OutOrStdout(), res)
}

// newVerifyCmd - Erstellt den verify Command
func newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "verify",
		Short:   "Run frames through a model and compare against reference frames",
		Example: "  arkcheck verify -c speech.json --input in0.ark,in1.ark --reference ref0.ark,ref1.ark",
		Args:    cobra.ExactArgs(0),
		RunE:    VerifyHandler,
	}

	addModelFlags(cmd)
	cmd.Flags().StringSlice("input", nil, "Input frames (.ark), path or URL")
	cmd.Flags().StringSlice("reference", nil, "Reference frames (.ark), one per input")
	cmd.Flags().Int("rows", 0, "Rows to compare per frame (default 1)")
	cmd.Flags().Int("cols", 0, "Columns to compare per frame (default whole output)")
	cmd.Flags().Bool("save", false, "Store the result in the run history")
	return cmd
}
