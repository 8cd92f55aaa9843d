package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/arkcheck/arkcheck/evaluate"
	"github.com/arkcheck/arkcheck/store"
)

func newTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	return table
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

// renderResult - Gibt den Vergleich mit der Referenz als Tabelle aus
func renderResult(w io.Writer, res *evaluate.Result) error {
	r := res.Report

	fmt.Fprintf(w, "run %s\n", res.ID)
	fmt.Fprintf(w, "model %s (%s/%s)\n\n", res.Model, res.Backend, res.Prefer)

	table := newTable(w)
	table.SetHeader([]string{"METRIC", "VALUE"})
	table.AppendBulk([][]string{
		{"frames", strconv.Itoa(r.Frames)},
		{"scores", strconv.Itoa(r.NumScores)},
		{"errors", strconv.Itoa(r.NumErrors)},
		{"max error", formatFloat(r.MaxError)},
		{"avg error", formatFloat(r.AvgError)},
		{"avg rms error", formatFloat(r.AvgRMS)},
		{"stdev error", formatFloat(r.StdDev)},
		{"max rel error", formatFloat(r.MaxRelError)},
		{"avg rel error", formatFloat(r.AvgRelError)},
		{"rms p50", formatFloat(res.RMSSpread.P50)},
		{"rms p95", formatFloat(res.RMSSpread.P95)},
		{"latency mean", fmt.Sprintf("%.2f ms", res.Latency.Mean)},
		{"latency p95", fmt.Sprintf("%.2f ms", res.Latency.P95)},
	})
	table.Render()
	return nil
}

// renderRuns - Listet gespeicherte Runs
func renderRuns(w io.Writer, runs []store.Run) {
	var data [][]string
	for _, r := range runs {
		data = append(data, []string{
			r.ID[:min(8, len(r.ID))],
			r.Model,
			r.Backend + "/" + r.Prefer,
			strconv.Itoa(r.Report.Frames),
			strconv.Itoa(r.Report.NumErrors),
			formatFloat(r.Report.AvgRMS),
			fmt.Sprintf("%.2f", r.LatencyMeanMS),
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
		})
	}

	table := newTable(w)
	table.SetHeader([]string{"ID", "MODEL", "BACKEND", "FRAMES", "ERRORS", "AVG RMS", "MS", "CREATED"})
	table.AppendBulk(data)
	table.Render()
}

// renderOps - Listet Operationen mit Anzahl
func renderOps(w io.Writer, ops []string, counts map[string]int) {
	table := newTable(w)
	table.SetHeader([]string{"OPERATION", "COUNT"})
	for _, op := range ops {
		count := "-"
		if n, ok := counts[op]; ok {
			count = strconv.Itoa(n)
		}
		table.Append([]string{op, count})
	}
	table.Render()
}
