// MODUL: evaluate
// ZWECK: Auswertung ueber mehrere (Input, Referenz)-Frames eines Modells
// INPUT: Harness im Zustand Initialized, Frame-Paare, Zeilen/Spalten
// OUTPUT: Result mit Run-ID, Latenzen, Report und RMS-Verteilung
// NEBENEFFEKTE: optional Speicherung ueber Recorder (store)
// ABHAENGIGKEITEN: harness, accuracy, store, uuid, gonum/stat

package evaluate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/arkcheck/arkcheck/accuracy"
	"github.com/arkcheck/arkcheck/harness"
	"github.com/arkcheck/arkcheck/importer"
	"github.com/arkcheck/arkcheck/store"
)

var ErrNoFrames = errors.New("evaluate: no frame pairs")

// Pair ist ein Input-Frame mit seiner Referenz
type Pair struct {
	Input     string `json:"input"`
	Reference string `json:"reference"`
}

// Harness ist der Teil von harness.Harness, den eine Auswertung braucht
type Harness interface {
	Predict(ctx context.Context, source string) (*harness.Prediction, error)
	LoadReference(ctx context.Context, source string) error
	CompareFrame(rows, cols int) (int, error)
	AccumulateFrame()
	Report(frames int) (accuracy.Report, error)
	ResetTotals()
	FrameRMS() []float64
	Config() harness.ModelConfig
	Backend() (importer.Backend, importer.Prefer)
}

// Recorder speichert abgeschlossene Auswertungen
type Recorder interface {
	SaveRun(store.Run) error
}

// FrameFunc wird nach jedem verglichenen Frame aufgerufen
type FrameFunc func(done, total, numErrors int)

type Options struct {
	// Rows und Cols begrenzen den Vergleich. 0 heisst: eine Zeile ueber
	// den ganzen Output.
	Rows, Cols int

	Recorder Recorder
	OnFrame  FrameFunc
}

// Latency beschreibt die Compute-Zeiten in Millisekunden
type Latency struct {
	Mean float64 `json:"mean"`
	P50  float64 `json:"p50"`
	P95  float64 `json:"p95"`
	Max  float64 `json:"max"`
}

type Result struct {
	ID        string          `json:"id"`
	Model     string          `json:"model"`
	Backend   string          `json:"backend"`
	Prefer    string          `json:"prefer"`
	Latency   Latency         `json:"latencyMs"`
	Report    accuracy.Report `json:"report"`
	RMSSpread accuracy.Spread `json:"rmsSpread"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Run vergleicht jedes Paar: Predict, Referenz laden, Frame vergleichen und
// aufsummieren. Die Gesamtstatistik des Harness wird vorher zurueckgesetzt.
func Run(ctx context.Context, h Harness, pairs []Pair, opts Options) (*Result, error) {
	if len(pairs) == 0 {
		return nil, ErrNoFrames
	}

	cfg := h.Config()
	rows, cols := opts.Rows, opts.Cols
	if rows <= 0 || cols <= 0 {
		rows, cols = 1, outputLen(cfg.OutputSize)
	}

	h.ResetTotals()
	latencies := make([]float64, 0, len(pairs))
	for i, p := range pairs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pred, err := h.Predict(ctx, p.Input)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		latencies = append(latencies, float64(pred.Elapsed)/float64(time.Millisecond))

		if err := h.LoadReference(ctx, p.Reference); err != nil {
			return nil, fmt.Errorf("frame %d reference: %w", i, err)
		}

		n, err := h.CompareFrame(rows, cols)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		h.AccumulateFrame()

		slog.Debug("frame evaluated", "frame", i, "errors", n, "ms", pred.ElapsedMS())
		if opts.OnFrame != nil {
			opts.OnFrame(i+1, len(pairs), n)
		}
	}

	report, err := h.Report(len(pairs))
	if err != nil {
		return nil, err
	}

	backend, prefer := h.Backend()
	res := &Result{
		ID:        uuid.NewString(),
		Model:     cfg.ModelFile,
		Backend:   string(backend),
		Prefer:    string(prefer),
		Latency:   summarizeLatency(latencies),
		Report:    report,
		RMSSpread: accuracy.RMSSpread(h.FrameRMS()),
		CreatedAt: time.Now(),
	}

	if opts.Recorder != nil {
		if err := opts.Recorder.SaveRun(res.Record()); err != nil {
			return res, fmt.Errorf("save run %s: %w", res.ID, err)
		}
	}

	slog.Info("evaluation done", "id", res.ID, "frames", report.Frames, "errors", report.NumErrors, "avg_rms", report.AvgRMS)
	return res, nil
}

// Record wandelt das Ergebnis in einen speicherbaren Run
func (r *Result) Record() store.Run {
	return store.Run{
		ID:            r.ID,
		Model:         r.Model,
		Backend:       r.Backend,
		Prefer:        r.Prefer,
		Report:        r.Report,
		RMSSpread:     r.RMSSpread,
		LatencyMeanMS: r.Latency.Mean,
		LatencyP95MS:  r.Latency.P95,
		CreatedAt:     r.CreatedAt,
	}
}

func summarizeLatency(ms []float64) Latency {
	if len(ms) == 0 {
		return Latency{}
	}

	sorted := slices.Clone(ms)
	slices.Sort(sorted)
	return Latency{
		Mean: stat.Mean(sorted, nil),
		P50:  stat.Quantile(0.5, stat.Empirical, sorted, nil),
		P95:  stat.Quantile(0.95, stat.Empirical, sorted, nil),
		Max:  sorted[len(sorted)-1],
	}
}

func outputLen(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}
