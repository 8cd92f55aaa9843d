package harness

import (
	"context"
	"log/slog"
	"slices"

	"github.com/arkcheck/arkcheck/accuracy"
)

// CompareFrame vergleicht Output und Referenz fuer rows*cols Elemente und
// gibt die Anzahl Elemente ueber der Schwelle zurueck. Die Frame-Statistik
// wird dabei neu begonnen.
func (h *Harness) CompareFrame(rows, cols int) (int, error) {
	if err := h.sem.Acquire(context.Background(), 1); err != nil {
		return 0, err
	}
	defer h.sem.Release(1)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.tensors == nil {
		return 0, ErrNotLoaded
	}

	frame, n, err := accuracy.CompareFrameChecked(h.tensors.Output.Floats(), h.tensors.Reference.Floats(), rows, cols)
	if err != nil {
		return 0, err
	}
	h.frame = frame
	h.frameRMS = append(h.frameRMS, frame.RMSError)

	slog.Debug("frame compared", "errors", n, "scores", frame.NumScores, "rms", frame.RMSError)
	return n, nil
}

// AccumulateFrame fuehrt den zuletzt verglichenen Frame in die Gesamtstatistik
func (h *Harness) AccumulateFrame() {
	h.mu.Lock()
	defer h.mu.Unlock()
	accuracy.Accumulate(h.frame, &h.total)
}

// Frame gibt die Statistik des zuletzt verglichenen Frames zurueck
func (h *Harness) Frame() accuracy.ErrorStats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.frame
}

// Totals gibt die Gesamtstatistik zurueck
func (h *Harness) Totals() accuracy.ErrorStats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.total
}

// FrameRMS gibt die RMS-Werte aller verglichenen Frames zurueck
func (h *Harness) FrameRMS() []float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.frameRMS)
}

// Report fasst die Gesamtstatistik ueber frames Frames zusammen
func (h *Harness) Report(frames int) (accuracy.Report, error) {
	h.mu.Lock()
	total := h.total
	h.mu.Unlock()
	return accuracy.Summarize(total, frames)
}

// ResetTotals verwirft Frame- und Gesamtstatistik
func (h *Harness) ResetTotals() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.frame = accuracy.NewErrorStats()
	h.total = accuracy.NewErrorStats()
	h.frameRMS = nil
}
