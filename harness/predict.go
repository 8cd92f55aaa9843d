package harness

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/arkcheck/arkcheck/ark"
	"github.com/arkcheck/arkcheck/tensor"
)

// Prediction ist das Ergebnis eines Inferenzlaufs. Output ist der Output-
// Tensor des Harness selbst und wird vom naechsten Predict ueberschrieben.
type Prediction struct {
	Elapsed time.Duration
	Output  *tensor.Tensor
}

// ElapsedMS gibt die Laufzeit in Millisekunden mit zwei Nachkommastellen zurueck
func (p *Prediction) ElapsedMS() string {
	return fmt.Sprintf("%.2f", milliseconds(p.Elapsed))
}

// Predict laedt einen Input-Frame aus source und fuehrt das Modell aus
func (h *Harness) Predict(ctx context.Context, source string) (*Prediction, error) {
	h.mu.Lock()
	if h.state != StateInitialized {
		h.mu.Unlock()
		return nil, ErrNotInitialized
	}
	imp := h.imp
	h.mu.Unlock()

	data, err := h.fetcher.Get(ctx, source)
	if err != nil {
		return nil, err
	}

	if err := h.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer h.sem.Release(1)

	h.mu.Lock()
	if h.state != StateInitialized || h.imp != imp {
		h.mu.Unlock()
		return nil, ErrNotInitialized
	}
	set := h.tensors
	h.mu.Unlock()

	if err := ark.ReadFrame(data, set.Input); err != nil {
		return nil, err
	}

	start := time.Now()
	if err := imp.Compute(ctx, []*tensor.Tensor{set.Input}, []*tensor.Tensor{set.Output}); err != nil {
		return nil, fmt.Errorf("compute: %w", err)
	}
	p := &Prediction{Elapsed: time.Since(start), Output: set.Output}
	return p, nil
}

// LoadReference laedt die Referenzwerte eines Frames aus source
func (h *Harness) LoadReference(ctx context.Context, source string) error {
	h.mu.Lock()
	set := h.tensors
	h.mu.Unlock()
	if set == nil {
		return ErrNotLoaded
	}

	data, err := h.fetcher.Get(ctx, source)
	if err != nil {
		return err
	}
	payload, err := ark.Payload(data, set.Reference.Len())
	if err != nil {
		return err
	}

	if err := h.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer h.sem.Release(1)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.tensors != set {
		return ErrNotLoaded
	}
	set.Reference.CopyFloat32(payload)
	return nil
}

// ExportOutput schreibt den Output-Tensor als little-endian float32 nach w
func (h *Harness) ExportOutput(w io.Writer) error {
	if err := h.sem.Acquire(context.Background(), 1); err != nil {
		return err
	}
	defer h.sem.Release(1)

	h.mu.Lock()
	set := h.tensors
	h.mu.Unlock()
	if set == nil {
		return ErrNotLoaded
	}
	return ark.WriteFloats(w, set.Output)
}
