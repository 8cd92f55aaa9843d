package harness

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/arkcheck/arkcheck/importer"
	"github.com/arkcheck/arkcheck/logutil"
	"github.com/arkcheck/arkcheck/tensor"
)

// Init kompiliert das geladene Modell fuer backend/prefer und fuehrt einen
// Warmup-Lauf aus. Leere Namen fallen auf ARKCHECK_BACKEND/ARKCHECK_PREFER
// zurueck.
func (h *Harness) Init(ctx context.Context, backend, prefer string) (InitStatus, error) {
	b, p, err := importer.ValidateNames(backend, prefer)
	if err != nil {
		return 0, &InitError{Backend: importer.Backend(backend), Prefer: importer.Prefer(prefer), Err: err}
	}

	h.mu.Lock()
	switch {
	case h.state == StateUnloaded:
		h.mu.Unlock()
		return InitNotLoaded, ErrNotLoaded
	case h.state == StateInitialized && h.backend == b && h.prefer == p:
		h.mu.Unlock()
		return InitAlreadyInitialized, nil
	}

	old := h.imp
	h.imp = nil
	h.state = StateLoaded
	h.backend, h.prefer = b, p
	h.gen++
	gen := h.gen
	raw := h.raw
	set := h.tensors
	softmax := h.cfg.PostOptions.Softmax
	h.mu.Unlock()

	h.closeImporter(old)

	imp, err := h.factories.New(importer.Config{Raw: raw, Backend: b, Prefer: p, Softmax: softmax})
	if err != nil {
		return 0, &InitError{Backend: b, Prefer: p, Err: err}
	}

	if err := h.compile(ctx, imp, set); err != nil {
		if cerr := imp.Close(); cerr != nil {
			slog.Warn("closing importer", "error", cerr)
		}
		return 0, &InitError{Backend: b, Prefer: p, Err: err}
	}

	h.mu.Lock()
	if h.gen != gen {
		h.mu.Unlock()
		h.closeImporter(imp)
		slog.Debug("backend init superseded", "backend", b, "prefer", p)
		return InitSuperseded, nil
	}

	h.imp = imp
	h.state = StateInitialized
	ops := imp.RequiredOps()
	n := h.ops.Resolve(slices.Clone(ops))
	h.mu.Unlock()

	logutil.Trace("required ops resolved", "waiters", n, "ops", len(ops))
	return InitSuccess, nil
}

// compile erstellt das kompilierte Modell und misst einen Warmup-Lauf
func (h *Harness) compile(ctx context.Context, imp importer.Importer, set *tensor.Set) error {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer h.sem.Release(1)

	start := time.Now()
	if err := imp.CreateCompiledModel(ctx); err != nil {
		return err
	}
	slog.Info("compilation done", "duration", time.Since(start))

	start = time.Now()
	if err := imp.Compute(ctx, []*tensor.Tensor{set.Input}, []*tensor.Tensor{set.Output}); err != nil {
		return fmt.Errorf("warmup: %w", err)
	}
	slog.Info("warmup done", "ms", fmt.Sprintf("%.2f", milliseconds(time.Since(start))))
	return nil
}

// RequiredOps gibt die vom Backend benoetigten Operationen zurueck. Ist
// noch kein Backend initialisiert, wartet der Aufruf auf die naechste
// erfolgreiche Initialisierung oder bis ctx endet.
func (h *Harness) RequiredOps(ctx context.Context) ([]string, error) {
	h.mu.Lock()
	if h.state == StateInitialized {
		ops := h.imp.RequiredOps()
		h.mu.Unlock()
		return slices.Clone(ops), nil
	}
	ch := h.ops.Wait()
	h.mu.Unlock()

	select {
	case ops := <-ch:
		return ops, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SubgraphsSummary beschreibt die Subgraphen des kompilierten Modells,
// sofern das Backend das anbietet
func (h *Harness) SubgraphsSummary() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != StateInitialized {
		return []string{}
	}
	if s, ok := h.imp.(importer.SubgraphSummarizer); ok {
		return s.SubgraphsSummary()
	}
	return []string{}
}

func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
