// MODUL: harness
// ZWECK: Lebenszyklus eines Modells: Laden, Backend initialisieren, Inferenz, Vergleich
// INPUT: ModelConfig, Backend/Praeferenz, Ark-Frames
// OUTPUT: Status-Werte, Predictions, Fehlerstatistiken
// NEBENEFFEKTE: Downloads ueber fetch, Backend-Ressourcen ueber importer
// ABHAENGIGKEITEN: fetch, model, importer, tensor, ark, accuracy
// HINWEISE: mu wird nie ueber Downloads, Kompilierung oder Compute gehalten;
//           Backend-Aufrufe laufen seriell ueber sem. Reihenfolge: sem vor mu.

package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/arkcheck/arkcheck/accuracy"
	"github.com/arkcheck/arkcheck/fetch"
	"github.com/arkcheck/arkcheck/importer"
	"github.com/arkcheck/arkcheck/model"
	"github.com/arkcheck/arkcheck/tensor"
)

var (
	ErrNotLoaded      = errors.New("harness: model not loaded")
	ErrNotInitialized = errors.New("harness: backend not initialized")
)

// InitError umschliesst den Fehler eines Importers unveraendert
type InitError struct {
	Backend importer.Backend
	Prefer  importer.Prefer
	Err     error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("harness: init %s/%s: %v", e.Backend, e.Prefer, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// ============================================================================
// Zustaende
// ============================================================================

type State int

const (
	StateUnloaded State = iota
	StateLoaded
	StateInitialized
)

func (s State) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateInitialized:
		return "initialized"
	default:
		return "unloaded"
	}
}

type LoadStatus int

const (
	LoadSuccess LoadStatus = iota + 1
	LoadAlreadyLoaded
	LoadSuperseded
)

func (s LoadStatus) String() string {
	switch s {
	case LoadSuccess:
		return "SUCCESS"
	case LoadAlreadyLoaded:
		return "LOADED"
	case LoadSuperseded:
		return "SUPERSEDED"
	default:
		return fmt.Sprintf("LoadStatus(%d)", int(s))
	}
}

type InitStatus int

const (
	InitSuccess InitStatus = iota + 1
	InitNotLoaded
	InitAlreadyInitialized
	InitSuperseded
)

func (s InitStatus) String() string {
	switch s {
	case InitSuccess:
		return "SUCCESS"
	case InitNotLoaded:
		return "NOT_LOADED"
	case InitAlreadyInitialized:
		return "INITIALIZED"
	case InitSuperseded:
		return "SUPERSEDED"
	default:
		return fmt.Sprintf("InitStatus(%d)", int(s))
	}
}

// ============================================================================
// Harness
// ============================================================================

// Option konfiguriert einen Harness
type Option func(*Harness)

// WithFetcher setzt den Fetcher fuer Modelle und Frames
func WithFetcher(f *fetch.Fetcher) Option {
	return func(h *Harness) { h.fetcher = f }
}

// WithFactories ersetzt die registrierten Importer-Factories
func WithFactories(f importer.Factories) Option {
	return func(h *Harness) { h.factories = f }
}

type Harness struct {
	fetcher   *fetch.Fetcher
	factories importer.Factories
	sem       *semaphore.Weighted
	ops       *Future[[]string]

	mu      sync.Mutex
	gen     uint64 // erhoeht bei jedem Load-Reset und jedem Init
	state   State
	cfg     ModelConfig
	raw     model.RawModel
	tensors *tensor.Set
	backend importer.Backend
	prefer  importer.Prefer
	imp     importer.Importer

	frame    accuracy.ErrorStats
	total    accuracy.ErrorStats
	frameRMS []float64
}

func New(opts ...Option) *Harness {
	h := &Harness{
		sem:   semaphore.NewWeighted(1),
		ops:   NewFuture[[]string](),
		frame: accuracy.NewErrorStats(),
		total: accuracy.NewErrorStats(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.fetcher == nil {
		h.fetcher = fetch.New()
	}
	if h.factories.Tflite == nil && h.factories.Onnx == nil && h.factories.OpenVino == nil {
		h.factories = importer.Defaults()
	}
	return h
}

// State gibt den aktuellen Zustand zurueck
func (h *Harness) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Config gibt eine Kopie des zuletzt angenommenen Deskriptors zurueck
func (h *Harness) Config() ModelConfig {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cfg.clone()
}

// Backend gibt Backend und Praeferenz der letzten Initialisierung zurueck
func (h *Harness) Backend() (importer.Backend, importer.Prefer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.backend, h.prefer
}

// RawModel gibt das geladene Modell zurueck, nil wenn nichts geladen ist
func (h *Harness) RawModel() model.RawModel {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == StateUnloaded {
		return nil
	}
	return h.raw
}

// Load laedt den Deskriptor cfg. Ein erneuter Load derselben Modelldatei
// ist ein No-op. Wird der Load von einem neueren verdraengt, liefert er
// LoadSuperseded ohne Fehler und veraendert keinen Zustand.
func (h *Harness) Load(ctx context.Context, cfg ModelConfig) (LoadStatus, error) {
	if h.loaded(cfg.ModelFile) {
		return LoadAlreadyLoaded, nil
	}

	// Allokation ausserhalb von mu
	set, allocErr := tensor.Allocate(cfg.InputSize, cfg.OutputSize, cfg.IsQuantized)

	h.mu.Lock()
	old := h.resetLocked()
	h.cfg = cfg.clone()
	if allocErr != nil {
		h.tensors = nil
		h.mu.Unlock()
		h.closeImporter(old)
		return 0, allocErr
	}
	h.tensors = set

	gen := h.gen
	req := h.fetcher.Begin(ctx)
	h.mu.Unlock()
	defer req.Done()

	h.closeImporter(old)

	raw, err := fetchModel(req, cfg.ModelFile)
	if errors.Is(err, fetch.ErrSuperseded) {
		slog.Debug("model load superseded", "model", cfg.ModelFile)
		return LoadSuperseded, nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if req.Superseded() || h.gen != gen {
		slog.Debug("model load superseded", "model", cfg.ModelFile)
		return LoadSuperseded, nil
	}
	if err != nil {
		return 0, err
	}

	h.raw = raw
	h.state = StateLoaded
	slog.Info("model loaded", "model", cfg.ModelFile, "format", raw.Format(), "summary", fmt.Sprint(raw))
	slog.Debug("model operations", "ops", raw.Ops())
	return LoadSuccess, nil
}

// loaded meldet ob modelFile bereits geladen oder initialisiert ist
func (h *Harness) loaded(modelFile string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state >= StateLoaded && h.cfg.ModelFile == modelFile
}

func fetchModel(req *fetch.Request, modelFile string) (model.RawModel, error) {
	format, err := model.ClassifyFormat(modelFile)
	if err != nil {
		return nil, err
	}

	data, err := req.Fetch(modelFile)
	if err != nil {
		return nil, err
	}

	if format == model.FormatOpenVino {
		network, err := req.Fetch(model.DescriptorFile(modelFile))
		if err != nil {
			return nil, err
		}
		return model.NewOpenVino(string(network), data)
	}
	return model.Decode(format, data)
}

// resetLocked setzt alles auf Unloaded zurueck und gibt den alten
// Importer zum Schliessen ausserhalb von mu zurueck
func (h *Harness) resetLocked() importer.Importer {
	old := h.imp
	h.gen++
	h.state = StateUnloaded
	h.backend, h.prefer = "", ""
	h.raw = nil
	h.imp = nil
	return old
}

// closeImporter schliesst imp unter sem, damit kein Compute mehr laeuft
func (h *Harness) closeImporter(imp importer.Importer) {
	if imp == nil {
		return
	}

	_ = h.sem.Acquire(context.Background(), 1)
	defer h.sem.Release(1)
	if err := imp.Close(); err != nil {
		slog.Warn("closing importer", "error", err)
	}
}

// Close gibt Modell, Importer und Tensoren frei
func (h *Harness) Close() error {
	h.mu.Lock()
	old := h.resetLocked()
	h.cfg = ModelConfig{}
	h.tensors = nil
	h.frameRMS = nil
	h.frame = accuracy.NewErrorStats()
	h.total = accuracy.NewErrorStats()
	h.mu.Unlock()

	h.closeImporter(old)
	return nil
}
