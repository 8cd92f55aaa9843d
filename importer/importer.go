// MODUL: importer
// ZWECK: Vertrag zwischen Harness und formatspezifischen Laufzeit-Backends
// INPUT: Config (RawModel, Backend, Praeferenz, Softmax)
// OUTPUT: Importer mit CreateCompiledModel/Compute/RequiredOps
// NEBENEFFEKTE: Registrierung von Factories per init() der Unterpakete
// ABHAENGIGKEITEN: model, tensor
// HINWEISE: Import mit _ "github.com/arkcheck/arkcheck/importer/ort" bzw. .../tfl

package importer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/arkcheck/arkcheck/model"
	"github.com/arkcheck/arkcheck/tensor"
)

var (
	// ErrNoImporter wird zurueckgegeben wenn fuer ein Format keine Factory registriert ist
	ErrNoImporter = errors.New("importer: no importer for model format")

	// ErrCGORequired wird von den Stubs zurueckgegeben wenn CGO nicht verfuegbar ist
	ErrCGORequired = errors.New("importer: CGO required but not available")

	// ErrNotCompiled wird von Compute vor CreateCompiledModel zurueckgegeben
	ErrNotCompiled = errors.New("importer: model not compiled")
)

// ============================================================================
// Vertrag
// ============================================================================

// Importer bereitet ein RawModel fuer ein Backend auf und fuehrt es aus.
// Aufrufe sind nicht nebenlaeufig; der Aufrufer serialisiert.
type Importer interface {
	// CreateCompiledModel baut das ausfuehrbare Modell
	CreateCompiledModel(ctx context.Context) error

	// Compute liest inputs und schreibt in die bereits allozierten outputs
	Compute(ctx context.Context, inputs, outputs []*tensor.Tensor) error

	// RequiredOps gibt die vom Modell benoetigten Operationen zurueck
	RequiredOps() []string

	Close() error
}

// SubgraphSummarizer wird von Importern implementiert die ihre
// Partitionierung beschreiben koennen
type SubgraphSummarizer interface {
	SubgraphsSummary() []string
}

// Config ist die Eingabe einer Factory
type Config struct {
	Raw     model.RawModel
	Backend Backend
	Prefer  Prefer
	Softmax bool
}

// Factory erzeugt einen Importer fuer genau ein Format
type Factory func(Config) (Importer, error)

// Factories haelt je Format eine Factory; nil bedeutet nicht unterstuetzt
type Factories struct {
	Tflite   Factory
	Onnx     Factory
	OpenVino Factory
}

// For waehlt die Factory passend zur Variante des RawModel
func (f Factories) For(raw model.RawModel) (Factory, error) {
	var factory Factory
	switch m := raw.(type) {
	case *model.Tflite:
		factory = f.Tflite
	case *model.Onnx:
		factory = f.Onnx
	case *model.OpenVino:
		factory = f.OpenVino
	case nil:
		return nil, fmt.Errorf("%w: no model", ErrNoImporter)
	default:
		panic(fmt.Sprintf("importer: unhandled raw model %T", m))
	}

	if factory == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoImporter, raw.Format())
	}
	return factory, nil
}

// New erzeugt den Importer fuer cfg.Raw
func (f Factories) New(cfg Config) (Importer, error) {
	factory, err := f.For(cfg.Raw)
	if err != nil {
		return nil, err
	}
	return factory(cfg)
}

// ============================================================================
// Registry
// ============================================================================

var (
	registryMu sync.RWMutex
	registry   = map[model.Format]Factory{}
)

// Register setzt die Default-Factory fuer ein Format
func Register(format model.Format, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[format] = factory
}

// Defaults gibt die registrierten Factories zurueck
func Defaults() Factories {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return Factories{
		Tflite:   registry[model.FormatTflite],
		Onnx:     registry[model.FormatOnnx],
		OpenVino: registry[model.FormatOpenVino],
	}
}
