//go:build cgo

// MODUL: importer/ort
// ZWECK: ONNX-Modelle ueber ONNX Runtime kompilieren und ausfuehren
// INPUT: *model.Onnx, Backend (cpu/cuda), Praeferenz
// OUTPUT: importer.Importer
// NEBENEFFEKTE: Alloziert ONNX Runtime Ressourcen, ggf. GPU Memory
// ABHAENGIGKEITEN: onnxruntime_go
// HINWEISE: Close() MUSS aufgerufen werden; Laufzeit wird einmalig initialisiert

package ort

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/arkcheck/arkcheck/envconfig"
	"github.com/arkcheck/arkcheck/importer"
	"github.com/arkcheck/arkcheck/model"
	"github.com/arkcheck/arkcheck/tensor"
)

func init() {
	importer.Register(model.FormatOnnx, New)
}

// ============================================================================
// Runtime Initialisierung (Singleton)
// ============================================================================

var (
	runtimeInitOnce sync.Once
	runtimeInitErr  error
)

// InitRuntime initialisiert die ONNX Runtime einmalig
func InitRuntime() error {
	runtimeInitOnce.Do(func() {
		if lib := envconfig.OrtLibrary(); lib != "" {
			ort.SetSharedLibraryPath(lib)
		}
		runtimeInitErr = ort.InitializeEnvironment()
	})
	return runtimeInitErr
}

// ============================================================================
// Importer
// ============================================================================

type Importer struct {
	raw     *model.Onnx
	backend importer.Backend
	threads int
	softmax bool

	inputName  string
	outputName string
	session    *ort.DynamicAdvancedSession
}

// New ist die importer.Factory fuer ONNX
func New(cfg importer.Config) (importer.Importer, error) {
	raw, ok := cfg.Raw.(*model.Onnx)
	if !ok {
		return nil, fmt.Errorf("ort: expected onnx model, got %s", cfg.Raw.Format())
	}

	switch cfg.Backend {
	case importer.BackendCPU, importer.BackendCUDA:
	default:
		return nil, fmt.Errorf("ort: backend %q not supported", cfg.Backend)
	}

	inputs, outputs := raw.InputNames(), raw.OutputNames()
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, fmt.Errorf("ort: graph %q needs at least one input and one output", raw.Graph.Name)
	}

	return &Importer{
		raw:        raw,
		backend:    cfg.Backend,
		threads:    importer.Threads(cfg.Prefer),
		softmax:    cfg.Softmax,
		inputName:  inputs[0],
		outputName: outputs[0],
	}, nil
}

func (i *Importer) CreateCompiledModel(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := InitRuntime(); err != nil {
		return fmt.Errorf("ort: runtime init: %w", err)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return fmt.Errorf("ort: session options: %w", err)
	}
	defer opts.Destroy()

	if err := opts.SetIntraOpNumThreads(i.threads); err != nil {
		return fmt.Errorf("ort: set threads: %w", err)
	}

	if i.backend == importer.BackendCUDA {
		cudaOpts, err := ort.NewCUDAProviderOptions()
		if err != nil {
			return fmt.Errorf("ort: cuda provider: %w", err)
		}
		defer cudaOpts.Destroy()
		if err := opts.AppendExecutionProviderCUDA(cudaOpts); err != nil {
			return fmt.Errorf("ort: cuda provider: %w", err)
		}
	}

	session, err := ort.NewDynamicAdvancedSessionWithONNXData(i.raw.Bytes(),
		[]string{i.inputName}, []string{i.outputName}, opts)
	if err != nil {
		return fmt.Errorf("ort: create session: %w", err)
	}
	i.session = session

	slog.Debug("ort session created", "graph", i.raw.Graph.Name, "backend", i.backend, "threads", i.threads,
		"input", i.inputName, "output", i.outputName)
	return nil
}

func (i *Importer) Compute(ctx context.Context, inputs, outputs []*tensor.Tensor) error {
	if i.session == nil {
		return importer.ErrNotCompiled
	}
	if len(inputs) != 1 || len(outputs) != 1 {
		return fmt.Errorf("ort: expected 1 input and 1 output, got %d and %d", len(inputs), len(outputs))
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	in, err := wrap(inputs[0])
	if err != nil {
		return fmt.Errorf("ort: input tensor: %w", err)
	}
	defer in.Destroy()

	out, err := wrap(outputs[0])
	if err != nil {
		return fmt.Errorf("ort: output tensor: %w", err)
	}
	defer out.Destroy()

	if err := i.session.Run([]ort.ArbitraryTensor{in}, []ort.ArbitraryTensor{out}); err != nil {
		return fmt.Errorf("ort: run: %w", err)
	}

	if i.softmax {
		importer.Softmax(outputs[0])
	}
	return nil
}

// wrap legt einen ORT-Tensor direkt ueber den Puffer von t
func wrap(t *tensor.Tensor) (ort.ArbitraryTensor, error) {
	shape := make([]int64, len(t.Shape))
	for k, d := range t.Shape {
		shape[k] = int64(d)
	}

	if t.DType == tensor.Uint8 {
		return ort.NewTensor(ort.NewShape(shape...), t.Uint8s())
	}
	return ort.NewTensor(ort.NewShape(shape...), t.Float32s())
}

// RequiredOps gibt die Knotentypen des Graphen zurueck
func (i *Importer) RequiredOps() []string {
	return i.raw.Ops()
}

// SubgraphsSummary beschreibt die Ausfuehrung als einen einzigen Teilgraphen
func (i *Importer) SubgraphsSummary() []string {
	if i.session == nil {
		return nil
	}
	return []string{fmt.Sprintf("onnxruntime %s: %d nodes (%d threads)", i.backend, len(i.raw.Graph.Nodes), i.threads)}
}

func (i *Importer) Close() error {
	if i.session == nil {
		return nil
	}
	err := i.session.Destroy()
	i.session = nil
	return err
}
