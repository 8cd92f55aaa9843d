//go:build cgo

// MODUL: importer/tfl
// ZWECK: TFLite-Modelle mit dem TensorFlow Lite Interpreter ausfuehren
// INPUT: *model.Tflite, Backend (cpu/xnnpack), Praeferenz
// OUTPUT: importer.Importer
// NEBENEFFEKTE: Alloziert Interpreter und Delegate im C-Heap
// ABHAENGIGKEITEN: github.com/mattn/go-tflite
// HINWEISE: Close() gibt Interpreter, Optionen und Modell frei

package tfl

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mattn/go-tflite"
	"github.com/mattn/go-tflite/delegates"
	"github.com/mattn/go-tflite/delegates/xnnpack"

	"github.com/arkcheck/arkcheck/importer"
	"github.com/arkcheck/arkcheck/model"
	"github.com/arkcheck/arkcheck/tensor"
)

func init() {
	importer.Register(model.FormatTflite, New)
}

type Importer struct {
	raw     *model.Tflite
	backend importer.Backend
	threads int
	softmax bool

	model    *tflite.Model
	options  *tflite.InterpreterOptions
	delegate delegates.Delegater
	interp   *tflite.Interpreter
}

// New ist die importer.Factory fuer TFLite
func New(cfg importer.Config) (importer.Importer, error) {
	raw, ok := cfg.Raw.(*model.Tflite)
	if !ok {
		return nil, fmt.Errorf("tfl: expected tflite model, got %s", cfg.Raw.Format())
	}

	switch cfg.Backend {
	case importer.BackendCPU, importer.BackendXNNPACK:
	default:
		return nil, fmt.Errorf("tfl: backend %q not supported", cfg.Backend)
	}

	return &Importer{
		raw:     raw,
		backend: cfg.Backend,
		threads: importer.Threads(cfg.Prefer),
		softmax: cfg.Softmax,
	}, nil
}

func (i *Importer) CreateCompiledModel(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	i.model = tflite.NewModel(i.raw.Bytes())
	if i.model == nil {
		return fmt.Errorf("tfl: cannot load model")
	}

	i.options = tflite.NewInterpreterOptions()
	i.options.SetNumThread(i.threads)
	i.options.SetErrorReporter(func(msg string, _ interface{}) {
		slog.Warn("tflite", "msg", msg)
	}, nil)

	if i.backend == importer.BackendXNNPACK {
		i.delegate = xnnpack.New(xnnpack.DelegateOptions{NumThreads: int32(i.threads)})
		if i.delegate == nil {
			i.Close()
			return fmt.Errorf("tfl: cannot create xnnpack delegate")
		}
		i.options.AddDelegate(i.delegate)
	}

	i.interp = tflite.NewInterpreter(i.model, i.options)
	if i.interp == nil {
		i.Close()
		return fmt.Errorf("tfl: cannot create interpreter")
	}

	if status := i.interp.AllocateTensors(); status != tflite.OK {
		i.Close()
		return fmt.Errorf("tfl: allocate tensors: status %d", status)
	}

	slog.Debug("tflite interpreter created", "backend", i.backend, "threads", i.threads,
		"inputs", i.interp.GetInputTensorCount(), "outputs", i.interp.GetOutputTensorCount())
	return nil
}

func (i *Importer) Compute(ctx context.Context, inputs, outputs []*tensor.Tensor) error {
	if i.interp == nil {
		return importer.ErrNotCompiled
	}
	if len(inputs) != 1 || len(outputs) != 1 {
		return fmt.Errorf("tfl: expected 1 input and 1 output, got %d and %d", len(inputs), len(outputs))
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	in := i.interp.GetInputTensor(0)
	if want, got := int(in.ByteSize()), inputs[0].Len()*inputs[0].DType.Size(); want != got {
		return fmt.Errorf("tfl: input tensor has %d bytes, buffer has %d", want, got)
	}
	if status := in.CopyFromBuffer(inputs[0].Data()); status != tflite.OK {
		return fmt.Errorf("tfl: copy input: status %d", status)
	}

	if status := i.interp.Invoke(); status != tflite.OK {
		return fmt.Errorf("tfl: invoke: status %d", status)
	}

	out := i.interp.GetOutputTensor(0)
	if want, got := int(out.ByteSize()), outputs[0].Len()*outputs[0].DType.Size(); want != got {
		return fmt.Errorf("tfl: output tensor has %d bytes, buffer has %d", want, got)
	}
	if status := out.CopyToBuffer(outputs[0].Data()); status != tflite.OK {
		return fmt.Errorf("tfl: copy output: status %d", status)
	}

	if i.softmax {
		importer.Softmax(outputs[0])
	}
	return nil
}

// RequiredOps gibt die Operator-Codes in Reihenfolge des ersten Auftretens zurueck
func (i *Importer) RequiredOps() []string {
	return i.raw.Ops()
}

// SubgraphsSummary beschreibt jeden Teilgraphen des Modells
func (i *Importer) SubgraphsSummary() []string {
	if i.interp == nil {
		return nil
	}

	out := make([]string, 0, len(i.raw.Subgraphs))
	for k, sg := range i.raw.Subgraphs {
		name := sg.Name
		if name == "" {
			name = fmt.Sprintf("#%d", k)
		}
		out = append(out, fmt.Sprintf("tflite %s subgraph %s: %d operators, %d tensors", i.backend, name, len(sg.Operators), len(sg.Tensors)))
	}
	return out
}

func (i *Importer) Close() error {
	if i.interp != nil {
		i.interp.Delete()
		i.interp = nil
	}
	if i.delegate != nil {
		i.delegate.Delete()
		i.delegate = nil
	}
	if i.options != nil {
		i.options.Delete()
		i.options = nil
	}
	if i.model != nil {
		i.model.Delete()
		i.model = nil
	}
	return nil
}
