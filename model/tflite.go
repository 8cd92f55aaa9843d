package model

import (
	"fmt"
	"strconv"

	flatbuffers "github.com/google/flatbuffers/go"
)

// Tflite ist ein dekodiertes TFLite-Modell
type Tflite struct {
	Version       uint32
	Description   string
	OperatorCodes []TfliteOperatorCode
	Subgraphs     []TfliteSubgraph
	NumBuffers    int

	raw []byte
	ops *opSet
}

// TfliteOperatorCode beschreibt einen Eintrag der operator_codes-Tabelle
type TfliteOperatorCode struct {
	Builtin int32
	Custom  string
	Version int32
}

// Name gibt den Operationsnamen zurueck, z.B. "FULLY_CONNECTED" oder "CUSTOM:Foo"
func (c TfliteOperatorCode) Name() string {
	if c.Custom != "" {
		return "CUSTOM:" + c.Custom
	}
	return BuiltinOperatorName(c.Builtin)
}

// TfliteSubgraph ist ein Teilgraph mit Tensoren und Operatoren
type TfliteSubgraph struct {
	Name      string
	Inputs    []int32
	Outputs   []int32
	Tensors   []TfliteTensor
	Operators []TfliteOperator
}

// TfliteTensor beschreibt einen Tensor eines Teilgraphen
type TfliteTensor struct {
	Name   string
	Shape  []int32
	Type   byte
	Buffer uint32
}

// TfliteOperator verweist per OpcodeIndex auf OperatorCodes
type TfliteOperator struct {
	OpcodeIndex uint32
	Inputs      []int32
	Outputs     []int32
}

func (*Tflite) Format() Format { return FormatTflite }
func (*Tflite) sealed()        {}

// Ops gibt die verwendeten Operationen in Reihenfolge des ersten Auftretens zurueck
func (m *Tflite) Ops() []string { return m.ops.list() }

// OpCounts zaehlt die Vorkommen jeder Operation
func (m *Tflite) OpCounts() map[string]int { return m.ops.counts() }

// Bytes gibt den originalen Flatbuffer zurueck
func (m *Tflite) Bytes() []byte { return m.raw }

// DecodeTflite parst einen TFLite-Flatbuffer vollstaendig.
// Flatbuffer-Zugriffe auf kaputte Offsets paniken; das wird als
// InvalidModelError gemeldet.
func DecodeTflite(data []byte) (m *Tflite, err error) {
	if len(data) < 8 {
		return nil, invalid(FormatTflite, "buffer too short (%d bytes)", len(data))
	}
	if id := string(data[4:8]); id != tfliteIdentifier {
		return nil, invalid(FormatTflite, "file identifier %q, want %q", id, tfliteIdentifier)
	}
	if root := flatbuffers.GetUOffsetT(data); int(root) >= len(data) {
		return nil, invalid(FormatTflite, "root offset %d out of range", root)
	}

	defer func() {
		if r := recover(); r != nil {
			m, err = nil, invalid(FormatTflite, "corrupt flatbuffer: %v", r)
		}
	}()

	fb := getRootAsModel(data, 0)
	m = &Tflite{
		Version:     fb.Version(),
		Description: fb.Description(),
		NumBuffers:  fb.BuffersLength(),
		raw:         data,
		ops:         newOpSet(),
	}

	var code fbOperatorCode
	for j := range fb.OperatorCodesLength() {
		fb.OperatorCodes(&code, j)
		m.OperatorCodes = append(m.OperatorCodes, TfliteOperatorCode{
			Builtin: code.BuiltinCode(),
			Custom:  code.CustomCode(),
			Version: code.Version(),
		})
	}

	var sg fbSubGraph
	for j := range fb.SubgraphsLength() {
		fb.Subgraphs(&sg, j)
		sub, err := decodeSubgraph(&sg, m)
		if err != nil {
			return nil, err
		}
		m.Subgraphs = append(m.Subgraphs, sub)
	}

	if len(m.Subgraphs) == 0 {
		return nil, invalid(FormatTflite, "model has no subgraphs")
	}
	return m, nil
}

func decodeSubgraph(sg *fbSubGraph, m *Tflite) (TfliteSubgraph, error) {
	sub := TfliteSubgraph{
		Name:    sg.Name(),
		Inputs:  sg.Inputs(),
		Outputs: sg.Outputs(),
	}

	var t fbTensor
	for k := range sg.TensorsLength() {
		sg.Tensors(&t, k)
		sub.Tensors = append(sub.Tensors, TfliteTensor{
			Name:   t.Name(),
			Shape:  t.Shape(),
			Type:   t.Type(),
			Buffer: t.Buffer(),
		})
	}

	var op fbOperator
	for k := range sg.OperatorsLength() {
		sg.Operators(&op, k)
		idx := op.OpcodeIndex()
		if int(idx) >= len(m.OperatorCodes) {
			return sub, invalid(FormatTflite, "subgraph %q operator %d: opcode index %d out of range", sub.Name, k, idx)
		}
		sub.Operators = append(sub.Operators, TfliteOperator{
			OpcodeIndex: idx,
			Inputs:      op.Inputs(),
			Outputs:     op.Outputs(),
		})
		m.ops.add(m.OperatorCodes[idx].Name())
	}

	for _, i := range append(append([]int32(nil), sub.Inputs...), sub.Outputs...) {
		if i < 0 || int(i) >= len(sub.Tensors) {
			return sub, invalid(FormatTflite, "subgraph %q references tensor %d of %d", sub.Name, i, len(sub.Tensors))
		}
	}
	return sub, nil
}

// builtinOperators sind die Namen aus BuiltinOperator in schema.fbs
var builtinOperators = []string{
	"ADD", "AVERAGE_POOL_2D", "CONCATENATION", "CONV_2D", "DEPTHWISE_CONV_2D",
	"DEPTH_TO_SPACE", "DEQUANTIZE", "EMBEDDING_LOOKUP", "FLOOR", "FULLY_CONNECTED",
	"HASHTABLE_LOOKUP", "L2_NORMALIZATION", "L2_POOL_2D", "LOCAL_RESPONSE_NORMALIZATION", "LOGISTIC",
	"LSH_PROJECTION", "LSTM", "MAX_POOL_2D", "MUL", "RELU",
	"RELU_N1_TO_1", "RELU6", "RESHAPE", "RESIZE_BILINEAR", "RNN",
	"SOFTMAX", "SPACE_TO_DEPTH", "SVDF", "TANH", "CONCAT_EMBEDDINGS",
	"SKIP_GRAM", "CALL", "CUSTOM", "EMBEDDING_LOOKUP_SPARSE", "PAD",
	"UNIDIRECTIONAL_SEQUENCE_RNN", "GATHER", "BATCH_TO_SPACE_ND", "SPACE_TO_BATCH_ND", "TRANSPOSE",
	"MEAN", "SUB", "DIV", "SQUEEZE", "UNIDIRECTIONAL_SEQUENCE_LSTM",
	"STRIDED_SLICE", "BIDIRECTIONAL_SEQUENCE_RNN", "EXP", "TOPK_V2", "SPLIT",
	"LOG_SOFTMAX", "DELEGATE", "BIDIRECTIONAL_SEQUENCE_LSTM", "CAST", "PRELU",
	"MAXIMUM", "ARG_MAX", "MINIMUM", "LESS", "NEG",
	"PADV2", "GREATER", "GREATER_EQUAL", "LESS_EQUAL", "SELECT",
	"SLICE", "SIN", "TRANSPOSE_CONV", "SPARSE_TO_DENSE", "TILE",
	"EXPAND_DIMS", "EQUAL", "NOT_EQUAL", "LOG", "SUM",
	"SQRT", "RSQRT", "SHAPE", "POW", "ARG_MIN",
	"FAKE_QUANT", "REDUCE_PROD", "REDUCE_MAX", "PACK", "LOGICAL_OR",
	"ONE_HOT", "LOGICAL_AND", "LOGICAL_NOT", "UNPACK", "REDUCE_MIN",
	"FLOOR_DIV", "REDUCE_ANY", "SQUARE", "ZEROS_LIKE", "FILL",
	"FLOOR_MOD", "RANGE", "RESIZE_NEAREST_NEIGHBOR", "LEAKY_RELU", "SQUARED_DIFFERENCE",
	"MIRROR_PAD", "ABS", "SPLIT_V", "UNIQUE", "CEIL",
	"REVERSE_V2", "ADD_N", "GATHER_ND", "COS", "WHERE",
	"RANK", "ELU", "REVERSE_SEQUENCE", "MATRIX_DIAG", "QUANTIZE",
	"MATRIX_SET_DIAG", "ROUND", "HARD_SWISH", "IF", "WHILE",
	"NON_MAX_SUPPRESSION_V4", "NON_MAX_SUPPRESSION_V5", "SCATTER_ND", "SELECT_V2", "DENSIFY",
	"SEGMENT_SUM", "BATCH_MATMUL",
}

// BuiltinOperatorName uebersetzt einen BuiltinOperator-Code
func BuiltinOperatorName(code int32) string {
	if code >= 0 && int(code) < len(builtinOperators) {
		return builtinOperators[code]
	}
	return "BUILTIN_" + strconv.Itoa(int(code))
}

// String fasst das Modell fuer Logs zusammen
func (m *Tflite) String() string {
	return fmt.Sprintf("tflite v%d: %d subgraphs, %d operator codes, %d buffers", m.Version, len(m.Subgraphs), len(m.OperatorCodes), m.NumBuffers)
}
