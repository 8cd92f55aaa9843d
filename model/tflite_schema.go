// MODUL: tflite_schema
// ZWECK: Zugriff auf die Tabellen des TFLite-Flatbuffer-Schemas (schema.fbs)
// INPUT: Flatbuffer-Bytes
// OUTPUT: Lazy Accessoren fuer Model, OperatorCode, SubGraph, Operator, Tensor
// NEBENEFFEKTE: keine
// ABHAENGIGKEITEN: github.com/google/flatbuffers/go
// HINWEISE: Nur die Felder die der Loader braucht; Layout wie von flatc erzeugt

package model

import (
	flatbuffers "github.com/google/flatbuffers/go"
)

// vtable-Offset fuer Feld n eines Flatbuffer-Tables
func slot(n int) flatbuffers.VOffsetT {
	return flatbuffers.VOffsetT(4 + 2*n)
}

type fbTable struct {
	_tab flatbuffers.Table
}

func (t *fbTable) Init(buf []byte, i flatbuffers.UOffsetT) {
	t._tab.Bytes = buf
	t._tab.Pos = i
}

func (t *fbTable) field(n int) flatbuffers.UOffsetT {
	return flatbuffers.UOffsetT(t._tab.Offset(slot(n)))
}

func (t *fbTable) uint32(n int, def uint32) uint32 {
	if o := t.field(n); o != 0 {
		return t._tab.GetUint32(o + t._tab.Pos)
	}
	return def
}

func (t *fbTable) int32(n int, def int32) int32 {
	if o := t.field(n); o != 0 {
		return t._tab.GetInt32(o + t._tab.Pos)
	}
	return def
}

func (t *fbTable) int8(n int, def int8) int8 {
	if o := t.field(n); o != 0 {
		return t._tab.GetInt8(o + t._tab.Pos)
	}
	return def
}

func (t *fbTable) byteVal(n int, def byte) byte {
	if o := t.field(n); o != 0 {
		return t._tab.GetByte(o + t._tab.Pos)
	}
	return def
}

func (t *fbTable) str(n int) string {
	if o := t.field(n); o != 0 {
		return string(t._tab.ByteVector(o + t._tab.Pos))
	}
	return ""
}

func (t *fbTable) vectorLen(n int) int {
	if o := t.field(n); o != 0 {
		return t._tab.VectorLen(o)
	}
	return 0
}

// table setzt obj auf das j-te Element eines Vektors von Tables
func (t *fbTable) table(n, j int, obj *fbTable) bool {
	o := t.field(n)
	if o == 0 {
		return false
	}
	x := t._tab.Vector(o)
	x += flatbuffers.UOffsetT(j) * 4
	x = t._tab.Indirect(x)
	obj.Init(t._tab.Bytes, x)
	return true
}

func (t *fbTable) int32s(n int) []int32 {
	o := t.field(n)
	if o == 0 {
		return nil
	}
	a := t._tab.Vector(o)
	out := make([]int32, t._tab.VectorLen(o))
	for j := range out {
		out[j] = t._tab.GetInt32(a + flatbuffers.UOffsetT(j*4))
	}
	return out
}

// ============================================================================
// Schema-Tabellen
// ============================================================================

// Feld-Indizes aus schema.fbs
const (
	fbModelVersion       = 0
	fbModelOperatorCodes = 1
	fbModelSubgraphs     = 2
	fbModelDescription   = 3
	fbModelBuffers       = 4

	fbOpCodeDeprecatedBuiltin = 0
	fbOpCodeCustom            = 1
	fbOpCodeVersion           = 2
	fbOpCodeBuiltin           = 3

	fbSubGraphTensors   = 0
	fbSubGraphInputs    = 1
	fbSubGraphOutputs   = 2
	fbSubGraphOperators = 3
	fbSubGraphName      = 4

	fbTensorShape  = 0
	fbTensorType   = 1
	fbTensorBuffer = 2
	fbTensorName   = 3

	fbOperatorOpcodeIndex = 0
	fbOperatorInputs      = 1
	fbOperatorOutputs     = 2
)

// tfliteIdentifier ist der file_identifier des TFLite-Schemas
const tfliteIdentifier = "TFL3"

type fbModel struct{ fbTable }

func getRootAsModel(buf []byte, offset flatbuffers.UOffsetT) *fbModel {
	n := flatbuffers.GetUOffsetT(buf[offset:])
	x := &fbModel{}
	x.Init(buf, n+offset)
	return x
}

func (m *fbModel) Version() uint32          { return m.uint32(fbModelVersion, 0) }
func (m *fbModel) Description() string      { return m.str(fbModelDescription) }
func (m *fbModel) OperatorCodesLength() int { return m.vectorLen(fbModelOperatorCodes) }
func (m *fbModel) SubgraphsLength() int     { return m.vectorLen(fbModelSubgraphs) }
func (m *fbModel) BuffersLength() int       { return m.vectorLen(fbModelBuffers) }

func (m *fbModel) OperatorCodes(obj *fbOperatorCode, j int) bool {
	return m.table(fbModelOperatorCodes, j, &obj.fbTable)
}

func (m *fbModel) Subgraphs(obj *fbSubGraph, j int) bool {
	return m.table(fbModelSubgraphs, j, &obj.fbTable)
}

type fbOperatorCode struct{ fbTable }

// BuiltinCode folgt tflite::GetBuiltinCode: Maximum aus altem und neuem Feld
func (c *fbOperatorCode) BuiltinCode() int32 {
	return max(int32(c.int8(fbOpCodeDeprecatedBuiltin, 0)), c.int32(fbOpCodeBuiltin, 0))
}

func (c *fbOperatorCode) CustomCode() string { return c.str(fbOpCodeCustom) }
func (c *fbOperatorCode) Version() int32     { return c.int32(fbOpCodeVersion, 1) }

type fbSubGraph struct{ fbTable }

func (s *fbSubGraph) Name() string         { return s.str(fbSubGraphName) }
func (s *fbSubGraph) Inputs() []int32      { return s.int32s(fbSubGraphInputs) }
func (s *fbSubGraph) Outputs() []int32     { return s.int32s(fbSubGraphOutputs) }
func (s *fbSubGraph) TensorsLength() int   { return s.vectorLen(fbSubGraphTensors) }
func (s *fbSubGraph) OperatorsLength() int { return s.vectorLen(fbSubGraphOperators) }

func (s *fbSubGraph) Tensors(obj *fbTensor, j int) bool {
	return s.table(fbSubGraphTensors, j, &obj.fbTable)
}

func (s *fbSubGraph) Operators(obj *fbOperator, j int) bool {
	return s.table(fbSubGraphOperators, j, &obj.fbTable)
}

type fbTensor struct{ fbTable }

func (t *fbTensor) Shape() []int32 { return t.int32s(fbTensorShape) }
func (t *fbTensor) Type() byte     { return t.byteVal(fbTensorType, 0) }
func (t *fbTensor) Buffer() uint32 { return t.uint32(fbTensorBuffer, 0) }
func (t *fbTensor) Name() string   { return t.str(fbTensorName) }

type fbOperator struct{ fbTable }

func (o *fbOperator) OpcodeIndex() uint32 { return o.uint32(fbOperatorOpcodeIndex, 0) }
func (o *fbOperator) Inputs() []int32     { return o.int32s(fbOperatorInputs) }
func (o *fbOperator) Outputs() []int32    { return o.int32s(fbOperatorOutputs) }
