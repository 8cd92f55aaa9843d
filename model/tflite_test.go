package model

import (
	"errors"
	"testing"

	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/google/go-cmp/cmp"
)

type tfliteFixture struct {
	codes    []int32  // builtin code je operator_codes-Eintrag
	customs  []string // parallel zu codes, leer fuer builtin
	opIndex  []uint32 // opcode_index je Operator
	inputs   []int32
	outputs  []int32
	subgraph bool
}

func defaultTfliteFixture() tfliteFixture {
	return tfliteFixture{
		codes:    []int32{9, 25, 32},
		customs:  []string{"", "", "SpeechNorm"},
		opIndex:  []uint32{0, 0, 1, 2},
		inputs:   []int32{0},
		outputs:  []int32{1},
		subgraph: true,
	}
}

func int32Vector(b *flatbuffers.Builder, xs []int32) flatbuffers.UOffsetT {
	b.StartVector(4, len(xs), 4)
	for i := len(xs) - 1; i >= 0; i-- {
		b.PrependInt32(xs[i])
	}
	return b.EndVector(len(xs))
}

func offsetVector(b *flatbuffers.Builder, offs []flatbuffers.UOffsetT) flatbuffers.UOffsetT {
	b.StartVector(4, len(offs), 4)
	for i := len(offs) - 1; i >= 0; i-- {
		b.PrependUOffsetT(offs[i])
	}
	return b.EndVector(len(offs))
}

// buildTflite erzeugt einen minimalen TFLite-Flatbuffer mit einem Teilgraphen
// aus zwei Tensoren (input [1,440], output [1,3425]).
func buildTflite(f tfliteFixture) []byte {
	b := flatbuffers.NewBuilder(1024)

	var subgraphs []flatbuffers.UOffsetT
	if f.subgraph {
		names := []string{"input", "output"}
		shapes := [][]int32{{1, 440}, {1, 3425}}
		var tensors []flatbuffers.UOffsetT
		for i := range names {
			name := b.CreateString(names[i])
			shape := int32Vector(b, shapes[i])
			b.StartObject(4)
			b.PrependUOffsetTSlot(fbTensorShape, shape, 0)
			b.PrependByteSlot(fbTensorType, 0, 0)
			b.PrependUint32Slot(fbTensorBuffer, uint32(i+1), 0)
			b.PrependUOffsetTSlot(fbTensorName, name, 0)
			tensors = append(tensors, b.EndObject())
		}

		var ops []flatbuffers.UOffsetT
		for _, idx := range f.opIndex {
			in := int32Vector(b, []int32{0})
			out := int32Vector(b, []int32{1})
			b.StartObject(3)
			b.PrependUint32Slot(fbOperatorOpcodeIndex, idx, 0)
			b.PrependUOffsetTSlot(fbOperatorInputs, in, 0)
			b.PrependUOffsetTSlot(fbOperatorOutputs, out, 0)
			ops = append(ops, b.EndObject())
		}

		tv := offsetVector(b, tensors)
		ov := offsetVector(b, ops)
		inV := int32Vector(b, f.inputs)
		outV := int32Vector(b, f.outputs)
		name := b.CreateString("main")
		b.StartObject(5)
		b.PrependUOffsetTSlot(fbSubGraphTensors, tv, 0)
		b.PrependUOffsetTSlot(fbSubGraphInputs, inV, 0)
		b.PrependUOffsetTSlot(fbSubGraphOutputs, outV, 0)
		b.PrependUOffsetTSlot(fbSubGraphOperators, ov, 0)
		b.PrependUOffsetTSlot(fbSubGraphName, name, 0)
		subgraphs = append(subgraphs, b.EndObject())
	}

	var codes []flatbuffers.UOffsetT
	for i, code := range f.codes {
		var custom flatbuffers.UOffsetT
		if f.customs[i] != "" {
			custom = b.CreateString(f.customs[i])
		}
		b.StartObject(4)
		b.PrependInt8Slot(fbOpCodeDeprecatedBuiltin, int8(min(code, 127)), 0)
		if custom != 0 {
			b.PrependUOffsetTSlot(fbOpCodeCustom, custom, 0)
		}
		b.PrependInt32Slot(fbOpCodeVersion, 2, 1)
		b.PrependInt32Slot(fbOpCodeBuiltin, code, 0)
		codes = append(codes, b.EndObject())
	}

	var buffers []flatbuffers.UOffsetT
	for range 3 {
		b.StartObject(1)
		buffers = append(buffers, b.EndObject())
	}

	cv := offsetVector(b, codes)
	sv := offsetVector(b, subgraphs)
	bv := offsetVector(b, buffers)
	desc := b.CreateString("arkcheck fixture")

	b.StartObject(5)
	b.PrependUint32Slot(fbModelVersion, 3, 0)
	b.PrependUOffsetTSlot(fbModelOperatorCodes, cv, 0)
	b.PrependUOffsetTSlot(fbModelSubgraphs, sv, 0)
	b.PrependUOffsetTSlot(fbModelDescription, desc, 0)
	b.PrependUOffsetTSlot(fbModelBuffers, bv, 0)
	root := b.EndObject()
	b.FinishWithFileIdentifier(root, []byte(tfliteIdentifier))
	return b.FinishedBytes()
}

func TestDecodeTflite(t *testing.T) {
	m, err := DecodeTflite(buildTflite(defaultTfliteFixture()))
	if err != nil {
		t.Fatalf("DecodeTflite: %v", err)
	}

	if m.Version != 3 || m.Description != "arkcheck fixture" || m.NumBuffers != 3 {
		t.Errorf("Kopfdaten = v%d %q %d buffers", m.Version, m.Description, m.NumBuffers)
	}
	if len(m.Subgraphs) != 1 {
		t.Fatalf("erwartet 1 Teilgraph, bekommen %d", len(m.Subgraphs))
	}

	sg := m.Subgraphs[0]
	if sg.Name != "main" || len(sg.Tensors) != 2 || len(sg.Operators) != 4 {
		t.Errorf("Teilgraph = %q, %d Tensoren, %d Operatoren", sg.Name, len(sg.Tensors), len(sg.Operators))
	}
	if diff := cmp.Diff([]int32{1, 3425}, sg.Tensors[1].Shape); diff != "" {
		t.Errorf("output shape (-want +got):\n%s", diff)
	}

	wantOps := []string{"FULLY_CONNECTED", "SOFTMAX", "CUSTOM:SpeechNorm"}
	if diff := cmp.Diff(wantOps, m.Ops()); diff != "" {
		t.Errorf("Ops (-want +got):\n%s", diff)
	}
	if n := m.OpCounts()["FULLY_CONNECTED"]; n != 2 {
		t.Errorf("FULLY_CONNECTED gezaehlt %d, erwartet 2", n)
	}
	if m.OperatorCodes[0].Version != 2 {
		t.Errorf("operator code version = %d, erwartet 2", m.OperatorCodes[0].Version)
	}
}

func TestDecodeTfliteRejects(t *testing.T) {
	valid := buildTflite(defaultTfliteFixture())

	wrongID := append([]byte(nil), valid...)
	copy(wrongID[4:8], "XXXX")

	badOpcode := defaultTfliteFixture()
	badOpcode.opIndex = []uint32{0, 7}

	badTensor := defaultTfliteFixture()
	badTensor.inputs = []int32{5}

	noSubgraph := defaultTfliteFixture()
	noSubgraph.subgraph = false

	tests := []struct {
		name string
		data []byte
	}{
		{"Leer", nil},
		{"Zu kurz", []byte{1, 2, 3}},
		{"Falscher Identifier", wrongID},
		{"Opcode-Index ausserhalb", buildTflite(badOpcode)},
		{"Tensor-Index ausserhalb", buildTflite(badTensor)},
		{"Kein Teilgraph", buildTflite(noSubgraph)},
		{"Abgeschnitten", valid[:len(valid)/2]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeTflite(tt.data)
			if !errors.Is(err, ErrInvalidModel) {
				t.Errorf("err = %v, erwartet ErrInvalidModel", err)
			}
		})
	}
}

func TestBuiltinOperatorName(t *testing.T) {
	if got := BuiltinOperatorName(9); got != "FULLY_CONNECTED" {
		t.Errorf("BuiltinOperatorName(9) = %q", got)
	}
	if got := BuiltinOperatorName(999); got != "BUILTIN_999" {
		t.Errorf("BuiltinOperatorName(999) = %q", got)
	}
}
