// MODUL: onnx
// ZWECK: Strukturelle Verifikation und Dekodierung von ONNX ModelProto-Bytes
// INPUT: Protobuf-Bytes einer .onnx-Datei
// OUTPUT: *Onnx (Graph, Knoten, Ein-/Ausgaenge, Initializer-Metadaten)
// NEBENEFFEKTE: keine
// ABHAENGIGKEITEN: google.golang.org/protobuf/encoding/protowire
// HINWEISE: Feldnummern aus onnx.proto; Gewichte werden nicht kopiert

package model

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Onnx ist ein dekodiertes ONNX-Modell
type Onnx struct {
	IRVersion       int64
	ProducerName    string
	ProducerVersion string
	Domain          string
	ModelVersion    int64
	DocString       string
	Opsets          []OnnxOpset
	Graph           OnnxGraph

	raw []byte
	ops *opSet
}

type OnnxOpset struct {
	Domain  string
	Version int64
}

type OnnxGraph struct {
	Name         string
	Nodes        []OnnxNode
	Inputs       []OnnxValueInfo
	Outputs      []OnnxValueInfo
	Initializers []OnnxInitializer
}

type OnnxNode struct {
	Name    string
	OpType  string
	Domain  string
	Inputs  []string
	Outputs []string
}

// OnnxValueInfo beschreibt einen Graph-Ein- oder Ausgang
type OnnxValueInfo struct {
	Name     string
	ElemType int32
	Dims     []OnnxDim
}

// OnnxDim ist entweder statisch (Value) oder symbolisch (Param)
type OnnxDim struct {
	Value int64
	Param string
}

// OnnxInitializer sind die Metadaten eines Gewichts-Tensors
type OnnxInitializer struct {
	Name     string
	DataType int32
	Dims     []int64
	RawSize  int
}

func (*Onnx) Format() Format { return FormatOnnx }
func (*Onnx) sealed()        {}

func (m *Onnx) Ops() []string            { return m.ops.list() }
func (m *Onnx) OpCounts() map[string]int { return m.ops.counts() }

// Bytes gibt die originalen Protobuf-Bytes zurueck (fuer ONNX Runtime)
func (m *Onnx) Bytes() []byte { return m.raw }

// InputNames gibt die Graph-Eingaenge ohne Initializer zurueck
func (m *Onnx) InputNames() []string {
	inits := make(map[string]bool, len(m.Graph.Initializers))
	for _, t := range m.Graph.Initializers {
		inits[t.Name] = true
	}

	var names []string
	for _, in := range m.Graph.Inputs {
		if !inits[in.Name] {
			names = append(names, in.Name)
		}
	}
	return names
}

func (m *Onnx) OutputNames() []string {
	names := make([]string, 0, len(m.Graph.Outputs))
	for _, out := range m.Graph.Outputs {
		names = append(names, out.Name)
	}
	return names
}

// ============================================================================
// Verifikation
// ============================================================================

type fieldSpec struct {
	name   string
	typ    protowire.Type
	packed bool // repeated Skalar, darf auch gepackt (BytesType) kommen
	msg    msgSpec
}

type msgSpec map[protowire.Number]fieldSpec

// Schemas werden in init() verdrahtet, damit sie sich gegenseitig referenzieren koennen
var (
	onnxModelSpec      msgSpec
	onnxGraphSpec      msgSpec
	onnxNodeSpec       msgSpec
	onnxValueInfoSpec  msgSpec
	onnxTypeSpec       msgSpec
	onnxTensorTypeSpec msgSpec
	onnxShapeSpec      msgSpec
	onnxDimSpec        msgSpec
	onnxTensorSpec     msgSpec
	onnxOpsetSpec      msgSpec
)

func init() {
	onnxOpsetSpec = msgSpec{
		1: {name: "domain", typ: protowire.BytesType},
		2: {name: "version", typ: protowire.VarintType},
	}
	onnxDimSpec = msgSpec{
		1: {name: "dim_value", typ: protowire.VarintType},
		2: {name: "dim_param", typ: protowire.BytesType},
	}
	onnxShapeSpec = msgSpec{
		1: {name: "dim", typ: protowire.BytesType, msg: onnxDimSpec},
	}
	onnxTensorTypeSpec = msgSpec{
		1: {name: "elem_type", typ: protowire.VarintType},
		2: {name: "shape", typ: protowire.BytesType, msg: onnxShapeSpec},
	}
	onnxTypeSpec = msgSpec{
		1: {name: "tensor_type", typ: protowire.BytesType, msg: onnxTensorTypeSpec},
	}
	onnxValueInfoSpec = msgSpec{
		1: {name: "name", typ: protowire.BytesType},
		2: {name: "type", typ: protowire.BytesType, msg: onnxTypeSpec},
		3: {name: "doc_string", typ: protowire.BytesType},
	}
	onnxTensorSpec = msgSpec{
		1: {name: "dims", typ: protowire.VarintType, packed: true},
		2: {name: "data_type", typ: protowire.VarintType},
		8: {name: "name", typ: protowire.BytesType},
		9: {name: "raw_data", typ: protowire.BytesType},
	}
	onnxNodeSpec = msgSpec{
		1: {name: "input", typ: protowire.BytesType},
		2: {name: "output", typ: protowire.BytesType},
		3: {name: "name", typ: protowire.BytesType},
		4: {name: "op_type", typ: protowire.BytesType},
		5: {name: "attribute", typ: protowire.BytesType},
		6: {name: "doc_string", typ: protowire.BytesType},
		7: {name: "domain", typ: protowire.BytesType},
	}
	onnxGraphSpec = msgSpec{
		1:  {name: "node", typ: protowire.BytesType, msg: onnxNodeSpec},
		2:  {name: "name", typ: protowire.BytesType},
		5:  {name: "initializer", typ: protowire.BytesType, msg: onnxTensorSpec},
		10: {name: "doc_string", typ: protowire.BytesType},
		11: {name: "input", typ: protowire.BytesType, msg: onnxValueInfoSpec},
		12: {name: "output", typ: protowire.BytesType, msg: onnxValueInfoSpec},
		13: {name: "value_info", typ: protowire.BytesType, msg: onnxValueInfoSpec},
	}
	onnxModelSpec = msgSpec{
		1: {name: "ir_version", typ: protowire.VarintType},
		2: {name: "producer_name", typ: protowire.BytesType},
		3: {name: "producer_version", typ: protowire.BytesType},
		4: {name: "domain", typ: protowire.BytesType},
		5: {name: "model_version", typ: protowire.VarintType},
		6: {name: "doc_string", typ: protowire.BytesType},
		7: {name: "graph", typ: protowire.BytesType, msg: onnxGraphSpec},
		8: {name: "opset_import", typ: protowire.BytesType, msg: onnxOpsetSpec},
	}
}

// VerifyOnnx prueft die Wire-Struktur gegen das ModelProto-Schema:
// wohlgeformte Felder, passende Wire-Typen, ir_version und graph vorhanden.
func VerifyOnnx(data []byte) error {
	if len(data) == 0 {
		return invalid(FormatOnnx, "empty buffer")
	}
	if err := verifyMessage(data, onnxModelSpec, "ModelProto"); err != nil {
		return invalid(FormatOnnx, "%v", err)
	}

	var irVersion uint64
	var hasGraph bool
	_ = walk(data, func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error {
		switch num {
		case 1:
			irVersion = x
		case 7:
			hasGraph = true
		}
		return nil
	})
	if irVersion == 0 {
		return invalid(FormatOnnx, "ir_version missing")
	}
	if !hasGraph {
		return invalid(FormatOnnx, "graph missing")
	}
	return nil
}

func verifyMessage(b []byte, spec msgSpec, path string) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%s: %w", path, protowire.ParseError(n))
		}
		b = b[n:]

		fs, known := spec[num]
		if known && typ != fs.typ && !(fs.packed && typ == protowire.BytesType) {
			return fmt.Errorf("%s.%s: wire type %d, want %d", path, fs.name, typ, fs.typ)
		}

		if known && fs.msg != nil {
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return fmt.Errorf("%s.%s: %w", path, fs.name, protowire.ParseError(n))
			}
			if err := verifyMessage(v, fs.msg, path+"."+fs.name); err != nil {
				return err
			}
			b = b[n:]
			continue
		}

		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return fmt.Errorf("%s field %d: %w", path, num, protowire.ParseError(n))
		}
		b = b[n:]
	}
	return nil
}

// walk ruft fn fuer jedes Feld auf; v ist die Payload bei BytesType,
// x der Wert bei Varint/Fixed.
func walk(b []byte, fn func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		var v []byte
		var x uint64
		switch typ {
		case protowire.VarintType:
			x, n = protowire.ConsumeVarint(b)
		case protowire.Fixed32Type:
			var u uint32
			u, n = protowire.ConsumeFixed32(b)
			x = uint64(u)
		case protowire.Fixed64Type:
			x, n = protowire.ConsumeFixed64(b)
		case protowire.BytesType:
			v, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		if err := fn(num, typ, v, x); err != nil {
			return err
		}
	}
	return nil
}

// ============================================================================
// Dekodierung
// ============================================================================

// DecodeOnnx dekodiert verifizierte ModelProto-Bytes
func DecodeOnnx(data []byte) (*Onnx, error) {
	m := &Onnx{raw: data, ops: newOpSet()}

	err := walk(data, func(num protowire.Number, _ protowire.Type, v []byte, x uint64) error {
		switch num {
		case 1:
			m.IRVersion = int64(x)
		case 2:
			m.ProducerName = string(v)
		case 3:
			m.ProducerVersion = string(v)
		case 4:
			m.Domain = string(v)
		case 5:
			m.ModelVersion = int64(x)
		case 6:
			m.DocString = string(v)
		case 7:
			return decodeGraph(v, &m.Graph)
		case 8:
			var o OnnxOpset
			err := walk(v, func(num protowire.Number, _ protowire.Type, v []byte, x uint64) error {
				switch num {
				case 1:
					o.Domain = string(v)
				case 2:
					o.Version = int64(x)
				}
				return nil
			})
			m.Opsets = append(m.Opsets, o)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, invalid(FormatOnnx, "decode: %v", err)
	}

	for _, node := range m.Graph.Nodes {
		m.ops.add(node.OpType)
	}
	return m, nil
}

func decodeGraph(b []byte, g *OnnxGraph) error {
	return walk(b, func(num protowire.Number, _ protowire.Type, v []byte, _ uint64) error {
		switch num {
		case 1:
			var n OnnxNode
			if err := decodeNode(v, &n); err != nil {
				return err
			}
			g.Nodes = append(g.Nodes, n)
		case 2:
			g.Name = string(v)
		case 5:
			var t OnnxInitializer
			if err := decodeInitializer(v, &t); err != nil {
				return err
			}
			g.Initializers = append(g.Initializers, t)
		case 11, 12:
			var vi OnnxValueInfo
			if err := decodeValueInfo(v, &vi); err != nil {
				return err
			}
			if num == 11 {
				g.Inputs = append(g.Inputs, vi)
			} else {
				g.Outputs = append(g.Outputs, vi)
			}
		}
		return nil
	})
}

func decodeNode(b []byte, n *OnnxNode) error {
	return walk(b, func(num protowire.Number, _ protowire.Type, v []byte, _ uint64) error {
		switch num {
		case 1:
			n.Inputs = append(n.Inputs, string(v))
		case 2:
			n.Outputs = append(n.Outputs, string(v))
		case 3:
			n.Name = string(v)
		case 4:
			n.OpType = string(v)
		case 7:
			n.Domain = string(v)
		}
		return nil
	})
}

func decodeInitializer(b []byte, t *OnnxInitializer) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error {
		switch num {
		case 1:
			if typ == protowire.BytesType {
				for len(v) > 0 {
					d, n := protowire.ConsumeVarint(v)
					if n < 0 {
						return protowire.ParseError(n)
					}
					t.Dims = append(t.Dims, int64(d))
					v = v[n:]
				}
				return nil
			}
			t.Dims = append(t.Dims, int64(x))
		case 2:
			t.DataType = int32(x)
		case 8:
			t.Name = string(v)
		case 9:
			t.RawSize = len(v)
		}
		return nil
	})
}

func decodeValueInfo(b []byte, vi *OnnxValueInfo) error {
	return walk(b, func(num protowire.Number, _ protowire.Type, v []byte, _ uint64) error {
		switch num {
		case 1:
			vi.Name = string(v)
		case 2:
			// TypeProto.tensor_type
			return walk(v, func(num protowire.Number, _ protowire.Type, v []byte, _ uint64) error {
				if num != 1 {
					return nil
				}
				return decodeTensorType(v, vi)
			})
		}
		return nil
	})
}

func decodeTensorType(b []byte, vi *OnnxValueInfo) error {
	return walk(b, func(num protowire.Number, _ protowire.Type, v []byte, x uint64) error {
		switch num {
		case 1:
			vi.ElemType = int32(x)
		case 2:
			return walk(v, func(num protowire.Number, _ protowire.Type, v []byte, _ uint64) error {
				if num != 1 {
					return nil
				}
				var d OnnxDim
				err := walk(v, func(num protowire.Number, _ protowire.Type, v []byte, x uint64) error {
					switch num {
					case 1:
						d.Value = int64(x)
					case 2:
						d.Param = string(v)
					}
					return nil
				})
				vi.Dims = append(vi.Dims, d)
				return err
			})
		}
		return nil
	})
}

func (m *Onnx) String() string {
	return fmt.Sprintf("onnx ir%d %s %s: graph %q, %d nodes", m.IRVersion, m.ProducerName, m.ProducerVersion, m.Graph.Name, len(m.Graph.Nodes))
}
