// MODUL: tensor
// ZWECK: Puffer fuer Input-, Output- und Referenz-Tensoren eines Harness
// INPUT: Shapes ([]int), Quantisierungs-Flag
// OUTPUT: Tensor-Set mit drei unabhaengigen, genullten Puffern
// NEBENEFFEKTE: keine
// ABHAENGIGKEITEN: keine (nur Standardbibliothek)
// HINWEISE: Element-Typ ist uint8 (quantisiert) oder float32 (Standard)

package tensor

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidShape wird zurueckgegeben wenn eine Shape leer ist oder eine Dimension <= 0 hat
var ErrInvalidShape = errors.New("tensor: invalid shape")

// DType beschreibt den Element-Typ eines Tensors
type DType int

const (
	Float32 DType = iota
	Uint8
)

// String implementiert Stringer
func (d DType) String() string {
	switch d {
	case Uint8:
		return "uint8"
	default:
		return "float32"
	}
}

// Size gibt die Groesse eines Elements in Bytes zurueck
func (d DType) Size() int {
	if d == Uint8 {
		return 1
	}
	return 4
}

// ============================================================================
// Tensor
// ============================================================================

// Tensor ist ein homogener Zahlenpuffer fester Laenge.
// Genau einer der beiden Slices ist gesetzt, passend zu DType.
type Tensor struct {
	Shape []int
	DType DType

	f32 []float32
	u8  []uint8
}

// New alloziert einen genullten Tensor fuer die Shape.
func New(shape []int, dtype DType) (*Tensor, error) {
	n, err := NumElements(shape)
	if err != nil {
		return nil, err
	}

	t := &Tensor{Shape: append([]int(nil), shape...), DType: dtype}
	switch dtype {
	case Uint8:
		t.u8 = make([]uint8, n)
	default:
		t.DType = Float32
		t.f32 = make([]float32, n)
	}
	return t, nil
}

// MaxElements begrenzt die Elemente eines Tensors (1 GiB bei float32)
const MaxElements = 1 << 28

// NumElements berechnet das Produkt aller Dimensionen.
// Produkte ueber MaxElements liefern ErrInvalidShape.
func NumElements(shape []int) (int, error) {
	if len(shape) == 0 {
		return 0, fmt.Errorf("%w: empty shape", ErrInvalidShape)
	}
	n := 1
	for i, d := range shape {
		if d <= 0 {
			return 0, fmt.Errorf("%w: dimension %d of %v is %d", ErrInvalidShape, i, shape, d)
		}
		if d > MaxElements/n {
			return 0, fmt.Errorf("%w: %v exceeds %d elements", ErrInvalidShape, shape, MaxElements)
		}
		n *= d
	}
	return n, nil
}

// Len gibt die Anzahl Elemente zurueck
func (t *Tensor) Len() int {
	if t.DType == Uint8 {
		return len(t.u8)
	}
	return len(t.f32)
}

// Float32s gibt den float32-Puffer zurueck (nil bei quantisierten Tensoren).
// Der Slice ist der Puffer selbst, keine Kopie.
func (t *Tensor) Float32s() []float32 { return t.f32 }

// Uint8s gibt den uint8-Puffer zurueck (nil bei float32-Tensoren).
func (t *Tensor) Uint8s() []uint8 { return t.u8 }

// Data gibt den Puffer als any zurueck, fuer Importer die ueber den Typ schalten
func (t *Tensor) Data() any {
	if t.DType == Uint8 {
		return t.u8
	}
	return t.f32
}

// Floats gibt eine float64-Kopie aller Elemente zurueck
func (t *Tensor) Floats() []float64 {
	out := make([]float64, t.Len())
	if t.DType == Uint8 {
		for i, v := range t.u8 {
			out[i] = float64(v)
		}
		return out
	}
	for i, v := range t.f32 {
		out[i] = float64(v)
	}
	return out
}

// At gibt das Element i als float64 zurueck
func (t *Tensor) At(i int) float64 {
	if t.DType == Uint8 {
		return float64(t.u8[i])
	}
	return float64(t.f32[i])
}

// CopyFloat32 kopiert src ab Index 0 in den Tensor.
// Quantisierte Tensoren bekommen gerundete, auf [0,255] begrenzte Werte.
// Gibt die Anzahl kopierter Elemente zurueck.
func (t *Tensor) CopyFloat32(src []float32) int {
	if t.DType != Uint8 {
		return copy(t.f32, src)
	}

	n := min(len(src), len(t.u8))
	for i := range n {
		t.u8[i] = saturate(src[i])
	}
	return n
}

// Zero setzt alle Elemente auf 0
func (t *Tensor) Zero() {
	clear(t.f32)
	clear(t.u8)
}

func saturate(v float32) uint8 {
	switch {
	case math.IsNaN(float64(v)), v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(math.Round(float64(v)))
}

// ============================================================================
// Set - die drei Tensoren eines Harness
// ============================================================================

// Set haelt Input, Output und Referenz. Die Puffer teilen sich nie Speicher.
type Set struct {
	Input     *Tensor
	Output    *Tensor
	Reference *Tensor
}

// Allocate erstellt Input-, Output- und Referenz-Tensor.
// Referenz hat dieselbe Shape wie der Output.
func Allocate(inputShape, outputShape []int, quantized bool) (*Set, error) {
	dtype := Float32
	if quantized {
		dtype = Uint8
	}

	input, err := New(inputShape, dtype)
	if err != nil {
		return nil, fmt.Errorf("input: %w", err)
	}
	output, err := New(outputShape, dtype)
	if err != nil {
		return nil, fmt.Errorf("output: %w", err)
	}
	reference, err := New(outputShape, dtype)
	if err != nil {
		return nil, fmt.Errorf("reference: %w", err)
	}

	return &Set{Input: input, Output: output, Reference: reference}, nil
}
