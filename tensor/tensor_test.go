package tensor

import (
	"errors"
	"testing"
)

func TestAllocate(t *testing.T) {
	tests := []struct {
		name      string
		quantized bool
		dtype     DType
	}{
		{"float32", false, Float32},
		{"quantisiert", true, Uint8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := Allocate([]int{1, 440}, []int{1, 3425}, tt.quantized)
			if err != nil {
				t.Fatal(err)
			}

			if set.Input.Len() != 440 {
				t.Errorf("Input.Len() = %d, erwartet 440", set.Input.Len())
			}
			if set.Output.Len() != 3425 || set.Reference.Len() != 3425 {
				t.Errorf("Output/Reference Laenge = %d/%d, erwartet 3425", set.Output.Len(), set.Reference.Len())
			}
			for _, tensor := range []*Tensor{set.Input, set.Output, set.Reference} {
				if tensor.DType != tt.dtype {
					t.Errorf("DType = %v, erwartet %v", tensor.DType, tt.dtype)
				}
			}
			if tt.quantized && set.Input.Float32s() != nil {
				t.Error("quantisierter Tensor hat float32-Puffer")
			}
			if !tt.quantized && set.Input.Uint8s() != nil {
				t.Error("float32-Tensor hat uint8-Puffer")
			}
		})
	}
}

func TestAllocateNotAliased(t *testing.T) {
	set, err := Allocate([]int{4}, []int{4}, false)
	if err != nil {
		t.Fatal(err)
	}

	set.Output.Float32s()[0] = 7
	if set.Reference.Float32s()[0] != 0 {
		t.Error("Output und Reference teilen sich Speicher")
	}
}

func TestAllocateInvalidShape(t *testing.T) {
	for _, shape := range [][]int{nil, {}, {1, 0}, {3, -1}, {1 << 32, 1 << 32}, {1 << 62, 3}, {MaxElements + 1}} {
		if _, err := Allocate(shape, []int{1}, false); !errors.Is(err, ErrInvalidShape) {
			t.Errorf("Allocate(%v) error = %v, erwartet ErrInvalidShape", shape, err)
		}
		if _, err := Allocate([]int{1}, shape, true); !errors.Is(err, ErrInvalidShape) {
			t.Errorf("Allocate(output %v) error = %v, erwartet ErrInvalidShape", shape, err)
		}
	}
}

func TestCopyFloat32(t *testing.T) {
	f, _ := New([]int{3}, Float32)
	if n := f.CopyFloat32([]float32{1.5, 2.5, 3.5, 4.5}); n != 3 {
		t.Errorf("kopiert = %d, erwartet 3", n)
	}
	if got := f.Float32s()[2]; got != 3.5 {
		t.Errorf("f[2] = %v", got)
	}

	q, _ := New([]int{4}, Uint8)
	q.CopyFloat32([]float32{-3, 1.6, 300, 42})
	want := []uint8{0, 2, 255, 42}
	for i, v := range q.Uint8s() {
		if v != want[i] {
			t.Errorf("q[%d] = %d, erwartet %d", i, v, want[i])
		}
	}

	q.Zero()
	if q.At(3) != 0 {
		t.Error("Zero() hat nicht genullt")
	}
}

func TestNumElementsLimit(t *testing.T) {
	n, err := NumElements([]int{1 << 14, 1 << 14})
	if err != nil || n != MaxElements {
		t.Fatalf("NumElements = %d, %v, erwartet %d", n, err, MaxElements)
	}

	for _, shape := range [][]int{{1 << 32, 1 << 32}, {1 << 62, 3}, {2, MaxElements/2 + 1}} {
		if n, err := NumElements(shape); !errors.Is(err, ErrInvalidShape) {
			t.Errorf("NumElements(%v) = %d, %v, erwartet ErrInvalidShape", shape, n, err)
		}
	}
}
