package ark

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/arkcheck/arkcheck/tensor"
)

func TestReadFrame(t *testing.T) {
	header := []float32{9, 9, 9, 9, 9, 9}
	payload := []float32{1, 2, 3, 4, 5}

	dst, _ := tensor.New([]int{1, 4}, tensor.Float32)
	if err := ReadFrame(Encode(header, payload), dst); err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]float32{1, 2, 3, 4}, dst.Float32s()); diff != "" {
		t.Errorf("Payload falsch (-want +got):\n%s", diff)
	}
}

func TestReadFrameTruncated(t *testing.T) {
	dst, _ := tensor.New([]int{InputPayload}, tensor.Float32)
	data := Encode(make([]float32, HeaderElems), make([]float32, InputPayload-1))

	err := ReadFrame(data, dst)
	if !errors.Is(err, ErrTruncatedFrame) {
		t.Fatalf("error = %v, erwartet ErrTruncatedFrame", err)
	}

	var te *TruncatedFrameError
	if !errors.As(err, &te) || te.Want != HeaderElems+InputPayload || te.Got != HeaderElems+InputPayload-1 {
		t.Errorf("TruncatedFrameError = %+v", te)
	}
}

func TestReadFrameQuantized(t *testing.T) {
	dst, _ := tensor.New([]int{3}, tensor.Uint8)
	if err := ReadFrame(Encode(make([]float32, HeaderElems), []float32{1, 2.6, 999}), dst); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]uint8{1, 3, 255}, dst.Uint8s()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestWriteFloats(t *testing.T) {
	src, _ := tensor.New([]int{3}, tensor.Float32)
	src.CopyFloat32([]float32{0.5, -1, 2})

	var buf bytes.Buffer
	if err := WriteFloats(&buf, src); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]float32{0.5, -1, 2}, Decode(buf.Bytes())); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}
