package importer

import (
	"math"

	"github.com/arkcheck/arkcheck/tensor"
)

// Softmax normalisiert die letzte Dimension eines Float32-Tensors in place.
// Quantisierte Tensoren bleiben unveraendert.
func Softmax(t *tensor.Tensor) {
	data := t.Float32s()
	if data == nil || len(t.Shape) == 0 {
		return
	}

	cols := t.Shape[len(t.Shape)-1]
	for row := 0; row+cols <= len(data); row += cols {
		softmaxRow(data[row : row+cols])
	}
}

func softmaxRow(x []float32) {
	maxVal := float32(math.Inf(-1))
	for _, v := range x {
		maxVal = max(maxVal, v)
	}

	var sum float64
	for i, v := range x {
		e := math.Exp(float64(v - maxVal))
		x[i] = float32(e)
		sum += e
	}
	for i := range x {
		x[i] = float32(float64(x[i]) / sum)
	}
}
