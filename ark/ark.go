// MODUL: ark
// ZWECK: Lesen und Schreiben von Ark-Frames (float32-Stream mit festem Header)
// INPUT: Rohe Bytes eines Ark-Files, Ziel-Tensor
// OUTPUT: Gefuellter Tensor bzw. serialisierter Output
// NEBENEFFEKTE: keine
// ABHAENGIGKEITEN: tensor, encoding/binary (Standardbibliothek)
// HINWEISE: Die ersten HeaderElems Elemente werden uebersprungen

package ark

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/arkcheck/arkcheck/tensor"
)

const (
	// HeaderElems ist die Anzahl float32-Elemente vor der Payload
	HeaderElems = 6

	// InputPayload ist die Payload-Laenge eines Input-Frames im Speech-Sample
	InputPayload = 440

	// ReferencePayload ist die Payload-Laenge eines Referenz-Frames im Speech-Sample
	ReferencePayload = 3425
)

// ErrTruncatedFrame wird zurueckgegeben wenn der Stream kuerzer als Header+Payload ist
var ErrTruncatedFrame = errors.New("ark: truncated frame")

// TruncatedFrameError beschreibt einen zu kurzen Frame
type TruncatedFrameError struct {
	Want int // benoetigte Elemente (Header + Payload)
	Got  int // vorhandene Elemente
}

func (e *TruncatedFrameError) Error() string {
	return fmt.Sprintf("ark: truncated frame: need %d elements, have %d", e.Want, e.Got)
}

func (e *TruncatedFrameError) Is(target error) bool {
	return target == ErrTruncatedFrame
}

// Decode interpretiert data als little-endian float32-Folge.
// Ueberzaehlige Bytes (kein volles Element) werden ignoriert.
func Decode(data []byte) []float32 {
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}

// Payload gibt die n Elemente nach dem Header zurueck.
func Payload(data []byte, n int) ([]float32, error) {
	values := Decode(data)
	if len(values) < HeaderElems+n {
		return nil, &TruncatedFrameError{Want: HeaderElems + n, Got: len(values)}
	}
	return values[HeaderElems : HeaderElems+n], nil
}

// ReadFrame kopiert die Payload eines Frames ab Index 0 in dst.
// Die Payload-Laenge ist dst.Len().
func ReadFrame(data []byte, dst *tensor.Tensor) error {
	payload, err := Payload(data, dst.Len())
	if err != nil {
		return err
	}
	dst.CopyFloat32(payload)
	return nil
}

// WriteFloats schreibt alle Elemente von t als little-endian float32.
// Quantisierte Tensoren werden dabei nach float32 gewandelt.
func WriteFloats(w io.Writer, t *tensor.Tensor) error {
	buf := make([]byte, 4*t.Len())
	for i := range t.Len() {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(float32(t.At(i))))
	}
	_, err := w.Write(buf)
	return err
}

// Encode baut einen Frame aus Header und Payload (Tests, Fixtures)
func Encode(header, payload []float32) []byte {
	buf := make([]byte, 0, 4*(len(header)+len(payload)))
	for _, v := range append(append([]float32(nil), header...), payload...) {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
	}
	return buf
}
