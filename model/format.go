// MODUL: format
// ZWECK: Modellformat-Erkennung ueber die Dateiendung, RawModel-Union
// INPUT: Modell-Pfad oder -URL
// OUTPUT: Format-Tag, dekodiertes RawModel
// NEBENEFFEKTE: keine
// ABHAENGIGKEITEN: tflite.go, onnx.go, openvino.go
// HINWEISE: Genau eine Variante pro erfolgreichem Load; Dispatch per Type-Switch

package model

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
)

// Format ist das Container-Format eines Modells
type Format int

const (
	FormatTflite Format = iota + 1
	FormatOnnx
	FormatOpenVino
)

func (f Format) String() string {
	switch f {
	case FormatTflite:
		return "TFLITE"
	case FormatOnnx:
		return "ONNX"
	case FormatOpenVino:
		return "OPENVINO"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

var (
	ErrUnrecognizedFormat = errors.New("model: unrecognized format")
	ErrInvalidModel       = errors.New("model: invalid model")
)

// UnrecognizedFormatError traegt die unbekannte Endung
type UnrecognizedFormatError struct {
	Ext string
}

func (e *UnrecognizedFormatError) Error() string {
	return fmt.Sprintf("model: unrecognized format %q", e.Ext)
}

func (e *UnrecognizedFormatError) Is(target error) bool { return target == ErrUnrecognizedFormat }

// InvalidModelError wird bei fehlgeschlagener Verifikation/Dekodierung erzeugt
type InvalidModelError struct {
	Format Format
	Reason string
}

func (e *InvalidModelError) Error() string {
	return fmt.Sprintf("model: invalid %s model: %s", e.Format, e.Reason)
}

func (e *InvalidModelError) Is(target error) bool { return target == ErrInvalidModel }

func invalid(f Format, format string, args ...any) error {
	return &InvalidModelError{Format: f, Reason: fmt.Sprintf(format, args...)}
}

// ============================================================================
// RawModel - geschlossene Union
// ============================================================================

// RawModel ist ein dekodiertes, noch nicht kompiliertes Modell.
// Implementiert nur von *Tflite, *Onnx und *OpenVino.
type RawModel interface {
	Format() Format

	// Ops gibt die Operationstypen des Graphen in Reihenfolge des ersten Auftretens zurueck
	Ops() []string

	// OpCounts gibt die Anzahl Knoten je Operationstyp zurueck
	OpCounts() map[string]int

	sealed()
}

// Extension gibt die Endung ohne Punkt zurueck. Query und Fragment einer
// URL werden ignoriert.
func Extension(modelFile string) string {
	p := modelFile
	if u, err := url.Parse(modelFile); err == nil && u.Path != "" {
		p = u.Path
	}
	return strings.ToLower(strings.TrimPrefix(path.Ext(p), "."))
}

// ClassifyFormat bestimmt das Format rein ueber die Dateiendung
func ClassifyFormat(modelFile string) (Format, error) {
	switch ext := Extension(modelFile); ext {
	case "tflite":
		return FormatTflite, nil
	case "onnx":
		return FormatOnnx, nil
	case "bin":
		return FormatOpenVino, nil
	default:
		return 0, &UnrecognizedFormatError{Ext: ext}
	}
}

// DescriptorFile leitet die .xml-Netzbeschreibung aus dem .bin-Pfad ab.
// Die Endung wird wie in Extension ohne Ruecksicht auf Gross/Klein erkannt.
func DescriptorFile(modelFile string) string {
	if p, ok := swapBin(modelFile); ok {
		return p
	}

	u, err := url.Parse(modelFile)
	if err != nil {
		return modelFile
	}
	p, ok := swapBin(u.Path)
	if !ok {
		return modelFile
	}
	u.Path = p
	return u.String()
}

// swapBin ersetzt .bin durch .xml, .BIN durch .XML
func swapBin(p string) (string, bool) {
	ext := path.Ext(p)
	if !strings.EqualFold(ext, ".bin") {
		return p, false
	}
	xml := ".xml"
	if ext == ".BIN" {
		xml = ".XML"
	}
	return strings.TrimSuffix(p, ext) + xml, true
}

// Decode dekodiert Tflite- oder Onnx-Bytes. OpenVino braucht zusaetzlich
// die Netzbeschreibung, siehe NewOpenVino.
func Decode(format Format, data []byte) (RawModel, error) {
	switch format {
	case FormatTflite:
		return DecodeTflite(data)
	case FormatOnnx:
		if err := VerifyOnnx(data); err != nil {
			return nil, err
		}
		return DecodeOnnx(data)
	case FormatOpenVino:
		return nil, fmt.Errorf("model: %s needs a network description, use NewOpenVino", format)
	default:
		return nil, fmt.Errorf("model: unknown format tag %d", int(format))
	}
}
