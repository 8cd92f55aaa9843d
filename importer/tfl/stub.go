//go:build !cgo

// MODUL: importer/tfl/stub
// ZWECK: Stub wenn CGO nicht verfuegbar ist
// HINWEISE: New gibt immer importer.ErrCGORequired zurueck

package tfl

import (
	"github.com/arkcheck/arkcheck/importer"
	"github.com/arkcheck/arkcheck/model"
)

func init() {
	importer.Register(model.FormatTflite, New)
}

// New Stub - gibt immer Fehler zurueck
func New(importer.Config) (importer.Importer, error) {
	return nil, importer.ErrCGORequired
}
