//go:build !cgo

// MODUL: importer/ort/stub
// ZWECK: Stub wenn CGO nicht verfuegbar ist
// HINWEISE: New gibt immer importer.ErrCGORequired zurueck

package ort

import (
	"github.com/arkcheck/arkcheck/importer"
	"github.com/arkcheck/arkcheck/model"
)

func init() {
	importer.Register(model.FormatOnnx, New)
}

// InitRuntime Stub
func InitRuntime() error {
	return importer.ErrCGORequired
}

// New Stub - gibt immer Fehler zurueck
func New(importer.Config) (importer.Importer, error) {
	return nil, importer.ErrCGORequired
}
