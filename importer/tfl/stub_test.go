//go:build !cgo

package tfl

import (
	"errors"
	"testing"

	"github.com/arkcheck/arkcheck/importer"
	"github.com/arkcheck/arkcheck/model"
)

func TestStubRegistriert(t *testing.T) {
	if importer.Defaults().Tflite == nil {
		t.Fatal("TFLite-Factory nicht registriert")
	}

	_, err := New(importer.Config{Raw: &model.Tflite{}})
	if !errors.Is(err, importer.ErrCGORequired) {
		t.Errorf("New() error = %v, erwartet ErrCGORequired", err)
	}
}
