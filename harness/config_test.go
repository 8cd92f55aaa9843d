package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestReadModelConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "speech.json")
	data := `{
		"inputSize": [1, 440],
		"outputSize": [1, 3425],
		"sampleRate": 16000,
		"modelFile": "https://example.com/speech.tflite",
		"preOptions": {},
		"postOptions": {"softmax": true, "labels": "top5"},
		"isQuantized": false
	}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := ReadModelConfig(path)
	if err != nil {
		t.Fatalf("ReadModelConfig: %v", err)
	}

	want := ModelConfig{
		InputSize:   []int{1, 440},
		OutputSize:  []int{1, 3425},
		SampleRate:  16000,
		ModelFile:   "https://example.com/speech.tflite",
		PreOptions:  map[string]any{},
		PostOptions: PostOptions{Softmax: true, Extra: map[string]any{"labels": "top5"}},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestReadModelConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"Ohne modelFile", `{"inputSize": [1, 4]}`},
		{"Kein JSON", `inputSize=1`},
		{"Softmax kein bool", `{"modelFile": "m.onnx", "postOptions": {"softmax": "yes"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "model.json")
			if err := os.WriteFile(path, []byte(tt.data), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := ReadModelConfig(path); err == nil {
				t.Error("erwartet Fehler")
			}
		})
	}
}

func TestConfigClone(t *testing.T) {
	cfg := ModelConfig{
		InputSize:   []int{1, 4},
		PreOptions:  map[string]any{"norm": true},
		PostOptions: PostOptions{Extra: map[string]any{"k": 1}},
	}

	c := cfg.clone()
	c.InputSize[1] = 8
	c.PreOptions["norm"] = false
	c.PostOptions.Extra["k"] = 2

	if cfg.InputSize[1] != 4 || cfg.PreOptions["norm"] != true || cfg.PostOptions.Extra["k"] != 1 {
		t.Errorf("erwartet unabhaengige Kopie, original veraendert: %+v", cfg)
	}
}
