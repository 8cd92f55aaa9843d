package harness

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"slices"
)

// ModelConfig beschreibt ein zu ladendes Modell. Feldnamen entsprechen
// den Modell-Deskriptoren (modelFile, inputSize, ...).
type ModelConfig struct {
	InputSize   []int          `json:"inputSize"`
	OutputSize  []int          `json:"outputSize"`
	SampleRate  int            `json:"sampleRate,omitempty"`
	ModelFile   string         `json:"modelFile"`
	LabelsFile  string         `json:"labelsFile,omitempty"`
	PreOptions  map[string]any `json:"preOptions,omitempty"`
	PostOptions PostOptions    `json:"postOptions"`
	IsQuantized bool           `json:"isQuantized,omitempty"`
}

// PostOptions steuert die Nachbearbeitung des Outputs
type PostOptions struct {
	Softmax bool           `json:"softmax,omitempty"`
	Extra   map[string]any `json:"-"`
}

// UnmarshalJSON liest softmax und legt alle anderen Schluessel in Extra ab
func (p *PostOptions) UnmarshalJSON(b []byte) error {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}

	*p = PostOptions{}
	if v, ok := m["softmax"]; ok {
		s, ok := v.(bool)
		if !ok {
			return fmt.Errorf("postOptions.softmax: expected bool, got %T", v)
		}
		p.Softmax = s
		delete(m, "softmax")
	}
	if len(m) > 0 {
		p.Extra = m
	}
	return nil
}

func (c ModelConfig) clone() ModelConfig {
	c.InputSize = slices.Clone(c.InputSize)
	c.OutputSize = slices.Clone(c.OutputSize)
	c.PreOptions = maps.Clone(c.PreOptions)
	c.PostOptions.Extra = maps.Clone(c.PostOptions.Extra)
	return c
}

// ReadModelConfig liest einen Modell-Deskriptor aus einer JSON-Datei
func ReadModelConfig(path string) (ModelConfig, error) {
	var cfg ModelConfig

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	if cfg.ModelFile == "" {
		return cfg, fmt.Errorf("%s: modelFile is required", path)
	}
	return cfg, nil
}
