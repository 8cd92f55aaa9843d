package cmd

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkcheck/arkcheck/accuracy"
	"github.com/arkcheck/arkcheck/evaluate"
	"github.com/arkcheck/arkcheck/store"
	"github.com/arkcheck/arkcheck/version"
)

func TestNewCLICommands(t *testing.T) {
	root := NewCLI()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Equal(t, []string{"serve", "verify", "ops", "runs"}, names)
}

func TestVersionFlag(t *testing.T) {
	root := NewCLI()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--version"})

	require.NoError(t, root.Execute())
	assert.Equal(t, "arkcheck version is "+version.Version+"\n", out.String())
}

func TestVerifyArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"Ohne config", []string{"verify", "--input", "a.ark", "--reference", "b.ark"}, `required flag(s) "config" not set`},
		{"Ohne input", []string{"verify", "-c", "m.json"}, "at least one --input"},
		{"Ungleiche Anzahl", []string{"verify", "-c", "m.json", "--input", "a.ark,b.ark", "--reference", "r.ark"}, "2 input frames but 1 reference"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := NewCLI()
			root.SetOut(&bytes.Buffer{})
			root.SetErr(&bytes.Buffer{})
			root.SetArgs(tt.args)

			err := root.Execute()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRenderResult(t *testing.T) {
	var out bytes.Buffer
	res := &evaluate.Result{
		ID:      "0190f3a2-0000-7000-8000-000000000000",
		Model:   "speech.tflite",
		Backend: "cpu",
		Prefer:  "fast",
		Latency: evaluate.Latency{Mean: 1.234, P95: 2},
		Report:  accuracy.Report{Frames: 2, NumScores: 6850, NumErrors: 3, MaxError: 0.25},
	}

	require.NoError(t, renderResult(&out, res))

	s := out.String()
	assert.Contains(t, s, "run 0190f3a2-0000-7000-8000-000000000000")
	assert.Contains(t, s, "speech.tflite (cpu/fast)")
	assert.Contains(t, s, "6850")
	assert.Contains(t, s, "0.25")
	assert.Contains(t, s, "1.23 ms")
}

func TestRunsCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")
	t.Setenv("ARKCHECK_DB", dbPath)

	st := &store.Store{DBPath: dbPath}
	require.NoError(t, st.SaveRun(store.Run{
		ID:        "abcdef0123456789",
		Model:     "speech.onnx",
		Backend:   "cuda",
		Prefer:    "low",
		Report:    accuracy.Report{Frames: 4},
		CreatedAt: time.Now(),
	}))
	require.NoError(t, st.Close())

	root := NewCLI()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"runs"})
	require.NoError(t, root.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "MODEL")
	assert.Contains(t, lines[1], "abcdef01")
	assert.Contains(t, lines[1], "cuda/low")

	out.Reset()
	root = NewCLI()
	root.SetOut(&out)
	root.SetArgs([]string{"runs", "rm", "abcdef0123456789"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "deleted 'abcdef0123456789'")
}
