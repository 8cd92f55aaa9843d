package importer

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/arkcheck/arkcheck/envconfig"
)

// Backend ist das Ausfuehrungs-Backend eines Importers
type Backend string

const (
	BackendCPU     Backend = "cpu"
	BackendCUDA    Backend = "cuda"
	BackendXNNPACK Backend = "xnnpack"
)

// Prefer ist die Leistungspraeferenz
type Prefer string

const (
	PreferFast      Prefer = "fast"
	PreferSustained Prefer = "sustained"
	PreferLow       Prefer = "low"
)

var (
	backends = []string{string(BackendCPU), string(BackendCUDA), string(BackendXNNPACK)}
	prefers  = []string{string(PreferFast), string(PreferSustained), string(PreferLow)}
)

// UnknownNameError meldet einen unbekannten Backend- oder Praeferenznamen
type UnknownNameError struct {
	Kind       string
	Name       string
	Suggestion string
}

func (e *UnknownNameError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("importer: unknown %s %q, did you mean %q?", e.Kind, e.Name, e.Suggestion)
	}
	return fmt.Sprintf("importer: unknown %s %q", e.Kind, e.Name)
}

// ValidateNames prueft backend und prefer. Leere Werte fallen auf die
// Defaults aus envconfig zurueck.
func ValidateNames(backend, prefer string) (Backend, Prefer, error) {
	if backend == "" {
		backend = envconfig.Backend()
	}
	if prefer == "" {
		prefer = envconfig.Prefer()
	}

	b := strings.ToLower(strings.TrimSpace(backend))
	if err := checkName("backend", b, backends); err != nil {
		return "", "", err
	}

	p := strings.ToLower(strings.TrimSpace(prefer))
	if err := checkName("preference", p, prefers); err != nil {
		return "", "", err
	}

	return Backend(b), Prefer(p), nil
}

func checkName(kind, name string, known []string) error {
	best, bestDist := "", 3
	for _, k := range known {
		if k == name {
			return nil
		}
		if d := levenshtein.ComputeDistance(name, k); d < bestDist {
			best, bestDist = k, d
		}
	}
	return &UnknownNameError{Kind: kind, Name: name, Suggestion: best}
}

// Threads bildet eine Praeferenz auf eine Thread-Anzahl ab.
// fast nutzt alle Kerne (oder ARKCHECK_THREADS), sustained die Haelfte, low einen.
func Threads(p Prefer) int {
	n := runtime.NumCPU()
	if limit := int(envconfig.Threads()); limit > 0 {
		n = min(n, limit)
	}

	switch p {
	case PreferSustained:
		return max(1, n/2)
	case PreferLow:
		return 1
	default:
		return n
	}
}
