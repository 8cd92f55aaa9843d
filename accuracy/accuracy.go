// MODUL: accuracy
// ZWECK: Fehlerstatistik pro Frame und ueber viele Frames (Output vs. Referenz)
// INPUT: Output- und Referenzwerte, Zeilen/Spalten eines Frames
// OUTPUT: ErrorStats, Report mit max/avg/rms/stddev
// NEBENEFFEKTE: keine
// ABHAENGIGKEITEN: gonum/stat (Quantile fuer RMSSpread)
// HINWEISE: RMS pro Frame geht ungewichtet in den Gesamtmittelwert ein

package accuracy

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

const (
	// DefaultThreshold ist die absolute Fehlerschwelle pro Element
	DefaultThreshold = 0.001

	// relEpsilon verhindert Division durch 0 beim relativen Fehler
	relEpsilon = 1e-20
)

var (
	ErrNumericDomain = errors.New("accuracy: numeric domain error")
	ErrNoScores      = errors.New("accuracy: no scores accumulated")
	ErrShapeMismatch = errors.New("accuracy: frame shape exceeds buffer")
)

// NumericDomainError wird bei negativem Radikanden der Standardabweichung erzeugt
type NumericDomainError struct {
	Radicand float64
}

func (e *NumericDomainError) Error() string {
	return fmt.Sprintf("accuracy: numeric domain error: stddev radicand %g is negative", e.Radicand)
}

func (e *NumericDomainError) Is(target error) bool {
	return target == ErrNumericDomain
}

// ErrorStats akkumuliert Fehler. Summen und Zaehler wachsen nur,
// MaxError und MaxRelError sind laufende Maxima.
type ErrorStats struct {
	NumScores          int     `json:"numScores"`
	NumErrors          int     `json:"numErrors"`
	Threshold          float64 `json:"threshold"`
	MaxError           float64 `json:"maxError"`
	RMSError           float64 `json:"rmsError"`
	SumError           float64 `json:"sumError"`
	SumRMSError        float64 `json:"sumRmsError"`
	SumSquaredError    float64 `json:"sumSquaredError"`
	MaxRelError        float64 `json:"maxRelError"`
	SumRelError        float64 `json:"sumRelError"`
	SumSquaredRelError float64 `json:"sumSquaredRelError"`
}

// NewErrorStats gibt einen genullten Akkumulator mit Standard-Schwelle zurueck
func NewErrorStats() ErrorStats {
	return ErrorStats{Threshold: DefaultThreshold}
}

// CompareFrame vergleicht output mit reference fuer rows*cols Elemente
// (row-major) und gibt die Frame-Statistik sowie die Anzahl Elemente
// ueber der Schwelle zurueck.
func CompareFrame(output, reference []float64, rows, cols int) (ErrorStats, int) {
	frame := NewErrorStats()

	numErrors := 0
	for i := range rows {
		for j := range cols {
			score := output[i*cols+j]
			refScore := reference[i*cols+j]

			e := math.Abs(refScore - score)
			rel := e / (math.Abs(refScore) + relEpsilon)

			frame.NumScores++
			frame.SumError += e
			frame.SumSquaredError += e * e
			frame.MaxError = max(frame.MaxError, e)
			frame.SumRelError += rel
			frame.SumSquaredRelError += rel * rel
			frame.MaxRelError = max(frame.MaxRelError, rel)

			if e > frame.Threshold {
				numErrors++
			}
		}
	}

	frame.RMSError = math.Sqrt(frame.SumSquaredError / float64(rows*cols))
	frame.SumRMSError += frame.RMSError
	frame.NumErrors = numErrors
	return frame, numErrors
}

// CompareFrameChecked ist CompareFrame mit Laengenpruefung
func CompareFrameChecked(output, reference []float64, rows, cols int) (ErrorStats, int, error) {
	if rows <= 0 || cols <= 0 {
		return ErrorStats{}, 0, fmt.Errorf("%w: %dx%d", ErrShapeMismatch, rows, cols)
	}
	if rows > len(output)/cols || rows > len(reference)/cols {
		return ErrorStats{}, 0, fmt.Errorf("%w: %dx%d does not fit output %d, reference %d",
			ErrShapeMismatch, rows, cols, len(output), len(reference))
	}
	frame, n := CompareFrame(output, reference, rows, cols)
	return frame, n, nil
}

// Accumulate fuehrt eine Frame-Statistik in die Gesamtstatistik zusammen.
func Accumulate(frame ErrorStats, total *ErrorStats) {
	total.NumErrors += frame.NumErrors
	total.NumScores += frame.NumScores
	total.SumRMSError += frame.RMSError
	total.SumError += frame.SumError
	total.SumSquaredError += frame.SumSquaredError
	total.MaxError = max(total.MaxError, frame.MaxError)
	total.SumRelError += frame.SumRelError
	total.SumSquaredRelError += frame.SumSquaredRelError
	total.MaxRelError = max(total.MaxRelError, frame.MaxRelError)
}

// ============================================================================
// Report
// ============================================================================

// Report ist die Zusammenfassung ueber alle Frames einer Auswertung
type Report struct {
	MaxError    float64 `json:"maxError"`
	AvgError    float64 `json:"avgError"`
	AvgRMS      float64 `json:"avgRms"`
	StdDev      float64 `json:"stdDev"`
	MaxRelError float64 `json:"maxRelError"`
	AvgRelError float64 `json:"avgRelError"`
	NumErrors   int     `json:"numErrors"`
	NumScores   int     `json:"numScores"`
	Frames      int     `json:"frames"`
}

// Summarize leitet die Kennzahlen aus total ab. frames ist die Anzahl
// Frames einer Utterance.
func Summarize(total ErrorStats, frames int) (Report, error) {
	if total.NumScores == 0 || frames <= 0 {
		return Report{}, ErrNoScores
	}

	stddev, err := StdDev(total)
	if err != nil {
		return Report{}, err
	}

	n := float64(total.NumScores)
	return Report{
		MaxError:    total.MaxError,
		AvgError:    total.SumError / n,
		AvgRMS:      total.SumRMSError / float64(frames),
		StdDev:      stddev,
		MaxRelError: total.MaxRelError,
		AvgRelError: total.SumRelError / n,
		NumErrors:   total.NumErrors,
		NumScores:   total.NumScores,
		Frames:      frames,
	}, nil
}

// StdDev berechnet die Populations-Standardabweichung der absoluten Fehler.
func StdDev(total ErrorStats) (float64, error) {
	if total.NumScores == 0 {
		return 0, ErrNoScores
	}

	n := float64(total.NumScores)
	mean := total.SumError / n
	radicand := total.SumSquaredError/n - mean*mean
	if radicand < 0 || math.IsNaN(radicand) {
		return 0, &NumericDomainError{Radicand: radicand}
	}
	return math.Sqrt(radicand), nil
}

// Spread beschreibt die Verteilung der RMS-Werte pro Frame
type Spread struct {
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	Max float64 `json:"max"`
}

// RMSSpread berechnet Median, 95. Perzentil und Maximum der Frame-RMS-Werte
func RMSSpread(frameRMS []float64) Spread {
	if len(frameRMS) == 0 {
		return Spread{}
	}

	sorted := slices.Clone(frameRMS)
	slices.Sort(sorted)
	return Spread{
		P50: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		P95: stat.Quantile(0.95, stat.Empirical, sorted, nil),
		Max: sorted[len(sorted)-1],
	}
}
