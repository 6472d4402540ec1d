// Package anomaly scores sales series with population Z-scores and flags
// the periods that deviate from the series mean by at least a threshold.
//
// Detection is pure: no I/O, no shared state, safe for concurrent use.
package anomaly

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	"salesdash/internal/core"
)

const (
	// DefaultThreshold is the |z| at or above which a period is anomalous.
	DefaultThreshold = 2.0

	// DefaultPrecision is the number of decimals z-scores are reported with.
	DefaultPrecision = 2

	// NoRounding disables z-score rounding when used as Precision.
	NoRounding = -1
)

// Detector holds the classification parameters. Construct it with Default
// or NewDetector; a zero Precision rounds z-scores to whole numbers.
type Detector struct {
	Threshold float64
	Precision int
}

// NewDetector returns a detector with the given threshold and precision.
// A non-positive or non-finite threshold falls back to DefaultThreshold, a
// negative precision disables rounding.
func NewDetector(threshold float64, precision int) Detector {
	return Detector{Threshold: normalizeThreshold(threshold), Precision: precision}
}

// Default returns the detector used when nothing is configured.
func Default() Detector {
	return NewDetector(DefaultThreshold, DefaultPrecision)
}

// WithThreshold returns a copy of d using threshold, or d unchanged when the
// threshold is not usable.
func (d Detector) WithThreshold(threshold float64) Detector {
	if !validThreshold(threshold) {
		return d
	}
	d.Threshold = threshold
	return d
}

// Detect scores observations with the package defaults and the given threshold.
func Detect(observations []core.SalesObservation, threshold float64) (core.AnomalySeries, error) {
	return NewDetector(threshold, DefaultPrecision).Detect(observations)
}

// Detect scores every observation and returns them in input order.
//
// Mean and standard deviation are population statistics over the whole
// series. An empty series yields an empty result, a single point or a
// zero-variance series yields all z = 0 with nothing flagged. Any non-finite
// amount rejects the whole series with *core.InvalidInputError.
//
// When Precision >= 0 the z-score is rounded half away from zero to that many
// decimals before classification, so the flag always agrees with the reported
// score.
func (d Detector) Detect(observations []core.SalesObservation) (core.AnomalySeries, error) {
	threshold := normalizeThreshold(d.Threshold)

	for i, o := range observations {
		if math.IsNaN(o.Amount) || math.IsInf(o.Amount, 0) {
			return core.AnomalySeries{}, &core.InvalidInputError{
				Index:  i,
				Period: o.Period,
				Reason: fmt.Sprintf("amount %v is not a finite number", o.Amount),
			}
		}
	}

	out := core.AnomalySeries{
		Points:    make([]core.ScoredObservation, len(observations)),
		Threshold: threshold,
	}
	for i, o := range observations {
		out.Points[i] = core.ScoredObservation{SalesObservation: o}
	}
	if len(observations) < 2 || constant(observations) {
		return out, nil
	}

	values := make(stats.Float64Data, len(observations))
	for i, o := range observations {
		values[i] = o.Amount
	}
	mean, sigma, err := meanStdDev(values)
	if err != nil {
		return core.AnomalySeries{}, err
	}
	if unstable(mean, sigma) {
		rescale(values)
		if mean, sigma, err = meanStdDev(values); err != nil {
			return core.AnomalySeries{}, err
		}
	}
	if sigma == 0 || math.IsNaN(sigma) {
		return out, nil
	}

	for i, v := range values {
		z := round((v-mean)/sigma, d.Precision)
		out.Points[i].ZScore = z
		out.Points[i].IsAnomaly = math.Abs(z) >= threshold
	}
	return out, nil
}

// meanStdDev returns the mean and population standard deviation of values.
func meanStdDev(values stats.Float64Data) (float64, float64, error) {
	mean, err := stats.Mean(values)
	if err != nil {
		return 0, 0, fmt.Errorf("mean: %w", err)
	}
	sigma, err := stats.StandardDeviationPopulation(values)
	if err != nil {
		return 0, 0, fmt.Errorf("standard deviation: %w", err)
	}
	return mean, sigma, nil
}

// unstable reports whether the statistics overflowed, or underflowed to a
// zero sigma on a series known not to be constant.
func unstable(mean, sigma float64) bool {
	return math.IsInf(mean, 0) || math.IsNaN(sigma) || math.IsInf(sigma, 0) || sigma == 0
}

// rescale divides values in place by their largest magnitude. Z-scores are
// invariant under scaling, and values in [-1, 1] keep the sums finite.
func rescale(values stats.Float64Data) {
	var peak float64
	for _, v := range values {
		peak = math.Max(peak, math.Abs(v))
	}
	if peak == 0 {
		return
	}
	for i := range values {
		values[i] /= peak
	}
}

// constant reports whether every amount is identical. Checked directly
// because the floating point mean of equal values may differ from them.
func constant(observations []core.SalesObservation) bool {
	for _, o := range observations[1:] {
		if o.Amount != observations[0].Amount {
			return false
		}
	}
	return true
}

func round(v float64, precision int) float64 {
	if precision < 0 {
		return v
	}
	p := math.Pow(10, float64(precision))
	r := math.Round(v*p) / p
	if r == 0 {
		return 0 // drop negative zero
	}
	return r
}

func validThreshold(t float64) bool {
	return t > 0 && !math.IsInf(t, 0) && !math.IsNaN(t)
}

func normalizeThreshold(t float64) float64 {
	if !validThreshold(t) {
		return DefaultThreshold
	}
	return t
}
