// Package model provides estimators for time-to-conversion with
// right-censored observations. Each model is fit on an observation triple
// (C, N, B) and predicts the fraction of a cohort that has converted by a
// given elapsed time.
package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFitted is returned when a model is queried before Fit.
	ErrNotFitted = errors.New("model has not been fit")
	// ErrNoObservations is returned when fitting on an empty triple.
	ErrNoObservations = errors.New("no observations")
	// ErrLengthMismatch is returned when the observation arrays disagree in length.
	ErrLengthMismatch = errors.New("observation arrays differ in length")
	// ErrNoConversions is returned by parametric fits when no subject has
	// converted; the censored likelihood has no finite maximum in that case.
	ErrNoConversions = errors.New("no conversions in observations")
)

// Params maps a parameter name to its fitted value.
type Params map[string]float64

// Model is a strategy for estimating conversion over elapsed time. Fit
// consumes an observation triple and replaces any previously fitted state;
// Predict evaluates the fitted curve at each query time. Query times the
// model cannot answer (beyond a non-parametric model's recorded horizon)
// yield NaN for that point rather than an error.
type Model interface {
	Fit(obs Observations) error
	Predict(ts []float64) ([]float64, error)
	Name() string
}

// IntervalPredictor is implemented by models that can bound their
// estimates; bounds follow the point estimate's NaN policy.
type IntervalPredictor interface {
	Model
	PredictInterval(ts []float64) (p, lo, hi []float64, err error)
}

// FinalPredictor is implemented by models with a finite asymptotic
// conversion rate, the fraction of the cohort that ever converts.
type FinalPredictor interface {
	PredictFinal() (float64, error)
}

// Parametric is implemented by models whose entire fitted state is a compact
// parameter map, which makes the fit cacheable and restorable.
type Parametric interface {
	Model
	Params() Params
	RestoreParams(p Params)
}

// NonConvergenceError reports that the optimizer gave up before meeting its
// convergence criteria. The model keeps the best-effort parameters, so the
// caller may inspect them and decide whether the fit is acceptable.
type NonConvergenceError struct {
	Params Params
	Reason error
}

func (e *NonConvergenceError) Error() string {
	return fmt.Sprintf("optimizer did not converge (best effort params %v): %v", e.Params, e.Reason)
}

func (e *NonConvergenceError) Unwrap() error {
	return e.Reason
}

// Fixed is an optional override for a single model parameter. The zero
// value leaves the parameter free; FixedAt pins it so fitting clamps the
// parameter to the given value.
type Fixed struct {
	value float64
	set   bool
}

// FixedAt pins a parameter at v.
func FixedAt(v float64) Fixed {
	return Fixed{value: v, set: true}
}

// Value reports the pinned value and whether the parameter is pinned.
func (f Fixed) Value() (float64, bool) {
	return f.value, f.set
}

// or returns a collapsed bound when the parameter is pinned, and the given
// free bound otherwise.
func (f Fixed) or(lo, hi float64) bound {
	if f.set {
		return bound{f.value, f.value}
	}
	return bound{lo, hi}
}
