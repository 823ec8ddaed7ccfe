// Package survival implements the Kaplan-Meier product-limit estimator for
// right-censored durations.
package survival

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

var (
	// ErrNoDurations is returned when estimating over an empty sample.
	ErrNoDurations = errors.New("no durations")
	// ErrLengthMismatch is returned when durations and event indicators
	// differ in length.
	ErrLengthMismatch = errors.New("durations and observed differ in length")
)

// Estimate is a fitted survival curve. Times holds the distinct durations
// in ascending order with a leading zero; Survival holds the step value of
// S(t) at each time, starting at 1 and non-increasing. Lower and Upper are
// the bounds of the 95% confidence band around Survival, derived with
// Greenwood's variance on the log(-log S) scale so the band stays inside
// [0, 1].
type Estimate struct {
	Times    []float64
	Survival []float64
	Lower    []float64
	Upper    []float64
}

// KaplanMeier fits the product-limit estimator to durations with the given
// event indicators: observed[i] is true when the duration ended in an event
// and false when subject i was censored at durations[i]. Every distinct
// duration contributes a step so the curve carries the full observed
// timeline, not only the event times.
func KaplanMeier(durations []float64, observed []bool) (*Estimate, error) {
	if len(durations) == 0 {
		return nil, ErrNoDurations
	}
	if len(durations) != len(observed) {
		return nil, ErrLengthMismatch
	}

	order := make([]int, len(durations))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		return durations[order[i]] < durations[order[j]]
	})

	z := distuv.UnitNormal.Quantile(0.975)

	est := &Estimate{}
	s := 1.0
	greenwood := 0.0
	atRisk := len(durations)

	record := func(t float64) {
		lo, hi := band(s, greenwood, z)
		est.Times = append(est.Times, t)
		est.Survival = append(est.Survival, s)
		est.Lower = append(est.Lower, lo)
		est.Upper = append(est.Upper, hi)
	}

	if durations[order[0]] > 0 {
		record(0)
	}

	for i := 0; i < len(order); {
		t := durations[order[i]]
		events, exits := 0, 0
		for i < len(order) && durations[order[i]] == t {
			if observed[order[i]] {
				events++
			}
			exits++
			i++
		}
		if events > 0 {
			d, n := float64(events), float64(atRisk)
			s *= 1 - d/n
			if events < atRisk {
				greenwood += d / (n * (n - d))
			}
		}
		record(t)
		atRisk -= exits
	}

	return est, nil
}

// band computes the log(-log) transformed Greenwood confidence bounds for a
// survival value. At the degenerate values 1 and 0 the transform is
// undefined and the band collapses onto the estimate.
func band(s, greenwood, z float64) (lo, hi float64) {
	if s >= 1 {
		return 1, 1
	}
	if s <= 0 {
		return 0, 0
	}
	logS := math.Log(s)
	theta := z * math.Sqrt(greenwood/(logS*logS))
	return math.Pow(s, math.Exp(theta)), math.Pow(s, math.Exp(-theta))
}
