package model

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultNLimit is the risk-set size below which the step function stops
// recording; the tail beyond it is too thin to estimate from.
const DefaultNLimit = 30

// StepFunction is the non-parametric conversion estimator. Fitting sweeps
// the conversion and exit events in time order, tracking how many subjects
// are still observable (the risk set) and how many of them have converted,
// and records the empirical rate k/n at every event time.
type StepFunction struct {
	NLimit int

	ts, ks, ns []float64
	fitted     bool
}

// NewStepFunction creates a step-function model with the default risk-set
// floor.
func NewStepFunction() *StepFunction {
	return &StepFunction{NLimit: DefaultNLimit}
}

func (s *StepFunction) Name() string {
	return "StepFunction"
}

type sweepEvent struct {
	t  float64
	dk int
	dn int
}

// Fit builds the step function. Each converted subject contributes a
// success event at its conversion time; every subject contributes an exit
// event at its censoring time, which removes it from the risk set along
// with its success if it had one, since beyond its own horizon a subject
// can no longer be counted. Conversions are processed before exits that share a
// timestamp. The sweep stops once the risk set drops below NLimit,
// including the step that crossed the floor.
func (s *StepFunction) Fit(obs Observations) error {
	if err := obs.validate(); err != nil {
		return err
	}
	limit := s.NLimit
	if limit <= 0 {
		limit = DefaultNLimit
	}

	events := make([]sweepEvent, 0, 2*obs.Len())
	for i := range obs.B {
		if obs.B[i] {
			events = append(events, sweepEvent{t: obs.C[i], dk: 1})
			events = append(events, sweepEvent{t: obs.N[i], dk: -1, dn: -1})
		} else {
			events = append(events, sweepEvent{t: obs.N[i], dn: -1})
		}
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].t != events[j].t {
			return events[i].t < events[j].t
		}
		return events[i].dn > events[j].dn
	})

	n, k := obs.Len(), 0
	s.ts = []float64{0}
	s.ks = []float64{0}
	s.ns = []float64{float64(n)}
	for _, e := range events {
		k += e.dk
		n += e.dn
		s.ts = append(s.ts, e.t)
		s.ks = append(s.ks, float64(k))
		s.ns = append(s.ns, float64(n))
		if n < limit {
			break
		}
	}
	s.fitted = true
	return nil
}

// Predict looks up the recorded rate at the last step at or before each
// query time. Queries past the recorded horizon, or negative, are NaN.
func (s *StepFunction) Predict(ts []float64) ([]float64, error) {
	if !s.fitted {
		return nil, ErrNotFitted
	}
	ps := make([]float64, len(ts))
	for i, t := range ts {
		j := stepIndex(s.ts, t)
		if j < 0 {
			ps[i] = math.NaN()
			continue
		}
		ps[i] = s.ks[j] / s.ns[j]
	}
	return ps, nil
}

// PredictInterval adds the 5th and 95th Beta(k, n-k) quantiles around each
// rate. At the edges the Beta degenerates to a point mass, so k==0 bounds
// collapse to 0 and k==n bounds collapse to 1.
func (s *StepFunction) PredictInterval(ts []float64) (p, lo, hi []float64, err error) {
	p, err = s.Predict(ts)
	if err != nil {
		return nil, nil, nil, err
	}
	lo = make([]float64, len(ts))
	hi = make([]float64, len(ts))
	for i, t := range ts {
		if math.IsNaN(p[i]) {
			lo[i], hi[i] = math.NaN(), math.NaN()
			continue
		}
		j := stepIndex(s.ts, t)
		k, n := s.ks[j], s.ns[j]
		switch {
		case k <= 0:
			lo[i], hi[i] = 0, 0
		case k >= n:
			lo[i], hi[i] = 1, 1
		default:
			beta := distuv.Beta{Alpha: k, Beta: n - k}
			lo[i], hi[i] = beta.Quantile(0.05), beta.Quantile(0.95)
		}
	}
	return p, lo, hi, nil
}

// stepIndex returns the index of the last recorded time at or before t, or
// -1 when t falls outside the recorded range.
func stepIndex(ts []float64, t float64) int {
	if len(ts) == 0 || t < ts[0] || t > ts[len(ts)-1] {
		return -1
	}
	j := sort.Search(len(ts), func(i int) bool { return ts[i] > t })
	return j - 1
}
