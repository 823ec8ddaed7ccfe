package model

import "math"

// Weibull models conversion as c·(1−e^(−(λt)^k)). The shape k bends the
// hazard: below one conversions front-load, above one they ramp up. With
// k pinned at one the model collapses to Exponential.
type Weibull struct {
	// Rate optionally pins λ; Shape optionally pins k.
	Rate  Fixed
	Shape Fixed

	params Params
	fitted bool
}

// NewWeibull creates an unfit Weibull model with all three parameters free.
func NewWeibull() *Weibull {
	return &Weibull{}
}

func (w *Weibull) Name() string {
	return "Weibull"
}

// Fit maximises the censored log-likelihood over (c, λ, k) with Nelder-Mead.
// Zero-elapsed conversions are floored the same way as in the gamma fit.
func (w *Weibull) Fit(obs Observations) error {
	if err := obs.validate(); err != nil {
		return err
	}
	conversions := obs.Conversions()
	if conversions == 0 {
		return ErrNoConversions
	}
	maxN := obs.MaxHorizon()

	nll := func(x []float64) float64 {
		c, l, k := x[0], x[1], x[2]
		ll := 0.0
		for i := range obs.B {
			var term float64
			if obs.B[i] {
				t := obs.C[i]
				term = math.Log(c) + math.Log(k) + k*math.Log(l) + (k-1)*math.Log(t) - math.Pow(l*t, k)
			} else {
				term = math.Log((1 - c) + c*math.Exp(-math.Pow(l*obs.N[i], k)))
			}
			if math.IsNaN(term) || math.IsInf(term, 1) || term < logFloor {
				term = logFloor
			}
			ll += term
		}
		return -ll
	}

	x0 := []float64{float64(conversions) / float64(obs.Len()), 1 / maxN, 1}
	bounds := []bound{
		{1e-4, 1 - 1e-4},
		w.Rate.or(1e-4, 30/maxN),
		w.Shape.or(0.1, 10),
	}
	x, err := minimizeBounded(nll, nil, x0, bounds)
	w.params = Params{"c": x[0], "lambd": x[1], "k": x[2]}
	w.fitted = true
	if err != nil {
		return &NonConvergenceError{Params: w.Params(), Reason: err}
	}
	return nil
}

// Predict evaluates c·(1−e^(−(λt)^k)) at each query time.
func (w *Weibull) Predict(ts []float64) ([]float64, error) {
	if !w.fitted {
		return nil, ErrNotFitted
	}
	c, l, k := w.params["c"], w.params["lambd"], w.params["k"]
	ps := make([]float64, len(ts))
	for i, t := range ts {
		if t <= 0 {
			ps[i] = 0
			continue
		}
		ps[i] = c * (1 - math.Exp(-math.Pow(l*t, k)))
	}
	return ps, nil
}

// PredictFinal reports the asymptotic conversion rate c.
func (w *Weibull) PredictFinal() (float64, error) {
	if !w.fitted {
		return 0, ErrNotFitted
	}
	return w.params["c"], nil
}

// Params returns a copy of the fitted parameters under the keys "c",
// "lambd" and "k".
func (w *Weibull) Params() Params {
	p := make(Params, len(w.params))
	for k, v := range w.params {
		p[k] = v
	}
	return p
}

// RestoreParams replaces the fitted state with previously fitted parameters.
func (w *Weibull) RestoreParams(p Params) {
	w.params = Params{"c": p["c"], "lambd": p["lambd"], "k": p["k"]}
	w.fitted = true
}
