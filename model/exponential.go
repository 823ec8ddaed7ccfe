package model

import "math"

// Exponential models conversion as c·(1−e^(−λt)): a fraction c of the cohort
// eventually converts, and those who do convert at exponential rate λ. Both
// parameters are fit by maximising the censored likelihood: converted
// subjects contribute the density c·λ·e^(−λC), subjects still pending
// contribute (1−c) + c·e^(−λN), the probability of never converting or of
// converting past the censoring horizon.
type Exponential struct {
	// Rate optionally pins λ so fitting only searches over c.
	Rate Fixed

	params Params
	fitted bool
}

// NewExponential creates an unfit exponential model with both parameters free.
func NewExponential() *Exponential {
	return &Exponential{}
}

func (e *Exponential) Name() string {
	return "Exponential"
}

// Fit maximises the censored log-likelihood over (c, λ) with L-BFGS and an
// analytic gradient. A NonConvergenceError still leaves the best-effort
// parameters on the model.
func (e *Exponential) Fit(obs Observations) error {
	if err := obs.validate(); err != nil {
		return err
	}
	k := obs.Conversions()
	if k == 0 {
		return ErrNoConversions
	}
	maxN := obs.MaxHorizon()

	nll := func(x []float64) float64 {
		c, l := x[0], x[1]
		ll := 0.0
		for i := range obs.B {
			if obs.B[i] {
				ll += math.Log(c) + math.Log(l) - l*obs.C[i]
			} else {
				ll += math.Log((1 - c) + c*math.Exp(-l*obs.N[i]))
			}
		}
		return -ll
	}
	grad := func(dst, x []float64) {
		c, l := x[0], x[1]
		dst[0], dst[1] = 0, 0
		for i := range obs.B {
			if obs.B[i] {
				dst[0] -= 1 / c
				dst[1] -= 1/l - obs.C[i]
			} else {
				ex := math.Exp(-l * obs.N[i])
				g := (1 - c) + c*ex
				dst[0] -= (ex - 1) / g
				dst[1] -= -c * obs.N[i] * ex / g
			}
		}
	}

	x0 := []float64{float64(k) / float64(obs.Len()), 1 / maxN}
	bounds := []bound{
		{1e-4, 1 - 1e-4},
		e.Rate.or(1e-4, 30/maxN),
	}
	x, err := minimizeBounded(nll, grad, x0, bounds)
	e.params = Params{"c": x[0], "lambd": x[1]}
	e.fitted = true
	if err != nil {
		return &NonConvergenceError{Params: e.Params(), Reason: err}
	}
	return nil
}

// Predict evaluates the closed form c·(1−e^(−λt)) at each query time.
func (e *Exponential) Predict(ts []float64) ([]float64, error) {
	if !e.fitted {
		return nil, ErrNotFitted
	}
	c, l := e.params["c"], e.params["lambd"]
	ps := make([]float64, len(ts))
	for i, t := range ts {
		ps[i] = c * (1 - math.Exp(-l*t))
	}
	return ps, nil
}

// PredictFinal reports the asymptotic conversion rate c.
func (e *Exponential) PredictFinal() (float64, error) {
	if !e.fitted {
		return 0, ErrNotFitted
	}
	return e.params["c"], nil
}

// Params returns a copy of the fitted parameters under the keys "c" and
// "lambd".
func (e *Exponential) Params() Params {
	p := make(Params, len(e.params))
	for k, v := range e.params {
		p[k] = v
	}
	return p
}

// RestoreParams replaces the fitted state with previously fitted parameters.
func (e *Exponential) RestoreParams(p Params) {
	e.params = Params{"c": p["c"], "lambd": p["lambd"]}
	e.fitted = true
}
