package model

import (
	"math"

	"gonum.org/v1/gonum/mathext"
)

// logFloor caps a single log-likelihood term. A zero-elapsed conversion has
// zero density under shapes above one and infinite density below one; either
// log term would poison the whole objective, so both are clamped to the
// floor and the optimizer stays on finite ground.
const logFloor = -745.0

// Gamma models conversion time as Gamma(shape k, rate λ) scaled by the
// eventual conversion rate c. Converted subjects contribute the density
// c·Gamma-PDF(C), pending subjects the probability (1−c) + c·(1−Gamma-CDF(N)).
type Gamma struct {
	// Rate optionally pins λ; Shape optionally pins k.
	Rate  Fixed
	Shape Fixed

	params Params
	fitted bool
}

// NewGamma creates an unfit gamma model with all three parameters free.
func NewGamma() *Gamma {
	return &Gamma{}
}

func (g *Gamma) Name() string {
	return "Gamma"
}

// Fit maximises the censored log-likelihood over (c, λ, k) with Nelder-Mead;
// the incomplete-gamma terms have no cheap analytic gradient.
func (g *Gamma) Fit(obs Observations) error {
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
		lg, _ := math.Lgamma(k)
		ll := 0.0
		for i := range obs.B {
			var term float64
			if obs.B[i] {
				term = math.Log(c) + k*math.Log(l) + (k-1)*math.Log(obs.C[i]) - l*obs.C[i] - lg
			} else {
				term = math.Log((1 - c) + c*(1-mathext.GammaIncReg(k, l*obs.N[i])))
			}
			if math.IsNaN(term) || math.IsInf(term, 1) || term < logFloor {
				term = logFloor
			}
			ll += term
		}
		return -ll
	}

	x0 := []float64{float64(conversions) / float64(obs.Len()), 1 / maxN, 10}
	bounds := []bound{
		{1e-4, 1 - 1e-4},
		g.Rate.or(1e-4, 30/maxN),
		g.Shape.or(1, 30),
	}
	x, err := minimizeBounded(nll, nil, x0, bounds)
	g.params = Params{"c": x[0], "lambd": x[1], "k": x[2]}
	g.fitted = true
	if err != nil {
		return &NonConvergenceError{Params: g.Params(), Reason: err}
	}
	return nil
}

// Predict evaluates c·Gamma-CDF(t; k, λ) at each query time.
func (g *Gamma) Predict(ts []float64) ([]float64, error) {
	if !g.fitted {
		return nil, ErrNotFitted
	}
	c, l, k := g.params["c"], g.params["lambd"], g.params["k"]
	ps := make([]float64, len(ts))
	for i, t := range ts {
		if t <= 0 {
			ps[i] = 0
			continue
		}
		ps[i] = c * mathext.GammaIncReg(k, l*t)
	}
	return ps, nil
}

// PredictFinal reports the asymptotic conversion rate c.
func (g *Gamma) PredictFinal() (float64, error) {
	if !g.fitted {
		return 0, ErrNotFitted
	}
	return g.params["c"], nil
}

// Params returns a copy of the fitted parameters under the keys "c",
// "lambd" and "k".
func (g *Gamma) Params() Params {
	p := make(Params, len(g.params))
	for k, v := range g.params {
		p[k] = v
	}
	return p
}

// RestoreParams replaces the fitted state with previously fitted parameters.
func (g *Gamma) RestoreParams(p Params) {
	g.params = Params{"c": p["c"], "lambd": p["lambd"], "k": p["k"]}
	g.fitted = true
}
