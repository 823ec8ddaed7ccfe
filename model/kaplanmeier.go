package model

import (
	"math"

	"github.com/hscells/funnel/survival"
)

// KaplanMeier estimates conversion as the complement of the product-limit
// survival curve. Each subject contributes an effective event time: the
// conversion time when it converted, the censoring time otherwise.
type KaplanMeier struct {
	ts, rate, lo, hi []float64
	fitted           bool
}

// NewKaplanMeier creates an unfit Kaplan-Meier model.
func NewKaplanMeier() *KaplanMeier {
	return &KaplanMeier{}
}

func (k *KaplanMeier) Name() string {
	return "KaplanMeier"
}

// Fit estimates the survival curve over the effective event times and stores
// its complement. The confidence band flips with the complement: the lower
// conversion bound comes from the upper survival bound and vice versa.
func (k *KaplanMeier) Fit(obs Observations) error {
	if err := obs.validate(); err != nil {
		return err
	}
	durations := make([]float64, obs.Len())
	for i := range durations {
		if obs.B[i] {
			durations[i] = obs.C[i]
		} else {
			durations[i] = obs.N[i]
		}
	}
	est, err := survival.KaplanMeier(durations, obs.B)
	if err != nil {
		return err
	}
	k.ts = est.Times
	k.rate = make([]float64, len(est.Times))
	k.lo = make([]float64, len(est.Times))
	k.hi = make([]float64, len(est.Times))
	for i := range est.Times {
		k.rate[i] = 1 - est.Survival[i]
		k.lo[i] = 1 - est.Upper[i]
		k.hi[i] = 1 - est.Lower[i]
	}
	k.fitted = true
	return nil
}

// Predict looks up the estimated conversion rate at the last step at or
// before each query time. Queries outside the observed range are NaN.
func (k *KaplanMeier) Predict(ts []float64) ([]float64, error) {
	if !k.fitted {
		return nil, ErrNotFitted
	}
	ps := make([]float64, len(ts))
	for i, t := range ts {
		j := stepIndex(k.ts, t)
		if j < 0 {
			ps[i] = math.NaN()
			continue
		}
		ps[i] = k.rate[j]
	}
	return ps, nil
}

// PredictInterval adds the survival estimator's 95% band around each rate.
func (k *KaplanMeier) PredictInterval(ts []float64) (p, lo, hi []float64, err error) {
	p, err = k.Predict(ts)
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
		j := stepIndex(k.ts, t)
		lo[i], hi[i] = k.lo[j], k.hi[j]
	}
	return p, lo, hi, nil
}
