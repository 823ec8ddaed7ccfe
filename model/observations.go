package model

import (
	"math"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
)

// Observations is the triple of parallel arrays every model is fit on.
// C[i] holds the elapsed time to conversion for subject i, or 0 when the
// subject has not converted; N[i] holds the elapsed time to the point the
// subject was last observed (the censoring horizon); B[i] records whether
// the subject converted. A conversion at elapsed time zero is a real
// observation (C[i]==0, B[i]==true) and is distinguished from "never
// converted" by B alone, never by C.
//
// Observations are immutable once constructed. Models read them during Fit
// and must not hold references that outlive the call.
type Observations struct {
	C []float64
	N []float64
	B []bool
}

// NewObservations validates and assembles an observation triple.
func NewObservations(c, n []float64, b []bool) (Observations, error) {
	obs := Observations{C: c, N: n, B: b}
	if err := obs.validate(); err != nil {
		return Observations{}, err
	}
	return obs, nil
}

func (o Observations) validate() error {
	if len(o.C) == 0 {
		return ErrNoObservations
	}
	if len(o.C) != len(o.N) || len(o.C) != len(o.B) {
		return errors.Wrapf(ErrLengthMismatch, "C=%d N=%d B=%d", len(o.C), len(o.N), len(o.B))
	}
	return nil
}

// Len is the number of subjects.
func (o Observations) Len() int {
	return len(o.C)
}

// Conversions counts the subjects that converted.
func (o Observations) Conversions() int {
	k := 0
	for _, b := range o.B {
		if b {
			k++
		}
	}
	return k
}

// MaxHorizon is the largest censoring time in the observations.
func (o Observations) MaxHorizon() float64 {
	max := math.Inf(-1)
	for _, n := range o.N {
		if n > max {
			max = n
		}
	}
	return max
}

// resample draws Len subjects with replacement, keeping the (C, N, B)
// triple of each drawn subject together.
func (o Observations) resample(r *rand.Rand) Observations {
	n := o.Len()
	c := make([]float64, n)
	nn := make([]float64, n)
	b := make([]bool, n)
	for i := 0; i < n; i++ {
		j := r.Intn(n)
		c[i] = o.C[j]
		nn[i] = o.N[j]
		b[i] = o.B[j]
	}
	return Observations{C: c, N: nn, B: b}
}
