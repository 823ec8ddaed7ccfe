package model_test

import (
	"math"
	"testing"

	"github.com/hscells/funnel/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

func weibullObservations(n int, c, rate, shape, horizon float64, seed uint64) model.Observations {
	rnd := rand.New(rand.NewSource(seed))
	// distuv parameterises by scale; the model works in rates.
	gen := distuv.Weibull{K: shape, Lambda: 1 / rate, Src: rand.NewSource(seed + 1)}
	obs := model.Observations{
		C: make([]float64, n),
		N: make([]float64, n),
		B: make([]bool, n),
	}
	for i := 0; i < n; i++ {
		obs.N[i] = horizon
		if rnd.Float64() < c {
			if t := gen.Rand(); t <= horizon {
				obs.C[i] = t
				obs.B[i] = true
			}
		}
	}
	return obs
}

func TestWeibullRecoversEventualRate(t *testing.T) {
	// The horizon keeps the true rate inside the fit's λ bound of
	// 30/max(N) while censoring only a sliver of the converters.
	obs := weibullObservations(50000, 0.6, 0.1, 0.5, 200, 29)

	w := model.NewWeibull()
	require.NoError(t, w.Fit(obs))

	p := w.Params()
	assert.InEpsilon(t, 0.6, p["c"], 0.05)
	assert.InEpsilon(t, 0.5, p["k"], 0.1)

	final, err := w.PredictFinal()
	require.NoError(t, err)
	assert.Equal(t, p["c"], final)
}

func TestWeibullSurvivesZeroElapsedConversion(t *testing.T) {
	// Under shapes below one a conversion at elapsed time zero has infinite
	// density; the floored objective must keep the fit finite and the
	// estimate essentially unmoved by the single degenerate subject.
	obs := weibullObservations(20000, 0.6, 0.1, 0.5, 200, 43)
	obs.C[0] = 0
	obs.B[0] = true

	w := model.NewWeibull()
	require.NoError(t, w.Fit(obs))

	p := w.Params()
	for name, v := range p {
		require.False(t, math.IsNaN(v), "parameter %s is NaN", name)
	}
	assert.InEpsilon(t, 0.6, p["c"], 0.05)
	assert.InEpsilon(t, 0.1, p["lambd"], 0.15)
	assert.InEpsilon(t, 0.5, p["k"], 0.15)
}

func TestWeibullFixedShapeMatchesExponential(t *testing.T) {
	obs := exponentialObservations(20000, 0.3, 0.2, 100, 31)

	w := &model.Weibull{Shape: model.FixedAt(1)}
	require.NoError(t, w.Fit(obs))

	// With the shape pinned at one the Weibull is an exponential.
	p := w.Params()
	assert.Equal(t, 1.0, p["k"])
	assert.InEpsilon(t, 0.3, p["c"], 0.05)
	assert.InEpsilon(t, 0.2, p["lambd"], 0.05)
}

func TestWeibullDegenerateData(t *testing.T) {
	obs, err := model.NewObservations(
		[]float64{0, 0},
		[]float64{5, 5},
		[]bool{false, false},
	)
	require.NoError(t, err)
	assert.ErrorIs(t, model.NewWeibull().Fit(obs), model.ErrNoConversions)
}
