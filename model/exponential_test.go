package model_test

import (
	"testing"

	"github.com/hscells/funnel/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// exponentialObservations simulates n subjects of which a fraction c ever
// convert, with exponential conversion times at the given rate, all censored
// at the same horizon.
func exponentialObservations(n int, c, rate, horizon float64, seed uint64) model.Observations {
	rnd := rand.New(rand.NewSource(seed))
	gen := distuv.Exponential{Rate: rate, Src: rand.NewSource(seed + 1)}
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

func TestExponentialRecoversParameters(t *testing.T) {
	obs := exponentialObservations(100000, 0.05, 0.1, 100, 42)

	e := model.NewExponential()
	require.NoError(t, e.Fit(obs))

	p := e.Params()
	assert.Greater(t, p["c"], 0.0475)
	assert.Less(t, p["c"], 0.0525)
	assert.Greater(t, p["lambd"], 0.095)
	assert.Less(t, p["lambd"], 0.105)
}

func TestExponentialFitConvergesOnHealthyData(t *testing.T) {
	// A flat gradient at the optimum must come back as a clean fit, never
	// as a non-convergence failure.
	for seed := uint64(1); seed <= 5; seed++ {
		obs := exponentialObservations(50000, 0.05, 0.1, 100, seed)
		err := model.NewExponential().Fit(obs)
		require.NoError(t, err, "seed %d", seed)
	}
}

func TestExponentialFixedRate(t *testing.T) {
	obs := exponentialObservations(20000, 0.3, 0.5, 50, 7)

	e := &model.Exponential{Rate: model.FixedAt(0.5)}
	require.NoError(t, e.Fit(obs))

	p := e.Params()
	assert.Equal(t, 0.5, p["lambd"])
	assert.InEpsilon(t, 0.3, p["c"], 0.05)
}

func TestExponentialPredict(t *testing.T) {
	obs := exponentialObservations(20000, 0.4, 0.2, 100, 11)

	e := model.NewExponential()
	require.NoError(t, e.Fit(obs))

	ps, err := e.Predict([]float64{0, 1000})
	require.NoError(t, err)
	assert.Equal(t, 0.0, ps[0])
	// Far past the horizon the curve flattens onto the eventual rate.
	final, err := e.PredictFinal()
	require.NoError(t, err)
	assert.InDelta(t, final, ps[1], 1e-9)
	assert.InEpsilon(t, 0.4, final, 0.05)
}

func TestExponentialDegenerateData(t *testing.T) {
	obs, err := model.NewObservations(
		[]float64{0, 0, 0},
		[]float64{5, 5, 5},
		[]bool{false, false, false},
	)
	require.NoError(t, err)
	assert.ErrorIs(t, model.NewExponential().Fit(obs), model.ErrNoConversions)
}

func TestExponentialPredictBeforeFit(t *testing.T) {
	_, err := model.NewExponential().Predict([]float64{1})
	assert.ErrorIs(t, err, model.ErrNotFitted)
	_, err = model.NewExponential().PredictFinal()
	assert.ErrorIs(t, err, model.ErrNotFitted)
}
