package model_test

import (
	"math"
	"testing"

	"github.com/hscells/funnel/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKaplanMeierPredictBeforeFit(t *testing.T) {
	_, err := model.NewKaplanMeier().Predict([]float64{1})
	assert.ErrorIs(t, err, model.ErrNotFitted)
}

func TestKaplanMeierMonotone(t *testing.T) {
	obs := exponentialObservations(1000, 0.4, 0.2, 20, 37)

	k := model.NewKaplanMeier()
	require.NoError(t, k.Fit(obs))

	ts := make([]float64, 100)
	for i := range ts {
		ts[i] = float64(i) * 0.2
	}
	ps, err := k.Predict(ts)
	require.NoError(t, err)
	last := 0.0
	for _, p := range ps {
		if math.IsNaN(p) {
			continue
		}
		assert.GreaterOrEqual(t, p, last)
		last = p
	}
	assert.Greater(t, last, 0.0)
}

func TestKaplanMeierInterval(t *testing.T) {
	obs := exponentialObservations(1000, 0.4, 0.2, 20, 41)

	k := model.NewKaplanMeier()
	require.NoError(t, k.Fit(obs))

	p, lo, hi, err := k.PredictInterval([]float64{1, 5, 10})
	require.NoError(t, err)
	for i := range p {
		assert.LessOrEqual(t, lo[i], p[i]+1e-12)
		assert.GreaterOrEqual(t, hi[i], p[i]-1e-12)
	}
}

func TestKaplanMeierOutOfRangeIsNaN(t *testing.T) {
	obs, err := model.NewObservations(
		[]float64{1, 0},
		[]float64{2, 2},
		[]bool{true, false},
	)
	require.NoError(t, err)

	k := model.NewKaplanMeier()
	require.NoError(t, k.Fit(obs))

	ps, err := k.Predict([]float64{-1, 0, 1, 100})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(ps[0]))
	assert.Equal(t, 0.0, ps[1])
	assert.InDelta(t, 0.5, ps[2], 1e-12)
	assert.True(t, math.IsNaN(ps[3]))
}
