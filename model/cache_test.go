package model_test

import (
	"testing"

	"github.com/hscells/funnel/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitKeyDistinguishesModelsAndData(t *testing.T) {
	obs1 := exponentialObservations(100, 0.3, 0.2, 50, 1)
	obs2 := exponentialObservations(100, 0.3, 0.2, 50, 2)

	assert.Equal(t, model.FitKey(model.NewExponential(), obs1), model.FitKey(model.NewExponential(), obs1))
	assert.NotEqual(t, model.FitKey(model.NewExponential(), obs1), model.FitKey(model.NewExponential(), obs2))
	assert.NotEqual(t, model.FitKey(model.NewExponential(), obs1), model.FitKey(model.NewGamma(), obs1))
}

func TestFitCachedRestoresParams(t *testing.T) {
	obs := exponentialObservations(2000, 0.3, 0.2, 50, 1)
	cache := model.NewMapParamsCache()

	e1 := model.NewExponential()
	require.NoError(t, model.FitCached(e1, obs, cache))

	// The second model must come back fitted with identical parameters,
	// straight from the cache.
	e2 := model.NewExponential()
	require.NoError(t, model.FitCached(e2, obs, cache))
	assert.Equal(t, e1.Params(), e2.Params())

	ps, err := e2.Predict([]float64{10})
	require.NoError(t, err)
	assert.NotZero(t, ps[0])
}

func TestFitCachedDiskvRoundTrip(t *testing.T) {
	obs := exponentialObservations(2000, 0.3, 0.2, 50, 1)
	cache := model.NewDiskvParamsCache(t.TempDir())

	_, err := cache.Get(model.FitKey(model.NewExponential(), obs))
	assert.ErrorIs(t, err, model.CacheMissError)

	e1 := model.NewExponential()
	require.NoError(t, model.FitCached(e1, obs, cache))

	p, err := cache.Get(model.FitKey(model.NewExponential(), obs))
	require.NoError(t, err)
	assert.Equal(t, e1.Params(), p)
}

func TestFitCachedPassesThroughNonParametric(t *testing.T) {
	obs := exponentialObservations(200, 0.3, 0.2, 50, 1)
	cache := model.NewMapParamsCache()

	s := &model.StepFunction{NLimit: 1}
	require.NoError(t, model.FitCached(s, obs, cache))

	_, err := cache.Get(model.FitKey(s, obs))
	assert.ErrorIs(t, err, model.CacheMissError)

	_, err = s.Predict([]float64{1})
	assert.NoError(t, err)
}
