package model

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
)

// DefaultEnsembleSize is the number of resampled fits a Bootstrapper runs
// when no size is given.
const DefaultEnsembleSize = 100

// resampleRetries bounds how often a member redraws when its resample holds
// no conversions at all; such a resample would fail every parametric fit for
// a reason the original data does not have.
const resampleRetries = 10

// Bootstrapper wraps a base model in a percentile bootstrap: it fits an
// ensemble of base models, each on an independent resample (with
// replacement) of the observations, and reports the ensemble mean as the
// point estimate with the 5th/95th ensemble percentiles as the confidence
// band.
type Bootstrapper struct {
	// Seed fixes the resampling streams for reproducible fits; 0 draws a
	// seed from the clock.
	Seed uint64
	// Workers bounds how many members fit concurrently; 0 means 4.
	Workers int

	factory func() Model
	name    string
	members []Model
	fitted  bool
}

// NewBootstrapper creates a bootstrap ensemble over models produced by
// factory. A size at or below zero falls back to DefaultEnsembleSize.
func NewBootstrapper(factory func() Model, size int) *Bootstrapper {
	if size <= 0 {
		size = DefaultEnsembleSize
	}
	b := &Bootstrapper{
		factory: factory,
		members: make([]Model, size),
	}
	b.name = fmt.Sprintf("Bootstrapper(%s)", factory().Name())
	return b
}

func (b *Bootstrapper) Name() string {
	return b.name
}

// Fit fits every ensemble member on its own resample. Members fit
// concurrently; each owns a random stream derived from the base seed, so
// the draws stay independent regardless of scheduling. Any member failure
// fails the whole fit.
func (b *Bootstrapper) Fit(obs Observations) error {
	if err := obs.validate(); err != nil {
		return err
	}
	seed := b.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	workers := b.Workers
	if workers <= 0 {
		workers = 4
	}

	var mu sync.Mutex
	var firstErr error
	sem := make(chan bool, workers)
	for i := range b.members {
		sem <- true
		go func(i int) {
			defer func() { <-sem }()
			m, err := b.fitMember(obs, rand.New(rand.NewSource(seed+uint64(i))))
			mu.Lock()
			defer mu.Unlock()
			if err != nil && firstErr == nil {
				firstErr = errors.Wrapf(err, "ensemble member %d", i)
				return
			}
			b.members[i] = m
		}(i)
	}
	// Wait until the last goroutine has read from the semaphore.
	for i := 0; i < cap(sem); i++ {
		sem <- true
	}
	if firstErr != nil {
		b.fitted = false
		return firstErr
	}
	b.fitted = true
	return nil
}

func (b *Bootstrapper) fitMember(obs Observations, r *rand.Rand) (Model, error) {
	sample := obs.resample(r)
	for retry := 0; sample.Conversions() == 0 && retry < resampleRetries; retry++ {
		sample = obs.resample(r)
	}
	if sample.Conversions() == 0 {
		return nil, ErrNoConversions
	}
	m := b.factory()
	if err := m.Fit(sample); err != nil {
		return nil, err
	}
	return m, nil
}

// Predict reports the ensemble mean at each query time. A NaN from any
// member makes that point NaN.
func (b *Bootstrapper) Predict(ts []float64) ([]float64, error) {
	p, _, _, err := b.PredictInterval(ts)
	return p, err
}

// PredictInterval reports the ensemble mean with the 5th/95th ensemble
// percentiles at each query time.
func (b *Bootstrapper) PredictInterval(ts []float64) (p, lo, hi []float64, err error) {
	if !b.fitted {
		return nil, nil, nil, ErrNotFitted
	}
	ensemble := make([][]float64, len(b.members))
	for i, m := range b.members {
		ensemble[i], err = m.Predict(ts)
		if err != nil {
			return nil, nil, nil, err
		}
	}
	p = make([]float64, len(ts))
	lo = make([]float64, len(ts))
	hi = make([]float64, len(ts))
	sample := make([]float64, len(b.members))
	for j := range ts {
		for i := range ensemble {
			sample[i] = ensemble[i][j]
		}
		p[j], lo[j], hi[j], err = aggregate(sample)
		if err != nil {
			return nil, nil, nil, err
		}
	}
	return p, lo, hi, nil
}

// PredictFinal reports the ensemble mean of the members' asymptotic
// conversion rates; it fails when the base model has no finite asymptote.
func (b *Bootstrapper) PredictFinal() (float64, error) {
	p, _, _, err := b.PredictFinalInterval()
	return p, err
}

// PredictFinalInterval reports the mean asymptotic conversion rate with the
// 5th/95th ensemble percentiles.
func (b *Bootstrapper) PredictFinalInterval() (p, lo, hi float64, err error) {
	if !b.fitted {
		return 0, 0, 0, ErrNotFitted
	}
	sample := make([]float64, len(b.members))
	for i, m := range b.members {
		fp, ok := m.(FinalPredictor)
		if !ok {
			return 0, 0, 0, errors.Errorf("%s cannot predict a final conversion rate", m.Name())
		}
		sample[i], err = fp.PredictFinal()
		if err != nil {
			return 0, 0, 0, err
		}
	}
	return aggregate(sample)
}

// aggregate folds one cross-ensemble sample into (mean, 5th, 95th). NaN
// members poison the whole sample, mirroring the per-point NaN policy of
// the base models.
func aggregate(sample []float64) (p, lo, hi float64, err error) {
	for _, v := range sample {
		if math.IsNaN(v) {
			return math.NaN(), math.NaN(), math.NaN(), nil
		}
	}
	p, err = stats.Mean(sample)
	if err != nil {
		return 0, 0, 0, err
	}
	lo, err = stats.Percentile(sample, 5)
	if err != nil {
		return 0, 0, 0, err
	}
	hi, err = stats.Percentile(sample, 95)
	if err != nil {
		return 0, 0, 0, err
	}
	return p, lo, hi, nil
}
