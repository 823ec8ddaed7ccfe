package funnel

import (
	"github.com/hscells/funnel/model"
	"github.com/hscells/funnel/source"
)

// BuildObservations converts records into the (C, N, B) triple every model
// fits on, scaling elapsed seconds by factor. It is a single deterministic
// pass with no filtering; a subject that converted the instant it was
// created keeps C=0 with B=true, which only the flag distinguishes from a
// subject that never converted.
func BuildObservations(records []source.Record, factor float64) model.Observations {
	obs := model.Observations{
		C: make([]float64, len(records)),
		N: make([]float64, len(records)),
		B: make([]bool, len(records)),
	}
	for i, r := range records {
		obs.N[i] = r.ObservedAt.Sub(r.CreatedAt).Seconds() * factor
		if r.ConvertedAt != nil {
			obs.C[i] = r.ConvertedAt.Sub(r.CreatedAt).Seconds() * factor
			obs.B[i] = true
		}
	}
	return obs
}
