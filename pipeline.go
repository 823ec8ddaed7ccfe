// Package funnel fits conversion models to cohorts of right-censored subject
// records and predicts conversion-rate curves over elapsed time.
package funnel

import (
	"log"
	"sort"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/hscells/funnel/model"
	"github.com/hscells/funnel/output"
	"github.com/hscells/funnel/source"
	"gonum.org/v1/gonum/floats"
)

// DefaultPredictionPoints is how many query times a curve is evaluated at
// when the pipeline is not told otherwise.
const DefaultPredictionPoints = 1000

// Pipeline contains all the information for fitting conversion models over
// groups of subject records.
type Pipeline struct {
	Source           source.RecordSource
	Model            func() model.Model
	Bootstrap        int
	GroupMinSize     int
	MaxGroups        int
	PredictionPoints int
	TMax             time.Duration
	Cache            model.ParamsCacher
	Formatters       []output.Formatter
	Progress         bool
}

// Formatters adds output formatters to the pipeline.
func Formatters(formatter ...output.Formatter) func() interface{} {
	return func() interface{} {
		return formatter
	}
}

// FitCache configures a params cache so repeated pipeline runs over the same
// data skip refitting parametric models.
func FitCache(cache model.ParamsCacher) func() interface{} {
	return func() interface{} {
		return cache
	}
}

// Bootstrap wraps the pipeline's model in a resampling ensemble of the given
// size.
func Bootstrap(size int) func() interface{} {
	return func() interface{} {
		return size
	}
}

// NewPipeline creates a new funnel pipeline. The record source and the model
// factory are required. Additional components are provided via the optional
// functional arguments.
func NewPipeline(src source.RecordSource, factory func() model.Model, components ...func() interface{}) Pipeline {
	p := Pipeline{
		Source: src,
		Model:  factory,
	}
	for _, component := range components {
		val := component()
		switch v := val.(type) {
		case []output.Formatter:
			p.Formatters = v
		case model.ParamsCacher:
			p.Cache = v
		case int:
			p.Bootstrap = v
		}
	}
	return p
}

// Execute runs the pipeline, emitting one CurveResult per surviving group,
// one OutputResult per formatter, and finally Done. An error emits an Error
// result and stops.
func (p Pipeline) Execute(c chan Result) {
	defer close(c)
	log.Println("loading records...")

	records, err := p.Source.Load()
	if err != nil {
		c <- Result{Error: err, Type: Error}
		return
	}

	// Drop records whose conversion predates their creation; they cannot
	// yield a non-negative elapsed time.
	var maxSpan time.Duration
	groups := make(map[string][]source.Record)
	for _, r := range records {
		if r.ConvertedAt != nil && r.ConvertedAt.Before(r.CreatedAt) {
			log.Printf("dropping record in group %s: converted %v before created %v", r.Group, r.ConvertedAt, r.CreatedAt)
			continue
		}
		if span := r.ObservedAt.Sub(r.CreatedAt); span > maxSpan {
			maxSpan = span
		}
		groups[r.Group] = append(groups[r.Group], r)
	}

	if p.TMax > 0 {
		maxSpan = p.TMax
	}
	factor, unit := Timescale(maxSpan)
	tmax := maxSpan.Seconds() * factor

	names := p.selectGroups(groups)
	if len(names) == 0 {
		c <- Result{Type: Done}
		return
	}

	points := p.PredictionPoints
	if points <= 0 {
		points = DefaultPredictionPoints
	}
	ts := make([]float64, points)
	floats.Span(ts, 0, tmax)

	var bar *pb.ProgressBar
	if p.Progress {
		bar = pb.StartNew(len(names))
	}

	curves := make([]output.Curve, 0, len(names))
	for _, name := range names {
		curve, err := p.fitGroup(name, groups[name], factor, ts)
		if err != nil {
			c <- Result{Group: name, Error: err, Type: Error}
			return
		}
		curves = append(curves, curve)
		c <- Result{Group: name, Unit: unit, Curve: &curve, Type: CurveResult}
		if bar != nil {
			bar.Increment()
		}
	}
	if bar != nil {
		bar.Finish()
	}

	for _, formatter := range p.Formatters {
		s, err := formatter(curves)
		if err != nil {
			c <- Result{Error: err, Type: Error}
			return
		}
		c <- Result{Output: s, Unit: unit, Type: OutputResult}
	}

	c <- Result{Type: Done}
}

// selectGroups filters out groups that cannot be fit: too few subjects, or
// no conversions at all. When MaxGroups is set only the largest survive.
// The surviving names come back in lexicographic order.
func (p Pipeline) selectGroups(groups map[string][]source.Record) []string {
	var names []string
	for name, rs := range groups {
		if len(rs) < p.GroupMinSize {
			log.Printf("dropping group %s: %d subjects is below the minimum %d", name, len(rs), p.GroupMinSize)
			continue
		}
		converted := 0
		for _, r := range rs {
			if r.ConvertedAt != nil {
				converted++
			}
		}
		if converted == 0 {
			log.Printf("dropping group %s: no conversions", name)
			continue
		}
		names = append(names, name)
	}
	if p.MaxGroups > 0 && len(names) > p.MaxGroups {
		sort.Slice(names, func(i, j int) bool {
			return len(groups[names[i]]) > len(groups[names[j]])
		})
		names = names[:p.MaxGroups]
	}
	sort.Strings(names)
	return names
}

func (p Pipeline) fitGroup(name string, rs []source.Record, factor float64, ts []float64) (output.Curve, error) {
	obs := BuildObservations(rs, factor)

	m := p.Model()
	if p.Bootstrap > 0 {
		m = model.NewBootstrapper(p.Model, p.Bootstrap)
	}

	var err error
	if p.Cache != nil {
		err = model.FitCached(m, obs, p.Cache)
	} else {
		err = m.Fit(obs)
	}
	if err != nil {
		return output.Curve{}, err
	}

	curve := output.Curve{
		Group: name,
		N:     obs.Len(),
		K:     obs.Conversions(),
		Times: ts,
	}
	if ip, ok := m.(model.IntervalPredictor); ok {
		curve.Rates, curve.Lower, curve.Upper, err = ip.PredictInterval(ts)
	} else {
		curve.Rates, err = m.Predict(ts)
	}
	if err != nil {
		return output.Curve{}, err
	}
	return curve, nil
}
