package funnel_test

import (
	"math"
	"testing"
	"time"

	"github.com/hscells/funnel"
	"github.com/hscells/funnel/model"
	"github.com/hscells/funnel/output"
	"github.com/hscells/funnel/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testRecords builds two healthy groups, one group too small to keep, and
// one invalid record whose conversion predates its creation.
func testRecords() []source.Record {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	observed := start.Add(30 * 24 * time.Hour)

	var records []source.Record
	add := func(group string, n int, convertAfter time.Duration) {
		for i := 0; i < n; i++ {
			r := source.Record{Group: group, CreatedAt: start, ObservedAt: observed}
			if convertAfter > 0 {
				t := start.Add(convertAfter + time.Duration(i)*time.Hour)
				r.ConvertedAt = &t
			}
			records = append(records, r)
		}
	}
	add("trial", 40, 24*time.Hour)
	add("trial", 60, 0)
	add("paid", 30, 48*time.Hour)
	add("paid", 20, 0)
	add("tiny", 2, 24*time.Hour)

	bad := start.Add(-time.Hour)
	records = append(records, source.Record{Group: "trial", CreatedAt: start, ConvertedAt: &bad, ObservedAt: observed})
	return records
}

func TestPipelineExecute(t *testing.T) {
	p := funnel.NewPipeline(
		source.MemorySource{Records: testRecords()},
		func() model.Model { return &model.StepFunction{NLimit: 1} },
		funnel.Formatters(output.CSVFormatter),
	)
	p.GroupMinSize = 10
	p.PredictionPoints = 50

	c := make(chan funnel.Result)
	go p.Execute(c)

	var curves []*output.Curve
	var groups []string
	var outputs []string
	var last funnel.ResultType
	for result := range c {
		require.NotEqual(t, funnel.Error, result.Type, "pipeline error: %v", result.Error)
		last = result.Type
		switch result.Type {
		case funnel.CurveResult:
			curves = append(curves, result.Curve)
			groups = append(groups, result.Group)
			assert.Equal(t, "Days", result.Unit)
		case funnel.OutputResult:
			outputs = append(outputs, result.Output)
		}
	}
	assert.Equal(t, funnel.Done, last)

	// The tiny group is dropped and the survivors come lexicographically.
	assert.Equal(t, []string{"paid", "trial"}, groups)
	require.Len(t, outputs, 1)
	assert.Contains(t, outputs[0], "group,t,rate,lower,upper")

	// The invalid record is dropped: trial keeps 100 subjects, 40 converted.
	trial := curves[1]
	assert.Equal(t, 100, trial.N)
	assert.Equal(t, 40, trial.K)
	require.Len(t, trial.Times, 50)

	last30 := 0.0
	for _, r := range trial.Rates {
		if !math.IsNaN(r) {
			last30 = r
		}
	}
	assert.InDelta(t, 0.4, last30, 1e-12)
}

func TestPipelineMaxGroupsKeepsLargest(t *testing.T) {
	p := funnel.NewPipeline(
		source.MemorySource{Records: testRecords()},
		func() model.Model { return &model.StepFunction{NLimit: 1} },
	)
	p.MaxGroups = 1
	p.PredictionPoints = 10

	c := make(chan funnel.Result)
	go p.Execute(c)

	var groups []string
	for result := range c {
		require.NotEqual(t, funnel.Error, result.Type, "pipeline error: %v", result.Error)
		if result.Type == funnel.CurveResult {
			groups = append(groups, result.Group)
		}
	}
	assert.Equal(t, []string{"trial"}, groups)
}

func TestPipelineSourceErrorPropagates(t *testing.T) {
	p := funnel.NewPipeline(
		source.CSVSource{Path: "does-not-exist.csv"},
		func() model.Model { return model.NewStepFunction() },
	)

	c := make(chan funnel.Result)
	go p.Execute(c)

	var sawError bool
	for result := range c {
		if result.Type == funnel.Error {
			sawError = true
			assert.Error(t, result.Error)
		}
	}
	assert.True(t, sawError)
}

func TestPipelineBootstrapComponent(t *testing.T) {
	p := funnel.NewPipeline(
		source.MemorySource{Records: testRecords()},
		func() model.Model { return model.NewExponential() },
		funnel.Bootstrap(10),
	)
	p.GroupMinSize = 10
	p.PredictionPoints = 10

	c := make(chan funnel.Result)
	go p.Execute(c)

	for result := range c {
		require.NotEqual(t, funnel.Error, result.Type, "pipeline error: %v", result.Error)
		if result.Type != funnel.CurveResult {
			continue
		}
		// The bootstrapped model carries a confidence band.
		require.NotNil(t, result.Curve.Lower)
		require.NotNil(t, result.Curve.Upper)
		for i := range result.Curve.Rates {
			assert.LessOrEqual(t, result.Curve.Lower[i], result.Curve.Rates[i]+1e-12)
			assert.GreaterOrEqual(t, result.Curve.Upper[i], result.Curve.Rates[i]-1e-12)
		}
	}
}
