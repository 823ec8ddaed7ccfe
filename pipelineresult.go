package funnel

import "github.com/hscells/funnel/output"

// ResultType is the type of result being returned through a pipeline channel.
type ResultType uint8

const (
	// CurveResult is a fitted conversion curve for one group.
	CurveResult ResultType = iota
	// OutputResult is a formatted rendering of all curves.
	OutputResult
	// Error indicates an error was raised.
	Error
	// Done indicates the pipeline has completed.
	Done
)

// Result is the output of a funnel pipeline.
type Result struct {
	Group  string
	Unit   string
	Curve  *output.Curve
	Output string
	Type   ResultType
	Error  error
}
