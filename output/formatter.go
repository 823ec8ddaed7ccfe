// Package output formats and renders fitted conversion curves.
package output

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Curve is one group's predicted conversion-rate curve. Lower and Upper are
// nil when the model gave no confidence band. Rates and bounds are NaN at
// query times the model could not answer.
type Curve struct {
	Group string
	N     int
	K     int
	Times []float64
	Rates []float64
	Lower []float64
	Upper []float64
}

// Formatter serialises a set of curves.
type Formatter func(curves []Curve) (string, error)

// CSVFormatter outputs one row per query time with NaN spelled out, so the
// output round-trips through strconv.
func CSVFormatter(curves []Curve) (string, error) {
	var b strings.Builder
	b.WriteString("group,t,rate,lower,upper\n")
	for _, curve := range curves {
		for i, t := range curve.Times {
			b.WriteString(curve.Group)
			b.WriteByte(',')
			b.WriteString(strconv.FormatFloat(t, 'f', -1, 64))
			b.WriteByte(',')
			b.WriteString(strconv.FormatFloat(curve.Rates[i], 'f', -1, 64))
			b.WriteByte(',')
			if curve.Lower != nil {
				b.WriteString(strconv.FormatFloat(curve.Lower[i], 'f', -1, 64))
			}
			b.WriteByte(',')
			if curve.Upper != nil {
				b.WriteString(strconv.FormatFloat(curve.Upper[i], 'f', -1, 64))
			}
			b.WriteByte('\n')
		}
	}
	return b.String(), nil
}

type jsonPoint struct {
	T     float64  `json:"t"`
	Rate  *float64 `json:"rate"`
	Lower *float64 `json:"lower,omitempty"`
	Upper *float64 `json:"upper,omitempty"`
}

type jsonCurve struct {
	Group  string      `json:"group"`
	N      int         `json:"n"`
	K      int         `json:"k"`
	Points []jsonPoint `json:"points"`
}

// JSONFormatter outputs curves as JSON, with NaN rendered as null since JSON
// has no NaN literal.
func JSONFormatter(curves []Curve) (string, error) {
	out := make([]jsonCurve, len(curves))
	for i, curve := range curves {
		jc := jsonCurve{
			Group:  curve.Group,
			N:      curve.N,
			K:      curve.K,
			Points: make([]jsonPoint, len(curve.Times)),
		}
		for j, t := range curve.Times {
			p := jsonPoint{T: t, Rate: nullable(curve.Rates[j])}
			if curve.Lower != nil {
				p.Lower = nullable(curve.Lower[j])
			}
			if curve.Upper != nil {
				p.Upper = nullable(curve.Upper[j])
			}
			jc.Points[j] = p
		}
		out[i] = jc
	}
	v, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}
