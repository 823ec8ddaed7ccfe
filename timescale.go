package funnel

import "time"

// Timescale picks a unit for a span of elapsed time and returns the factor
// that converts seconds into that unit along with the unit's label.
func Timescale(d time.Duration) (factor float64, unit string) {
	switch {
	case d >= 24*time.Hour:
		return 1.0 / (24 * 60 * 60), "Days"
	case d >= time.Hour:
		return 1.0 / (60 * 60), "Hours"
	case d >= time.Minute:
		return 1.0 / 60, "Minutes"
	default:
		return 1, "Seconds"
	}
}
