// Package indicator derives moving averages and trend strength from bar series.
package indicator

// EMA returns the unadjusted recursive exponential moving average of values.
// The first output equals the first input; alpha is 2/(span+1).
func EMA(values []float64, span int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	if span < 1 {
		span = 1
	}
	alpha := 2 / float64(span+1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		// written as a correction so a flat input stays exactly flat
		out[i] = out[i-1] + alpha*(values[i]-out[i-1])
	}
	return out
}
