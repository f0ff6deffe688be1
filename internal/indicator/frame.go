package indicator

import "crossbot-go/internal/signal"

// Frame holds the indicator columns derived from one bar series.
// ADX is nil for frames computed without a strength window.
type Frame struct {
	EMAFast []float64
	EMASlow []float64
	ADX     []float64
}

// Len reports the number of indexed rows.
func (f Frame) Len() int { return len(f.EMAFast) }

// ComputeLTF derives both EMAs and the trend-strength oscillator.
func ComputeLTF(series signal.Series, params signal.Params) Frame {
	closes := series.Closes()
	return Frame{
		EMAFast: EMA(closes, params.EMAFastSpan),
		EMASlow: EMA(closes, params.EMASlowSpan),
		ADX:     ADX(series.Highs(), series.Lows(), closes, params.ADXWindow),
	}
}

// ComputeHTF derives only the EMAs used for higher-timeframe alignment.
func ComputeHTF(series signal.Series, params signal.Params) Frame {
	closes := series.Closes()
	return Frame{
		EMAFast: EMA(closes, params.EMAFastSpan),
		EMASlow: EMA(closes, params.EMASlowSpan),
	}
}
