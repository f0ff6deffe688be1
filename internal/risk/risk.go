// Package risk derives the intended stop, target, and size recorded alongside a signal.
package risk

import (
	"math"

	"crossbot-go/internal/signal"
)

// Limits caps the per-trade risk budget taken from configuration.
type Limits struct {
	RiskUSD    float64
	RRRatio    float64
	LookbackSL int
}

// FromParams extracts the risk knobs from a strategy bundle.
func FromParams(p signal.Params) Limits {
	return Limits{RiskUSD: p.RiskUSD, RRRatio: p.RRRatio, LookbackSL: p.LookbackSL}
}

// Plan anchors the stop on the swing extreme of the last LookbackSL bars:
// the lowest low for longs, the highest high for shorts. The target sits
// RRRatio stop-distances beyond entry and the quantity risks RiskUSD.
// A stop on the wrong side of entry yields an invalid plan.
func (l Limits) Plan(kind signal.Kind, bars signal.Series, entry float64) signal.RiskPlan {
	if len(bars) == 0 || entry <= 0 || l.LookbackSL < 1 {
		return signal.RiskPlan{}
	}
	start := len(bars) - l.LookbackSL
	if start < 0 {
		start = 0
	}
	window := bars[start:]

	var stop, distance float64
	switch kind {
	case signal.Long:
		stop = math.Inf(1)
		for _, b := range window {
			stop = math.Min(stop, b.Low)
		}
		distance = entry - stop
	case signal.Short:
		stop = math.Inf(-1)
		for _, b := range window {
			stop = math.Max(stop, b.High)
		}
		distance = stop - entry
	default:
		return signal.RiskPlan{}
	}
	if !(distance > 0) || math.IsInf(distance, 0) {
		return signal.RiskPlan{}
	}

	target := entry + l.RRRatio*distance
	if kind == signal.Short {
		target = entry - l.RRRatio*distance
	}
	var qty float64
	if l.RiskUSD > 0 {
		qty = l.RiskUSD / distance
	}
	return signal.RiskPlan{
		Valid:      true,
		StopLoss:   stop,
		TakeProfit: target,
		Distance:   distance,
		Quantity:   qty,
	}
}
