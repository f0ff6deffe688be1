// Package strategy turns indicator frames into trading signals.
package strategy

import (
	"math"
	"time"

	"crossbot-go/internal/indicator"
	"crossbot-go/internal/risk"
	"crossbot-go/internal/signal"
)

// Gates captures every rule outcome for one evaluation.
type Gates struct {
	CrossUp    bool
	CrossDown  bool
	ADXOK      bool
	HTFLongOK  bool
	HTFShortOK bool
}

// Long reports whether the bullish rule passed.
func (g Gates) Long() bool { return g.CrossUp && g.ADXOK && g.HTFLongOK }

// Short reports whether the bearish rule passed.
func (g Gates) Short() bool { return g.CrossDown && g.ADXOK && g.HTFShortOK }

// Input is the materialized data for one Decide call.
type Input struct {
	Symbol string
	LTF    signal.Series
	LTFSet indicator.Frame
	HTFSet indicator.Frame
	Params signal.Params
	At     time.Time
}

// Evaluate runs the EMA crossover + ADX strength + higher-timeframe alignment rule for one symbol.
// It returns nil when the series are too short or no rule passes. Evaluate keeps no state;
// at is stamped on the record as the evaluation time.
func Evaluate(symbol string, ltf, htf signal.Series, params signal.Params, at time.Time) *signal.Record {
	if len(ltf) < 2 || len(htf) < 1 {
		return nil
	}
	return Decide(Input{
		Symbol: symbol,
		LTF:    ltf,
		LTFSet: indicator.ComputeLTF(ltf, params),
		HTFSet: indicator.ComputeHTF(htf, params),
		Params: params,
		At:     at,
	})
}

// CrossUp fires only on the bar where fast moves from strictly below slow to at-or-above.
func CrossUp(fastPrev, slowPrev, fastCurr, slowCurr float64) bool {
	return fastPrev < slowPrev && fastCurr >= slowCurr
}

// CrossDown fires only on the bar where fast moves from strictly above slow to at-or-below.
func CrossDown(fastPrev, slowPrev, fastCurr, slowCurr float64) bool {
	return fastPrev > slowPrev && fastCurr <= slowCurr
}

// ADXOK reports whether trend strength is defined and at or above threshold.
func ADXOK(adx, threshold float64) bool {
	return !math.IsNaN(adx) && adx >= threshold
}

// HTFLongOK tolerates the fast HTF EMA sitting up to (1-factor) below the slow one.
func HTFLongOK(fast, slow, factor float64) bool { return fast >= factor*slow }

// HTFShortOK tolerates the slow HTF EMA sitting up to (1-factor) below the fast one.
// Both HTF gates can hold at once when the averages are within the band.
func HTFShortOK(fast, slow, factor float64) bool { return slow >= factor*fast }

// Assess evaluates every gate on precomputed frames. ok is false when the frames are too short.
func Assess(ltf, htf indicator.Frame, params signal.Params) (gates Gates, ok bool) {
	n, m := ltf.Len(), htf.Len()
	if n < 2 || m < 1 || len(ltf.EMASlow) != n || len(htf.EMASlow) != m {
		return Gates{}, false
	}
	fastPrev, slowPrev := ltf.EMAFast[n-2], ltf.EMASlow[n-2]
	fastCurr, slowCurr := ltf.EMAFast[n-1], ltf.EMASlow[n-1]
	adx := latest(ltf.ADX)

	gates.CrossUp = CrossUp(fastPrev, slowPrev, fastCurr, slowCurr)
	gates.CrossDown = CrossDown(fastPrev, slowPrev, fastCurr, slowCurr)
	gates.ADXOK = ADXOK(adx, params.ADXThreshold)
	gates.HTFLongOK = HTFLongOK(htf.EMAFast[m-1], htf.EMASlow[m-1], params.HTFFactor)
	gates.HTFShortOK = HTFShortOK(htf.EMAFast[m-1], htf.EMASlow[m-1], params.HTFFactor)
	return gates, true
}

// Decide applies the rule to precomputed frames and builds the record on a match.
func Decide(in Input) *signal.Record {
	gates, ok := Assess(in.LTFSet, in.HTFSet, in.Params)
	if !ok || len(in.LTF) == 0 {
		return nil
	}

	var kind signal.Kind
	switch {
	case gates.Long():
		kind = signal.Long
	case gates.Short():
		kind = signal.Short
	default:
		return nil
	}

	ltf, htf := in.LTFSet, in.HTFSet
	n, m := ltf.Len(), htf.Len()
	price := in.LTF[len(in.LTF)-1].Close

	rec := signal.Record{
		CheckedAt: in.At,
		Symbol:    in.Symbol,
		Kind:      kind,
		Price:     price,

		EMAFastLTF:      ltf.EMAFast[n-1],
		EMASlowLTF:      ltf.EMASlow[n-1],
		EMAFastLTFPrev:  ltf.EMAFast[n-2],
		EMASlowLTFPrev:  ltf.EMASlow[n-2],
		EMAFastLTFDelta: ltf.EMAFast[n-1] - ltf.EMAFast[n-2],
		EMASlowLTFDelta: ltf.EMASlow[n-1] - ltf.EMASlow[n-2],
		ADX:             latest(ltf.ADX),

		EMAFastHTF: htf.EMAFast[m-1],
		EMASlowHTF: htf.EMASlow[m-1],

		LTFBias:  signal.Bias(ltf.EMAFast[n-1], ltf.EMASlow[n-1]),
		HTFBias:  signal.Bias(htf.EMAFast[m-1], htf.EMASlow[m-1]),
		Strength: strength(gates.ADXOK),
		Params:   in.Params,
		Risk:     risk.FromParams(in.Params).Plan(kind, in.LTF, price),
	}

	if len(ltf.ADX) >= 2 {
		if prev := ltf.ADX[len(ltf.ADX)-2]; !math.IsNaN(prev) {
			rec.ADXPrev = signal.Some(prev)
			rec.ADXDelta = signal.Some(rec.ADX - prev)
		}
	}
	if m >= 2 {
		rec.EMAFastHTFPrev = signal.Some(htf.EMAFast[m-2])
		rec.EMASlowHTFPrev = signal.Some(htf.EMASlow[m-2])
		rec.EMAFastHTFDelta = signal.Some(htf.EMAFast[m-1] - htf.EMAFast[m-2])
		rec.EMASlowHTFDelta = signal.Some(htf.EMASlow[m-1] - htf.EMASlow[m-2])
	}
	return &rec
}

// strength is only reached after the ADX gate passed, so Weak is kept for record compatibility.
func strength(adxOK bool) signal.Strength {
	if adxOK {
		return signal.Strong
	}
	return signal.Weak
}

func latest(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return values[len(values)-1]
}
