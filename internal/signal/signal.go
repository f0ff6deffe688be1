// Package signal standardizes payloads shared between data ingestion, the evaluation engine, and delivery layers.
package signal

import (
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// Bar models one OHLCV candle as returned by the market-data provider.
type Bar struct {
	Ts     time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
	Closed bool // only set by streaming sources once the candle is final
}

// Series is an ordered bar sequence (non-decreasing timestamps).
type Series []Bar

// Closes returns the closing prices in series order.
func (s Series) Closes() []float64 { return s.column(func(b Bar) float64 { return b.Close }) }

// Highs returns the high prices in series order.
func (s Series) Highs() []float64 { return s.column(func(b Bar) float64 { return b.High }) }

// Lows returns the low prices in series order.
func (s Series) Lows() []float64 { return s.column(func(b Bar) float64 { return b.Low }) }

func (s Series) column(pick func(Bar) float64) []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = pick(b)
	}
	return out
}

// Last returns the most recent bar.
func (s Series) Last() (Bar, bool) {
	if len(s) == 0 {
		return Bar{}, false
	}
	return s[len(s)-1], true
}

// Ordered reports whether timestamps never decrease.
func (s Series) Ordered() bool {
	for i := 1; i < len(s); i++ {
		if s[i].Ts.Before(s[i-1].Ts) {
			return false
		}
	}
	return true
}

// Kind is the direction of an emitted signal.
type Kind string

const (
	// Long marks a bullish crossover that passed every gate.
	Long Kind = "LONG"
	// Short marks a bearish crossover that passed every gate.
	Short Kind = "SHORT"
)

// Strength labels the trend-strength gate outcome.
type Strength string

const (
	Strong Strength = "Strong"
	Weak   Strength = "Weak"
)

// Params is the explicit strategy bundle supplied to every evaluation.
type Params struct {
	EMAFastSpan  int     `json:"ema_fast_len"`
	EMASlowSpan  int     `json:"ema_slow_len"`
	ADXWindow    int     `json:"adx_len"`
	ADXThreshold float64 `json:"adx_threshold"`
	HTFFactor    float64 `json:"htf_factor"`
	RiskUSD      float64 `json:"risk_usd"`
	RRRatio      float64 `json:"rr_ratio"`
	LookbackSL   int     `json:"lookback_sl"`
}

// RiskPlan records the intended stop, target, and size for a signal. It is never executed.
type RiskPlan struct {
	Valid      bool    `json:"valid"`
	StopLoss   float64 `json:"stop_loss"`
	TakeProfit float64 `json:"take_profit"`
	Distance   float64 `json:"distance"`
	Quantity   float64 `json:"quantity"`
}

// Float is an optional number that encodes as JSON null when absent.
type Float struct {
	Value float64
	Valid bool
}

// Some wraps a present value.
func Some(v float64) Float { return Float{Value: v, Valid: true} }

// MarshalJSON implements json.Marshaler.
func (f Float) MarshalJSON() ([]byte, error) {
	if !f.Valid || math.IsNaN(f.Value) || math.IsInf(f.Value, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Float) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = Float{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Some(v)
	return nil
}

// String renders the value for tabular sinks; absent values are empty.
func (f Float) String() string {
	if !f.Valid {
		return ""
	}
	return strconv.FormatFloat(f.Value, 'f', -1, 64)
}

// Record is the immutable output of a qualifying evaluation.
type Record struct {
	CheckedAt time.Time `json:"checked_at_utc"`
	Symbol    string    `json:"symbol"`
	Kind      Kind      `json:"signal"`
	Price     float64   `json:"price"`

	EMAFastLTF      float64 `json:"ema_fast_ltf"`
	EMASlowLTF      float64 `json:"ema_slow_ltf"`
	EMAFastLTFPrev  float64 `json:"ema_fast_ltf_prev"`
	EMASlowLTFPrev  float64 `json:"ema_slow_ltf_prev"`
	EMAFastLTFDelta float64 `json:"ema_fast_ltf_delta"`
	EMASlowLTFDelta float64 `json:"ema_slow_ltf_delta"`
	ADX             float64 `json:"adx_ltf"`
	ADXPrev         Float   `json:"adx_ltf_prev"`
	ADXDelta        Float   `json:"adx_delta"`

	EMAFastHTF      float64 `json:"ema_fast_htf"`
	EMASlowHTF      float64 `json:"ema_slow_htf"`
	EMAFastHTFPrev  Float   `json:"ema_fast_htf_prev"`
	EMASlowHTFPrev  Float   `json:"ema_slow_htf_prev"`
	EMAFastHTFDelta Float   `json:"ema_fast_htf_delta"`
	EMASlowHTFDelta Float   `json:"ema_slow_htf_delta"`

	LTFBias  int      `json:"ltf_trend_bias"`
	HTFBias  int      `json:"htf_trend_bias"`
	Strength Strength `json:"adx_strength"`

	Params Params   `json:"params"`
	Risk   RiskPlan `json:"risk"`
}

// Bias returns +1 when fast sits above slow, otherwise -1.
func Bias(fast, slow float64) int {
	if fast > slow {
		return 1
	}
	return -1
}
