// Package journal persists emitted signal records.
package journal

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"crossbot-go/internal/metrics"
	"crossbot-go/internal/signal"
)

// ErrClosed is returned by sinks used after Close.
var ErrClosed = errors.New("journal closed")

// Entry is one persisted signal tagged with the scan cycle that produced it.
type Entry struct {
	CycleID string
	Record  signal.Record
}

// Sink appends entries to durable storage.
type Sink interface {
	Append(ctx context.Context, e Entry) error
	Close() error
}

// Columns is the fixed column order for tabular sinks.
var Columns = []string{
	"cycle_id", "checked_at_utc", "symbol", "signal", "price",
	"ema_fast_ltf", "ema_slow_ltf", "ema_fast_ltf_prev", "ema_slow_ltf_prev",
	"ema_fast_ltf_delta", "ema_slow_ltf_delta",
	"adx_ltf", "adx_ltf_prev", "adx_delta",
	"ema_fast_htf", "ema_slow_htf", "ema_fast_htf_prev", "ema_slow_htf_prev",
	"ema_fast_htf_delta", "ema_slow_htf_delta",
	"ltf_trend_bias", "htf_trend_bias", "adx_strength",
	"ema_fast_len", "ema_slow_len", "adx_len", "adx_threshold", "htf_factor",
	"risk_usd", "rr_ratio", "lookback_sl",
	"stop_loss", "take_profit", "quantity",
}

// Row flattens an entry in Columns order. Absent optional values are empty cells.
func Row(e Entry) []string {
	r := e.Record
	p := r.Params
	row := []string{
		e.CycleID, r.CheckedAt.UTC().Format(time.RFC3339Nano), r.Symbol, string(r.Kind), num(r.Price),
		num(r.EMAFastLTF), num(r.EMASlowLTF), num(r.EMAFastLTFPrev), num(r.EMASlowLTFPrev),
		num(r.EMAFastLTFDelta), num(r.EMASlowLTFDelta),
		num(r.ADX), r.ADXPrev.String(), r.ADXDelta.String(),
		num(r.EMAFastHTF), num(r.EMASlowHTF), r.EMAFastHTFPrev.String(), r.EMASlowHTFPrev.String(),
		r.EMAFastHTFDelta.String(), r.EMASlowHTFDelta.String(),
		strconv.Itoa(r.LTFBias), strconv.Itoa(r.HTFBias), string(r.Strength),
		strconv.Itoa(p.EMAFastSpan), strconv.Itoa(p.EMASlowSpan), strconv.Itoa(p.ADXWindow),
		num(p.ADXThreshold), num(p.HTFFactor),
		num(p.RiskUSD), num(p.RRRatio), strconv.Itoa(p.LookbackSL),
		"", "", "",
	}
	if r.Risk.Valid {
		n := len(row)
		row[n-3], row[n-2], row[n-1] = num(r.Risk.StopLoss), num(r.Risk.TakeProfit), num(r.Risk.Quantity)
	}
	return row
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// Probe builds the placeholder entry written by startup checks.
func Probe(at time.Time) Entry {
	return Entry{
		CycleID: "startup",
		Record: signal.Record{
			CheckedAt: at.UTC(),
			Symbol:    "STARTUPTEST",
			Kind:      signal.Kind("TEST"),
			Strength:  signal.Strength("NONE"),
		},
	}
}

// Named pairs a sink with the label used in logs and metrics.
type Named struct {
	Name string
	Sink Sink
}

// Fanout appends to every sink and joins their errors.
type Fanout struct {
	sinks []Named
}

// NewFanout wraps the given sinks; nil sinks are ignored.
func NewFanout(sinks ...Named) *Fanout {
	f := &Fanout{}
	for _, s := range sinks {
		if s.Sink != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

// Len reports how many sinks are attached.
func (f *Fanout) Len() int { return len(f.sinks) }

// Append writes to all sinks; one failure never skips the rest.
func (f *Fanout) Append(ctx context.Context, e Entry) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Sink.Append(ctx, e); err != nil {
			metrics.PersistFailures.WithLabelValues(s.Name).Inc()
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink.
func (f *Fanout) Close() error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Sink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}
