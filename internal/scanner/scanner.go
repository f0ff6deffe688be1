// Package scanner drives periodic evaluation of the watch list and dispatches signals.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"crossbot-go/internal/alert"
	"crossbot-go/internal/exchange"
	"crossbot-go/internal/journal"
	"crossbot-go/internal/metrics"
	"crossbot-go/internal/signal"
	"crossbot-go/internal/strategy"
)

// Settings are the per-process scan parameters.
type Settings struct {
	Symbols        []string
	LTFInterval    string
	HTFInterval    string
	Limit          int
	Params         signal.Params
	RequestTimeout time.Duration
	Interval       time.Duration
}

// Scanner evaluates every symbol once per cycle.
type Scanner struct {
	set      Settings
	provider exchange.Provider
	sink     journal.Sink
	notifier alert.Notifier
	log      zerolog.Logger
	now      func() time.Time
}

// Option customizes a Scanner.
type Option func(*Scanner)

// WithClock replaces time.Now for evaluation timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Scanner) {
		if now != nil {
			s.now = now
		}
	}
}

// New wires a scanner. sink and notifier may be nil.
func New(set Settings, provider exchange.Provider, sink journal.Sink, notifier alert.Notifier, log zerolog.Logger, opts ...Option) *Scanner {
	if set.RequestTimeout <= 0 {
		set.RequestTimeout = 10 * time.Second
	}
	s := &Scanner{
		set:      set,
		provider: provider,
		sink:     sink,
		notifier: notifier,
		log:      log.With().Str("component", "scanner").Logger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CycleReport summarizes one pass over the watch list.
type CycleReport struct {
	ID           string
	Started      time.Time
	Evaluated    int
	Insufficient int
	Signals      []signal.Record
	Errors       int
	Elapsed      time.Duration
}

// RunCycle evaluates each symbol sequentially. A failing symbol never stops the cycle.
func (s *Scanner) RunCycle(ctx context.Context) CycleReport {
	rep := CycleReport{ID: uuid.NewString(), Started: s.now().UTC()}
	start := time.Now()
	log := s.log.With().Str("cycle_id", rep.ID).Logger()
	log.Info().Int("symbols", len(s.set.Symbols)).Msg("scan cycle started")

	for _, sym := range s.set.Symbols {
		if ctx.Err() != nil {
			break
		}
		res := s.scanSymbol(ctx, log, rep.ID, sym)
		rep.Evaluated++
		rep.Errors += res.errors
		if res.insufficient {
			rep.Insufficient++
		}
		if res.record != nil {
			rep.Signals = append(rep.Signals, *res.record)
		}
	}

	rep.Elapsed = time.Since(start)
	metrics.ScanCycles.Inc()
	metrics.CycleDuration.Observe(rep.Elapsed.Seconds())
	log.Info().
		Int("evaluated", rep.Evaluated).
		Int("signals", len(rep.Signals)).
		Int("errors", rep.Errors).
		Dur("elapsed", rep.Elapsed).
		Msg("scan cycle finished")
	return rep
}

type symbolResult struct {
	record       *signal.Record
	insufficient bool
	errors       int
}

func (s *Scanner) scanSymbol(ctx context.Context, log zerolog.Logger, cycleID, sym string) (res symbolResult) {
	log = log.With().Str("symbol", sym).Logger()
	defer func() {
		if r := recover(); r != nil {
			metrics.SymbolErrors.WithLabelValues(sym).Inc()
			log.Error().Interface("panic", r).Msg("symbol evaluation aborted")
			res = symbolResult{errors: 1}
		}
	}()
	metrics.EvaluationsTotal.WithLabelValues(sym).Inc()

	ltf := s.fetch(ctx, sym, s.set.LTFInterval)
	htf := s.fetch(ctx, sym, s.set.HTFInterval)
	if len(ltf) < 2 || len(htf) < 1 {
		metrics.InsufficientData.WithLabelValues(sym).Inc()
		log.Warn().Int("ltf_bars", len(ltf)).Int("htf_bars", len(htf)).Msg("insufficient data")
		res.insufficient = true
		return res
	}

	rec := strategy.Evaluate(sym, ltf, htf, s.set.Params, s.now().UTC())
	if rec == nil {
		log.Debug().Msg("no signal")
		return res
	}
	res.record = rec
	metrics.SignalsTotal.WithLabelValues(sym, string(rec.Kind)).Inc()
	log.Info().
		Str("signal", string(rec.Kind)).
		Float64("price", rec.Price).
		Float64("adx", rec.ADX).
		Float64("ema_fast_ltf", rec.EMAFastLTF).
		Float64("ema_slow_ltf", rec.EMASlowLTF).
		Msg("SIGNAL")

	if err := s.dispatch(ctx, cycleID, *rec); err != nil {
		metrics.SymbolErrors.WithLabelValues(sym).Inc()
		log.Error().Err(err).Msg("signal dispatch failed")
		res.errors++
	}
	return res
}

func (s *Scanner) fetch(ctx context.Context, sym, interval string) signal.Series {
	ctx, cancel := context.WithTimeout(ctx, s.set.RequestTimeout)
	defer cancel()
	return exchange.FetchOrEmpty(ctx, s.provider, s.log, sym, interval, s.set.Limit)
}

// dispatch journals first, then alerts; both are attempted even if one fails.
func (s *Scanner) dispatch(ctx context.Context, cycleID string, rec signal.Record) error {
	var errs []error
	if s.sink != nil {
		if err := s.sink.Append(ctx, journal.Entry{CycleID: cycleID, Record: rec}); err != nil {
			errs = append(errs, fmt.Errorf("journal: %w", err))
		}
	}
	if s.notifier != nil {
		ctx, cancel := context.WithTimeout(ctx, s.set.RequestTimeout)
		defer cancel()
		if err := s.notifier.Notify(ctx, rec); err != nil && !errors.Is(err, alert.ErrDisabled) {
			errs = append(errs, fmt.Errorf("alert: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Run executes a cycle immediately, then repeats until ctx is done. With a nil
// trigger channel cycles start every Interval measured from the previous start;
// otherwise one cycle runs per newly closed bar timestamp.
func (s *Scanner) Run(ctx context.Context, triggers <-chan exchange.KlineEvent) error {
	if triggers == nil && s.set.Interval <= 0 {
		return errors.New("scanner interval must be positive")
	}
	first := s.RunCycle(ctx)
	if triggers == nil {
		return s.runInterval(ctx, first.Elapsed)
	}
	return s.runOnClose(ctx, triggers)
}

func (s *Scanner) runInterval(ctx context.Context, elapsed time.Duration) error {
	next := sleepFor(s.set.Interval, elapsed)
	for {
		timer := time.NewTimer(next)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		rep := s.RunCycle(ctx)
		next = sleepFor(s.set.Interval, rep.Elapsed)
		s.log.Debug().Dur("sleep", next).Msg("waiting for next cycle")
	}
}

// sleepFor keeps cycle starts on a fixed cadence: max(0, interval-elapsed).
func sleepFor(interval, elapsed time.Duration) time.Duration {
	if d := interval - elapsed; d > 0 {
		return d
	}
	return 0
}

func (s *Scanner) runOnClose(ctx context.Context, triggers <-chan exchange.KlineEvent) error {
	var last time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-triggers:
			if !ok {
				return errors.New("kline trigger stream closed")
			}
			if !ev.Bar.Ts.After(last) {
				continue
			}
			last = ev.Bar.Ts
			s.log.Debug().Str("symbol", ev.Symbol).Time("bar", ev.Bar.Ts).Msg("bar closed, scanning")
			s.RunCycle(ctx)
		}
	}
}
