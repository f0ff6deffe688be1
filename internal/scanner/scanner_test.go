package scanner

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"crossbot-go/internal/alert"
	"crossbot-go/internal/exchange"
	"crossbot-go/internal/journal"
	"crossbot-go/internal/signal"
)

var clock = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func bars(closes ...float64) signal.Series {
	out := make(signal.Series, len(closes))
	for i, c := range closes {
		out[i] = signal.Bar{
			Ts:    clock.Add(time.Duration(i-len(closes)) * 15 * time.Minute),
			Open:  c,
			High:  c + 0.5,
			Low:   c - 0.5,
			Close: c,
		}
	}
	return out
}

type fakeProvider struct {
	mu     sync.Mutex
	series map[string]signal.Series
	panics map[string]bool
	calls  int
}

func (f *fakeProvider) FetchBars(_ context.Context, symbol, interval string, _ int) (signal.Series, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.panics[symbol] {
		panic("boom")
	}
	s, ok := f.series[symbol+"/"+interval]
	if !ok {
		return nil, exchange.ErrEmptySeries
	}
	return s, nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	notified []signal.Record
	sent     []string
	err      error
}

func (f *fakeNotifier) Notify(_ context.Context, rec signal.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notified = append(f.notified, rec)
	return f.err
}

func (f *fakeNotifier) Send(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return f.err
}

func testSettings(symbols ...string) Settings {
	return Settings{
		Symbols:     symbols,
		LTFInterval: "15m",
		HTFInterval: "1h",
		Limit:       200,
		Params: signal.Params{
			EMAFastSpan: 2, EMASlowSpan: 3, ADXWindow: 2, ADXThreshold: 0,
			HTFFactor: 0.9975, RiskUSD: 1, RRRatio: 2.5, LookbackSL: 3,
		},
		RequestTimeout: time.Second,
		Interval:       time.Hour,
	}
}

func longProvider() *fakeProvider {
	return &fakeProvider{series: map[string]signal.Series{
		"BTCUSDT/15m": bars(10, 10, 10, 10, 9, 11),
		"BTCUSDT/1h":  bars(100, 100, 100),
		"ETHUSDT/15m": bars(10, 10, 10, 10, 10, 10),
		"ETHUSDT/1h":  bars(100, 100, 100),
	}}
}

func TestRunCycleDispatchesSignal(t *testing.T) {
	mem := journal.NewMemory(4)
	notifier := &fakeNotifier{}
	s := New(testSettings("BTCUSDT", "ETHUSDT"), longProvider(), mem, notifier, zerolog.Nop(),
		WithClock(func() time.Time { return clock }))

	rep := s.RunCycle(context.Background())
	if rep.Evaluated != 2 || rep.Errors != 0 || rep.Insufficient != 0 {
		t.Fatalf("unexpected report %+v", rep)
	}
	if len(rep.Signals) != 1 || rep.Signals[0].Symbol != "BTCUSDT" || rep.Signals[0].Kind != signal.Long {
		t.Fatalf("expected one BTCUSDT LONG, got %+v", rep.Signals)
	}
	if !rep.Signals[0].CheckedAt.Equal(clock) {
		t.Fatalf("evaluation time should come from the injected clock, got %s", rep.Signals[0].CheckedAt)
	}
	entries := mem.Snapshot()
	if len(entries) != 1 || entries[0].CycleID != rep.ID {
		t.Fatalf("expected journal entry tagged with cycle id, got %+v", entries)
	}
	if len(notifier.notified) != 1 {
		t.Fatalf("expected one alert, got %d", len(notifier.notified))
	}
}

func TestRunCycleIsolatesFailures(t *testing.T) {
	p := longProvider()
	p.panics = map[string]bool{"XRPUSDT": true}
	var buf bytes.Buffer
	s := New(testSettings("XRPUSDT", "DOGEUSDT", "BTCUSDT"), p, nil, nil, zerolog.New(&buf))

	rep := s.RunCycle(context.Background())
	if rep.Evaluated != 3 {
		t.Fatalf("expected all symbols evaluated, got %d", rep.Evaluated)
	}
	if rep.Errors != 1 {
		t.Fatalf("expected the panic counted once, got %d", rep.Errors)
	}
	if rep.Insufficient != 1 {
		t.Fatalf("expected DOGEUSDT reported as insufficient, got %d", rep.Insufficient)
	}
	if len(rep.Signals) != 1 {
		t.Fatalf("later symbols should still be evaluated, got %+v", rep.Signals)
	}
	out := buf.String()
	if !strings.Contains(out, "symbol evaluation aborted") || !strings.Contains(out, "insufficient data") {
		t.Fatalf("expected fault logs, got %s", out)
	}
}

func TestRunCycleDeliveryFailureDoesNotAbort(t *testing.T) {
	mem := journal.NewMemory(1)
	notifier := &fakeNotifier{err: errors.New("telegram down")}
	s := New(testSettings("BTCUSDT"), longProvider(), mem, notifier, zerolog.Nop())

	rep := s.RunCycle(context.Background())
	if len(rep.Signals) != 1 || rep.Errors != 1 {
		t.Fatalf("expected signal kept and error counted, got %+v", rep)
	}
	if len(mem.Snapshot()) != 1 {
		t.Fatalf("journal should be written before the alert")
	}
}

func TestRunCycleIgnoresDisabledAlerts(t *testing.T) {
	notifier := &fakeNotifier{err: alert.ErrDisabled}
	s := New(testSettings("BTCUSDT"), longProvider(), nil, notifier, zerolog.Nop())
	if rep := s.RunCycle(context.Background()); rep.Errors != 0 {
		t.Fatalf("disabled alerts are not errors, got %+v", rep)
	}
}

func TestSleepFor(t *testing.T) {
	if got := sleepFor(15*time.Minute, 40*time.Second); got != 15*time.Minute-40*time.Second {
		t.Fatalf("unexpected sleep %s", got)
	}
	if got := sleepFor(time.Minute, 2*time.Minute); got != 0 {
		t.Fatalf("overrun cycles should not sleep, got %s", got)
	}
}

func TestRunIntervalStopsOnCancel(t *testing.T) {
	p := longProvider()
	set := testSettings("BTCUSDT")
	set.Interval = 10 * time.Millisecond
	s := New(set, p, nil, nil, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()
	if err := s.Run(ctx, nil); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.calls < 4 {
		t.Fatalf("expected several cycles, got %d fetches", p.calls)
	}
}

func TestRunRejectsZeroInterval(t *testing.T) {
	set := testSettings("BTCUSDT")
	set.Interval = 0
	s := New(set, longProvider(), nil, nil, zerolog.Nop())
	if err := s.Run(context.Background(), nil); err == nil {
		t.Fatalf("expected interval error")
	}
}

func TestRunOnCloseDebouncesBars(t *testing.T) {
	p := longProvider()
	s := New(testSettings("BTCUSDT"), p, nil, nil, zerolog.Nop())

	triggers := make(chan exchange.KlineEvent, 4)
	bar := signal.Bar{Ts: clock, Closed: true}
	triggers <- exchange.KlineEvent{Symbol: "BTCUSDT", Interval: "15m", Bar: bar}
	triggers <- exchange.KlineEvent{Symbol: "ETHUSDT", Interval: "15m", Bar: bar}
	bar.Ts = clock.Add(15 * time.Minute)
	triggers <- exchange.KlineEvent{Symbol: "BTCUSDT", Interval: "15m", Bar: bar}
	close(triggers)

	err := s.Run(context.Background(), triggers)
	if err == nil || !strings.Contains(err.Error(), "closed") {
		t.Fatalf("expected closed-stream error, got %v", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	// initial cycle plus one per distinct bar, two fetches each
	if p.calls != 6 {
		t.Fatalf("expected 3 cycles (6 fetches), got %d fetches", p.calls)
	}
}
