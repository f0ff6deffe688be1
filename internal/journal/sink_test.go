package journal

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"crossbot-go/internal/signal"
)

func sampleEntry() Entry {
	return Entry{
		CycleID: "c-1",
		Record: signal.Record{
			CheckedAt:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
			Symbol:     "BTCUSDT",
			Kind:       signal.Long,
			Price:      11,
			EMAFastLTF: 10.5,
			EMASlowLTF: 10.25,
			ADX:        25,
			ADXPrev:    signal.Some(22),
			ADXDelta:   signal.Some(3),
			EMAFastHTF: 101,
			EMASlowHTF: 100,
			LTFBias:    1,
			HTFBias:    1,
			Strength:   signal.Strong,
			Params:     signal.Params{EMAFastSpan: 9, EMASlowSpan: 15, ADXWindow: 14, ADXThreshold: 18, HTFFactor: 0.9975, RiskUSD: 1, RRRatio: 2.5, LookbackSL: 10},
			Risk:       signal.RiskPlan{Valid: true, StopLoss: 9, TakeProfit: 16, Distance: 2, Quantity: 0.5},
		},
	}
}

func column(t *testing.T, row []string, name string) string {
	t.Helper()
	for i, c := range Columns {
		if c == name {
			return row[i]
		}
	}
	t.Fatalf("unknown column %q", name)
	return ""
}

func TestRowMatchesColumns(t *testing.T) {
	row := Row(sampleEntry())
	if len(row) != len(Columns) {
		t.Fatalf("row has %d cells, want %d", len(row), len(Columns))
	}
	checks := map[string]string{
		"cycle_id":          "c-1",
		"checked_at_utc":    "2024-05-01T12:00:00Z",
		"signal":            "LONG",
		"adx_ltf_prev":      "22",
		"ema_fast_htf_prev": "",
		"ltf_trend_bias":    "1",
		"htf_factor":        "0.9975",
		"stop_loss":         "9",
		"quantity":          "0.5",
	}
	for name, want := range checks {
		if got := column(t, row, name); got != want {
			t.Fatalf("%s = %q, want %q", name, got, want)
		}
	}
}

func TestRowBlanksInvalidRisk(t *testing.T) {
	e := sampleEntry()
	e.Record.Risk = signal.RiskPlan{}
	row := Row(e)
	for _, name := range []string{"stop_loss", "take_profit", "quantity"} {
		if got := column(t, row, name); got != "" {
			t.Fatalf("%s should be blank, got %q", name, got)
		}
	}
}

func TestProbe(t *testing.T) {
	p := Probe(time.Date(2024, 1, 1, 0, 0, 0, 0, time.FixedZone("x", 3600)))
	if p.Record.Symbol != "STARTUPTEST" || p.Record.Kind != "TEST" {
		t.Fatalf("unexpected probe %+v", p.Record)
	}
	if p.Record.CheckedAt.Location() != time.UTC {
		t.Fatalf("probe time should be UTC")
	}
}

type failingSink struct{ closed bool }

func (f *failingSink) Append(context.Context, Entry) error { return errors.New("disk full") }
func (f *failingSink) Close() error                       { f.closed = true; return nil }

func TestFanoutContinuesPastFailures(t *testing.T) {
	bad := &failingSink{}
	mem := NewMemory(1)
	f := NewFanout(Named{"bad", bad}, Named{"nil", nil}, Named{"memory", mem})
	if f.Len() != 2 {
		t.Fatalf("nil sink should be dropped, got %d sinks", f.Len())
	}
	err := f.Append(context.Background(), sampleEntry())
	if err == nil || !strings.Contains(err.Error(), "bad: disk full") {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(mem.Snapshot()) != 1 {
		t.Fatalf("memory sink should still receive the entry")
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if !bad.closed {
		t.Fatalf("expected every sink closed")
	}
}

func TestMemorySnapshotAndReset(t *testing.T) {
	mem := NewMemory(-1)
	_ = mem.Append(context.Background(), sampleEntry())
	snap := mem.Snapshot()
	snap[0].CycleID = "mutated"
	if mem.Snapshot()[0].CycleID != "c-1" {
		t.Fatalf("snapshot must be a copy")
	}
	mem.Reset()
	if len(mem.Snapshot()) != 0 {
		t.Fatalf("expected empty after reset")
	}
}
