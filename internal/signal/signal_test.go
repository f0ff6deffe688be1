package signal

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestSeriesColumns(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := Series{
		{Ts: now, High: 11, Low: 9, Close: 10},
		{Ts: now.Add(time.Minute), High: 12, Low: 10, Close: 11},
	}
	if got := s.Closes(); len(got) != 2 || got[1] != 11 {
		t.Fatalf("unexpected closes %v", got)
	}
	if got := s.Highs(); got[0] != 11 {
		t.Fatalf("unexpected highs %v", got)
	}
	if got := s.Lows(); got[1] != 10 {
		t.Fatalf("unexpected lows %v", got)
	}
	last, ok := s.Last()
	if !ok || last.Close != 11 {
		t.Fatalf("unexpected last bar %+v", last)
	}
	if !s.Ordered() {
		t.Fatalf("expected ordered series")
	}
	s[0], s[1] = s[1], s[0]
	if s.Ordered() {
		t.Fatalf("expected unordered series to be detected")
	}
	if _, ok := (Series{}).Last(); ok {
		t.Fatalf("empty series has no last bar")
	}
}

func TestFloatJSON(t *testing.T) {
	type wrapper struct {
		A Float `json:"a"`
		B Float `json:"b"`
	}
	data, err := json.Marshal(wrapper{A: Some(1.5)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"a":1.5,"b":null}` {
		t.Fatalf("unexpected json %s", data)
	}
	var decoded wrapper
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !decoded.A.Valid || decoded.A.Value != 1.5 || decoded.B.Valid {
		t.Fatalf("unexpected decoded value %+v", decoded)
	}
	if Some(2).String() != "2" || (Float{}).String() != "" {
		t.Fatalf("unexpected string rendering")
	}
}

func TestRecordJSONKeys(t *testing.T) {
	rec := Record{Symbol: "BTCUSDT", Kind: Long, Strength: Strong}
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{`"signal":"LONG"`, `"adx_ltf_prev":null`, `"adx_strength":"Strong"`, `"ema_fast_len":0`} {
		if !strings.Contains(string(data), key) {
			t.Fatalf("expected %s in %s", key, data)
		}
	}
}

func TestBias(t *testing.T) {
	if Bias(2, 1) != 1 || Bias(1, 2) != -1 || Bias(1, 1) != -1 {
		t.Fatalf("unexpected bias values")
	}
}

func TestIntervalDuration(t *testing.T) {
	if d, ok := IntervalDuration("15m"); !ok || d != 15*time.Minute {
		t.Fatalf("unexpected 15m duration %v", d)
	}
	if _, ok := IntervalDuration("7m"); ok {
		t.Fatalf("unexpected support for 7m")
	}
}
