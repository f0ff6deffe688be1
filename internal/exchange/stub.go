package exchange

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"time"

	"crossbot-go/internal/signal"
)

var stubEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// StubProvider synthesizes a deterministic oscillating series per symbol.
type StubProvider struct{}

// NewStubProvider returns a provider that never touches the network.
func NewStubProvider() *StubProvider { return &StubProvider{} }

// FetchBars returns limit bars whose shape depends only on symbol and interval.
func (p *StubProvider) FetchBars(ctx context.Context, symbol, interval string, limit int) (signal.Series, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	step, ok := signal.IntervalDuration(interval)
	if !ok {
		return nil, fmt.Errorf("stub: unsupported interval %q", interval)
	}
	if limit <= 0 {
		return nil, ErrEmptySeries
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(symbol))
	seed := float64(h.Sum32()%1000) / 10
	base := 50 + seed
	period := 10 + math.Mod(seed, 17)

	out := make(signal.Series, limit)
	prev := base
	for i := 0; i < limit; i++ {
		x := float64(i)
		closePx := base + 0.08*base*math.Sin(x/period) + 0.02*base*math.Cos(x/3.1)
		wick := 0.004 * base * (1 + math.Abs(math.Sin(x*1.7)))
		out[i] = signal.Bar{
			Ts:     stubEpoch.Add(time.Duration(i) * step),
			Open:   prev,
			High:   math.Max(prev, closePx) + wick,
			Low:    math.Min(prev, closePx) - wick,
			Close:  closePx,
			Volume: 1000 + 100*math.Abs(math.Cos(x)),
		}
		prev = closePx
	}
	return out, nil
}
