package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"crossbot-go/internal/metrics"
	"crossbot-go/internal/signal"
)

// BinanceClient fetches klines over REST behind a rate limiter and a circuit breaker.
type BinanceClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	log     zerolog.Logger
}

// NewBinanceClient builds a REST kline client.
func NewBinanceClient(log zerolog.Logger, opts ...Option) *BinanceClient {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	c := &BinanceClient{
		baseURL: o.baseURL,
		http:    &http.Client{Timeout: o.timeout},
		limiter: rate.NewLimiter(rate.Limit(o.rps), o.burst),
		log:     log,
	}
	trips := o.trips
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        ProviderBinance,
		MaxRequests: 1,
		Timeout:     o.breakerTTL,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= trips
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	})
	return c
}

// FetchBars implements Provider.
func (c *BinanceClient) FetchBars(ctx context.Context, symbol, interval string, limit int) (signal.Series, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("binance rate limit: %w", err)
	}
	start := time.Now()
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx, symbol, interval, limit)
	})
	metrics.FetchLatency.WithLabelValues(interval).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.FetchErrors.WithLabelValues(symbol, interval).Inc()
		return nil, fmt.Errorf("binance klines %s %s: %w", symbol, interval, err)
	}
	return out.(signal.Series), nil
}

func (c *BinanceClient) fetch(ctx context.Context, symbol, interval string, limit int) (signal.Series, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", interval)
	q.Set("limit", strconv.Itoa(limit))
	endpoint := fmt.Sprintf("%s/api/v3/klines?%s", c.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	var rows [][]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode klines: %w", err)
	}

	series := make(signal.Series, 0, len(rows))
	for i, row := range rows {
		bar, err := parseKline(row)
		if err != nil {
			c.log.Warn().Err(err).Str("symbol", symbol).Int("row", i).Msg("skipping malformed kline")
			continue
		}
		series = append(series, bar)
	}
	if len(series) == 0 {
		return nil, ErrEmptySeries
	}
	sort.SliceStable(series, func(i, j int) bool { return series[i].Ts.Before(series[j].Ts) })
	return series, nil
}

// parseKline reads [openTime, open, high, low, close, volume, closeTime, ...].
func parseKline(row []any) (signal.Bar, error) {
	if len(row) < 6 {
		return signal.Bar{}, fmt.Errorf("kline has %d fields", len(row))
	}
	openTime, err := toFloat(row[0])
	if err != nil {
		return signal.Bar{}, fmt.Errorf("open time: %w", err)
	}
	var vals [5]float64
	for i := range vals {
		if vals[i], err = toFloat(row[i+1]); err != nil {
			return signal.Bar{}, fmt.Errorf("field %d: %w", i+1, err)
		}
	}
	return signal.Bar{
		Ts:     time.UnixMilli(int64(openTime)).UTC(),
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, nil
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case json.Number:
		return x.Float64()
	case string:
		return strconv.ParseFloat(x, 64)
	case float64:
		return x, nil
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
