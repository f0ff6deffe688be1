// Package exchange hosts market-data connectors that supply bar series to the scanner.
package exchange

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"crossbot-go/internal/signal"
)

const (
	// ProviderStub emits deterministic synthetic bars (useful for tests/offline work).
	ProviderStub = "stub"
	// ProviderBinance fetches klines from the Binance public REST API.
	ProviderBinance = "binance"
)

// ErrEmptySeries reports a fetch that returned no usable bars.
var ErrEmptySeries = errors.New("empty bar series")

// Provider returns the most recent limit bars for symbol at interval, oldest first.
type Provider interface {
	FetchBars(ctx context.Context, symbol, interval string, limit int) (signal.Series, error)
}

// Option configures provider construction parameters.
type Option func(*options)

type options struct {
	baseURL    string
	streamURL  string
	timeout    time.Duration
	rps        float64
	burst      int
	breakerTTL time.Duration
	trips      uint32
}

const (
	defaultBaseURL   = "https://data-api.binance.vision"
	defaultStreamURL = "wss://stream.binance.com:9443"
	defaultTimeout   = 10 * time.Second
)

func defaultOptions() options {
	return options{
		baseURL:    defaultBaseURL,
		streamURL:  defaultStreamURL,
		timeout:    defaultTimeout,
		rps:        10,
		burst:      5,
		breakerTTL: 30 * time.Second,
		trips:      5,
	}
}

// WithBaseURL overrides the REST endpoint.
func WithBaseURL(url string) Option {
	return func(o *options) {
		if url != "" {
			o.baseURL = strings.TrimSuffix(url, "/")
		}
	}
}

// WithStreamURL overrides the websocket endpoint.
func WithStreamURL(url string) Option {
	return func(o *options) {
		if url != "" {
			o.streamURL = strings.TrimSuffix(url, "/")
		}
	}
}

// WithTimeout bounds each HTTP request.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithRateLimit caps outbound requests per second.
func WithRateLimit(rps float64, burst int) Option {
	return func(o *options) {
		if rps > 0 {
			o.rps = rps
		}
		if burst > 0 {
			o.burst = burst
		}
	}
}

// WithBreaker trips after consecutive failures and probes again after cooldown.
func WithBreaker(consecutiveFailures uint32, cooldown time.Duration) Option {
	return func(o *options) {
		if consecutiveFailures > 0 {
			o.trips = consecutiveFailures
		}
		if cooldown > 0 {
			o.breakerTTL = cooldown
		}
	}
}

// NewProvider constructs a bar-series provider for the requested backend.
func NewProvider(provider string, log zerolog.Logger, opts ...Option) Provider {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case ProviderBinance:
		return NewBinanceClient(log, opts...)
	default:
		return NewStubProvider()
	}
}

// FetchOrEmpty converts any fetch failure into an empty series after logging it,
// so the evaluator treats it as insufficient data.
func FetchOrEmpty(ctx context.Context, p Provider, log zerolog.Logger, symbol, interval string, limit int) signal.Series {
	series, err := p.FetchBars(ctx, symbol, interval, limit)
	if err != nil {
		log.Error().Err(err).Str("symbol", symbol).Str("interval", interval).Msg("fetch bars failed")
		return nil
	}
	return series
}

func normalizeSymbols(symbols []string) []string {
	unique := make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" {
			continue
		}
		unique[sym] = struct{}{}
	}
	out := make([]string, 0, len(unique))
	for sym := range unique {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}
