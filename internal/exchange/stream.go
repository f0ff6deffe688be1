package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"crossbot-go/internal/signal"
)

// KlineEvent is a finished candle pushed by the stream.
type KlineEvent struct {
	Symbol   string
	Interval string
	Bar      signal.Bar
}

// KlineStream follows Binance kline streams and forwards only closed candles.
type KlineStream struct {
	url      string
	symbols  []string
	interval string
	log      zerolog.Logger
}

type klineEnvelope struct {
	Stream string       `json:"stream"`
	Data   klinePayload `json:"data"`
}

type klinePayload struct {
	Symbol string      `json:"s"`
	Kline  klineFields `json:"k"`
}

type klineFields struct {
	OpenTime int64  `json:"t"`
	Interval string `json:"i"`
	Open     string `json:"o"`
	High     string `json:"h"`
	Low      string `json:"l"`
	Close    string `json:"c"`
	Volume   string `json:"v"`
	Closed   bool   `json:"x"`
}

// NewKlineStream subscribes to <symbol>@kline_<interval> for every symbol.
func NewKlineStream(symbols []string, interval string, log zerolog.Logger, opts ...Option) *KlineStream {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	syms := normalizeSymbols(symbols)
	streams := make([]string, len(syms))
	for i, sym := range syms {
		streams[i] = strings.ToLower(sym) + "@kline_" + interval
	}
	return &KlineStream{
		url:      fmt.Sprintf("%s/stream?streams=%s", o.streamURL, strings.Join(streams, "/")),
		symbols:  syms,
		interval: interval,
		log:      log,
	}
}

// Run pushes closed klines onto out until the context is canceled, reconnecting with backoff.
func (s *KlineStream) Run(ctx context.Context, out chan<- KlineEvent) error {
	if len(s.symbols) == 0 {
		return fmt.Errorf("kline stream requires at least one symbol")
	}
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.consume(ctx, out); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Warn().Err(err).Msg("kline stream disconnected, retrying")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff = time.Duration(math.Min(float64(maxBackoff), float64(backoff)*1.8))
			continue
		}
		return nil
	}
}

func (s *KlineStream) consume(ctx context.Context, out chan<- KlineEvent) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	s.log.Info().Str("interval", s.interval).Strs("symbols", s.symbols).Msg("connected kline stream")

	// kline streams push every ~2s, so a silent minute means the link is dead
	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					s.log.Warn().Err(err).Msg("kline stream ping failed")
					return
				}
			case <-pingCtx.Done():
				conn.Close()
				return
			}
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		ev, ok, err := decodeKline(message)
		if err != nil {
			s.log.Warn().Err(err).Msg("failed to decode kline message")
			continue
		}
		if !ok {
			continue
		}
		select {
		case out <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// decodeKline parses one combined-stream frame. ok is false for candles still forming.
func decodeKline(message []byte) (KlineEvent, bool, error) {
	var env klineEnvelope
	if err := json.Unmarshal(message, &env); err != nil {
		return KlineEvent{}, false, err
	}
	k := env.Data.Kline
	if !k.Closed {
		return KlineEvent{}, false, nil
	}
	var vals [5]float64
	for i, raw := range []string{k.Open, k.High, k.Low, k.Close, k.Volume} {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return KlineEvent{}, false, fmt.Errorf("kline field %d: %w", i, err)
		}
		vals[i] = v
	}
	symbol := strings.ToUpper(env.Data.Symbol)
	if symbol == "" {
		symbol = parseStreamSymbol(env.Stream)
	}
	return KlineEvent{
		Symbol:   symbol,
		Interval: k.Interval,
		Bar: signal.Bar{
			Ts:     time.UnixMilli(k.OpenTime).UTC(),
			Open:   vals[0],
			High:   vals[1],
			Low:    vals[2],
			Close:  vals[3],
			Volume: vals[4],
			Closed: true,
		},
	}, true, nil
}

func parseStreamSymbol(stream string) string {
	parts := strings.Split(stream, "@")
	if len(parts) == 0 || parts[0] == "" {
		return strings.ToUpper(stream)
	}
	return strings.ToUpper(parts[0])
}
