package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"crossbot-go/internal/alert"
	"crossbot-go/internal/config"
	"crossbot-go/internal/exchange"
	"crossbot-go/internal/journal"
	"crossbot-go/internal/metrics"
	"crossbot-go/internal/scanner"
	"crossbot-go/internal/util"
)

type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	logFile io.Closer
	csv     *journal.CSVJournal
	sinks   *journal.Fanout
	scanner *scanner.Scanner
}

func bootstrap(ctx context.Context, path string) (*app, error) {
	cfg, err := config.Resolve(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, logFile, err := util.NewLoggerWithErrorFile(cfg.App.LogLevel, cfg.App.ErrorLog)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log, logFile: logFile}

	a.csv, err = journal.NewCSVJournal(cfg.Journal.CSVPath)
	if err != nil {
		a.Close()
		return nil, err
	}
	named := []journal.Named{{Name: "csv", Sink: a.csv}}
	if cfg.Journal.JSONLPath != "" {
		rec, err := journal.NewJSONLRecorder(cfg.Journal.JSONLPath)
		if err != nil {
			log.Error().Err(err).Str("path", cfg.Journal.JSONLPath).Msg("jsonl journal disabled")
		} else {
			named = append(named, journal.Named{Name: "jsonl", Sink: rec})
		}
	}
	if cfg.Journal.PostgresDSN != "" {
		pg, err := journal.NewPostgresSink(ctx, cfg.Journal.PostgresDSN, cfg.RequestTimeout())
		if err != nil {
			log.Error().Err(err).Msg("postgres journal disabled")
		} else {
			named = append(named, journal.Named{Name: "postgres", Sink: pg})
		}
	}
	if cfg.Journal.SheetID != "" && cfg.Journal.ServiceAccountJSON != "" {
		sh, err := journal.NewSheetsSink(ctx, cfg.Journal.SheetID, cfg.Journal.SheetRange, cfg.Journal.ServiceAccountJSON)
		if err != nil {
			log.Error().Err(err).Msg("google sheets journal disabled")
		} else {
			named = append(named, journal.Named{Name: "sheets", Sink: sh})
		}
	} else {
		log.Warn().Msg("google sheets credentials not set, skipping cloud journal")
	}
	a.sinks = journal.NewFanout(named...)

	provider := exchange.NewProvider(cfg.Exchange.Provider, log,
		exchange.WithBaseURL(cfg.Exchange.BaseURL),
		exchange.WithTimeout(cfg.RequestTimeout()),
		exchange.WithRateLimit(cfg.Exchange.RateLimitRPS, cfg.Exchange.RateLimitBurst),
	)
	notifier := alert.NewTelegram(alert.TelegramConfig{
		Enabled:  cfg.Telegram.Enabled,
		BotToken: cfg.Telegram.BotToken,
		ChatID:   cfg.Telegram.ChatID,
		APIBase:  cfg.Telegram.APIBase,
		Timeout:  cfg.RequestTimeout(),
	}, log)

	a.scanner = scanner.New(scanner.Settings{
		Symbols:        cfg.Exchange.Symbols,
		LTFInterval:    cfg.Strategy.LTFInterval,
		HTFInterval:    cfg.Strategy.HTFInterval,
		Limit:          cfg.Strategy.Limit,
		Params:         cfg.StrategyParams(),
		RequestTimeout: cfg.RequestTimeout(),
		Interval:       cfg.CheckInterval(),
	}, provider, a.sinks, notifier, log)

	log.Info().
		Str("app", cfg.App.Name).
		Str("provider", cfg.Exchange.Provider).
		Strs("symbols", cfg.Exchange.Symbols).
		Str("ltf", cfg.Strategy.LTFInterval).
		Str("htf", cfg.Strategy.HTFInterval).
		Int("sinks", a.sinks.Len()).
		Bool("telegram", cfg.Telegram.Enabled).
		Msg("scanner configured")
	return a, nil
}

func startMetrics(a *app) *http.Server {
	if a.cfg.App.MetricsAddr == "" {
		return nil
	}
	srv := metrics.Serve(a.cfg.App.MetricsAddr)
	a.log.Info().Str("addr", a.cfg.App.MetricsAddr).Msg("metrics up")
	return srv
}

func (a *app) run(ctx context.Context) error {
	var triggers chan exchange.KlineEvent
	if a.cfg.Scanner.Trigger == config.TriggerKlineClose {
		triggers = make(chan exchange.KlineEvent, 64)
		stream := exchange.NewKlineStream(a.cfg.Exchange.Symbols, a.cfg.Strategy.LTFInterval, a.log,
			exchange.WithStreamURL(a.cfg.Exchange.StreamURL))
		go func() {
			if err := stream.Run(ctx, triggers); err != nil && !errors.Is(err, context.Canceled) {
				a.log.Error().Err(err).Msg("kline stream stopped")
			}
		}()
	}

	a.log.Info().Str("trigger", a.cfg.Scanner.Trigger).Dur("interval", a.cfg.CheckInterval()).Msg("scanner started")
	err := a.scanner.Run(ctx, triggers)
	if errors.Is(err, context.Canceled) {
		a.log.Info().Msg("shutting down")
		return nil
	}
	return err
}

func (a *app) Close() {
	if a.sinks != nil {
		if err := a.sinks.Close(); err != nil {
			a.log.Error().Err(err).Msg("close journal")
		}
	} else if a.csv != nil {
		_ = a.csv.Close()
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}
