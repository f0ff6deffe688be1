package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	path := filepath.Join("testdata", "config.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.App.Name != "crossbot-test" {
		t.Fatalf("unexpected App.Name: %s", cfg.App.Name)
	}
	if cfg.App.ErrorLog != "logs/errors.log" {
		t.Fatalf("unexpected App.ErrorLog: %s", cfg.App.ErrorLog)
	}
	if len(cfg.Exchange.Symbols) != 2 || cfg.Exchange.Symbols[0] != "BTCUSDT" {
		t.Fatalf("expected BTCUSDT symbol first, got %+v", cfg.Exchange.Symbols)
	}
	if cfg.Exchange.Provider != "stub" {
		t.Fatalf("unexpected provider: %s", cfg.Exchange.Provider)
	}
	if cfg.Exchange.BaseURL != "https://data-api.binance.vision" {
		t.Fatalf("expected default base url, got %s", cfg.Exchange.BaseURL)
	}
	if cfg.Strategy.LTFInterval != "5m" || cfg.Strategy.Limit != 150 {
		t.Fatalf("unexpected strategy settings: %+v", cfg.Strategy)
	}
	if cfg.Strategy.Params.ADXThreshold != 22.5 {
		t.Fatalf("unexpected adx threshold: %.2f", cfg.Strategy.Params.ADXThreshold)
	}
	if cfg.Scanner.Trigger != TriggerKlineClose {
		t.Fatalf("unexpected trigger: %s", cfg.Scanner.Trigger)
	}
	if cfg.CheckInterval() != 5*time.Minute {
		t.Fatalf("unexpected check interval: %s", cfg.CheckInterval())
	}
	if cfg.RequestTimeout() != 5*time.Second {
		t.Fatalf("unexpected request timeout: %s", cfg.RequestTimeout())
	}
	if cfg.Journal.SheetRange != "Sheet1" {
		t.Fatalf("expected default sheet range, got %s", cfg.Journal.SheetRange)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}

	params := cfg.StrategyParams()
	if params.EMAFastSpan != 9 || params.EMASlowSpan != 21 || params.ADXWindow != 10 {
		t.Fatalf("unexpected params: %+v", params)
	}
	if params.HTFFactor != 0.998 || params.RiskUSD != 5 || params.RRRatio != 3 || params.LookbackSL != 8 {
		t.Fatalf("unexpected params: %+v", params)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if len(cfg.Exchange.Symbols) != 5 {
		t.Fatalf("expected five default symbols, got %v", cfg.Exchange.Symbols)
	}
	p := cfg.StrategyParams()
	if p.EMAFastSpan != 9 || p.EMASlowSpan != 15 || p.ADXWindow != 14 || p.ADXThreshold != 18 || p.HTFFactor != 0.9975 {
		t.Fatalf("unexpected default params %+v", p)
	}
	if cfg.CheckInterval() != 15*time.Minute {
		t.Fatalf("unexpected default interval %s", cfg.CheckInterval())
	}
	if cfg.Journal.CSVPath != "signals_journal.csv" {
		t.Fatalf("unexpected default journal %s", cfg.Journal.CSVPath)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestApplyEnvOverridesSecrets(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")
	t.Setenv("TELEGRAM_CHAT_ID", "")
	t.Setenv("JOURNAL_POSTGRES_DSN", "postgres://localhost/journal")

	cfg, err := Load(filepath.Join("testdata", "config.yaml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv returned error: %v", err)
	}
	if cfg.Telegram.BotToken != "env-token" {
		t.Fatalf("expected env token, got %s", cfg.Telegram.BotToken)
	}
	if cfg.Telegram.ChatID != "1234" {
		t.Fatalf("empty env must not clear yaml value, got %s", cfg.Telegram.ChatID)
	}
	if cfg.Journal.PostgresDSN != "postgres://localhost/journal" {
		t.Fatalf("unexpected dsn %s", cfg.Journal.PostgresDSN)
	}
}

func TestValidateRejectsBadParams(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	cfg.Strategy.Params.EMAFast = -1
	cfg.Strategy.Params.HTFFactor = 1.5
	cfg.Strategy.LTFInterval = "7m"
	cfg.Scanner.Trigger = "cron"

	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"ema spans", "htf_factor", "7m", "cron"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %v", want, err)
		}
	}
}

func TestSaveRoundTrip(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := Save(path, &cfg); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if loaded.Strategy.Params.HTFFactor != cfg.Strategy.Params.HTFFactor {
		t.Fatalf("htf factor lost in round trip")
	}
	if err := Save(path, nil); err == nil {
		t.Fatalf("expected error saving nil config")
	}
}
