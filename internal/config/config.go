// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"crossbot-go/internal/signal"
)

// App captures process-wide runtime settings such as name, metrics, and logging.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
	ErrorLog    string `yaml:"error_log"`
}

// Exchange describes where bar series come from.
type Exchange struct {
	Provider           string   `yaml:"provider"`
	BaseURL            string   `yaml:"base_url"`
	StreamURL          string   `yaml:"stream_url"`
	Symbols            []string `yaml:"symbols"`
	RequestTimeoutSecs int      `yaml:"request_timeout_secs"`
	RateLimitRPS       float64  `yaml:"rate_limit_rps"`
	RateLimitBurst     int      `yaml:"rate_limit_burst"`
}

// StrategyParams groups the indicator and gate knobs.
type StrategyParams struct {
	EMAFast      int     `yaml:"ema_fast"`
	EMASlow      int     `yaml:"ema_slow"`
	ADXLen       int     `yaml:"adx_len"`
	ADXThreshold float64 `yaml:"adx_threshold"`
	HTFFactor    float64 `yaml:"htf_factor"`
}

// Strategy selects timeframes and history depth along with the parameter bundle.
type Strategy struct {
	LTFInterval string         `yaml:"ltf_interval"`
	HTFInterval string         `yaml:"htf_interval"`
	Limit       int            `yaml:"limit"`
	Params      StrategyParams `yaml:"params"`
}

// Risk encodes the intended per-signal risk recorded in the journal.
type Risk struct {
	RiskUSD    float64 `yaml:"risk_usd"`
	RRRatio    float64 `yaml:"rr_ratio"`
	LookbackSL int     `yaml:"lookback_sl"`
}

// Scanner controls the scan cadence.
type Scanner struct {
	CheckIntervalSecs int    `yaml:"check_interval_secs"`
	Trigger           string `yaml:"trigger"` // interval|kline_close
}

// Telegram configures alert delivery.
type Telegram struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
	APIBase  string `yaml:"api_base"`
}

// Journal configures persistence sinks; empty paths/ids disable a sink.
type Journal struct {
	CSVPath            string `yaml:"csv_path"`
	JSONLPath          string `yaml:"jsonl_path"`
	PostgresDSN        string `yaml:"postgres_dsn"`
	SheetID            string `yaml:"sheet_id"`
	SheetRange         string `yaml:"sheet_range"`
	ServiceAccountJSON string `yaml:"service_account_json"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App      App      `yaml:"app"`
	Exchange Exchange `yaml:"exchange"`
	Strategy Strategy `yaml:"strategy"`
	Risk     Risk     `yaml:"risk"`
	Scanner  Scanner  `yaml:"scanner"`
	Telegram Telegram `yaml:"telegram"`
	Journal  Journal  `yaml:"journal"`
}

const (
	TriggerInterval   = "interval"
	TriggerKlineClose = "kline_close"
)

// envOverlay lists the secrets and endpoints that may come from the environment.
type envOverlay struct {
	LogLevel                 string `envconfig:"LOG_LEVEL"`
	BinanceBaseURL           string `envconfig:"BINANCE_BASE_URL"`
	TelegramBotToken         string `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID           string `envconfig:"TELEGRAM_CHAT_ID"`
	GoogleSheetID            string `envconfig:"GOOGLE_SHEET_ID"`
	GoogleServiceAccountJSON string `envconfig:"GOOGLE_SERVICE_ACCOUNT_JSON"`
	PostgresDSN              string `envconfig:"JOURNAL_POSTGRES_DSN"`
}

// Load reads a YAML file from disk, hydrates a Config struct, and fills defaults.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	config.ApplyDefaults()
	return &config, nil
}

// Resolve loads .env (best-effort), the YAML file, the environment overlay, and validates the result.
func Resolve(path string) (*Config, error) {
	_ = godotenv.Load()
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides secrets and endpoints with non-empty environment values.
func (c *Config) ApplyEnv() error {
	var env envOverlay
	if err := envconfig.Process("", &env); err != nil {
		return fmt.Errorf("read environment: %w", err)
	}
	override(&c.App.LogLevel, env.LogLevel)
	override(&c.Exchange.BaseURL, env.BinanceBaseURL)
	override(&c.Telegram.BotToken, env.TelegramBotToken)
	override(&c.Telegram.ChatID, env.TelegramChatID)
	override(&c.Journal.SheetID, env.GoogleSheetID)
	override(&c.Journal.ServiceAccountJSON, env.GoogleServiceAccountJSON)
	override(&c.Journal.PostgresDSN, env.PostgresDSN)
	return nil
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// ApplyDefaults fills unset fields with the stock scanner settings.
func (c *Config) ApplyDefaults() {
	setString(&c.App.Name, "crossbot")
	setString(&c.App.LogLevel, "info")
	setString(&c.App.ErrorLog, "bot_errors.log")
	setString(&c.Exchange.Provider, "binance")
	setString(&c.Exchange.BaseURL, "https://data-api.binance.vision")
	setString(&c.Exchange.StreamURL, "wss://stream.binance.com:9443")
	if len(c.Exchange.Symbols) == 0 {
		c.Exchange.Symbols = []string{"SOLUSDT", "ETHUSDT", "BTCUSDT", "XRPUSDT", "DOGEUSDT"}
	}
	setInt(&c.Exchange.RequestTimeoutSecs, 10)
	if c.Exchange.RateLimitRPS == 0 {
		c.Exchange.RateLimitRPS = 10
	}
	setInt(&c.Exchange.RateLimitBurst, 5)

	setString(&c.Strategy.LTFInterval, "15m")
	setString(&c.Strategy.HTFInterval, "1h")
	setInt(&c.Strategy.Limit, 200)
	setInt(&c.Strategy.Params.EMAFast, 9)
	setInt(&c.Strategy.Params.EMASlow, 15)
	setInt(&c.Strategy.Params.ADXLen, 14)
	if c.Strategy.Params.ADXThreshold == 0 {
		c.Strategy.Params.ADXThreshold = 18.0
	}
	if c.Strategy.Params.HTFFactor == 0 {
		c.Strategy.Params.HTFFactor = 0.9975
	}

	if c.Risk.RiskUSD == 0 {
		c.Risk.RiskUSD = 1.0
	}
	if c.Risk.RRRatio == 0 {
		c.Risk.RRRatio = 2.5
	}
	setInt(&c.Risk.LookbackSL, 10)

	setInt(&c.Scanner.CheckIntervalSecs, 15*60)
	setString(&c.Scanner.Trigger, TriggerInterval)

	setString(&c.Telegram.APIBase, "https://api.telegram.org")
	setString(&c.Journal.CSVPath, "signals_journal.csv")
	setString(&c.Journal.SheetRange, "Sheet1")
}

func setString(dst *string, def string) {
	if strings.TrimSpace(*dst) == "" {
		*dst = def
	}
}

func setInt(dst *int, def int) {
	if *dst == 0 {
		*dst = def
	}
}

// Validate rejects settings the scanner cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Exchange.Symbols) == 0 {
		errs = append(errs, errors.New("exchange.symbols is empty"))
	}
	p := c.Strategy.Params
	if p.EMAFast < 1 || p.EMASlow < 1 {
		errs = append(errs, fmt.Errorf("ema spans must be >= 1 (fast=%d slow=%d)", p.EMAFast, p.EMASlow))
	}
	if p.ADXLen < 1 {
		errs = append(errs, fmt.Errorf("adx_len must be >= 1, got %d", p.ADXLen))
	}
	if p.ADXThreshold < 0 || p.ADXThreshold > 100 {
		errs = append(errs, fmt.Errorf("adx_threshold must be within [0,100], got %.2f", p.ADXThreshold))
	}
	if p.HTFFactor <= 0 || p.HTFFactor > 1 {
		errs = append(errs, fmt.Errorf("htf_factor must be within (0,1], got %.5f", p.HTFFactor))
	}
	for _, iv := range []string{c.Strategy.LTFInterval, c.Strategy.HTFInterval} {
		if _, ok := signal.IntervalDuration(iv); !ok {
			errs = append(errs, fmt.Errorf("unsupported interval %q", iv))
		}
	}
	if c.Strategy.Limit < 2 {
		errs = append(errs, fmt.Errorf("strategy.limit must be >= 2, got %d", c.Strategy.Limit))
	}
	switch c.Scanner.Trigger {
	case TriggerInterval, TriggerKlineClose:
	default:
		errs = append(errs, fmt.Errorf("unknown scanner.trigger %q", c.Scanner.Trigger))
	}
	return errors.Join(errs...)
}

// StrategyParams builds the explicit bundle passed into every evaluation.
func (c *Config) StrategyParams() signal.Params {
	p := c.Strategy.Params
	return signal.Params{
		EMAFastSpan:  p.EMAFast,
		EMASlowSpan:  p.EMASlow,
		ADXWindow:    p.ADXLen,
		ADXThreshold: p.ADXThreshold,
		HTFFactor:    p.HTFFactor,
		RiskUSD:      c.Risk.RiskUSD,
		RRRatio:      c.Risk.RRRatio,
		LookbackSL:   c.Risk.LookbackSL,
	}
}

// CheckInterval is the delay between scan cycle starts.
func (c *Config) CheckInterval() time.Duration {
	return time.Duration(c.Scanner.CheckIntervalSecs) * time.Second
}

// RequestTimeout bounds each bar-series fetch and alert call.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Exchange.RequestTimeoutSecs) * time.Second
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
