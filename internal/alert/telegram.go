// Package alert delivers human-readable signal notifications.
package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"crossbot-go/internal/metrics"
	"crossbot-go/internal/signal"
)

// ErrDisabled is returned by notifiers switched off in configuration.
var ErrDisabled = errors.New("alerts disabled")

// Notifier delivers signals and free-form operator messages.
type Notifier interface {
	Notify(ctx context.Context, rec signal.Record) error
	Send(ctx context.Context, text string) error
}

// TelegramConfig carries bot credentials and endpoint.
type TelegramConfig struct {
	Enabled  bool
	BotToken string
	ChatID   string
	APIBase  string
	Timeout  time.Duration
}

// Telegram posts HTML messages through the Bot API sendMessage method.
type Telegram struct {
	cfg    TelegramConfig
	client *http.Client
	log    zerolog.Logger
}

type telegramMessage struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// NewTelegram builds a notifier; the API base defaults to api.telegram.org.
func NewTelegram(cfg TelegramConfig, log zerolog.Logger) *Telegram {
	if cfg.APIBase == "" {
		cfg.APIBase = "https://api.telegram.org"
	}
	cfg.APIBase = strings.TrimSuffix(cfg.APIBase, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Telegram{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}, log: log}
}

// Notify formats and sends a signal alert.
func (t *Telegram) Notify(ctx context.Context, rec signal.Record) error {
	return t.Send(ctx, Format(rec))
}

// Send transmits raw HTML text to the configured chat.
func (t *Telegram) Send(ctx context.Context, text string) error {
	if !t.cfg.Enabled {
		return ErrDisabled
	}
	if t.cfg.BotToken == "" || t.cfg.ChatID == "" {
		metrics.DeliveryFailures.WithLabelValues("telegram").Inc()
		return errors.New("telegram enabled but token/chat id not configured")
	}
	if err := t.post(ctx, text); err != nil {
		metrics.DeliveryFailures.WithLabelValues("telegram").Inc()
		return err
	}
	t.log.Debug().Str("chat_id", t.cfg.ChatID).Msg("telegram message sent")
	return nil
}

func (t *Telegram) post(ctx context.Context, text string) error {
	payload, err := json.Marshal(telegramMessage{
		ChatID:                t.cfg.ChatID,
		Text:                  text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.cfg.APIBase, t.cfg.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		// the request URL embeds the bot token
		return fmt.Errorf("telegram send: %w", redact(err, t.cfg.BotToken))
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram send failed (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var tr telegramResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return fmt.Errorf("decode telegram response: %w", err)
	}
	if !tr.OK {
		return fmt.Errorf("telegram API error: %s", tr.Description)
	}
	return nil
}

func redact(err error, secret string) error {
	if secret == "" {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), secret, "***"))
}
