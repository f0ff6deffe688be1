package scanner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crossbot-go/internal/alert"
	"crossbot-go/internal/journal"
)

// CheckStatus is the outcome of one readiness probe.
type CheckStatus string

const (
	CheckOK      CheckStatus = "ok"
	CheckFailed  CheckStatus = "failed"
	CheckSkipped CheckStatus = "skipped"
)

// CheckReport lists readiness probe outcomes.
type CheckReport struct {
	Telegram CheckStatus
	Journal  CheckStatus
}

// Passed reports whether no probe failed.
func (r CheckReport) Passed() bool {
	return r.Telegram != CheckFailed && r.Journal != CheckFailed
}

// Check sends a Telegram test message, writes a probe row to the journal, then
// announces the overall outcome. A disabled notifier counts as skipped.
func (s *Scanner) Check(ctx context.Context, probe journal.Sink) (CheckReport, error) {
	rep := CheckReport{Telegram: CheckSkipped, Journal: CheckSkipped}
	var errs []error
	now := s.now().UTC()

	if s.notifier != nil {
		msg := fmt.Sprintf("✅ Startup Check: Telegram connected at %s UTC", now.Format(time.RFC3339))
		switch err := s.send(ctx, msg); {
		case err == nil:
			rep.Telegram = CheckOK
		case errors.Is(err, alert.ErrDisabled):
		default:
			rep.Telegram = CheckFailed
			errs = append(errs, fmt.Errorf("telegram check: %w", err))
		}
	}

	if probe != nil {
		if err := probe.Append(ctx, journal.Probe(now)); err != nil {
			rep.Journal = CheckFailed
			errs = append(errs, fmt.Errorf("journal check: %w", err))
		} else {
			rep.Journal = CheckOK
		}
	}

	summary := "🚀 Startup complete: All systems operational."
	if !rep.Passed() {
		summary = "❌ Startup failed: check Telegram or journal configuration."
	}
	if s.notifier != nil {
		if err := s.send(ctx, summary); err != nil && !errors.Is(err, alert.ErrDisabled) {
			s.log.Warn().Err(err).Msg("startup summary not delivered")
		}
	}

	ev := s.log.Info()
	if !rep.Passed() {
		ev = s.log.Error()
	}
	ev.Str("telegram", string(rep.Telegram)).Str("journal", string(rep.Journal)).Msg("startup checks finished")
	return rep, errors.Join(errs...)
}

func (s *Scanner) send(ctx context.Context, text string) error {
	ctx, cancel := context.WithTimeout(ctx, s.set.RequestTimeout)
	defer cancel()
	return s.notifier.Send(ctx, text)
}
