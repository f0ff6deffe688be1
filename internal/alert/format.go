package alert

import (
	"fmt"
	"html"
	"strings"
	"time"

	"crossbot-go/internal/signal"
)

// Format renders a signal record as a Telegram HTML message.
func Format(rec signal.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔔 <b>%s</b> <b>%s</b>\n", html.EscapeString(rec.Symbol), html.EscapeString(string(rec.Kind)))
	fmt.Fprintf(&b, "Time (UTC): %s\n", rec.CheckedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Price: %.6f\n", rec.Price)
	fmt.Fprintf(&b, "ADX: %.2f", rec.ADX)
	if rec.ADXDelta.Valid {
		fmt.Fprintf(&b, " (Δ %+.2f)", rec.ADXDelta.Value)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "EMA %d/%d (LTF): %.4f / %.4f\n", rec.Params.EMAFastSpan, rec.Params.EMASlowSpan, rec.EMAFastLTF, rec.EMASlowLTF)
	fmt.Fprintf(&b, "EMA %d/%d (HTF): %.4f / %.4f\n", rec.Params.EMAFastSpan, rec.Params.EMASlowSpan, rec.EMAFastHTF, rec.EMASlowHTF)
	fmt.Fprintf(&b, "LTF bias / HTF bias: %+d / %+d\n", rec.LTFBias, rec.HTFBias)
	fmt.Fprintf(&b, "ADX strength: %s\n", html.EscapeString(string(rec.Strength)))
	if rec.Risk.Valid {
		fmt.Fprintf(&b, "SL / TP: %.6f / %.6f (RR %.2f)\n", rec.Risk.StopLoss, rec.Risk.TakeProfit, rec.Params.RRRatio)
	}
	return b.String()
}
