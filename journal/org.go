package journal

import (
	"fmt"
	"strings"
	"time"
)

// FormatTradeOrg renders a Trade as an Org-mode block. Structured facts go in
// the PROPERTIES drawer for search; Thesis/Execution/Review are left for the
// trader to fill in.
func FormatTradeOrg(t Trade) string {
	heading := fmt.Sprintf("** Trade: %s %s (%s)", t.Symbol, t.Side, shortID(t.ID))

	var b strings.Builder
	b.WriteString(heading)
	b.WriteString("\n")
	b.WriteString(":PROPERTIES:\n")
	b.WriteString(fmt.Sprintf(":TRADE_ID: %s\n", t.ID))
	b.WriteString(fmt.Sprintf(":OWNER: %s\n", t.Owner))
	b.WriteString(fmt.Sprintf(":SYMBOL: %s\n", t.Symbol))
	b.WriteString(fmt.Sprintf(":SIDE: %s\n", t.Side))
	b.WriteString(fmt.Sprintf(":QUANTITY: %g\n", t.Quantity))
	b.WriteString(fmt.Sprintf(":ENTRY_PRICE: %.2f\n", t.EntryPrice))
	b.WriteString(fmt.Sprintf(":ENTRY_TIME: %s\n", t.EntryTime.UTC().Format(time.RFC3339)))
	if t.ExitTime != nil {
		b.WriteString(fmt.Sprintf(":EXIT_TIME: %s\n", t.ExitTime.UTC().Format(time.RFC3339)))
	}
	if t.ExitPrice != nil {
		b.WriteString(fmt.Sprintf(":EXIT_PRICE: %.2f\n", *t.ExitPrice))
	}
	if t.NetPnL.Valid {
		b.WriteString(fmt.Sprintf(":NET_PNL: %s\n", t.NetPnL.Decimal.StringFixed(2)))
	}
	b.WriteString(fmt.Sprintf(":SOURCE: %s\n", t.SourceTag))
	if t.Forced {
		b.WriteString(":FORCED: t\n")
	}
	b.WriteString(fmt.Sprintf(":FINGERPRINT: %s\n", t.Fingerprint))
	b.WriteString(":END:\n")
	b.WriteString("\n")
	b.WriteString("*** Thesis\n- \n\n")
	b.WriteString("*** Execution\n- \n\n")
	b.WriteString("*** Review\n- \n")

	return b.String()
}

// FormatTradesOrg renders multiple trades separated by blank lines.
func FormatTradesOrg(trades []Trade) string {
	var b strings.Builder
	for i, t := range trades {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(FormatTradeOrg(t))
	}
	return b.String()
}

// FormatDayOrg renders a calendar day heading with its stats and diary.
func FormatDayOrg(agg DayAggregate) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("* %s", agg.Date))
	if agg.Mood != "" {
		b.WriteString(fmt.Sprintf(" :%s:", strings.ReplaceAll(agg.Mood, " ", "_")))
	}
	b.WriteString("\n:PROPERTIES:\n")
	b.WriteString(fmt.Sprintf(":OWNER: %s\n", agg.Owner))
	b.WriteString(fmt.Sprintf(":DAILY_PNL: %s\n", orNil(agg.DailyPnL.Valid, agg.DailyPnL.Decimal.StringFixed(2))))
	b.WriteString(fmt.Sprintf(":TRADES: %d\n", agg.TradesCount))
	b.WriteString(fmt.Sprintf(":WINS: %d\n", agg.WinningTrades))
	b.WriteString(fmt.Sprintf(":LOSSES: %d\n", agg.LosingTrades))
	b.WriteString(fmt.Sprintf(":WIN_RATE: %s\n", orNil(agg.WinRate.Valid, agg.WinRate.Decimal.StringFixed(2))))
	b.WriteString(":END:\n")

	if agg.Notes != "" {
		b.WriteString("\n** Notes\n")
		b.WriteString(agg.Notes)
		b.WriteString("\n")
	}
	if len(agg.Images) > 0 {
		b.WriteString("\n** Images\n")
		for _, img := range agg.Images {
			b.WriteString(fmt.Sprintf("[[file:%s]]\n", img))
		}
	}
	return b.String()
}

func orNil(ok bool, s string) string {
	if !ok {
		return "nil"
	}
	return s
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}
