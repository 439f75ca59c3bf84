package journal

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/rulesim/calendar"
)

// FormatTradeOrg renders a TradeRecord as an Org-mode block. Structured
// facts go in the PROPERTIES drawer; Thesis/Execution/Review are left
// for notes.
func FormatTradeOrg(t TradeRecord) string {
	heading := fmt.Sprintf("** Trade: %s %s %s (%s)", t.Underlying, t.Direction, t.Instrument, shortID(t.TradeID))

	var b strings.Builder
	b.WriteString(heading)
	b.WriteString("\n")
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":TRADE_ID: %s\n", t.TradeID)
	fmt.Fprintf(&b, ":ASSET_CLASS: %s\n", t.AssetClass)
	fmt.Fprintf(&b, ":INSTRUMENT: %s\n", t.Instrument)
	if t.Strike != 0 {
		fmt.Fprintf(&b, ":STRIKE: %.4f\n", t.Strike)
	}
	fmt.Fprintf(&b, ":CONTRACTS: %d\n", t.Contracts)
	fmt.Fprintf(&b, ":NOTIONAL: %.2f\n", t.Notional)
	fmt.Fprintf(&b, ":OPEN_PRICE: %.4f\n", t.OpenPrice)
	fmt.Fprintf(&b, ":CLOSE_PRICE: %.4f\n", t.ClosePrice)
	fmt.Fprintf(&b, ":TRADE_DATE: %s\n", calendar.Format(t.TradeDate))
	fmt.Fprintf(&b, ":CLOSE_DATE: %s\n", calendar.Format(t.CloseDate))
	fmt.Fprintf(&b, ":REALIZED_PL: %.2f\n", t.RealizedPL)
	fmt.Fprintf(&b, ":REASON: %s\n", t.Reason)
	if t.RuleID != "" {
		fmt.Fprintf(&b, ":RULE_ID: %s\n", t.RuleID)
	}
	b.WriteString(":END:\n")
	b.WriteString("\n")
	b.WriteString("*** Thesis\n- \n\n")
	b.WriteString("*** Execution\n- \n\n")
	b.WriteString("*** Review\n- \n")

	return b.String()
}

// FormatTradesOrg renders multiple trades separated by blank lines.
func FormatTradesOrg(trades []TradeRecord) string {
	var b strings.Builder
	for i, t := range trades {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(FormatTradeOrg(t))
	}
	return b.String()
}

// shortID drops a "trd-" style prefix and keeps eight characters.
func shortID(full string) string {
	if i := strings.IndexByte(full, '-'); i >= 0 && i < len(full)-1 {
		full = full[i+1:]
	}
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}
