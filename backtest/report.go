package backtest

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rustyeddy/rulesim/calendar"
)

// PrintOptions controls report rendering.
type PrintOptions struct {
	NoColor bool
}

type reportStyles struct {
	title   lipgloss.Style
	section lipgloss.Style
	label   lipgloss.Style
	good    lipgloss.Style
	bad     lipgloss.Style
}

func newReportStyles(w io.Writer, noColor bool) reportStyles {
	if noColor {
		plain := lipgloss.NewStyle()
		return reportStyles{plain, plain, plain, plain, plain}
	}
	r := lipgloss.NewRenderer(w)
	return reportStyles{
		title: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")),
		section: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6")),
		label: r.NewStyle().
			Foreground(lipgloss.Color("#6B7280")),
		good: r.NewStyle().
			Foreground(lipgloss.Color("#10B981")),
		bad: r.NewStyle().
			Foreground(lipgloss.Color("#EF4444")),
	}
}

const rule = "--------------------------------------------------"

// Print writes the run report to w.
func Print(w io.Writer, s Summary, m Metrics, opts PrintOptions) {
	st := newReportStyles(w, opts.NoColor)

	line := func(label, format string, args ...any) {
		fmt.Fprintf(w, "%s %s\n", st.label.Render(fmt.Sprintf("%-14s", label+":")), fmt.Sprintf(format, args...))
	}
	section := func(name string) {
		fmt.Fprintln(w)
		fmt.Fprintln(w, st.section.Render(name))
		fmt.Fprintln(w, rule)
	}

	fmt.Fprintln(w, strings.Repeat("=", len(rule)))
	fmt.Fprintln(w, st.title.Render(" Simulation Result"))
	fmt.Fprintln(w, strings.Repeat("=", len(rule)))

	if s.RunID != "" {
		line("Run ID", "%s", s.RunID)
	}
	if !s.Start.IsZero() {
		line("Start", "%s", calendar.Format(s.Start))
		line("End", "%s", calendar.Format(s.End))
	}

	section("Trade Statistics")
	line("Closed", "%d", s.Trades)
	line("Still open", "%d", s.Open)
	line("Wins", "%d", s.Wins)
	line("Losses", "%d", s.Losses)
	line("Win Rate", "%.2f%%", s.WinRate*100)

	section("Account Performance")
	pl := st.good
	if s.NetPL < 0 {
		pl = st.bad
	}
	line("Start Balance", "%.2f %s", s.StartBalance, s.Currency)
	if s.Open > 0 {
		line("Cash", "%.2f %s", s.EndCash, s.Currency)
		line("Open Notional", "%.2f %s", s.OpenNotional, s.Currency)
	}
	line("End Balance", "%.2f %s", s.EndBalance, s.Currency)
	line("Net P/L", "%s", pl.Render(fmt.Sprintf("%.2f", s.NetPL)))
	line("Return", "%s", pl.Render(fmt.Sprintf("%.2f%%", s.ReturnPct)))

	section("Risk")
	line("Max Drawdown", "%.2f%%", m.MaxDrawdown*100)
	line("Sharpe", "%.4f", m.Sharpe)
	if n := len(m.Returns); n > 0 {
		line("Final Return", "%.4f", m.Returns[n-1])
	}
}
