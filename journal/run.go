package journal

import (
	"bytes"
	"fmt"
	"os"
	"text/template"
	"time"
)

// Run describes one simulation run for the Org report.
type Run struct {
	RunID   string
	Created time.Time
	Config  string

	Underlyings []string
	RuleSets    []string

	Start time.Time
	End   time.Time

	Trades int
	Wins   int
	Losses int

	StartBalance float64
	EndBalance   float64
	OpenNotional float64

	NetPL       float64
	ReturnPct   float64
	WinRate     float64
	MaxDrawdown float64
	Sharpe      float64

	OrgPath string

	Notes      []string
	TradeNotes []TradeRecord
}

var runOrgFuncs = template.FuncMap{
	"mul100": func(x float64) float64 { return x * 100.0 },
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
	"date":  func(t time.Time) string { return t.Format("2006-01-02") },
	"trade": FormatTradeOrg,
}

var runOrg = template.Must(template.New("run").Funcs(runOrgFuncs).Parse(RunOrgTemplate))

// RenderOrg executes RunOrgTemplate for r.
func (r *Run) RenderOrg() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := runOrg.Execute(buf, r); err != nil {
		return nil, fmt.Errorf("render run %s: %w", r.RunID, err)
	}
	return buf.Bytes(), nil
}

// WriteOrg renders the report to path, or to r.OrgPath when path is empty.
func (r *Run) WriteOrg(path string) error {
	if path == "" {
		path = r.OrgPath
	}
	if path == "" {
		return fmt.Errorf("write run %s: no org path", r.RunID)
	}
	out, err := r.RenderOrg()
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0644)
}

const RunOrgTemplate = `
* SIMULATION: {{if .Config}}{{.Config}}{{else}}(config?){{end}}
:PROPERTIES:
:RUN_ID:      {{if .RunID}}{{.RunID}}{{else}}(run-id?){{end}}
:START_DATE:  {{date .Start}}
:END_DATE:    {{date .End}}
:START_BAL:   {{printf "%.2f" .StartBalance}}
:END_BAL:     {{printf "%.2f" .EndBalance}}
:OPEN_NOTIONAL: {{printf "%.2f" .OpenNotional}}
:NET_PL:      {{printf "%.2f" .NetPL}}
:RETURN_PCT:  {{printf "%.2f" .ReturnPct}}
:MAX_DD_PCT:  {{printf "%.2f" (mul100 .MaxDrawdown)}}
:SHARPE:      {{printf "%.4f" .Sharpe}}
:TRADES:      {{.Trades}}
:WINS:        {{.Wins}}
:LOSSES:      {{.Losses}}
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Setup
| Parameter   | Value |
|-------------+-------|
{{- range .Underlyings }}
| Underlying  | {{.}} |
{{- end }}
{{- range .RuleSets }}
| Rule set    | {{.}} |
{{- end }}

** Performance Summary
- Net P/L:          *{{printf "%.2f" .NetPL}}*
- Return:           *{{printf "%.2f" .ReturnPct}}%*
- Max Drawdown:     *{{printf "%.2f" (mul100 .MaxDrawdown)}}%*
- Win Rate:         *{{printf "%.2f" (mul100 .WinRate)}}%*
- Sharpe:           *{{printf "%.4f" .Sharpe}}*

** Trade Distribution
| Outcome | Count |
|---------+-------|
| Wins    | {{.Wins}} |
| Losses  | {{.Losses}} |
| Total   | {{.Trades}} |

{{- if .Notes }}
** Observations
{{- range .Notes }}
- {{.}}
{{- end }}
{{- end }}

{{- if .TradeNotes }}

* TRADES
{{ range $i, $t := .TradeNotes }}{{if $i}}

{{end}}{{trade $t}}{{end}}
{{- end }}
`
