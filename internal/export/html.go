package export

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/shopspring/decimal"
)

//go:embed templates/report.html.tmpl
var templateFS embed.FS

var reportTemplate = template.Must(template.New("report.html.tmpl").
	Funcs(template.FuncMap{
		"amount":    func(decimal.Decimal) string { return "" },
		"signClass": signClass,
		"barHeight": func(decimal.Decimal) int { return 0 },
	}).
	ParseFS(templateFS, "templates/report.html.tmpl"))

func signClass(d decimal.Decimal) string {
	if d.IsNegative() {
		return "negative"
	}
	return "positive"
}

// WriteHTML renders a standalone HTML page with totals, an income/expense
// bar chart of the series and the transaction table.
func WriteHTML(w io.Writer, report Report) error {
	peak := seriesPeak(report)
	tmpl, err := reportTemplate.Clone()
	if err != nil {
		return fmt.Errorf("WriteHTML: clone template: %w", err)
	}
	tmpl.Funcs(template.FuncMap{
		"amount": report.Amount,
		"barHeight": func(d decimal.Decimal) int {
			return barPercent(d, peak)
		},
	})
	if err := tmpl.Execute(w, report); err != nil {
		return fmt.Errorf("WriteHTML: execute: %w", err)
	}
	return nil
}

// seriesPeak is the largest single income or expense bucket value.
func seriesPeak(report Report) decimal.Decimal {
	peak := decimal.Zero
	for _, b := range report.Series.Buckets {
		if b.Income.GreaterThan(peak) {
			peak = b.Income
		}
		if b.Expenses.GreaterThan(peak) {
			peak = b.Expenses
		}
	}
	return peak
}

// barPercent scales d against peak to 0..100.
func barPercent(d, peak decimal.Decimal) int {
	if !peak.IsPositive() || !d.IsPositive() {
		return 0
	}
	return int(d.Mul(decimal.NewFromInt(100)).Div(peak).Round(0).IntPart())
}
