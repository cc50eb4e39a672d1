// Package export renders a summary result as CSV, HTML or PDF and
// publishes rendered reports to cloud storage.
package export

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/fblacp/scales/internal/currency"
	"github.com/fblacp/scales/internal/summary"
	"github.com/shopspring/decimal"
)

// Format is an output format for a report.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
)

// ParseFormat accepts csv, html and pdf in any case. Empty means PDF.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatPDF, nil
	case FormatCSV, FormatHTML, FormatPDF:
		return f, nil
	default:
		return "", fmt.Errorf("ParseFormat: unknown export format %q", s)
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	default:
		return "application/pdf"
	}
}

// Extension returns the file extension including the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// Row is one transaction line of a report, with its day already resolved
// in the report's time zone.
type Row struct {
	ID       string          `json:"id"`
	Date     civil.Date      `json:"date"`
	Title    string          `json:"title"`
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// Income reports whether the row counts as income.
func (r Row) Income() bool {
	return r.Amount.IsPositive()
}

// Report is a rendering-ready view of a summary.Result.
type Report struct {
	Period       string            `json:"period"`
	Start        civil.Date        `json:"start"`
	End          civil.Date        `json:"end"`
	Currency     currency.Currency `json:"currency"`
	Totals       summary.Totals    `json:"totals"`
	Transactions []Row             `json:"transactions"`
	Breakdown    summary.Breakdown `json:"breakdown"`
	Series       summary.Series    `json:"series"`
	Skipped      int               `json:"skipped"`
	GeneratedAt  time.Time         `json:"generated_at"`
}

// BuildReport converts result into a Report priced in currencyCode. An
// unknown code falls back to USD. Transactions keep the result's order.
func BuildReport(result summary.Result, currencyCode string) Report {
	cur, err := currency.Lookup(currencyCode)
	if err != nil {
		cur, _ = currency.Lookup(currency.USD)
	}

	loc := result.Range.Location
	if loc == nil {
		loc = time.Local
	}

	rows := make([]Row, 0, len(result.Transactions))
	for _, tx := range result.Transactions {
		rows = append(rows, Row{
			ID:       tx.ID,
			Date:     civil.DateOf(tx.Date.In(loc)),
			Title:    tx.Title,
			Category: tx.CategoryOrDefault(),
			Amount:   tx.Amount,
		})
	}

	return Report{
		Period:       result.Period,
		Start:        result.Range.Start,
		End:          result.Range.End,
		Currency:     cur,
		Totals:       result.Totals,
		Transactions: rows,
		Breakdown:    result.Breakdown,
		Series:       result.Series,
		Skipped:      len(result.Skipped),
		GeneratedAt:  time.Now().In(loc),
	}
}

// Amount formats a value in the report currency, sign before the symbol.
func (r Report) Amount(d decimal.Decimal) string {
	return currency.Format(d, r.Currency.Code)
}

// Filename suggests a file name for the report, e.g.
// scales-2024-01-01_2024-01-31.pdf.
func (r Report) Filename(f Format) string {
	return fmt.Sprintf("scales-%s_%s%s", r.Start, r.End, f.Extension())
}

// Write renders report in format f.
func Write(w io.Writer, report Report, f Format) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, report)
	case FormatHTML:
		return WriteHTML(w, report)
	case FormatPDF:
		return WritePDF(w, report)
	default:
		return fmt.Errorf("Write: unknown export format %q", f)
	}
}

// Render returns the report encoded as f.
func Render(report Report, f Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, report, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
