package export

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

const (
	pdfMargin     = 15.0
	pdfLineHeight = 7.0
	pdfChartH     = 40.0
	pdfTitleChars = 48
)

// Symbols the core PDF fonts can draw once translated to cp1252.
var pdfSymbols = map[string]bool{"$": true, "€": true, "£": true, "¥": true, "C$": true, "A$": true}

var pdfColumns = []struct {
	title string
	width float64
	align string
}{
	{"Date", 28, "L"},
	{"Title", 82, "L"},
	{"Category", 40, "L"},
	{"Amount", 30, "R"},
}

// WritePDF renders the report on A4 pages with the core Helvetica font.
func WritePDF(w io.Writer, report Report) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.SetTitle("Financial Summary - "+report.Period, true)
	pdf.SetCreator("Scales", false)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	amount := func(d decimal.Decimal) string { return tr(pdfAmount(report, d)) }

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr("Financial Summary - "+report.Period), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 11)
	totalLine(pdf, "Total Income:", amount(report.Totals.Income), false)
	totalLine(pdf, "Total Expenses:", amount(report.Totals.Expenses), true)
	totalLine(pdf, "Balance:", amount(report.Totals.Balance), report.Totals.Balance.IsNegative())
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(4)

	drawChart(pdf, report)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 9, "Transaction Details", "", 1, "L", false, 0, "")
	tableHeader(pdf)

	pdf.SetFont("Helvetica", "", 10)
	if len(report.Transactions) == 0 {
		pdf.CellFormat(0, pdfLineHeight, "No transactions in this period.", "B", 1, "L", false, 0, "")
	}
	_, pageH := pdf.GetPageSize()
	for _, row := range report.Transactions {
		if pdf.GetY()+pdfLineHeight > pageH-pdfMargin {
			pdf.AddPage()
			tableHeader(pdf)
			pdf.SetFont("Helvetica", "", 10)
		}
		cells := []string{row.Date.String(), tr(truncate(row.Title, pdfTitleChars)), tr(row.Category), amount(row.Amount)}
		for i, col := range pdfColumns {
			if i == len(pdfColumns)-1 {
				setSignColor(pdf, row.Amount.IsNegative() || row.Amount.IsZero())
			}
			pdf.CellFormat(col.width, pdfLineHeight, cells[i], "B", 0, col.align, false, 0, "")
		}
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(-1)
	}

	if report.Skipped > 0 {
		pdf.Ln(3)
		pdf.SetFont("Helvetica", "I", 9)
		pdf.CellFormat(0, 6, fmt.Sprintf("%d transaction(s) with unreadable dates omitted.", report.Skipped), "", 1, "L", false, 0, "")
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("WritePDF: %w", err)
	}
	return nil
}

func totalLine(pdf *fpdf.Fpdf, label, value string, negative bool) {
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(40, pdfLineHeight, label, "", 0, "L", false, 0, "")
	setSignColor(pdf, negative)
	pdf.CellFormat(0, pdfLineHeight, value, "", 1, "L", false, 0, "")
}

func setSignColor(pdf *fpdf.Fpdf, negative bool) {
	if negative {
		pdf.SetTextColor(0xF4, 0x43, 0x36)
		return
	}
	pdf.SetTextColor(0x4C, 0xAF, 0x50)
}

func tableHeader(pdf *fpdf.Fpdf) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(0xF5, 0xF5, 0xF5)
	for _, col := range pdfColumns {
		pdf.CellFormat(col.width, pdfLineHeight, col.title, "B", 0, col.align, true, 0, "")
	}
	pdf.Ln(-1)
}

// drawChart draws paired income/expense bars for every series bucket.
func drawChart(pdf *fpdf.Fpdf, report Report) {
	buckets := report.Series.Buckets
	peak := seriesPeak(report)
	if len(buckets) == 0 || !peak.IsPositive() {
		return
	}

	pageW, _ := pdf.GetPageSize()
	left, top := pdf.GetXY()
	width := pageW - 2*pdfMargin
	slot := width / float64(len(buckets))
	bar := slot * 0.4
	base := top + pdfChartH

	for i, b := range buckets {
		x := left + float64(i)*slot + slot*0.1
		if h := pdfChartH * float64(barPercent(b.Income, peak)) / 100; h > 0 {
			pdf.SetFillColor(0x4C, 0xAF, 0x50)
			pdf.Rect(x, base-h, bar, h, "F")
		}
		if h := pdfChartH * float64(barPercent(b.Expenses, peak)) / 100; h > 0 {
			pdf.SetFillColor(0xF4, 0x43, 0x36)
			pdf.Rect(x+bar, base-h, bar, h, "F")
		}
	}
	pdf.SetDrawColor(0xCC, 0xCC, 0xCC)
	pdf.Line(left, base, left+width, base)
	pdf.SetDrawColor(0, 0, 0)

	pdf.SetFont("Helvetica", "", 7)
	pdf.SetTextColor(0x77, 0x77, 0x77)
	pdf.SetXY(left, base+1)
	pdf.CellFormat(width/2, 4, buckets[0].Label, "", 0, "L", false, 0, "")
	pdf.CellFormat(width/2, 4, buckets[len(buckets)-1].Label, "", 1, "R", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(4)
}

// pdfAmount is like Report.Amount but falls back to the currency code for
// symbols the core fonts lack.
func pdfAmount(report Report, d decimal.Decimal) string {
	if pdfSymbols[report.Currency.Symbol] {
		return report.Amount(d)
	}
	sign := ""
	if d.IsNegative() {
		sign = "-"
	}
	return sign + report.Currency.Code + " " + d.Abs().StringFixed(2)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
