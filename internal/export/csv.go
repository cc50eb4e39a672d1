package export

import (
	"encoding/csv"
	"fmt"
	"io"
)

var csvHeader = []string{"Date", "Title", "Category", "Type", "Amount", "Currency"}

// WriteCSV writes one line per transaction. Amounts are plain signed
// decimals so spreadsheets can sum them.
func WriteCSV(w io.Writer, report Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("WriteCSV: header: %w", err)
	}
	for _, row := range report.Transactions {
		typ := "expense"
		if row.Income() {
			typ = "income"
		}
		record := []string{
			row.Date.String(),
			row.Title,
			row.Category,
			typ,
			row.Amount.StringFixed(2),
			report.Currency.Code,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("WriteCSV: row %s: %w", row.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("WriteCSV: flush: %w", err)
	}
	return nil
}
