// Package export serializes report models into CSV and tabular documents.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/garyjia/expensewise/internal/report"
)

// CSVHeader is the fixed header row of the CSV export
var CSVHeader = []string{"Category", "Total Amount", "Deductible %", "Deductible Amount"}

// Summary row labels
const (
	LabelTotalExpenses   = "Total Expenses"
	LabelTotalDeductible = "Total Deductible"
)

// WriteCSV writes the category breakdown of model followed by a blank row and
// the two total rows. Row and column order are stable.
func WriteCSV(w io.Writer, model report.Model) error {
	cw := csv.NewWriter(w)

	rows := make([][]string, 0, len(model.CategoryBreakdown)+4)
	rows = append(rows, CSVHeader)
	for _, line := range model.CategoryBreakdown {
		rows = append(rows, []string{
			line.Category,
			line.Amount.StringFixed(2),
			strconv.Itoa(line.DeductiblePercent),
			line.DeductibleAmount.StringFixed(2),
		})
	}
	rows = append(rows,
		[]string{},
		[]string{LabelTotalExpenses, model.TotalAmount.StringFixed(2)},
		[]string{LabelTotalDeductible, model.TotalDeductible.StringFixed(2)},
	)

	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

// CSV renders model into a byte slice
func CSV(model report.Model) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, model); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Document kinds
const (
	KindCSV  = "csv"
	KindXLSX = "xlsx"
)

// FileName returns the date-stamped download name, e.g. tax_report_2025-05-18.csv
func FileName(kind string, now time.Time) string {
	return fmt.Sprintf("tax_report_%s.%s", now.Format("2006-01-02"), kind)
}
