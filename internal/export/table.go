package export

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/garyjia/expensewise/internal/models"
	"github.com/garyjia/expensewise/internal/report"
	"github.com/shopspring/decimal"
)

// DefaultCurrency prefixes rendered amounts
const DefaultCurrency = "RM"

// NotSpecified marks a record without a deductible percent
const NotSpecified = "-"

// TableColumns are the per-expense columns of the tabular document
var TableColumns = []string{"Vendor", "Date", "Category", "Amount", "Deductible"}

// TableOptions controls table rendering
type TableOptions struct {
	Currency string
	Title    string
}

// TableDocument is a renderer-independent tax report table
type TableDocument struct {
	Title           string          `json:"title"`
	HeaderLines     []string        `json:"header_lines"`
	Columns         []string        `json:"columns"`
	Rows            [][]string      `json:"rows"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	TotalDeductible decimal.Decimal `json:"total_deductible"`
}

// BuildTable lays out one row per expense in the order received.
// Header totals use the same category grouping as the report model.
func BuildTable(records []models.ExpenseRecord, opts TableOptions) TableDocument {
	currency := opts.Currency
	if currency == "" {
		currency = DefaultCurrency
	}
	title := opts.Title
	if title == "" {
		title = "Tax Report"
	}

	_, totalAmount, totalDeductible := report.Summarize(records)

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.Vendor,
			r.Date,
			r.Category,
			FormatMoney(currency, r.Amount),
			FormatDeductible(r.Deductible),
		})
	}

	return TableDocument{
		Title: title,
		HeaderLines: []string{
			fmt.Sprintf("%s: %s", LabelTotalExpenses, FormatMoney(currency, totalAmount)),
			fmt.Sprintf("%s: %s", LabelTotalDeductible, FormatMoney(currency, totalDeductible)),
		},
		Columns:         TableColumns,
		Rows:            rows,
		TotalAmount:     totalAmount,
		TotalDeductible: totalDeductible,
	}
}

// FormatMoney renders "RM 1,234.56"
func FormatMoney(currency string, amount decimal.Decimal) string {
	rounded := amount.Round(2)
	return currency + " " + humanize.FormatFloat("#,###.##", rounded.InexactFloat64())
}

// FormatDeductible renders "50%" or the not-specified sentinel
func FormatDeductible(pct *int) string {
	if pct == nil {
		return NotSpecified
	}
	return strconv.Itoa(*pct) + "%"
}
