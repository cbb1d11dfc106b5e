// Package report builds the tax report model for a date range.
package report

import (
	"errors"
	"fmt"

	"github.com/garyjia/expensewise/internal/models"
	"github.com/shopspring/decimal"
)

// ErrInvalidDateRange is returned for malformed or inverted ranges
var ErrInvalidDateRange = errors.New("invalid date range")

// DateRange is an inclusive YYYY-MM-DD range
type DateRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Validate checks both bounds are real dates and From <= To
func (r DateRange) Validate() error {
	if !models.IsValidDate(r.From) {
		return fmt.Errorf("%w: from %q", ErrInvalidDateRange, r.From)
	}
	if !models.IsValidDate(r.To) {
		return fmt.Errorf("%w: to %q", ErrInvalidDateRange, r.To)
	}
	if r.From > r.To {
		return fmt.Errorf("%w: from %s is after to %s", ErrInvalidDateRange, r.From, r.To)
	}
	return nil
}

// Contains reports whether date falls inside the range. Zero-padded dates
// compare correctly as strings.
func (r DateRange) Contains(date string) bool {
	if !models.IsValidDate(date) {
		return false
	}
	return date >= r.From && date <= r.To
}

// CategoryLine is one category group of the report
type CategoryLine struct {
	Category          string          `json:"category"`
	Amount            decimal.Decimal `json:"amount"`
	DeductiblePercent int             `json:"deductible_percent"`
	DeductibleAmount  decimal.Decimal `json:"deductible_amount"`
}

// Model is the computed tax report consumed by exporters and the summary requester
type Model struct {
	DateRange         DateRange              `json:"date_range"`
	Profile           models.Profile         `json:"profile"`
	CategoryBreakdown []CategoryLine         `json:"category_breakdown"`
	TotalAmount       decimal.Decimal        `json:"total_amount"`
	TotalDeductible   decimal.Decimal        `json:"total_deductible"`
	Expenses          []models.ExpenseRecord `json:"expenses"`
}

// IsEmpty reports whether no expense fell into the range
func (m Model) IsEmpty() bool {
	return len(m.Expenses) == 0
}

// Build filters records to the range and groups them by category.
// Records keep the order they were received in.
func Build(records []models.ExpenseRecord, dateRange DateRange, profile models.Profile) Model {
	filtered := make([]models.ExpenseRecord, 0, len(records))
	for _, r := range records {
		if dateRange.Contains(r.Date) {
			filtered = append(filtered, r)
		}
	}

	lines, totalAmount, totalDeductible := Summarize(filtered)

	return Model{
		DateRange:         dateRange,
		Profile:           profile,
		CategoryBreakdown: lines,
		TotalAmount:       totalAmount,
		TotalDeductible:   totalDeductible,
		Expenses:          filtered,
	}
}

// Summarize groups records by category without any date filtering.
//
// When records of one category disagree on the deductible percent the
// highest specified percent wins, so the result does not depend on record
// order. A category with no specified percent deducts nothing.
func Summarize(records []models.ExpenseRecord) ([]CategoryLine, decimal.Decimal, decimal.Decimal) {
	lines := make([]CategoryLine, 0)
	index := make(map[string]int)

	for _, r := range records {
		category := models.NormalizeCategory(r.Category)
		i, ok := index[category]
		if !ok {
			i = len(lines)
			index[category] = i
			lines = append(lines, CategoryLine{Category: category, Amount: decimal.Zero})
		}
		lines[i].Amount = lines[i].Amount.Add(r.Amount)
		if r.Deductible != nil && *r.Deductible > lines[i].DeductiblePercent {
			lines[i].DeductiblePercent = *r.Deductible
		}
	}

	totalAmount := decimal.Zero
	totalDeductible := decimal.Zero
	for i := range lines {
		lines[i].DeductibleAmount = models.PercentOf(lines[i].Amount, lines[i].DeductiblePercent)
		totalAmount = totalAmount.Add(lines[i].Amount)
		totalDeductible = totalDeductible.Add(lines[i].DeductibleAmount)
	}

	return lines, totalAmount, totalDeductible
}
