package models

import (
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCategory is assigned to records without a category
const DefaultCategory = "Other"

// DateLayout is the canonical receipt date format
const DateLayout = "2006-01-02"

var monthPrefix = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])`)

// ExpenseRecord represents one categorized receipt after normalization.
// Every consumer reads this type; loosely typed input goes through Normalize first.
type ExpenseRecord struct {
	ID         int64           `json:"id"`
	Vendor     string          `json:"vendor"`
	Date       string          `json:"date"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency,omitempty"`
	Category   string          `json:"category"`
	Deductible *int            `json:"deductible"` // nil = not specified
	Notes      string          `json:"notes,omitempty"`
	UploadedAt time.Time       `json:"uploaded_at"`
}

// Month returns the YYYY-MM bucket of the record date
func (e ExpenseRecord) Month() (string, bool) {
	if !monthPrefix.MatchString(e.Date) {
		return "", false
	}
	return e.Date[:7], true
}

// HasValidDate reports whether Date is a real YYYY-MM-DD calendar date
func (e ExpenseRecord) HasValidDate() bool {
	return IsValidDate(e.Date)
}

// DeductiblePercent returns the deductible percent, 0 when unset
func (e ExpenseRecord) DeductiblePercent() int {
	if e.Deductible == nil {
		return 0
	}
	return *e.Deductible
}

// DeductibleAmount returns Amount * DeductiblePercent / 100
func (e ExpenseRecord) DeductibleAmount() decimal.Decimal {
	return PercentOf(e.Amount, e.DeductiblePercent())
}

// PercentOf computes amount * percent / 100 without rounding
func PercentOf(amount decimal.Decimal, percent int) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(int64(percent))).Div(decimal.NewFromInt(100))
}

// IsValidDate checks the YYYY-MM-DD layout strictly
func IsValidDate(s string) bool {
	if len(s) != len(DateLayout) {
		return false
	}
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// Profile describes the freelancer a tax report is prepared for
type Profile struct {
	Country      string `json:"country" mapstructure:"country"`
	BusinessType string `json:"business_type" mapstructure:"business_type"`
}

// IntPtr returns a pointer to v
func IntPtr(v int) *int {
	return &v
}
