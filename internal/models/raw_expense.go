package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RawExpense is an expense candidate as received from the store or the
// extraction service. Amount and Deductible may be JSON strings or numbers,
// and any field may be missing.
type RawExpense struct {
	ID         int64       `json:"id,omitempty"`
	Vendor     string      `json:"vendor"`
	Date       string      `json:"date"`
	Amount     interface{} `json:"amount"`
	Currency   string      `json:"currency,omitempty"`
	Category   string      `json:"category"`
	Deductible interface{} `json:"deductible,omitempty"`
	Notes      string      `json:"notes,omitempty"`
	UploadedAt time.Time   `json:"uploaded_at,omitempty"`
}

// Normalize applies the parse-or-default rules once at the boundary:
// unparsable amounts become zero, empty categories become DefaultCategory,
// deductible is clamped to [0,100] and stays nil when absent or unreadable.
func Normalize(raw RawExpense) ExpenseRecord {
	return ExpenseRecord{
		ID:         raw.ID,
		Vendor:     strings.TrimSpace(raw.Vendor),
		Date:       NormalizeDate(raw.Date),
		Amount:     ParseAmount(raw.Amount),
		Currency:   strings.TrimSpace(raw.Currency),
		Category:   NormalizeCategory(raw.Category),
		Deductible: ParseDeductible(raw.Deductible),
		Notes:      raw.Notes,
		UploadedAt: raw.UploadedAt,
	}
}

// NormalizeAll normalizes a batch preserving order
func NormalizeAll(raws []RawExpense) []ExpenseRecord {
	records := make([]ExpenseRecord, 0, len(raws))
	for _, raw := range raws {
		records = append(records, Normalize(raw))
	}
	return records
}

// NormalizeCategory maps empty labels to DefaultCategory
func NormalizeCategory(category string) string {
	category = strings.TrimSpace(category)
	if category == "" {
		return DefaultCategory
	}
	return category
}

// NormalizeDate trims the value and drops a time-of-day suffix such as
// "2025-04-01 14:30". Anything else is returned as-is and will simply fail
// date validation downstream.
func NormalizeDate(date string) string {
	date = strings.TrimSpace(date)
	if len(date) > len(DateLayout) && IsValidDate(date[:len(DateLayout)]) {
		sep := date[len(DateLayout)]
		if sep == ' ' || sep == 'T' {
			return date[:len(DateLayout)]
		}
	}
	return date
}

// ParseAmount never fails; anything it cannot read is zero.
func ParseAmount(v interface{}) decimal.Decimal {
	switch val := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return val
	case float64:
		return fromFloat(val)
	case float32:
		return fromFloat(float64(val))
	case int:
		return decimal.NewFromInt(int64(val))
	case int64:
		return decimal.NewFromInt(val)
	case json.Number:
		return parseAmountString(val.String())
	case string:
		return parseAmountString(val)
	default:
		return decimal.Zero
	}
}

func fromFloat(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

func parseAmountString(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "RM$€£¥ ")
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseDeductible reads a percent from a number or a string like "50" or "50%".
func ParseDeductible(v interface{}) *int {
	var f float64
	switch val := v.(type) {
	case nil:
		return nil
	case int:
		f = float64(val)
	case int64:
		f = float64(val)
	case float64:
		f = val
	case float32:
		f = float64(val)
	case json.Number:
		parsed, err := val.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case string:
		s := strings.TrimSuffix(strings.TrimSpace(val), "%")
		if s == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	pct := int(math.Round(f))
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return &pct
}
