// Package analytics aggregates expense records for the dashboard: category
// breakdowns, monthly trend series and budget alerts. Every function is a
// pure function of its inputs.
package analytics

import (
	"strconv"

	"github.com/garyjia/expensewise/internal/models"
	"github.com/shopspring/decimal"
)

// CategoryTotal is the summed spend of one normalized category
type CategoryTotal struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// MonthlyBucket is the spend of one calendar month (YYYY-MM)
type MonthlyBucket struct {
	Month  string          `json:"month"`
	Amount decimal.Decimal `json:"amount"`
}

// Totals summarizes a record set
type Totals struct {
	Spent      decimal.Decimal `json:"spent"`
	Deductible decimal.Decimal `json:"deductible"`
	Count      int             `json:"count"`
}

// CategoryBreakdown groups records by category in first-seen order
func CategoryBreakdown(records []models.ExpenseRecord) []CategoryTotal {
	result := make([]CategoryTotal, 0)
	index := make(map[string]int)

	for _, r := range records {
		category := models.NormalizeCategory(r.Category)
		i, ok := index[category]
		if !ok {
			i = len(result)
			index[category] = i
			result = append(result, CategoryTotal{Category: category, Amount: decimal.Zero})
		}
		result[i].Amount = result[i].Amount.Add(r.Amount)
	}

	return result
}

// MonthlyTrend returns exactly twelve buckets for year, January first.
// Records with an unusable date or from another year are skipped.
func MonthlyTrend(records []models.ExpenseRecord, year int) []MonthlyBucket {
	prefix := strconv.Itoa(year)
	buckets := make([]MonthlyBucket, 12)
	for m := 0; m < 12; m++ {
		buckets[m] = MonthlyBucket{Month: monthKey(year, m+1), Amount: decimal.Zero}
	}

	for _, r := range records {
		month, ok := r.Month()
		if !ok || month[:4] != prefix {
			continue
		}
		m, _ := strconv.Atoi(month[5:7])
		buckets[m-1].Amount = buckets[m-1].Amount.Add(r.Amount)
	}

	return buckets
}

// Sum returns the total spend and per-record deductible total
func Sum(records []models.ExpenseRecord) Totals {
	totals := Totals{Spent: decimal.Zero, Deductible: decimal.Zero, Count: len(records)}
	for _, r := range records {
		totals.Spent = totals.Spent.Add(r.Amount)
		totals.Deductible = totals.Deductible.Add(r.DeductibleAmount())
	}
	return totals
}

// FilterMonth keeps records whose month bucket equals month (YYYY-MM)
func FilterMonth(records []models.ExpenseRecord, month string) []models.ExpenseRecord {
	result := make([]models.ExpenseRecord, 0)
	for _, r := range records {
		if m, ok := r.Month(); ok && m == month {
			result = append(result, r)
		}
	}
	return result
}

// FilterYear keeps records dated in year
func FilterYear(records []models.ExpenseRecord, year int) []models.ExpenseRecord {
	prefix := strconv.Itoa(year)
	result := make([]models.ExpenseRecord, 0)
	for _, r := range records {
		if m, ok := r.Month(); ok && m[:4] == prefix {
			result = append(result, r)
		}
	}
	return result
}

func monthKey(year, month int) string {
	key := strconv.Itoa(year) + "-"
	if month < 10 {
		key += "0"
	}
	return key + strconv.Itoa(month)
}
