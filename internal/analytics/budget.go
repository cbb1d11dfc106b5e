package analytics

import (
	"github.com/garyjia/expensewise/internal/models"
	"github.com/shopspring/decimal"
)

// DefaultBudgetLimit is the per-category monthly budget used when none is configured
var DefaultBudgetLimit = decimal.NewFromInt(500)

// DefaultAlertThreshold flags categories that used 80% of their budget
const DefaultAlertThreshold = 0.8

// BudgetPolicy controls budget alert evaluation
type BudgetPolicy struct {
	Limit     decimal.Decimal
	Threshold float64
	// OnlyTriggered drops categories below Threshold from the result.
	// When false every category with spend is returned and Triggered tells them apart.
	OnlyTriggered bool
}

// DefaultBudgetPolicy returns the 500 / 80% policy with threshold filtering on
func DefaultBudgetPolicy() BudgetPolicy {
	return BudgetPolicy{
		Limit:         DefaultBudgetLimit,
		Threshold:     DefaultAlertThreshold,
		OnlyTriggered: true,
	}
}

// BudgetAlert is the budget usage of one category
type BudgetAlert struct {
	Category    string          `json:"category"`
	Spent       decimal.Decimal `json:"spent"`
	BudgetLimit decimal.Decimal `json:"budget_limit"`
	// PercentUsed is round(spent / limit * 100) and may exceed 100
	PercentUsed int64 `json:"percent_used"`
	Triggered   bool  `json:"triggered"`
}

// ProgressWidth is PercentUsed clamped to [0,100] for progress rendering
func (a BudgetAlert) ProgressWidth() int64 {
	if a.PercentUsed < 0 {
		return 0
	}
	if a.PercentUsed > 100 {
		return 100
	}
	return a.PercentUsed
}

// BudgetAlerts evaluates per-category spend against the policy.
// Order follows CategoryBreakdown.
func BudgetAlerts(records []models.ExpenseRecord, policy BudgetPolicy) []BudgetAlert {
	limit := policy.Limit
	if !limit.IsPositive() {
		limit = DefaultBudgetLimit
	}
	threshold := decimal.NewFromFloat(policy.Threshold)
	hundred := decimal.NewFromInt(100)

	alerts := make([]BudgetAlert, 0)
	for _, total := range CategoryBreakdown(records) {
		ratio := total.Amount.Div(limit)
		alert := BudgetAlert{
			Category:    total.Category,
			Spent:       total.Amount,
			BudgetLimit: limit,
			PercentUsed: ratio.Mul(hundred).Round(0).IntPart(),
			Triggered:   ratio.GreaterThanOrEqual(threshold),
		}
		if policy.OnlyTriggered && !alert.Triggered {
			continue
		}
		alerts = append(alerts, alert)
	}

	return alerts
}
