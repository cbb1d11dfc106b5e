package service

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/expensewise/internal/analytics"
	"github.com/garyjia/expensewise/internal/application/port"
	"github.com/garyjia/expensewise/pkg/utils"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DashboardSummary is the dashboard view of the stored receipts
type DashboardSummary struct {
	Year  int    `json:"year"`
	Month string `json:"month"`
	// TotalSpent covers the current calendar month
	TotalSpent decimal.Decimal `json:"total_spent"`
	// TotalDeductible covers the current calendar year
	TotalDeductible   decimal.Decimal           `json:"total_deductible"`
	NumReports        int                       `json:"num_reports"`
	BudgetAlerts      []BudgetAlertView         `json:"budget_alerts"`
	CategoryBreakdown []analytics.CategoryTotal `json:"category_breakdown"`
	MonthlyTrend      []analytics.MonthlyBucket `json:"monthly_trend"`
}

// BudgetAlertView adds the clamped progress width to a budget alert
type BudgetAlertView struct {
	analytics.BudgetAlert
	ProgressWidth int64 `json:"progress_width"`
}

// DashboardService computes dashboard analytics
type DashboardService interface {
	// Summary aggregates every stored receipt. Breakdown and trend cover
	// year; year 0 means the current year.
	Summary(ctx context.Context, year int) (*DashboardSummary, error)
}

type dashboardServiceImpl struct {
	receiptRepo port.ReceiptRepository
	policy      analytics.BudgetPolicy
	now         func() time.Time
	logger      *zap.Logger
}

// NewDashboardService creates a new DashboardService
func NewDashboardService(receiptRepo port.ReceiptRepository, policy analytics.BudgetPolicy, logger *zap.Logger) DashboardService {
	return &dashboardServiceImpl{
		receiptRepo: receiptRepo,
		policy:      policy,
		now:         time.Now,
		logger:      logger,
	}
}

func (s *dashboardServiceImpl) Summary(ctx context.Context, year int) (*DashboardSummary, error) {
	now := s.now()
	if year == 0 {
		year = now.Year()
	}
	if year < 1900 || year > 9999 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidYear, year)
	}

	records, err := s.receiptRepo.ListAll(ctx)
	if err != nil {
		s.logger.Error("Failed to load receipts for dashboard", zap.Error(err))
		return nil, err
	}

	count, err := s.receiptRepo.Count(ctx)
	if err != nil {
		s.logger.Error("Failed to count receipts", zap.Error(err))
		return nil, err
	}

	month := utils.MonthKey(now)
	thisMonth := analytics.FilterMonth(records, month)
	thisYear := analytics.FilterYear(records, now.Year())
	selected := analytics.FilterYear(records, year)

	summary := &DashboardSummary{
		Year:              year,
		Month:             month,
		TotalSpent:        analytics.Sum(thisMonth).Spent,
		TotalDeductible:   analytics.Sum(thisYear).Deductible,
		NumReports:        count,
		BudgetAlerts:      alertViews(analytics.BudgetAlerts(thisMonth, s.policy)),
		CategoryBreakdown: analytics.CategoryBreakdown(selected),
		MonthlyTrend:      analytics.MonthlyTrend(selected, year),
	}

	s.logger.Debug("Dashboard summary computed",
		zap.Int("year", year),
		zap.Int("receipts", len(records)),
		zap.Int("alerts", len(summary.BudgetAlerts)))

	return summary, nil
}

func alertViews(alerts []analytics.BudgetAlert) []BudgetAlertView {
	views := make([]BudgetAlertView, 0, len(alerts))
	for _, a := range alerts {
		views = append(views, BudgetAlertView{BudgetAlert: a, ProgressWidth: a.ProgressWidth()})
	}
	return views
}

