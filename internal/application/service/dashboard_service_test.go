package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/garyjia/expensewise/internal/analytics"
	"github.com/garyjia/expensewise/internal/application/port"
	"github.com/garyjia/expensewise/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func dashboardRecords() []models.ExpenseRecord {
	return []models.ExpenseRecord{
		expense(4, "Adobe", "2025-05-02", "Software", "450", models.IntPtr(100)),
		expense(3, "Nando's", "2025-05-10", "Meals", "120", models.IntPtr(50)),
		expense(2, "AirAsia", "2025-04-01", "Travel", "300", nil),
		expense(1, "JetBrains", "2024-12-20", "Software", "100", models.IntPtr(100)),
	}
}

func newDashboard(repo *MockReceiptRepository) DashboardService {
	svc := NewDashboardService(repo, analytics.DefaultBudgetPolicy(), zap.NewNop())
	svc.(*dashboardServiceImpl).now = func() time.Time {
		return time.Date(2025, 5, 18, 9, 30, 0, 0, time.UTC)
	}
	return svc
}

func TestDashboardService_Summary(t *testing.T) {
	repo := new(MockReceiptRepository)
	repo.On("ListAll", mock.Anything).Return(dashboardRecords(), nil)
	repo.On("Count", mock.Anything).Return(4, nil)

	summary, err := newDashboard(repo).Summary(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, 2025, summary.Year)
	assert.Equal(t, "2025-05", summary.Month)
	assert.True(t, summary.TotalSpent.Equal(decimal.NewFromInt(570)), summary.TotalSpent.String())
	assert.True(t, summary.TotalDeductible.Equal(decimal.NewFromInt(510)), summary.TotalDeductible.String())
	assert.Equal(t, 4, summary.NumReports)

	require.Len(t, summary.BudgetAlerts, 1)
	assert.Equal(t, "Software", summary.BudgetAlerts[0].Category)
	assert.Equal(t, int64(90), summary.BudgetAlerts[0].PercentUsed)
	assert.Equal(t, int64(90), summary.BudgetAlerts[0].ProgressWidth)

	require.Len(t, summary.CategoryBreakdown, 3)
	assert.Equal(t, "Software", summary.CategoryBreakdown[0].Category)
	assert.Equal(t, "Meals", summary.CategoryBreakdown[1].Category)
	assert.Equal(t, "Travel", summary.CategoryBreakdown[2].Category)

	require.Len(t, summary.MonthlyTrend, 12)
	assert.Equal(t, "2025-04", summary.MonthlyTrend[3].Month)
	assert.True(t, summary.MonthlyTrend[3].Amount.Equal(decimal.NewFromInt(300)))
	assert.True(t, summary.MonthlyTrend[4].Amount.Equal(decimal.NewFromInt(570)))

	repo.AssertExpectations(t)
}

func TestDashboardService_SummaryForPastYear(t *testing.T) {
	repo := new(MockReceiptRepository)
	repo.On("ListAll", mock.Anything).Return(dashboardRecords(), nil)
	repo.On("Count", mock.Anything).Return(4, nil)

	summary, err := newDashboard(repo).Summary(context.Background(), 2024)
	require.NoError(t, err)

	assert.Equal(t, 2024, summary.Year)
	// month and year totals always follow the clock
	assert.True(t, summary.TotalSpent.Equal(decimal.NewFromInt(570)))
	require.Len(t, summary.CategoryBreakdown, 1)
	assert.True(t, summary.CategoryBreakdown[0].Amount.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, "2024-12", summary.MonthlyTrend[11].Month)
	assert.True(t, summary.MonthlyTrend[11].Amount.Equal(decimal.NewFromInt(100)))
}

func TestDashboardService_Empty(t *testing.T) {
	repo := new(MockReceiptRepository)
	repo.On("ListAll", mock.Anything).Return([]models.ExpenseRecord{}, nil)
	repo.On("Count", mock.Anything).Return(0, nil)

	summary, err := newDashboard(repo).Summary(context.Background(), 0)
	require.NoError(t, err)

	assert.True(t, summary.TotalSpent.IsZero())
	assert.True(t, summary.TotalDeductible.IsZero())
	assert.Empty(t, summary.BudgetAlerts)
	assert.Empty(t, summary.CategoryBreakdown)
	assert.Len(t, summary.MonthlyTrend, 12)
}

func TestDashboardService_Errors(t *testing.T) {
	t.Run("invalid year", func(t *testing.T) {
		repo := new(MockReceiptRepository)
		_, err := newDashboard(repo).Summary(context.Background(), 12345)
		assert.ErrorIs(t, err, ErrInvalidYear)
		repo.AssertNotCalled(t, "ListAll", mock.Anything)
	})

	t.Run("store failure", func(t *testing.T) {
		repo := new(MockReceiptRepository)
		repo.On("ListAll", mock.Anything).Return(nil, fmt.Errorf("%w: disk I/O error", port.ErrStoreQuery))

		_, err := newDashboard(repo).Summary(context.Background(), 0)
		assert.ErrorIs(t, err, port.ErrStoreQuery)
	})
}
