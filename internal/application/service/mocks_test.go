package service

import (
	"context"

	"github.com/garyjia/expensewise/internal/ingestion"
	"github.com/garyjia/expensewise/internal/models"
	"github.com/garyjia/expensewise/internal/summary"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockReceiptRepository mocks port.ReceiptRepository
type MockReceiptRepository struct {
	mock.Mock
}

func (m *MockReceiptRepository) Create(ctx context.Context, record *models.ExpenseRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockReceiptRepository) GetByID(ctx context.Context, id int64) (*models.ExpenseRecord, error) {
	args := m.Called(ctx, id)
	record, _ := args.Get(0).(*models.ExpenseRecord)
	return record, args.Error(1)
}

func (m *MockReceiptRepository) List(ctx context.Context, from, to string) ([]models.ExpenseRecord, error) {
	args := m.Called(ctx, from, to)
	records, _ := args.Get(0).([]models.ExpenseRecord)
	return records, args.Error(1)
}

func (m *MockReceiptRepository) ListAll(ctx context.Context) ([]models.ExpenseRecord, error) {
	args := m.Called(ctx)
	records, _ := args.Get(0).([]models.ExpenseRecord)
	return records, args.Error(1)
}

func (m *MockReceiptRepository) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// MockNarrator mocks summary.Narrator
type MockNarrator struct {
	mock.Mock
}

func (m *MockNarrator) Summarize(ctx context.Context, req summary.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// fakeTxManager runs fn inline and counts transactions
type fakeTxManager struct {
	calls int
}

func (f *fakeTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

// stubExtractor answers by file name; names missing from the map fail
type stubExtractor map[string]*models.RawExpense

func (s stubExtractor) Extract(ctx context.Context, file ingestion.ReceiptFile, apiKey string) (*models.RawExpense, error) {
	if raw, ok := s[file.Name]; ok {
		return raw, nil
	}
	return nil, context.DeadlineExceeded
}

func expense(id int64, vendor, date, category, amount string, deductible *int) models.ExpenseRecord {
	return models.ExpenseRecord{
		ID:         id,
		Vendor:     vendor,
		Date:       date,
		Amount:     decimal.RequireFromString(amount),
		Category:   category,
		Deductible: deductible,
	}
}
