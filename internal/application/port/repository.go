package port

import (
	"context"
	"errors"

	"github.com/garyjia/expensewise/internal/models"
)

// ErrStoreQuery wraps every failure reported by the record store
var ErrStoreQuery = errors.New("record store query failed")

// ReceiptRepository defines persistence operations for expense records.
// List results are ordered by date descending, newest first.
type ReceiptRepository interface {
	Create(ctx context.Context, record *models.ExpenseRecord) error
	GetByID(ctx context.Context, id int64) (*models.ExpenseRecord, error)
	List(ctx context.Context, from, to string) ([]models.ExpenseRecord, error)
	ListAll(ctx context.Context) ([]models.ExpenseRecord, error)
	Count(ctx context.Context) (int, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
