package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/garyjia/expensewise/internal/application/port"
	"github.com/garyjia/expensewise/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/expensewise/internal/models"
	"go.uber.org/zap"
)

const receiptColumns = `id, vendor, amount, currency, date, category, deductible, notes, uploaded_at`

// ReceiptRepository implements port.ReceiptRepository
type ReceiptRepository struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewReceiptRepository creates a new receipt repository
func NewReceiptRepository(db *sql.DB, logger *zap.Logger) port.ReceiptRepository {
	return &ReceiptRepository{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

// Create stores a normalized record and sets its ID and UploadedAt
func (r *ReceiptRepository) Create(ctx context.Context, record *models.ExpenseRecord) error {
	query := `
		INSERT INTO receipts (vendor, amount, currency, date, category, deductible, notes, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	uploadedAt := record.UploadedAt
	if uploadedAt.IsZero() {
		uploadedAt = r.now().UTC()
	}

	var deductible sql.NullInt64
	if record.Deductible != nil {
		deductible = sql.NullInt64{Int64: int64(*record.Deductible), Valid: true}
	}

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		record.Vendor,
		record.Amount.String(),
		record.Currency,
		record.Date,
		models.NormalizeCategory(record.Category),
		deductible,
		record.Notes,
		uploadedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create receipt", zap.String("vendor", record.Vendor), zap.Error(err))
		return fmt.Errorf("%w: create receipt: %w", port.ErrStoreQuery, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("%w: last insert id: %w", port.ErrStoreQuery, err)
	}

	record.ID = id
	record.UploadedAt = uploadedAt
	return nil
}

// GetByID returns nil without error when the receipt does not exist
func (r *ReceiptRepository) GetByID(ctx context.Context, id int64) (*models.ExpenseRecord, error) {
	query := `SELECT ` + receiptColumns + ` FROM receipts WHERE id = ?`

	record, err := scanReceipt(sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get receipt by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("%w: get receipt: %w", port.ErrStoreQuery, err)
	}
	return &record, nil
}

// List returns receipts dated within [from, to] inclusive, newest first
func (r *ReceiptRepository) List(ctx context.Context, from, to string) ([]models.ExpenseRecord, error) {
	if from == "" && to == "" {
		return r.ListAll(ctx)
	}

	query := `SELECT ` + receiptColumns + ` FROM receipts WHERE 1 = 1`
	var args []interface{}
	if from != "" {
		query += ` AND date >= ?`
		args = append(args, from)
	}
	if to != "" {
		query += ` AND date <= ?`
		args = append(args, to)
	}
	query += ` ORDER BY date DESC, id DESC`

	return r.query(ctx, query, args...)
}

// ListAll returns every receipt, newest first
func (r *ReceiptRepository) ListAll(ctx context.Context) ([]models.ExpenseRecord, error) {
	return r.query(ctx, `SELECT `+receiptColumns+` FROM receipts ORDER BY date DESC, id DESC`)
}

// Count returns the number of stored receipts
func (r *ReceiptRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM receipts`).Scan(&count); err != nil {
		r.logger.Error("Failed to count receipts", zap.Error(err))
		return 0, fmt.Errorf("%w: count receipts: %w", port.ErrStoreQuery, err)
	}
	return count, nil
}

func (r *ReceiptRepository) query(ctx context.Context, query string, args ...interface{}) ([]models.ExpenseRecord, error) {
	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list receipts", zap.Error(err))
		return nil, fmt.Errorf("%w: list receipts: %w", port.ErrStoreQuery, err)
	}
	defer rows.Close()

	records := make([]models.ExpenseRecord, 0)
	for rows.Next() {
		record, err := scanReceipt(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan receipt: %w", port.ErrStoreQuery, err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate receipts: %w", port.ErrStoreQuery, err)
	}
	return records, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanReceipt reads a row as loosely typed data and normalizes it, so rows
// written by older tools with text amounts or empty categories still load.
func scanReceipt(row rowScanner) (models.ExpenseRecord, error) {
	var (
		raw        models.RawExpense
		amount     sql.NullString
		deductible sql.NullInt64
		uploadedAt sql.NullTime
	)

	if err := row.Scan(
		&raw.ID,
		&raw.Vendor,
		&amount,
		&raw.Currency,
		&raw.Date,
		&raw.Category,
		&deductible,
		&raw.Notes,
		&uploadedAt,
	); err != nil {
		return models.ExpenseRecord{}, err
	}

	if amount.Valid {
		raw.Amount = amount.String
	}
	if deductible.Valid {
		raw.Deductible = deductible.Int64
	}
	if uploadedAt.Valid {
		raw.UploadedAt = uploadedAt.Time
	}

	return models.Normalize(raw), nil
}

var _ port.ReceiptRepository = (*ReceiptRepository)(nil)
