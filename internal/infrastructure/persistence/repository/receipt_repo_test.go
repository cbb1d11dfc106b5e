package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/garyjia/expensewise/internal/application/port"
	"github.com/garyjia/expensewise/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/expensewise/internal/models"
	"github.com/garyjia/expensewise/migrations"
	"github.com/garyjia/expensewise/pkg/database"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupStore(t *testing.T) (*database.DB, port.ReceiptRepository) {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()

	db, err := database.New(ctx, database.Config{
		Path:         filepath.Join(t.TempDir(), "receipts.db"),
		MaxOpenConns: 1,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = database.NewMigrator(db, logger).RunMigrationsFS(ctx, migrations.FS)
	require.NoError(t, err)

	return db, NewReceiptRepository(db.DB, logger)
}

func seed(t *testing.T, repo port.ReceiptRepository, raws ...models.RawExpense) []models.ExpenseRecord {
	t.Helper()
	records := models.NormalizeAll(raws)
	for i := range records {
		require.NoError(t, repo.Create(context.Background(), &records[i]))
	}
	return records
}

func TestReceiptRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	_, repo := setupStore(t)

	records := seed(t, repo, models.RawExpense{
		Vendor:     "Adobe",
		Date:       "2025-05-01",
		Amount:     "1000.10",
		Currency:   "MYR",
		Category:   "Software",
		Deductible: 100,
		Notes:      "annual plan",
	})
	require.NotZero(t, records[0].ID)
	assert.False(t, records[0].UploadedAt.IsZero())

	got, err := repo.GetByID(ctx, records[0].ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Adobe", got.Vendor)
	assert.True(t, decimal.RequireFromString("1000.10").Equal(got.Amount))
	assert.Equal(t, "MYR", got.Currency)
	assert.Equal(t, "Software", got.Category)
	require.NotNil(t, got.Deductible)
	assert.Equal(t, 100, *got.Deductible)
	assert.Equal(t, "annual plan", got.Notes)

	t.Run("missing id", func(t *testing.T) {
		got, err := repo.GetByID(ctx, 9999)
		assert.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestReceiptRepository_List(t *testing.T) {
	ctx := context.Background()
	_, repo := setupStore(t)

	seed(t, repo,
		models.RawExpense{Vendor: "Jan", Date: "2025-01-10", Amount: "10"},
		models.RawExpense{Vendor: "Apr-a", Date: "2025-04-01", Amount: "800", Category: "Software"},
		models.RawExpense{Vendor: "Apr-b", Date: "2025-04-01", Amount: "5"},
		models.RawExpense{Vendor: "Dec", Date: "2025-12-31", Amount: "20"},
		models.RawExpense{Vendor: "Old", Date: "2024-12-31", Amount: "30"},
	)

	vendors := func(records []models.ExpenseRecord) []string {
		out := make([]string, 0, len(records))
		for _, r := range records {
			out = append(out, r.Vendor)
		}
		return out
	}

	t.Run("inclusive range newest first", func(t *testing.T) {
		got, err := repo.List(ctx, "2025-01-10", "2025-12-31")
		require.NoError(t, err)
		assert.Equal(t, []string{"Dec", "Apr-b", "Apr-a", "Jan"}, vendors(got))
	})

	t.Run("no range returns everything", func(t *testing.T) {
		got, err := repo.List(ctx, "", "")
		require.NoError(t, err)
		assert.Len(t, got, 5)
		assert.Equal(t, "Old", got[4].Vendor)
	})

	t.Run("open ended range", func(t *testing.T) {
		got, err := repo.List(ctx, "2025-04-02", "")
		require.NoError(t, err)
		assert.Equal(t, []string{"Dec"}, vendors(got))
	})

	t.Run("empty range is not an error", func(t *testing.T) {
		got, err := repo.List(ctx, "2030-01-01", "2030-12-31")
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("count", func(t *testing.T) {
		n, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 5, n)
	})
}

func TestReceiptRepository_NormalizesLegacyRows(t *testing.T) {
	ctx := context.Background()
	db, repo := setupStore(t)

	_, err := db.ExecContext(ctx,
		`INSERT INTO receipts (vendor, amount, date, category, deductible) VALUES (?, ?, ?, ?, ?)`,
		"Legacy", "abc", "2025-03-01 10:00", "", nil)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx,
		`INSERT INTO receipts (vendor, amount, date, category, deductible) VALUES (?, ?, ?, ?, ?)`,
		"Real", 42.5, "2025-03-02", "Travel", 250)
	require.NoError(t, err)

	got, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)

	byVendor := map[string]models.ExpenseRecord{got[0].Vendor: got[0], got[1].Vendor: got[1]}

	legacy := byVendor["Legacy"]
	assert.True(t, legacy.Amount.IsZero())
	assert.Equal(t, models.DefaultCategory, legacy.Category)
	assert.Nil(t, legacy.Deductible)
	assert.Equal(t, "2025-03-01", legacy.Date)

	priced := byVendor["Real"]
	assert.Equal(t, "42.5", priced.Amount.String())
	require.NotNil(t, priced.Deductible)
	assert.Equal(t, 100, *priced.Deductible)
}

func TestReceiptRepository_Transaction(t *testing.T) {
	ctx := context.Background()
	db, repo := setupStore(t)
	tm := sqlite.NewDB(db.DB, zap.NewNop())

	t.Run("rollback discards the whole batch", func(t *testing.T) {
		err := tm.WithTransaction(ctx, func(ctx context.Context) error {
			records := models.NormalizeAll([]models.RawExpense{
				{Vendor: "A", Date: "2025-01-01", Amount: "1"},
				{Vendor: "B", Date: "2025-01-02", Amount: "2"},
			})
			for i := range records {
				if err := repo.Create(ctx, &records[i]); err != nil {
					return err
				}
			}
			return errors.New("abort")
		})
		require.EqualError(t, err, "abort")

		n, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("commit keeps the batch", func(t *testing.T) {
		err := tm.WithTransaction(ctx, func(ctx context.Context) error {
			record := models.Normalize(models.RawExpense{Vendor: "C", Date: "2025-01-03", Amount: "3"})
			return repo.Create(ctx, &record)
		})
		require.NoError(t, err)

		n, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}

func TestReceiptRepository_ClosedStore(t *testing.T) {
	db, repo := setupStore(t)
	require.NoError(t, db.Close())

	_, err := repo.ListAll(context.Background())
	assert.ErrorIs(t, err, port.ErrStoreQuery)
}
