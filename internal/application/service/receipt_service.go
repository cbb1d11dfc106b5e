package service

import (
	"context"
	"fmt"

	"github.com/garyjia/expensewise/internal/application/port"
	"github.com/garyjia/expensewise/internal/ingestion"
	"github.com/garyjia/expensewise/internal/models"
	"github.com/garyjia/expensewise/internal/report"
	"github.com/garyjia/expensewise/pkg/utils"
	"go.uber.org/zap"
)

// FileFailure describes one receipt that could not be extracted
type FileFailure struct {
	Index int    `json:"index"`
	File  string `json:"file"`
	Error string `json:"error"`
}

// UploadResult is the outcome of a receipt batch
type UploadResult struct {
	Mode   ingestion.Mode         `json:"mode"`
	Stored []models.ExpenseRecord `json:"stored"`
	Failed []FileFailure          `json:"failed"`
}

// ReceiptService ingests and lists receipts
type ReceiptService interface {
	// Upload extracts every file and stores the resulting records in one
	// transaction. An empty mode uses the configured one.
	Upload(ctx context.Context, files []ingestion.ReceiptFile, mode ingestion.Mode) (*UploadResult, error)
	// List returns stored records, newest first. Either bound may be empty.
	List(ctx context.Context, from, to string) ([]models.ExpenseRecord, error)
}

type receiptServiceImpl struct {
	coordinator    *ingestion.Coordinator
	receiptRepo    port.ReceiptRepository
	txManager      port.TransactionManager
	maxUploadBytes int64
	logger         *zap.Logger
}

// NewReceiptService creates a new ReceiptService
func NewReceiptService(
	coordinator *ingestion.Coordinator,
	receiptRepo port.ReceiptRepository,
	txManager port.TransactionManager,
	maxUploadBytes int64,
	logger *zap.Logger,
) ReceiptService {
	return &receiptServiceImpl{
		coordinator:    coordinator,
		receiptRepo:    receiptRepo,
		txManager:      txManager,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

func (s *receiptServiceImpl) Upload(ctx context.Context, files []ingestion.ReceiptFile, mode ingestion.Mode) (*UploadResult, error) {
	if len(files) == 0 {
		return nil, ingestion.ErrNoFiles
	}
	for i := range files {
		if err := utils.ValidateReceiptUpload(files[i].Name, int64(len(files[i].Data)), s.maxUploadBytes); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidUpload, err)
		}
		files[i].Name = utils.SanitizeFilename(files[i].Name)
	}

	if mode == "" {
		mode = s.coordinator.Mode()
	}

	results, err := s.coordinator.ExtractAllWithMode(ctx, files, mode)
	if err != nil {
		return nil, err
	}

	result := &UploadResult{
		Mode:   mode,
		Stored: make([]models.ExpenseRecord, 0, len(results)),
		Failed: make([]FileFailure, 0),
	}
	for _, r := range results {
		if r.Err != nil {
			result.Failed = append(result.Failed, FileFailure{Index: r.Index, File: r.File, Error: r.Err.Error()})
		}
	}

	records := ingestion.Records(results)
	err = s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		for i := range records {
			if err := s.receiptRepo.Create(ctx, &records[i]); err != nil {
				return fmt.Errorf("failed to store receipt from %s: %w", records[i].Vendor, err)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to store extracted receipts", zap.Error(err))
		return nil, err
	}

	result.Stored = append(result.Stored, records...)

	s.logger.Info("Receipts uploaded",
		zap.String("mode", string(mode)),
		zap.Int("stored", len(result.Stored)),
		zap.Int("failed", len(result.Failed)))

	return result, nil
}

func (s *receiptServiceImpl) List(ctx context.Context, from, to string) ([]models.ExpenseRecord, error) {
	if from != "" && !models.IsValidDate(from) {
		return nil, fmt.Errorf("%w: from %q", report.ErrInvalidDateRange, from)
	}
	if to != "" && !models.IsValidDate(to) {
		return nil, fmt.Errorf("%w: to %q", report.ErrInvalidDateRange, to)
	}
	if from != "" && to != "" && from > to {
		return nil, fmt.Errorf("%w: from %s is after to %s", report.ErrInvalidDateRange, from, to)
	}

	records, err := s.receiptRepo.List(ctx, from, to)
	if err != nil {
		s.logger.Error("Failed to list receipts", zap.Error(err))
		return nil, err
	}
	return records, nil
}
