// Package ingestion runs receipt extraction for a batch of uploaded files.
package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/expensewise/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Mode selects the failure policy of a batch
type Mode string

const (
	// ModeAllOrNothing fails the batch on the first failed file and discards every result
	ModeAllOrNothing Mode = "all_or_nothing"
	// ModePartial keeps successful results and reports per-file errors
	ModePartial Mode = "partial"
)

// ReceiptFile is one uploaded receipt
type ReceiptFile struct {
	Name     string
	MimeType string
	Data     []byte
}

// Extractor turns one receipt file into an expense candidate
type Extractor interface {
	Extract(ctx context.Context, file ReceiptFile, apiKey string) (*models.RawExpense, error)
}

// Result is the outcome for one file; Index matches the input position
type Result struct {
	Index  int
	File   string
	Record *models.ExpenseRecord
	Err    error
}

// Config holds coordinator settings
type Config struct {
	APIKey         string
	Mode           Mode
	MaxConcurrency int           // 0 means one goroutine per file
	Timeout        time.Duration // per batch, 0 means no extra deadline
}

// Coordinator fans extraction out over a batch and joins the results
type Coordinator struct {
	extractor Extractor
	config    Config
	logger    *zap.Logger
}

// NewCoordinator creates a new Coordinator
func NewCoordinator(extractor Extractor, config Config, logger *zap.Logger) *Coordinator {
	if config.Mode == "" {
		config.Mode = ModeAllOrNothing
	}
	return &Coordinator{
		extractor: extractor,
		config:    config,
		logger:    logger,
	}
}

// Mode returns the configured failure policy
func (c *Coordinator) Mode() Mode {
	return c.config.Mode
}

// ExtractAll extracts every file using the configured mode
func (c *Coordinator) ExtractAll(ctx context.Context, files []ReceiptFile) ([]Result, error) {
	return c.ExtractAllWithMode(ctx, files, c.config.Mode)
}

// ExtractAllWithMode extracts every file concurrently. Results are ordered
// like files regardless of completion order.
//
// In ModeAllOrNothing the first failure cancels the remaining calls and the
// returned error wraps ErrExtractionFailed with no results. In ModePartial
// the error is only non-nil when ctx itself is done.
func (c *Coordinator) ExtractAllWithMode(ctx context.Context, files []ReceiptFile, mode Mode) ([]Result, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	if c.config.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	batchID := uuid.NewString()
	c.logger.Info("Starting receipt extraction batch",
		zap.String("batch_id", batchID),
		zap.Int("file_count", len(files)),
		zap.String("mode", string(mode)))

	results := make([]Result, len(files))
	start := time.Now()

	var err error
	if mode == ModePartial {
		err = c.runPartial(ctx, files, results)
	} else {
		err = c.runAllOrNothing(ctx, files, results)
	}
	if err != nil {
		c.logger.Warn("Receipt extraction batch failed",
			zap.String("batch_id", batchID),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, err
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	c.logger.Info("Receipt extraction batch completed",
		zap.String("batch_id", batchID),
		zap.Int("succeeded", len(files)-failed),
		zap.Int("failed", failed),
		zap.Duration("elapsed", time.Since(start)))

	return results, nil
}

func (c *Coordinator) runAllOrNothing(ctx context.Context, files []ReceiptFile, results []Result) error {
	g, gctx := errgroup.WithContext(ctx)
	if c.config.MaxConcurrency > 0 {
		g.SetLimit(c.config.MaxConcurrency)
	}

	for i, file := range files {
		g.Go(func() error {
			record, err := c.extractOne(gctx, file)
			if err != nil {
				return fmt.Errorf("%w: file %d (%s): %w", ErrExtractionFailed, i+1, file.Name, err)
			}
			results[i] = Result{Index: i, File: file.Name, Record: record}
			return nil
		})
	}

	return g.Wait()
}

func (c *Coordinator) runPartial(ctx context.Context, files []ReceiptFile, results []Result) error {
	var g errgroup.Group
	if c.config.MaxConcurrency > 0 {
		g.SetLimit(c.config.MaxConcurrency)
	}

	for i, file := range files {
		g.Go(func() error {
			record, err := c.extractOne(ctx, file)
			results[i] = Result{Index: i, File: file.Name, Record: record, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}
	return nil
}

func (c *Coordinator) extractOne(ctx context.Context, file ReceiptFile) (*models.ExpenseRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := c.extractor.Extract(ctx, file, c.config.APIKey)
	if err != nil {
		c.logger.Debug("Receipt extraction failed",
			zap.String("file", file.Name),
			zap.Error(err))
		return nil, err
	}
	if raw == nil {
		return nil, ErrEmptyResult
	}

	record := models.Normalize(*raw)
	return &record, nil
}

// Records returns the extracted records of successful results in input order
func Records(results []Result) []models.ExpenseRecord {
	records := make([]models.ExpenseRecord, 0, len(results))
	for _, r := range results {
		if r.Err == nil && r.Record != nil {
			records = append(records, *r.Record)
		}
	}
	return records
}
