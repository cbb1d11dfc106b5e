package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/expensewise/internal/application/port"
	"github.com/garyjia/expensewise/internal/export"
	"github.com/garyjia/expensewise/internal/models"
	"github.com/garyjia/expensewise/internal/report"
	"github.com/garyjia/expensewise/internal/summary"
	"go.uber.org/zap"
)

// Export content types
const (
	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// TaxReport is a generated report with its table layout and narrative
type TaxReport struct {
	Report  report.Model         `json:"report"`
	Table   export.TableDocument `json:"table"`
	Summary summary.Narrative    `json:"summary"`
}

// ExportFile is a rendered report document
type ExportFile struct {
	Name        string
	ContentType string
	Content     []byte
	// SavedPath is set when the document was written to report storage
	SavedPath string
}

// TaxReportConfig holds report defaults
type TaxReportConfig struct {
	Profile  models.Profile
	Currency string
}

// TaxReportService generates tax reports for a date range
type TaxReportService interface {
	Generate(ctx context.Context, dateRange report.DateRange, withSummary bool) (*TaxReport, error)
	Export(ctx context.Context, dateRange report.DateRange, kind string) (*ExportFile, error)
	SaveExport(ctx context.Context, dateRange report.DateRange, kind string) (*ExportFile, error)
	// Summarize narrates an explicit expense list; missing profile fields use the defaults
	Summarize(ctx context.Context, expenses []models.ExpenseRecord, profile models.Profile) summary.Narrative
}

type taxReportServiceImpl struct {
	receiptRepo port.ReceiptRepository
	requester   *summary.Requester
	storage     port.ReportStorage
	config      TaxReportConfig
	now         func() time.Time
	logger      *zap.Logger
}

// NewTaxReportService creates a new TaxReportService. A nil requester
// disables narratives; a nil storage disables SaveExport.
func NewTaxReportService(
	receiptRepo port.ReceiptRepository,
	requester *summary.Requester,
	storage port.ReportStorage,
	config TaxReportConfig,
	logger *zap.Logger,
) TaxReportService {
	if config.Currency == "" {
		config.Currency = export.DefaultCurrency
	}
	return &taxReportServiceImpl{
		receiptRepo: receiptRepo,
		requester:   requester,
		storage:     storage,
		config:      config,
		now:         time.Now,
		logger:      logger,
	}
}

func (s *taxReportServiceImpl) Generate(ctx context.Context, dateRange report.DateRange, withSummary bool) (*TaxReport, error) {
	model, err := s.build(ctx, dateRange)
	if err != nil {
		return nil, err
	}

	result := &TaxReport{
		Report:  model,
		Table:   s.table(model),
		Summary: summary.Narrative{Status: summary.StatusSkipped},
	}
	if withSummary {
		result.Summary = s.narrate(ctx, model.Expenses, model.Profile)
	}

	s.logger.Info("Tax report generated",
		zap.String("from", dateRange.From),
		zap.String("to", dateRange.To),
		zap.Int("expenses", len(model.Expenses)),
		zap.String("summary_status", string(result.Summary.Status)))

	return result, nil
}

func (s *taxReportServiceImpl) Export(ctx context.Context, dateRange report.DateRange, kind string) (*ExportFile, error) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind != export.KindCSV && kind != export.KindXLSX {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, kind)
	}

	model, err := s.build(ctx, dateRange)
	if err != nil {
		return nil, err
	}

	file := &ExportFile{Name: export.FileName(kind, s.now())}
	switch kind {
	case export.KindCSV:
		file.ContentType = ContentTypeCSV
		file.Content, err = export.CSV(model)
	case export.KindXLSX:
		file.ContentType = ContentTypeXLSX
		file.Content, err = export.RenderXLSX(s.table(model))
	}
	if err != nil {
		s.logger.Error("Failed to render tax report", zap.String("kind", kind), zap.Error(err))
		return nil, err
	}

	return file, nil
}

func (s *taxReportServiceImpl) SaveExport(ctx context.Context, dateRange report.DateRange, kind string) (*ExportFile, error) {
	if s.storage == nil {
		return nil, fmt.Errorf("report storage is not configured")
	}

	file, err := s.Export(ctx, dateRange, kind)
	if err != nil {
		return nil, err
	}

	path, err := s.storage.Save(ctx, file.Name, file.Content)
	if err != nil {
		s.logger.Error("Failed to save tax report", zap.String("name", file.Name), zap.Error(err))
		return nil, err
	}
	file.SavedPath = path

	s.logger.Info("Tax report saved", zap.String("path", path), zap.Int("bytes", len(file.Content)))
	return file, nil
}

func (s *taxReportServiceImpl) Summarize(ctx context.Context, expenses []models.ExpenseRecord, profile models.Profile) summary.Narrative {
	if profile.Country == "" {
		profile.Country = s.config.Profile.Country
	}
	if profile.BusinessType == "" {
		profile.BusinessType = s.config.Profile.BusinessType
	}
	return s.narrate(ctx, expenses, profile)
}

func (s *taxReportServiceImpl) build(ctx context.Context, dateRange report.DateRange) (report.Model, error) {
	if err := dateRange.Validate(); err != nil {
		return report.Model{}, err
	}

	records, err := s.receiptRepo.List(ctx, dateRange.From, dateRange.To)
	if err != nil {
		s.logger.Error("Failed to load receipts for tax report", zap.Error(err))
		return report.Model{}, err
	}

	return report.Build(records, dateRange, s.config.Profile), nil
}

func (s *taxReportServiceImpl) table(model report.Model) export.TableDocument {
	return export.BuildTable(model.Expenses, export.TableOptions{Currency: s.config.Currency})
}

func (s *taxReportServiceImpl) narrate(ctx context.Context, expenses []models.ExpenseRecord, profile models.Profile) summary.Narrative {
	if len(expenses) == 0 || s.requester == nil {
		return summary.Narrative{Status: summary.StatusSkipped}
	}
	return s.requester.RequestExpenses(ctx, expenses, profile)
}
