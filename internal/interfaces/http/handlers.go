package http

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/garyjia/expensewise/internal/application/port"
	"github.com/garyjia/expensewise/internal/application/service"
	"github.com/garyjia/expensewise/internal/export"
	"github.com/garyjia/expensewise/internal/ingestion"
	"github.com/garyjia/expensewise/internal/models"
	"github.com/garyjia/expensewise/internal/report"
	"github.com/garyjia/expensewise/internal/summary"
	"github.com/garyjia/expensewise/pkg/utils"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	receiptService   service.ReceiptService
	dashboardService service.DashboardService
	taxReportService service.TaxReportService
	logger           *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	receiptService service.ReceiptService,
	dashboardService service.DashboardService,
	taxReportService service.TaxReportService,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		receiptService:   receiptService,
		dashboardService: dashboardService,
		taxReportService: taxReportService,
		logger:           logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// SummaryRequest is the body of POST /api/tax/ai-summary
type SummaryRequest struct {
	Expenses []models.RawExpense `json:"expenses"`
	Profile  models.Profile      `json:"profile"`
}

// SummaryResponse carries a narrative and whether it could be produced
type SummaryResponse struct {
	Summary string         `json:"summary"`
	Status  summary.Status `json:"status"`
	Error   string         `json:"error,omitempty"`
}

// TaxReportResponse is the JSON form of a generated report
type TaxReportResponse struct {
	Report  report.Model         `json:"report"`
	Table   export.TableDocument `json:"table"`
	Summary SummaryResponse      `json:"summary"`
}

// Version is reported by the health check
var Version = "1.0.0"

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   Version,
		},
	})
}

// ListReceipts handles GET /api/receipts?from=&to=
func (h *Handlers) ListReceipts(c *gin.Context) {
	records, err := h.receiptService.List(c.Request.Context(), c.Query("from"), c.Query("to"))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: records})
}

// ExtractReceipts handles POST /api/receipts/extract with multipart "files"
func (h *Handlers) ExtractReceipts(c *gin.Context) {
	mode := ingestion.Mode(c.Query("mode"))
	switch mode {
	case "", ingestion.ModeAllOrNothing, ingestion.ModePartial:
	default:
		h.badRequest(c, fmt.Sprintf("unknown mode %q", mode))
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		h.badRequest(c, "expected multipart form with receipt files")
		return
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		headers = form.File["file"]
	}

	files := make([]ingestion.ReceiptFile, 0, len(headers))
	for _, fh := range headers {
		file, err := readUpload(fh)
		if err != nil {
			h.logger.Warn("Failed to read uploaded receipt", zap.String("file", fh.Filename), zap.Error(err))
			h.badRequest(c, "could not read uploaded file")
			return
		}
		files = append(files, file)
	}

	result, err := h.receiptService.Upload(c.Request.Context(), files, mode)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// DashboardSummary handles GET /api/dashboard/summary?year=
func (h *Handlers) DashboardSummary(c *gin.Context) {
	year, err := utils.ParseYear(c.Query("year"), 0)
	if err != nil {
		h.badRequest(c, err.Error())
		return
	}

	result, err := h.dashboardService.Summary(c.Request.Context(), year)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// TaxReport handles GET /api/tax/report?from=&to=&summary=
func (h *Handlers) TaxReport(c *gin.Context) {
	withSummary := c.DefaultQuery("summary", "true") != "false"

	result, err := h.taxReportService.Generate(c.Request.Context(), dateRange(c), withSummary)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: TaxReportResponse{
			Report:  result.Report,
			Table:   result.Table,
			Summary: toSummaryResponse(result.Summary),
		},
	})
}

// TaxReportCSV handles GET /api/tax/report.csv
func (h *Handlers) TaxReportCSV(c *gin.Context) {
	h.download(c, export.KindCSV)
}

// TaxReportXLSX handles GET /api/tax/report.xlsx
func (h *Handlers) TaxReportXLSX(c *gin.Context) {
	h.download(c, export.KindXLSX)
}

// AISummary handles POST /api/tax/ai-summary
func (h *Handlers) AISummary(c *gin.Context) {
	var req SummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	narrative := h.taxReportService.Summarize(c.Request.Context(), models.NormalizeAll(req.Expenses), req.Profile)

	c.JSON(http.StatusOK, Response{Success: true, Data: toSummaryResponse(narrative)})
}

func (h *Handlers) download(c *gin.Context, kind string) {
	file, err := h.taxReportService.Export(c.Request.Context(), dateRange(c), kind)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, file.Name))
	c.Data(http.StatusOK, file.ContentType, file.Content)
}

// fail maps service errors to status codes
func (h *Handlers) fail(c *gin.Context, err error) {
	status, message := http.StatusInternalServerError, "internal error"

	switch {
	case errors.Is(err, ingestion.ErrExtractionFailed):
		status, message = http.StatusBadGateway, ingestion.ErrExtractionFailed.Error()
	case errors.Is(err, ingestion.ErrMissingAPIKey):
		status, message = http.StatusServiceUnavailable, "extraction service is not configured"
	case errors.Is(err, report.ErrInvalidDateRange),
		errors.Is(err, service.ErrInvalidUpload),
		errors.Is(err, service.ErrInvalidYear),
		errors.Is(err, service.ErrUnsupportedFormat),
		errors.Is(err, ingestion.ErrNoFiles):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, port.ErrStoreQuery):
		message = "failed to query records"
	}

	_ = c.Error(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}

	c.JSON(status, Response{Success: false, Error: message})
}

func (h *Handlers) badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: message})
}

func dateRange(c *gin.Context) report.DateRange {
	return report.DateRange{From: c.Query("from"), To: c.Query("to")}
}

func toSummaryResponse(n summary.Narrative) SummaryResponse {
	resp := SummaryResponse{Summary: n.Text, Status: n.Status}
	if n.Err != nil {
		resp.Error = "summary service unavailable"
	}
	return resp
}

func readUpload(fh *multipart.FileHeader) (ingestion.ReceiptFile, error) {
	f, err := fh.Open()
	if err != nil {
		return ingestion.ReceiptFile{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return ingestion.ReceiptFile{}, err
	}

	return ingestion.ReceiptFile{
		Name:     fh.Filename,
		MimeType: fh.Header.Get("Content-Type"),
		Data:     data,
	}, nil
}
