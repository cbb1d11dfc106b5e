// Package extractapi calls a remote receipt extraction service over HTTP.
package extractapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/garyjia/expensewise/internal/ingestion"
	"github.com/garyjia/expensewise/internal/models"
	"go.uber.org/zap"
)

// ExtractPath is the service endpoint relative to the base URL
const ExtractPath = "/api/receipt/extract"

// ErrServiceStatus is returned for non-2xx responses
var ErrServiceStatus = errors.New("extraction service returned an error status")

// maxErrorBody bounds how much of an error response is kept in the error text
const maxErrorBody = 512

// Client implements ingestion.Extractor against the remote service
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new Client; a zero timeout leaves the deadline to ctx
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Extract posts the file and key as multipart form fields "file" and "api_key"
func (c *Client) Extract(ctx context.Context, file ingestion.ReceiptFile, apiKey string) (*models.RawExpense, error) {
	body, contentType, err := encodeForm(file, apiKey)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ExtractPath, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extraction request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: %d %s", ErrServiceStatus, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var raw models.RawExpense
	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode extraction response: %w", err)
	}

	c.logger.Debug("Remote extraction completed",
		zap.String("file", file.Name),
		zap.Duration("elapsed", time.Since(start)))
	return &raw, nil
}

func encodeForm(file ingestion.ReceiptFile, apiKey string) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	mimeType := file.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, file.Name))
	header.Set("Content-Type", mimeType)

	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, "", fmt.Errorf("failed to write file part: %w", err)
	}
	if err := w.WriteField("api_key", apiKey); err != nil {
		return nil, "", fmt.Errorf("failed to write api_key field: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

var _ ingestion.Extractor = (*Client)(nil)
