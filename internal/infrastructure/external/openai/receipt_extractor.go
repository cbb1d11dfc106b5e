package openai

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/garyjia/expensewise/internal/ingestion"
	"github.com/garyjia/expensewise/internal/models"
	"github.com/garyjia/expensewise/internal/receipt"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// DefaultCategories are offered to the model when none are configured
var DefaultCategories = []string{
	"Software", "Travel", "Food & Beverage", "Coworking Space",
	"Transport", "Office Supplies", "Utilities", "Professional Fees", models.DefaultCategory,
}

// ExtractorConfig holds vision extraction settings
type ExtractorConfig struct {
	Model      string
	Categories []string
	Profile    models.Profile
}

// ReceiptExtractor implements ingestion.Extractor with a vision chat model
type ReceiptExtractor struct {
	newClient  ClientFactory
	rasterizer *receipt.Rasterizer
	prompt     Prompt
	config     ExtractorConfig
	logger     *zap.Logger
}

// NewReceiptExtractor creates a new ReceiptExtractor
func NewReceiptExtractor(newClient ClientFactory, rasterizer *receipt.Rasterizer, prompts *PromptConfig, config ExtractorConfig, logger *zap.Logger) *ReceiptExtractor {
	if len(config.Categories) == 0 {
		config.Categories = DefaultCategories
	}
	return &ReceiptExtractor{
		newClient:  newClient,
		rasterizer: rasterizer,
		prompt:     prompts.ReceiptExtraction,
		config:     config,
		logger:     logger,
	}
}

// Extract sends the receipt pages to the model and decodes one expense candidate
func (e *ReceiptExtractor) Extract(ctx context.Context, file ingestion.ReceiptFile, apiKey string) (*models.RawExpense, error) {
	pages, err := e.rasterizer.Pages(file.Name, file.MimeType, file.Data)
	if err != nil {
		return nil, err
	}

	instruction, err := renderTemplate(e.prompt.UserTemplate, struct {
		Country      string
		BusinessType string
		Categories   []string
	}{
		Country:      e.config.Profile.Country,
		BusinessType: e.config.Profile.BusinessType,
		Categories:   e.config.Categories,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render extraction prompt: %w", err)
	}

	parts := []openai.ChatMessagePart{{
		Type: openai.ChatMessagePartTypeText,
		Text: instruction,
	}}
	for _, page := range pages {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    fmt.Sprintf("data:%s;base64,%s", page.MimeType, base64.StdEncoding.EncodeToString(page.Data)),
				Detail: openai.ImageURLDetailHigh,
			},
		})
	}

	e.logger.Debug("Extracting receipt with vision model",
		zap.String("file", file.Name),
		zap.Int("page_count", len(pages)),
		zap.String("model", e.config.Model))

	resp, err := e.newClient(apiKey).CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       e.config.Model,
		MaxTokens:   e.prompt.MaxTokens,
		Temperature: e.prompt.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: e.prompt.System,
			},
			{
				Role:         openai.ChatMessageRoleUser,
				MultiContent: parts,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("vision API call failed: %w", err)
	}

	content, err := firstContent(resp)
	if err != nil {
		return nil, err
	}

	var raw models.RawExpense
	if err := decodeJSON(content, &raw); err != nil {
		e.logger.Warn("Unreadable extraction response",
			zap.String("file", file.Name),
			zap.String("content", content))
		return nil, err
	}

	e.logger.Info("Receipt extracted",
		zap.String("file", file.Name),
		zap.String("vendor", raw.Vendor),
		zap.String("date", raw.Date))
	return &raw, nil
}

var _ ingestion.Extractor = (*ReceiptExtractor)(nil)
