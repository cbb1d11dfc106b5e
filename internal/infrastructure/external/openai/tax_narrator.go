package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/garyjia/expensewise/internal/models"
	"github.com/garyjia/expensewise/internal/summary"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// TaxNarrator implements summary.Narrator with a chat model
type TaxNarrator struct {
	client ChatClient
	model  string
	prompt Prompt
	logger *zap.Logger
}

// NewTaxNarrator creates a new TaxNarrator
func NewTaxNarrator(client ChatClient, model string, prompts *PromptConfig, logger *zap.Logger) *TaxNarrator {
	return &TaxNarrator{
		client: client,
		model:  model,
		prompt: prompts.TaxSummary,
		logger: logger,
	}
}

type narratedExpense struct {
	Vendor     string `json:"vendor,omitempty"`
	Date       string `json:"date,omitempty"`
	Category   string `json:"category"`
	Amount     string `json:"amount"`
	Deductible *int   `json:"deductible"`
}

// Summarize asks the model for bullet-point tax notes on the expenses
func (n *TaxNarrator) Summarize(ctx context.Context, req summary.Request) (string, error) {
	expenses := make([]narratedExpense, 0, len(req.Expenses))
	for _, e := range req.Expenses {
		expenses = append(expenses, narratedExpense{
			Vendor:     e.Vendor,
			Date:       e.Date,
			Category:   models.NormalizeCategory(e.Category),
			Amount:     e.Amount.StringFixed(2),
			Deductible: e.Deductible,
		})
	}
	expensesJSON, err := json.MarshalIndent(expenses, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode expenses: %w", err)
	}

	prompt, err := renderTemplate(n.prompt.UserTemplate, struct {
		Country      string
		BusinessType string
		ExpensesJSON string
	}{
		Country:      req.Profile.Country,
		BusinessType: req.Profile.BusinessType,
		ExpensesJSON: string(expensesJSON),
	})
	if err != nil {
		return "", fmt.Errorf("failed to render summary prompt: %w", err)
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if n.prompt.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: n.prompt.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	resp, err := n.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       n.model,
		Temperature: n.prompt.Temperature,
		TopP:        n.prompt.TopP,
		MaxTokens:   n.prompt.MaxTokens,
		Messages:    messages,
	})
	if err != nil {
		n.logger.Error("Summary API call failed", zap.Error(err))
		return "", fmt.Errorf("summary API call failed: %w", err)
	}

	content, err := firstContent(resp)
	if err != nil {
		return "", err
	}

	n.logger.Info("Tax summary generated",
		zap.Int("expense_count", len(expenses)),
		zap.Int("length", len(content)))
	return content, nil
}

var _ summary.Narrator = (*TaxNarrator)(nil)
