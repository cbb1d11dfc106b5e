// Package summary requests the narrative tax summary for a report.
package summary

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/garyjia/expensewise/internal/models"
	"github.com/garyjia/expensewise/internal/report"
	"go.uber.org/zap"
)

// ErrEmptySummary is returned by narrators that produced no text
var ErrEmptySummary = errors.New("summary service returned empty text")

// Status of a narrative
type Status string

const (
	StatusSkipped     Status = "skipped"
	StatusReady       Status = "ready"
	StatusUnavailable Status = "unavailable"
)

// Request is the payload sent to the summary service
type Request struct {
	Expenses []models.ExpenseRecord `json:"expenses"`
	Profile  models.Profile         `json:"profile"`
}

// Narrator produces prose for a set of expenses
type Narrator interface {
	Summarize(ctx context.Context, req Request) (string, error)
}

// Narrative is the soft result of a summary request. Err is set only when
// Status is StatusUnavailable.
type Narrative struct {
	Text   string `json:"text"`
	Status Status `json:"status"`
	Err    error  `json:"-"`
}

// Available reports whether Text can be shown
func (n Narrative) Available() bool {
	return n.Status == StatusReady
}

// Requester wraps a Narrator so that its failures never fail a report
type Requester struct {
	narrator Narrator
	timeout  time.Duration
	logger   *zap.Logger
}

// NewRequester creates a new Requester. A zero timeout leaves ctx untouched.
func NewRequester(narrator Narrator, timeout time.Duration, logger *zap.Logger) *Requester {
	return &Requester{
		narrator: narrator,
		timeout:  timeout,
		logger:   logger,
	}
}

// Request asks for a narrative of model's expenses. An empty model skips the
// call entirely.
func (r *Requester) Request(ctx context.Context, model report.Model, profile models.Profile) Narrative {
	return r.RequestExpenses(ctx, model.Expenses, profile)
}

// RequestExpenses is Request for an explicit expense list
func (r *Requester) RequestExpenses(ctx context.Context, expenses []models.ExpenseRecord, profile models.Profile) Narrative {
	if len(expenses) == 0 {
		return Narrative{Status: StatusSkipped}
	}
	if r.narrator == nil {
		return Narrative{Status: StatusUnavailable, Err: errors.New("summary service is not configured")}
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	text, err := r.narrator.Summarize(ctx, Request{Expenses: expenses, Profile: profile})
	if err == nil && strings.TrimSpace(text) == "" {
		err = ErrEmptySummary
	}
	if err != nil {
		r.logger.Warn("Summary service unavailable, returning report without narrative",
			zap.Int("expense_count", len(expenses)),
			zap.Error(err))
		return Narrative{Status: StatusUnavailable, Err: err}
	}

	return Narrative{Text: strings.TrimSpace(text), Status: StatusReady}
}
