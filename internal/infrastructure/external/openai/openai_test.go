package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/garyjia/expensewise/internal/ingestion"
	"github.com/garyjia/expensewise/internal/models"
	"github.com/garyjia/expensewise/internal/receipt"
	"github.com/garyjia/expensewise/internal/summary"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeChatServer answers chat completions with a fixed message and records requests
type fakeChatServer struct {
	*httptest.Server
	mu       sync.Mutex
	requests []openai.ChatCompletionRequest
	auth     []string
	reply    string
	status   int
}

func newFakeChatServer(t *testing.T, reply string) *fakeChatServer {
	t.Helper()
	f := &fakeChatServer{reply: reply, status: http.StatusOK}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		var req openai.ChatCompletionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		f.mu.Lock()
		f.requests = append(f.requests, req)
		f.auth = append(f.auth, r.Header.Get("Authorization"))
		status := f.status
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"upstream overloaded","type":"server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			ID:     "chatcmpl-test",
			Object: "chat.completion",
			Model:  req.Model,
			Choices: []openai.ChatCompletionChoice{{
				Index:        0,
				Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: f.reply},
				FinishReason: openai.FinishReasonStop,
			}},
		})
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeChatServer) lastRequest(t *testing.T) openai.ChatCompletionRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1]
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

func newTestExtractor(t *testing.T, server *fakeChatServer) *ReceiptExtractor {
	t.Helper()
	prompts, err := DefaultPrompts()
	require.NoError(t, err)
	return NewReceiptExtractor(
		NewClientFactory(server.URL+"/v1"),
		receipt.NewRasterizer(receipt.Options{}, zap.NewNop()),
		prompts,
		ExtractorConfig{Model: "gpt-4o", Profile: models.Profile{Country: "Malaysia", BusinessType: "Consultant"}},
		zap.NewNop(),
	)
}

func TestReceiptExtractor_Extract(t *testing.T) {
	server := newFakeChatServer(t, `{"vendor":"Adobe","amount":"RM 1,000.00","date":"2025-05-01","category":"Software","deductible":100,"notes":"annual plan"}`)
	extractor := newTestExtractor(t, server)

	raw, err := extractor.Extract(context.Background(), ingestion.ReceiptFile{
		Name:     "adobe.png",
		MimeType: "image/png",
		Data:     testPNG(t),
	}, "sk-user")
	require.NoError(t, err)
	require.NotNil(t, raw)

	assert.Equal(t, "Adobe", raw.Vendor)
	assert.Equal(t, "2025-05-01", raw.Date)
	assert.Equal(t, "Software", raw.Category)
	assert.Equal(t, float64(100), raw.Deductible)

	req := server.lastRequest(t)
	assert.Equal(t, "gpt-4o", req.Model)
	require.Len(t, req.Messages, 2)
	user := req.Messages[1]
	require.Len(t, user.MultiContent, 2)
	assert.Contains(t, user.MultiContent[0].Text, "Consultant based in Malaysia")
	assert.Contains(t, user.MultiContent[0].Text, "Software, Travel")
	assert.True(t, strings.HasPrefix(user.MultiContent[1].ImageURL.URL, "data:image/png;base64,"))
	assert.Equal(t, []string{"Bearer sk-user"}, server.auth)
}

func TestReceiptExtractor_Failures(t *testing.T) {
	t.Run("unsupported file never reaches the API", func(t *testing.T) {
		server := newFakeChatServer(t, `{}`)
		extractor := newTestExtractor(t, server)

		_, err := extractor.Extract(context.Background(), ingestion.ReceiptFile{Name: "notes.txt", Data: []byte("hello")}, "sk")
		assert.ErrorIs(t, err, receipt.ErrUnsupportedType)
		assert.Empty(t, server.requests)
	})

	t.Run("upstream error", func(t *testing.T) {
		server := newFakeChatServer(t, "")
		server.status = http.StatusServiceUnavailable
		extractor := newTestExtractor(t, server)

		_, err := extractor.Extract(context.Background(), ingestion.ReceiptFile{Name: "a.png", Data: testPNG(t)}, "sk")
		assert.ErrorContains(t, err, "vision API call failed")
	})

	t.Run("unparsable reply", func(t *testing.T) {
		server := newFakeChatServer(t, "I could not read this receipt.")
		extractor := newTestExtractor(t, server)

		_, err := extractor.Extract(context.Background(), ingestion.ReceiptFile{Name: "a.png", Data: testPNG(t)}, "sk")
		assert.ErrorContains(t, err, "failed to parse response")
	})
}

// MockChatClient mocks the ChatClient interface
type MockChatClient struct {
	mock.Mock
}

func (m *MockChatClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(openai.ChatCompletionResponse), args.Error(1)
}

func reply(text string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{{
		Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: text},
	}}}
}

func TestTaxNarrator_Summarize(t *testing.T) {
	prompts, err := DefaultPrompts()
	require.NoError(t, err)

	expenses := models.NormalizeAll([]models.RawExpense{
		{Vendor: "Adobe", Date: "2025-05-01", Amount: "1000", Category: "Software", Deductible: 100},
		{Vendor: "Grab", Date: "2025-05-02", Amount: "12.5"},
	})
	profile := models.Profile{Country: "Malaysia", BusinessType: "Consultant"}

	t.Run("sends profile and expenses", func(t *testing.T) {
		client := new(MockChatClient)
		client.On("CreateChatCompletion", mock.Anything, mock.MatchedBy(func(req openai.ChatCompletionRequest) bool {
			if req.Model != "qwen-max" || req.MaxTokens != 512 || req.TopP != 0.7 || req.Temperature != 0.2 {
				return false
			}
			user := req.Messages[len(req.Messages)-1].Content
			return strings.Contains(user, "freelancers in Malaysia / Consultant") &&
				strings.Contains(user, `"amount": "1000.00"`) &&
				strings.Contains(user, `"category": "Other"`)
		})).Return(reply("- Total expenses: RM 1,012.50"), nil).Once()

		narrator := NewTaxNarrator(client, "qwen-max", prompts, zap.NewNop())
		text, err := narrator.Summarize(context.Background(), summary.Request{Expenses: expenses, Profile: profile})

		require.NoError(t, err)
		assert.Equal(t, "- Total expenses: RM 1,012.50", text)
		client.AssertExpectations(t)
	})

	t.Run("propagates service failure", func(t *testing.T) {
		client := new(MockChatClient)
		client.On("CreateChatCompletion", mock.Anything, mock.Anything).
			Return(openai.ChatCompletionResponse{}, errors.New("connection reset")).Once()

		narrator := NewTaxNarrator(client, "qwen-max", prompts, zap.NewNop())
		_, err := narrator.Summarize(context.Background(), summary.Request{Expenses: expenses, Profile: profile})
		assert.ErrorContains(t, err, "connection reset")
	})

	t.Run("empty choices", func(t *testing.T) {
		client := new(MockChatClient)
		client.On("CreateChatCompletion", mock.Anything, mock.Anything).
			Return(openai.ChatCompletionResponse{}, nil).Once()

		narrator := NewTaxNarrator(client, "qwen-max", prompts, zap.NewNop())
		_, err := narrator.Summarize(context.Background(), summary.Request{Expenses: expenses, Profile: profile})
		assert.Error(t, err)
	})

	t.Run("works against a compatible endpoint", func(t *testing.T) {
		server := newFakeChatServer(t, "- Software: fully deductible")
		narrator := NewTaxNarrator(NewClientFactory(server.URL+"/v1")("sk-summary"), "qwen-max", prompts, zap.NewNop())

		text, err := narrator.Summarize(context.Background(), summary.Request{Expenses: expenses, Profile: profile})
		require.NoError(t, err)
		assert.Equal(t, "- Software: fully deductible", text)
		assert.Equal(t, []string{"Bearer sk-summary"}, server.auth)
	})
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		vendor  string
		wantErr bool
	}{
		{"plain object", `{"vendor":"A"}`, "A", false},
		{"code fence", "```json\n{\"vendor\":\"B\"}\n```", "B", false},
		{"prose around object", `Here you go: {"vendor":"C"} hope that helps`, "C", false},
		{"no object", "sorry", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var raw models.RawExpense
			err := decodeJSON(tt.content, &raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.vendor, raw.Vendor)
		})
	}
}

func TestLoadPrompts(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		prompts, err := LoadPrompts("")
		require.NoError(t, err)
		assert.Equal(t, 512, prompts.TaxSummary.MaxTokens)
		assert.Contains(t, prompts.ReceiptExtraction.UserTemplate, "{{.Country}}")
	})

	t.Run("file overrides", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "prompts.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
receipt_extraction:
  temperature: 0
  max_tokens: 256
  system: "sys"
  user_template: "Extract for {{.Country}}"
tax_summary:
  temperature: 0.5
  top_p: 0.9
  max_tokens: 128
  system: ""
  user_template: "Summarize {{.ExpensesJSON}}"
`), 0o644))

		prompts, err := LoadPrompts(path)
		require.NoError(t, err)
		assert.Equal(t, 256, prompts.ReceiptExtraction.MaxTokens)
		assert.Equal(t, "Summarize {{.ExpensesJSON}}", prompts.TaxSummary.UserTemplate)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadPrompts(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})

	t.Run("template errors surface", func(t *testing.T) {
		_, err := renderTemplate("{{.Missing}}", struct{ Country string }{"MY"})
		assert.Error(t, err)
	})
}
