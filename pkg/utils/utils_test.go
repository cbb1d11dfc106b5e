package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	t.Run("file sink writes json with service field", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "server.log")
		logger, err := NewLogger(LoggerConfig{Level: "debug", OutputPath: path, Format: "json", Service: "expensewise"})
		require.NoError(t, err)

		logger.Info("Receipt extraction batch completed")
		require.NoError(t, logger.Sync())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"service":"expensewise"`)
		assert.Contains(t, string(data), `"timestamp"`)
		assert.Contains(t, string(data), "Receipt extraction batch completed")
	})

	t.Run("unknown level falls back to info", func(t *testing.T) {
		logger, err := NewLogger(LoggerConfig{Level: "verbose", OutputPath: "stderr", Format: "console"})
		require.NoError(t, err)
		assert.False(t, logger.Core().Enabled(-1))
		assert.True(t, logger.Core().Enabled(0))
	})
}

func TestValidateReceiptUpload(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		size    int64
		wantErr bool
	}{
		{"jpeg", "coffee.JPG", 100, false},
		{"pdf", "invoice.pdf", 100, false},
		{"no extension", "scan", 100, false},
		{"empty name", " ", 100, true},
		{"empty file", "a.png", 0, true},
		{"too large", "a.png", 2048, true},
		{"unsupported", "notes.docx", 100, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateReceiptUpload(tt.file, tt.size, 1024)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseYear(t *testing.T) {
	year, err := ParseYear("", 2025)
	require.NoError(t, err)
	assert.Equal(t, 2025, year)

	year, err = ParseYear("2024", 2025)
	require.NoError(t, err)
	assert.Equal(t, 2024, year)

	_, err = ParseYear("24", 2025)
	assert.Error(t, err)
	_, err = ParseYear("abc", 2025)
	assert.Error(t, err)

	from, to := YearRange(2025)
	assert.Equal(t, "2025-01-01", from)
	assert.Equal(t, "2025-12-31", to)

	assert.Equal(t, "2025-04", MonthKey(time.Date(2025, 4, 30, 23, 0, 0, 0, time.UTC)))
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "Adobe", SanitizeString("Ado\x00be"))
	assert.Equal(t, "passwd", SanitizeFilename("../../etc/passwd"))
	assert.Equal(t, "my_receipt_.jpg", SanitizeFilename(`C:\Users\me\my"receipt".jpg`))
	assert.Equal(t, "receipt", SanitizeFilename(""))
}
