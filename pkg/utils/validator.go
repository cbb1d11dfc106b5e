package utils

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	controlChars  = regexp.MustCompile(`[\x00-\x1f\x7f]`)
	unsafeInName  = regexp.MustCompile(`[^A-Za-z0-9._ -]+`)
	receiptSuffix = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".pdf": true}
)

// ValidateReceiptUpload checks an uploaded receipt's name and size
func ValidateReceiptUpload(name string, size, maxBytes int64) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("receipt file name is empty")
	}
	if size <= 0 {
		return fmt.Errorf("receipt %s is empty", name)
	}
	if maxBytes > 0 && size > maxBytes {
		return fmt.Errorf("receipt %s exceeds the %d byte limit", name, maxBytes)
	}
	if ext := strings.ToLower(filepath.Ext(name)); ext != "" && !receiptSuffix[ext] {
		return fmt.Errorf("receipt %s has unsupported extension %s", name, ext)
	}
	return nil
}

// ParseYear parses a four-digit year, using fallback for an empty string
func ParseYear(s string, fallback int) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback, nil
	}
	year, err := strconv.Atoi(s)
	if err != nil || year < 1900 || year > 9999 {
		return 0, fmt.Errorf("invalid year: %q", s)
	}
	return year, nil
}

// YearRange returns the first and last day of year as YYYY-MM-DD
func YearRange(year int) (string, string) {
	return fmt.Sprintf("%04d-01-01", year), fmt.Sprintf("%04d-12-31", year)
}

// MonthKey returns the YYYY-MM bucket of t
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// SanitizeString removes control characters
func SanitizeString(s string) string {
	return controlChars.ReplaceAllString(s, "")
}

// SanitizeFilename keeps a file name safe to log and to echo back to clients
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeInName.ReplaceAllString(SanitizeString(name), "_")
	if name == "." || name == "/" || name == "" {
		return "receipt"
	}
	return name
}
