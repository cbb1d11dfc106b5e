package ingestion

import "errors"

var (
	// ErrExtractionFailed marks a batch that must be retried as a whole
	ErrExtractionFailed = errors.New("extraction failed, retry")

	// ErrNoFiles is returned for an empty batch
	ErrNoFiles = errors.New("no receipt files provided")

	// ErrEmptyResult is returned when an extractor yields neither a record nor an error
	ErrEmptyResult = errors.New("extractor returned no receipt data")

	// ErrMissingAPIKey is returned when no extraction credential is configured
	ErrMissingAPIKey = errors.New("extraction api key is not configured")
)
