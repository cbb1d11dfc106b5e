package service

import "errors"

var (
	// ErrInvalidUpload is returned when an uploaded receipt fails validation
	ErrInvalidUpload = errors.New("invalid receipt upload")

	// ErrUnsupportedFormat is returned for unknown export kinds
	ErrUnsupportedFormat = errors.New("unsupported export format")

	// ErrInvalidYear is returned for out-of-range dashboard years
	ErrInvalidYear = errors.New("invalid year")
)
