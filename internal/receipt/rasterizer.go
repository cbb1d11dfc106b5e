// Package receipt prepares uploaded receipt files for vision extraction.
package receipt

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

// ErrUnsupportedType is returned for files that are neither images nor PDFs
var ErrUnsupportedType = errors.New("unsupported receipt file type")

// ErrNoPages is returned when a PDF yields no renderable page
var ErrNoPages = errors.New("no pages rendered from receipt")

// Supported MIME types
const (
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
	MimeWEBP = "image/webp"
	MimePDF  = "application/pdf"
)

// Page is one image ready to send to a vision model
type Page struct {
	MimeType string
	Data     []byte
}

// Options controls rasterization
type Options struct {
	MaxPages int     // pages rendered from a PDF, default 2
	DPI      float64 // default 150
	Quality  int     // JPEG quality, default 85
}

// Rasterizer turns receipt uploads into images
type Rasterizer struct {
	opts   Options
	logger *zap.Logger
}

// NewRasterizer creates a new Rasterizer
func NewRasterizer(opts Options, logger *zap.Logger) *Rasterizer {
	if opts.MaxPages <= 0 {
		opts.MaxPages = 2
	}
	if opts.DPI <= 0 {
		opts.DPI = 150
	}
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = 85
	}
	return &Rasterizer{opts: opts, logger: logger}
}

// DetectMimeType sniffs data, falling back to the declared type and the file extension
func DetectMimeType(name, declared string, data []byte) string {
	sniffed := http.DetectContentType(data)
	switch {
	case strings.HasPrefix(sniffed, MimePDF):
		return MimePDF
	case strings.HasPrefix(sniffed, "image/"):
		return sniffed
	}

	if declared != "" && declared != "application/octet-stream" {
		return strings.ToLower(strings.TrimSpace(strings.Split(declared, ";")[0]))
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return MimePDF
	case ".jpg", ".jpeg":
		return MimeJPEG
	case ".png":
		return MimePNG
	case ".webp":
		return MimeWEBP
	}
	return sniffed
}

// Pages returns the images for one receipt. Images pass through untouched;
// PDFs are rendered page by page up to MaxPages.
func (r *Rasterizer) Pages(name, mimeType string, data []byte) ([]Page, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("receipt %s is empty", name)
	}

	mimeType = DetectMimeType(name, mimeType, data)
	switch mimeType {
	case MimeJPEG, MimePNG, MimeWEBP:
		return []Page{{MimeType: mimeType, Data: data}}, nil
	case MimePDF:
		return r.renderPDF(name, data)
	default:
		return nil, fmt.Errorf("%w: %s (%s)", ErrUnsupportedType, name, mimeType)
	}
}

func (r *Rasterizer) renderPDF(name string, data []byte) ([]Page, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF %s: %w", name, err)
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	limit := pageCount
	if limit > r.opts.MaxPages {
		limit = r.opts.MaxPages
	}

	r.logger.Debug("Rendering receipt PDF",
		zap.String("file", name),
		zap.Int("total_pages", pageCount),
		zap.Int("rendered_pages", limit))

	pages := make([]Page, 0, limit)
	for n := 0; n < limit; n++ {
		img, err := doc.ImageDPI(n, r.opts.DPI)
		if err != nil {
			r.logger.Warn("Failed to render PDF page",
				zap.String("file", name),
				zap.Int("page", n),
				zap.Error(err))
			continue
		}

		encoded, err := r.encodeJPEG(img)
		if err != nil {
			r.logger.Warn("Failed to encode PDF page",
				zap.String("file", name),
				zap.Int("page", n),
				zap.Error(err))
			continue
		}
		pages = append(pages, Page{MimeType: MimeJPEG, Data: encoded})
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoPages, name)
	}
	return pages, nil
}

func (r *Rasterizer) encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: r.opts.Quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
