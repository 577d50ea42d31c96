package documents

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gen2brain/go-fitz"
)

// Extractor turns an uploaded file into plain text
type Extractor interface {
	Extract(mimeType string, data []byte) (string, error)
}

// TextExtractor handles text/plain and application/pdf uploads
type TextExtractor struct{}

// NewTextExtractor creates the default extractor
func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

// Extract returns the text content of data. Unsupported types are an error.
func (e *TextExtractor) Extract(mimeType string, data []byte) (string, error) {
	switch strings.ToLower(mimeType) {
	case "text/plain":
		return extractPlainText(data)
	case "application/pdf":
		return extractPDF(data)
	default:
		return "", fmt.Errorf("no extractor for %s", mimeType)
	}
}

func extractPlainText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("file is not valid UTF-8 text")
	}
	return strings.TrimPrefix(string(data), "\ufeff"), nil
}

func extractPDF(data []byte) (string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	var pages []string
	for i := 0; i < doc.NumPage(); i++ {
		text, err := doc.Text(i)
		if err != nil {
			return "", fmt.Errorf("failed to read PDF page %d: %w", i+1, err)
		}
		if strings.TrimSpace(text) != "" {
			pages = append(pages, text)
		}
	}

	return strings.Join(pages, "\n\n"), nil
}
