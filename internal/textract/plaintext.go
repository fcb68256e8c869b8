package textract

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

// PlainText passes text documents through unchanged
type PlainText struct{}

// NewPlainText creates a plain text provider
func NewPlainText() *PlainText {
	return &PlainText{}
}

// Name implements Provider
func (*PlainText) Name() string { return "plaintext" }

// Supports implements Provider
func (*PlainText) Supports(mimeType string) bool {
	return mimeType == MimeText || strings.HasPrefix(mimeType, "text/")
}

// ExtractText implements Provider
func (*PlainText) ExtractText(_ context.Context, data []byte, _ string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("plaintext: %w", ErrNoText)
	}
	text := string(data)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "�")
	}
	return text, nil
}
