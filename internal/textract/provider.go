// Package textract turns uploaded documents into plain text for the
// extraction engine.
package textract

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rezonia/docintel/internal/model"
)

// MIME types understood by the providers
const (
	MimePDF  = "application/pdf"
	MimeText = "text/plain"
	MimeXML  = "application/xml"
	MimePNG  = "image/png"
	MimeJPEG = "image/jpeg"
	MimeTIFF = "image/tiff"
)

// ErrNoText is returned when a provider ran but found no text
var ErrNoText = errors.New("no text extracted")

// Provider extracts text from raw document bytes
type Provider interface {
	// ExtractText returns the document text. Providers return an error
	// wrapping ErrNoText when the document holds no recognisable text.
	ExtractText(ctx context.Context, data []byte, mimeType string) (string, error)

	// Supports reports whether the provider handles mimeType
	Supports(mimeType string) bool

	// Name identifies the provider in logs and errors
	Name() string
}

// Chain tries providers in order and returns the first non-empty text
type Chain struct {
	providers []Provider
	log       zerolog.Logger
}

// ChainOption configures a Chain
type ChainOption func(*Chain)

// WithLogger sets the chain logger
func WithLogger(l zerolog.Logger) ChainOption {
	return func(c *Chain) {
		c.log = l
	}
}

// NewChain creates a chain over providers. Order matters: cheap text-layer
// readers should come before OCR.
func NewChain(providers []Provider, opts ...ChainOption) *Chain {
	c := &Chain{providers: providers, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DefaultChain returns plain text, XML, both PDF text-layer readers and
// tesseract OCR, in that order.
func DefaultChain(tesseract *Tesseract, opts ...ChainOption) *Chain {
	providers := []Provider{
		NewPlainText(),
		NewXMLText(),
		NewPDFCPU(),
		NewPlainPDF(),
	}
	if tesseract != nil {
		providers = append(providers, tesseract)
	}
	return NewChain(providers, opts...)
}

// Name implements Provider
func (c *Chain) Name() string {
	names := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		names = append(names, p.Name())
	}
	return "chain(" + strings.Join(names, ",") + ")"
}

// Supports implements Provider
func (c *Chain) Supports(mimeType string) bool {
	for _, p := range c.providers {
		if p.Supports(mimeType) {
			return true
		}
	}
	return false
}

// ExtractText implements Provider
func (c *Chain) ExtractText(ctx context.Context, data []byte, mimeType string) (string, error) {
	var (
		errs  []error
		tried []string
	)

	for _, p := range c.providers {
		if !p.Supports(mimeType) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
		tried = append(tried, p.Name())

		text, err := p.ExtractText(ctx, data, mimeType)
		if err != nil {
			c.log.Debug().Str("provider", p.Name()).Str("mime", mimeType).Err(err).Msg("provider failed")
			errs = append(errs, err)
			continue
		}
		if strings.TrimSpace(text) == "" {
			c.log.Debug().Str("provider", p.Name()).Str("mime", mimeType).Msg("provider returned no text")
			continue
		}

		c.log.Debug().Str("provider", p.Name()).Str("mime", mimeType).Int("chars", len(text)).Msg("text extracted")
		return text, nil
	}

	if len(tried) == 0 {
		return "", model.NewProviderError(mimeType, "unsupported document type", nil, nil)
	}
	cause := ErrNoText
	if len(errs) > 0 {
		cause = errors.Join(append([]error{ErrNoText}, errs...)...)
	}
	return "", model.NewProviderError(mimeType, "all providers failed", tried, cause)
}

// MimeTypeFor maps a filename extension to a MIME type, or "" when unknown
func MimeTypeFor(filename string) string {
	name := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(name, ".pdf"):
		return MimePDF
	case strings.HasSuffix(name, ".png"):
		return MimePNG
	case strings.HasSuffix(name, ".jpg"), strings.HasSuffix(name, ".jpeg"):
		return MimeJPEG
	case strings.HasSuffix(name, ".tif"), strings.HasSuffix(name, ".tiff"):
		return MimeTIFF
	case strings.HasSuffix(name, ".txt"):
		return MimeText
	case strings.HasSuffix(name, ".xml"):
		return MimeXML
	default:
		return ""
	}
}

func isImage(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/")
}
