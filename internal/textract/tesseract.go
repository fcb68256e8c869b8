package textract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
)

// TesseractConfig holds the OCR settings
type TesseractConfig struct {
	Binary   string // tesseract binary; default "tesseract"
	Pdftoppm string // rasteriser for scanned PDFs; default "pdftoppm"
	Lang     string // default "eng"
	DPI      int    // PDF rasterisation DPI; default 200
	MaxPages int    // 0 = no limit
	// Contrast is the imaging.AdjustContrast percentage applied before OCR
	Contrast float64
}

// Tesseract runs the tesseract CLI on images and rasterised PDF pages
type Tesseract struct {
	cfg    TesseractConfig
	runner Runner
	log    zerolog.Logger
}

// TesseractOption configures the OCR provider
type TesseractOption func(*Tesseract)

// WithRunner replaces the command runner
func WithRunner(r Runner) TesseractOption {
	return func(t *Tesseract) {
		if r != nil {
			t.runner = r
		}
	}
}

// WithTesseractLogger sets the OCR logger
func WithTesseractLogger(l zerolog.Logger) TesseractOption {
	return func(t *Tesseract) {
		t.log = l
	}
}

// NewTesseract creates an OCR provider, filling config defaults
func NewTesseract(cfg TesseractConfig, opts ...TesseractOption) *Tesseract {
	if cfg.Binary == "" {
		cfg.Binary = "tesseract"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 200
	}
	if cfg.Contrast == 0 {
		cfg.Contrast = 20
	}

	t := &Tesseract{cfg: cfg, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(t)
	}
	if t.runner == nil {
		t.runner = ExecRunner{Log: t.log}
	}
	return t
}

// Name implements Provider
func (*Tesseract) Name() string { return "tesseract" }

// Supports implements Provider
func (*Tesseract) Supports(mimeType string) bool {
	return mimeType == MimePDF || isImage(mimeType)
}

// ExtractText implements Provider
func (t *Tesseract) ExtractText(ctx context.Context, data []byte, mimeType string) (string, error) {
	tmpDir, err := os.MkdirTemp("", "docintel-ocr-*")
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			t.log.Warn().Str("dir", tmpDir).Err(err).Msg("failed to remove temp dir")
		}
	}()

	var pages []string
	if mimeType == MimePDF {
		pages, err = t.rasterise(ctx, tmpDir, data)
	} else {
		var page string
		page, err = t.prepareImage(tmpDir, data)
		pages = []string{page}
	}
	if err != nil {
		return "", err
	}

	var b strings.Builder
	var failures []string
	for _, page := range pages {
		txt, err := t.ocr(ctx, page)
		if err != nil {
			failures = append(failures, err.Error())
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(txt)
	}

	if strings.TrimSpace(b.String()) == "" {
		if len(failures) > 0 {
			return "", fmt.Errorf("tesseract: %s: %w", strings.Join(failures, "; "), ErrNoText)
		}
		return "", fmt.Errorf("tesseract: %w", ErrNoText)
	}
	return b.String(), nil
}

// prepareImage writes a grayscale, contrast-boosted PNG for tesseract. Images
// the decoder cannot read are handed to tesseract untouched.
func (t *Tesseract) prepareImage(dir string, data []byte) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		t.log.Debug().Err(err).Msg("image decode failed, passing original bytes")
		raw := filepath.Join(dir, "input")
		if err := os.WriteFile(raw, data, 0o600); err != nil {
			return "", fmt.Errorf("write image: %w", err)
		}
		return raw, nil
	}

	proc := imaging.Grayscale(img)
	proc = imaging.AdjustContrast(proc, t.cfg.Contrast)
	proc = imaging.Sharpen(proc, 1.0)

	out := filepath.Join(dir, "input.png")
	if err := imaging.Save(proc, out); err != nil {
		return "", fmt.Errorf("save preprocessed image: %w", err)
	}
	return out, nil
}

// rasterise renders PDF pages to PNG files with pdftoppm
func (t *Tesseract) rasterise(ctx context.Context, dir string, data []byte) ([]string, error) {
	in := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}

	prefix := filepath.Join(dir, "page")
	if _, errb, err := t.runner.Run(ctx, t.cfg.Pdftoppm, "-r", strconv.Itoa(t.cfg.DPI), "-png", in, prefix); err != nil {
		return nil, fmt.Errorf("pdftoppm: %s: %w", strings.TrimSpace(string(errb)), err)
	}

	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if t.cfg.MaxPages > 0 && len(matches) > t.cfg.MaxPages {
		matches = matches[:t.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("pdftoppm produced no pages: %w", ErrNoText)
	}
	return matches, nil
}

// ocr runs: tesseract <file> stdout -l <lang>
func (t *Tesseract) ocr(ctx context.Context, path string) (string, error) {
	out, errb, err := t.runner.Run(ctx, t.cfg.Binary, path, "stdout", "-l", t.cfg.Lang)
	if err != nil {
		return "", fmt.Errorf("tesseract: %s: %w", strings.TrimSpace(string(errb)), err)
	}
	return string(out), nil
}
