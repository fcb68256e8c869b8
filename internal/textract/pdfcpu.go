package textract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFCPU reads the text layer of a PDF from its page content streams
type PDFCPU struct {
	maxPages int
}

// PDFCPUOption configures the pdfcpu provider
type PDFCPUOption func(*PDFCPU)

// WithMaxPages limits the number of pages read; 0 means all
func WithMaxPages(n int) PDFCPUOption {
	return func(p *PDFCPU) {
		p.maxPages = n
	}
}

// NewPDFCPU creates a pdfcpu-backed provider
func NewPDFCPU(opts ...PDFCPUOption) *PDFCPU {
	p := &PDFCPU{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements Provider
func (*PDFCPU) Name() string { return "pdfcpu" }

// Supports implements Provider
func (*PDFCPU) Supports(mimeType string) bool { return mimeType == MimePDF }

// ExtractText implements Provider
func (p *PDFCPU) ExtractText(ctx context.Context, data []byte, _ string) (string, error) {
	pdfCtx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return "", fmt.Errorf("pdfcpu read: %w", err)
	}

	pages := pdfCtx.PageCount
	if p.maxPages > 0 && pages > p.maxPages {
		pages = p.maxPages
	}

	var b strings.Builder
	for pageNr := 1; pageNr <= pages; pageNr++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text := pageText(pdfCtx, pageNr)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(text)
	}

	if strings.TrimSpace(b.String()) == "" {
		return "", fmt.Errorf("pdfcpu: %w", ErrNoText)
	}
	return b.String(), nil
}

func pageText(ctx *model.Context, pageNr int) string {
	r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
	if err != nil || r == nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return ""
	}
	return textFromContentStream(data)
}

// pdfString matches a literal string operand: (text)
var pdfString = regexp.MustCompile(`\(((?:\\.|[^\\)])*)\)`)

// textFromContentStream collects the operands of the text showing operators.
// Line-moving operators start a new output line so the engine sees the
// document's rows.
func textFromContentStream(data []byte) string {
	var lines []string
	var cur strings.Builder

	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			lines = append(lines, s)
		}
		cur.Reset()
	}

	for _, raw := range bytes.Split(data, []byte{'\n'}) {
		line := bytes.TrimSpace(raw)
		if len(line) == 0 {
			continue
		}

		switch {
		case bytes.HasSuffix(line, []byte("Tj")), bytes.HasSuffix(line, []byte("TJ")):
			for _, m := range pdfString.FindAllSubmatch(line, -1) {
				cur.WriteString(decodePDFString(m[1]))
			}
		case bytes.HasSuffix(line, []byte("'")) && bytes.Contains(line, []byte("(")):
			flush()
			for _, m := range pdfString.FindAllSubmatch(line, -1) {
				cur.WriteString(decodePDFString(m[1]))
			}
		case bytes.HasSuffix(line, []byte("Td")), bytes.HasSuffix(line, []byte("TD")):
			if isVerticalMove(line) {
				flush()
			} else if cur.Len() > 0 {
				cur.WriteByte(' ')
			}
		case bytes.Equal(line, []byte("T*")), bytes.Equal(line, []byte("ET")):
			flush()
		}
	}
	flush()
	return strings.Join(lines, "\n")
}

// isVerticalMove reports whether a "tx ty Td" operator moves to another row
func isVerticalMove(line []byte) bool {
	fields := strings.Fields(string(line))
	if len(fields) < 3 {
		return false
	}
	ty := fields[len(fields)-2]
	return ty != "0" && ty != "0.0" && ty != "-0"
}

// decodePDFString resolves the escape sequences of a literal string
func decodePDFString(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 >= len(raw) {
			sb.WriteByte(raw[i])
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case '\\', '(', ')':
			sb.WriteByte(raw[i])
		default:
			if raw[i] < '0' || raw[i] > '7' {
				sb.WriteByte(raw[i])
				continue
			}
			val := int(raw[i] - '0')
			for n := 0; n < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; n++ {
				i++
				val = val*8 + int(raw[i]-'0')
			}
			sb.WriteByte(byte(val))
		}
	}
	return sb.String()
}
