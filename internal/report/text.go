package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/rezonia/docintel/internal/model"
)

// TextContentType is the content type of Text output
const TextContentType = "text/plain; charset=iso-8859-1"

var punctuation = strings.NewReplacer(
	"—", " - ",
	"–", "-",
	"‘", "'",
	"’", "'",
	"“", `"`,
	"”", `"`,
	"…", "...",
)

// SanitizeLatin1 maps common typographic punctuation to ASCII, decomposes
// compatibility characters, drops combining marks and replaces whatever is
// still outside Latin-1 with '?'.
func SanitizeLatin1(s string) string {
	if s == "" {
		return ""
	}
	s = punctuation.Replace(s)

	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	out, _, err := transform.String(t, s)
	if err != nil {
		out = norm.NFKD.String(s)
	}

	return strings.Map(func(r rune) rune {
		if r > unicode.MaxLatin1 {
			return '?'
		}
		return r
	}, out)
}

// Text renders a Latin-1 encoded plain text report of rec
func Text(rec *model.Record) ([]byte, error) {
	var b strings.Builder

	line := func(format string, args ...any) {
		b.WriteString(SanitizeLatin1(fmt.Sprintf(format, args...)))
		b.WriteByte('\n')
	}

	line("Document Intelligence - Summary")
	line("")
	line("Source file: %s", rec.Filename)
	line("")
	line("Summary:")
	line("%s", str(rec.Summary))
	line("")
	line("Detected fields:")

	fields := rec.Fields
	if fields == nil {
		fields = model.NewExtractionResult()
	}

	// field values use their JSON form
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}
	var parts map[string]json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	for _, key := range []string{"vendor", "invoiceNumber", "dates", "totals"} {
		line("%s: %s", key, fieldValue(parts[key]))
	}

	if len(fields.Amounts) > 0 {
		line("")
		line("Line items:")
		for _, it := range fields.Amounts {
			line("- %s   qty: %s   amount: %s", str(it.Description), str(it.Quantity), it.Amount.String())
		}
	}

	out, err := charmap.ISO8859_1.NewEncoder().String(b.String())
	if err != nil {
		return nil, fmt.Errorf("encode latin-1: %w", err)
	}
	return []byte(out), nil
}

// fieldValue prints strings bare and everything else as JSON
func fieldValue(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return "null"
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
