package extract

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/rezonia/docintel/internal/model"
)

// Normalize applies NFKC compatibility folding, so non-breaking spaces and
// full-width digits behave like their ASCII forms, and drops carriage returns.
func Normalize(text string) string {
	text = norm.NFKC.String(text)
	return strings.ReplaceAll(text, "\r", "")
}

// SplitLines returns the trimmed, non-blank lines of text. Index is the
// position among non-blank lines.
func SplitLines(text string) []model.Line {
	var lines []model.Line
	for _, raw := range strings.Split(text, "\n") {
		ln := strings.TrimSpace(raw)
		if ln == "" {
			continue
		}
		lines = append(lines, model.Line{Index: len(lines), Text: ln})
	}
	return lines
}
