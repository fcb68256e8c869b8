package extract

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rezonia/docintel/internal/model"
)

// FindVendor picks the vendor name from the leading lines: the first line
// with a company suffix, else the first short line of capitalised words.
func (e *Engine) FindVendor(lines []model.Line) *string {
	top := lines
	if len(top) > e.rules.VendorLines {
		top = top[:e.rules.VendorLines]
	}

	for _, ln := range top {
		if !e.rules.VendorSuffix.MatchString(ln.Text) {
			continue
		}
		name := ln.Text
		for _, re := range e.rules.VendorStrip {
			name = re.ReplaceAllString(name, "")
		}
		name = strings.TrimRight(strings.TrimSpace(name), ",;:|-")
		name = strings.TrimSpace(name)
		if name != "" {
			return &name
		}
	}

	for _, ln := range top {
		if utf8.RuneCountInString(ln.Text) >= e.rules.VendorMaxLen {
			continue
		}
		if capitalisedWords(ln.Text) >= 2 {
			name := ln.Text
			return &name
		}
	}
	return nil
}

func capitalisedWords(s string) int {
	n := 0
	for _, w := range strings.Fields(s) {
		r, _ := utf8.DecodeRuneInString(w)
		if unicode.IsUpper(r) {
			n++
		}
	}
	return n
}
