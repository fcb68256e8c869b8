package extract

import (
	"strings"
	"unicode"
)

// FindInvoiceNumber returns the identifier following an invoice anchor on the
// same line. Only identifiers containing a digit are accepted; the bare INV
// pattern is the fallback.
func (e *Engine) FindInvoiceNumber(text string) *string {
	for _, m := range e.rules.InvoiceAnchor.FindAllStringSubmatch(text, -1) {
		id := strings.TrimRight(m[1], "-_/")
		if strings.IndexFunc(id, unicode.IsDigit) >= 0 {
			return &id
		}
	}
	if m := e.rules.InvoiceFallback.FindStringSubmatch(text); m != nil {
		id := strings.TrimRight(m[1], "-/")
		return &id
	}
	return nil
}
