package textract

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/beevik/etree"
)

const xmlDSigNamespace = "http://www.w3.org/2000/09/xmldsig#"

// XMLText flattens structured e-invoice XML into "Label: value" lines, one
// per leaf element, so the heuristics see the element names as labels.
// Signature blocks are skipped.
type XMLText struct{}

// NewXMLText creates an XML text provider
func NewXMLText() *XMLText {
	return &XMLText{}
}

// Name implements Provider
func (*XMLText) Name() string { return "xml" }

// Supports implements Provider
func (*XMLText) Supports(mimeType string) bool {
	return mimeType == MimeXML || mimeType == "text/xml"
}

// ExtractText implements Provider
func (*XMLText) ExtractText(_ context.Context, data []byte, _ string) (string, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return "", fmt.Errorf("xml: parse: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return "", fmt.Errorf("xml: empty document: %w", ErrNoText)
	}

	var lines []string
	collectLeaves(root, &lines)
	if len(lines) == 0 {
		return "", fmt.Errorf("xml: %w", ErrNoText)
	}
	return strings.Join(lines, "\n"), nil
}

func collectLeaves(elem *etree.Element, lines *[]string) {
	if isSignature(elem) {
		return
	}
	children := elem.ChildElements()
	if len(children) == 0 {
		if text := strings.Join(strings.Fields(elem.Text()), " "); text != "" {
			*lines = append(*lines, humanizeTag(elem.Tag)+": "+text)
		}
		return
	}
	for _, child := range children {
		collectLeaves(child, lines)
	}
}

func isSignature(elem *etree.Element) bool {
	return elem.Tag == "Signature" && (elem.NamespaceURI() == xmlDSigNamespace || len(elem.ChildElements()) > 0)
}

// humanizeTag splits an element name into words: "InvoiceNo" becomes
// "Invoice No", "VATAmount" becomes "VAT Amount", "due_date" becomes "due date".
func humanizeTag(tag string) string {
	runes := []rune(tag)
	var b strings.Builder
	for i, r := range runes {
		if r == '_' || r == '-' || r == '.' {
			b.WriteRune(' ')
			continue
		}
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteRune(' ')
			}
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
