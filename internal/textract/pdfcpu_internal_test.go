package textract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTextFromContentStream(t *testing.T) {
	stream := []byte(`BT
/F1 12 Tf
72 720 Td
(Acme Widgets Ltd.) Tj
0 -14 Td
(Invoice #: INV-7) Tj
0 -14 Td
[(Total) -250 ( Due: $5.00)] TJ
ET
BT
(Thank you \(again\)) Tj
ET`)

	got := textFromContentStream(stream)
	assert.Equal(t, "Acme Widgets Ltd.\nInvoice #: INV-7\nTotal Due: $5.00\nThank you (again)", got)
}

func TestTextFromContentStream_HorizontalMove(t *testing.T) {
	stream := []byte(`BT
(Qty) Tj
120 0 Td
(Amount) Tj
ET`)

	assert.Equal(t, "Qty Amount", textFromContentStream(stream))
}

func TestDecodePDFString(t *testing.T) {
	assert.Equal(t, "a(b)c", decodePDFString([]byte(`a\(b\)c`)))
	assert.Equal(t, "A B", decodePDFString([]byte(`A\040B`)))
	assert.Equal(t, "line\nbreak", decodePDFString([]byte(`line\nbreak`)))
	assert.Equal(t, `back\slash`, decodePDFString([]byte(`back\\slash`)))
}
