package textract_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/docintel/internal/model"
	"github.com/rezonia/docintel/internal/textract"
)

type stubProvider struct {
	name  string
	mime  string
	text  string
	err   error
	calls int
}

func (s *stubProvider) Name() string                  { return s.name }
func (s *stubProvider) Supports(mimeType string) bool { return mimeType == s.mime }
func (s *stubProvider) ExtractText(_ context.Context, _ []byte, _ string) (string, error) {
	s.calls++
	return s.text, s.err
}

func TestChain_FirstNonEmptyWins(t *testing.T) {
	empty := &stubProvider{name: "empty", mime: textract.MimePDF, text: "  \n"}
	failing := &stubProvider{name: "failing", mime: textract.MimePDF, err: errors.New("boom")}
	good := &stubProvider{name: "good", mime: textract.MimePDF, text: "Total Due: $10.00"}
	never := &stubProvider{name: "never", mime: textract.MimePDF, text: "unused"}

	chain := textract.NewChain([]textract.Provider{empty, failing, good, never})
	text, err := chain.ExtractText(context.Background(), []byte("%PDF"), textract.MimePDF)

	require.NoError(t, err)
	assert.Equal(t, "Total Due: $10.00", text)
	assert.Equal(t, 1, empty.calls)
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 0, never.calls)
}

func TestChain_SkipsUnsupported(t *testing.T) {
	img := &stubProvider{name: "img", mime: textract.MimePNG, text: "image text"}
	pdf := &stubProvider{name: "pdf", mime: textract.MimePDF, text: "pdf text"}

	chain := textract.NewChain([]textract.Provider{img, pdf})
	text, err := chain.ExtractText(context.Background(), nil, textract.MimePDF)

	require.NoError(t, err)
	assert.Equal(t, "pdf text", text)
	assert.Equal(t, 0, img.calls)
	assert.True(t, chain.Supports(textract.MimePNG))
	assert.False(t, chain.Supports("application/zip"))
}

func TestChain_AllFail(t *testing.T) {
	cause := errors.New("corrupt")
	chain := textract.NewChain([]textract.Provider{
		&stubProvider{name: "a", mime: textract.MimePDF, err: cause},
		&stubProvider{name: "b", mime: textract.MimePDF, text: ""},
	})

	_, err := chain.ExtractText(context.Background(), nil, textract.MimePDF)
	require.Error(t, err)

	var perr *model.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, textract.MimePDF, perr.MimeType)
	assert.Equal(t, []string{"a", "b"}, perr.Tried)
	assert.False(t, perr.Unsupported())
	assert.ErrorIs(t, err, textract.ErrNoText)
	assert.ErrorIs(t, err, cause)
}

func TestChain_Unsupported(t *testing.T) {
	chain := textract.NewChain([]textract.Provider{textract.NewPlainText()})

	_, err := chain.ExtractText(context.Background(), []byte("x"), "application/zip")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported document type")

	var perr *model.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.True(t, perr.Unsupported())
	assert.Empty(t, perr.Tried)
}

func TestChain_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	chain := textract.NewChain([]textract.Provider{textract.NewPlainText()})
	_, err := chain.ExtractText(ctx, []byte("text"), textract.MimeText)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestChain_Name(t *testing.T) {
	chain := textract.DefaultChain(nil)
	assert.Equal(t, "chain(plaintext,xml,pdfcpu,ledongthuc-pdf)", chain.Name())
}

func TestPlainText(t *testing.T) {
	p := textract.NewPlainText()
	assert.True(t, p.Supports(textract.MimeText))
	assert.True(t, p.Supports("text/csv"))
	assert.False(t, p.Supports(textract.MimePDF))

	text, err := p.ExtractText(context.Background(), []byte("Invoice #: 42"), textract.MimeText)
	require.NoError(t, err)
	assert.Equal(t, "Invoice #: 42", text)

	text, err = p.ExtractText(context.Background(), []byte{'a', 0xff, 'b'}, textract.MimeText)
	require.NoError(t, err)
	assert.Equal(t, "a�b", text)

	_, err = p.ExtractText(context.Background(), nil, textract.MimeText)
	assert.ErrorIs(t, err, textract.ErrNoText)
}

func TestPDFProviders_InvalidData(t *testing.T) {
	for _, p := range []textract.Provider{textract.NewPDFCPU(), textract.NewPlainPDF()} {
		t.Run(p.Name(), func(t *testing.T) {
			assert.True(t, p.Supports(textract.MimePDF))
			assert.False(t, p.Supports(textract.MimePNG))

			_, err := p.ExtractText(context.Background(), []byte("not a pdf"), textract.MimePDF)
			assert.Error(t, err)
		})
	}
}

func TestMimeTypeFor(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"invoice.pdf", textract.MimePDF},
		{"SCAN.PNG", textract.MimePNG},
		{"photo.jpeg", textract.MimeJPEG},
		{"photo.jpg", textract.MimeJPEG},
		{"fax.tif", textract.MimeTIFF},
		{"notes.txt", textract.MimeText},
		{"einvoice.XML", textract.MimeXML},
		{"archive.zip", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, textract.MimeTypeFor(tt.name))
		})
	}
}
