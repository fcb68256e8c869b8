package textract_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/docintel/internal/textract"
)

type call struct {
	name string
	args []string
}

// stubRunner answers tesseract with fixed text and fakes pdftoppm output
type stubRunner struct {
	text  string
	err   error
	pages int
	calls []call
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.calls = append(s.calls, call{name: name, args: args})
	if name == "pdftoppm" {
		prefix := args[len(args)-1]
		for i := 1; i <= s.pages; i++ {
			_ = os.WriteFile(prefix+"-"+string(rune('0'+i))+".png", []byte("png"), 0o600)
		}
		return nil, nil, nil
	}
	if s.err != nil {
		return nil, []byte("tesseract stderr"), s.err
	}
	return []byte(s.text), nil, nil
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		img.Set(x, 4, color.Black)
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestTesseract_Image(t *testing.T) {
	runner := &stubRunner{text: "Total Due: $5.00"}
	p := textract.NewTesseract(textract.TesseractConfig{Lang: "deu"}, textract.WithRunner(runner))

	text, err := p.ExtractText(context.Background(), pngBytes(t), textract.MimePNG)
	require.NoError(t, err)
	assert.Equal(t, "Total Due: $5.00", text)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, "tesseract", runner.calls[0].name)
	assert.Equal(t, "input.png", filepath.Base(runner.calls[0].args[0]))
	assert.Equal(t, []string{"stdout", "-l", "deu"}, runner.calls[0].args[1:])
}

func TestTesseract_UndecodableImage(t *testing.T) {
	runner := &stubRunner{text: "text"}
	p := textract.NewTesseract(textract.TesseractConfig{}, textract.WithRunner(runner))

	text, err := p.ExtractText(context.Background(), []byte("not an image"), textract.MimeTIFF)
	require.NoError(t, err)
	assert.Equal(t, "text", text)
	assert.Equal(t, "input", filepath.Base(runner.calls[0].args[0]))
}

func TestTesseract_PDF(t *testing.T) {
	runner := &stubRunner{text: "page", pages: 2}
	p := textract.NewTesseract(textract.TesseractConfig{DPI: 150}, textract.WithRunner(runner))

	text, err := p.ExtractText(context.Background(), []byte("%PDF-1.4"), textract.MimePDF)
	require.NoError(t, err)
	assert.Equal(t, "page\npage", text)

	require.Len(t, runner.calls, 3)
	assert.Equal(t, "pdftoppm", runner.calls[0].name)
	assert.Equal(t, []string{"-r", "150", "-png"}, runner.calls[0].args[:3])
}

func TestTesseract_PDFNoPages(t *testing.T) {
	p := textract.NewTesseract(textract.TesseractConfig{}, textract.WithRunner(&stubRunner{}))

	_, err := p.ExtractText(context.Background(), []byte("%PDF-1.4"), textract.MimePDF)
	assert.ErrorIs(t, err, textract.ErrNoText)
}

func TestTesseract_Failure(t *testing.T) {
	runner := &stubRunner{err: errors.New("exit status 1")}
	p := textract.NewTesseract(textract.TesseractConfig{}, textract.WithRunner(runner))

	_, err := p.ExtractText(context.Background(), pngBytes(t), textract.MimePNG)
	require.Error(t, err)
	assert.ErrorIs(t, err, textract.ErrNoText)
	assert.Contains(t, err.Error(), "tesseract stderr")
}

func TestTesseract_Supports(t *testing.T) {
	p := textract.NewTesseract(textract.TesseractConfig{})
	assert.True(t, p.Supports(textract.MimePNG))
	assert.True(t, p.Supports(textract.MimePDF))
	assert.False(t, p.Supports(textract.MimeText))
}
