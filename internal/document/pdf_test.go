package document

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jung-kurt/gofpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"
)

// pdfFont 测试PDF使用的字体
type pdfFont int

const (
	coreFont     pdfFont = iota // Arial，WinAnsi编码
	embeddedFont                // 嵌入的TrueType字体，Identity-H编码
)

// buildPDF 生成测试用PDF，每个元素对应一页
func buildPDF(t *testing.T, font pdfFont, compress bool, pages ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "docqa-test.pdf")

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(compress)
	family, tr := "Arial", pdf.UnicodeTranslatorFromDescriptor("")
	if font == embeddedFont {
		pdf.AddUTF8FontFromBytes("goregular", "", goregular.TTF)
		family, tr = "goregular", func(s string) string { return s }
	}
	for _, text := range pages {
		pdf.AddPage()
		pdf.SetFont(family, "", 12)
		pdf.MultiCell(0, 10, tr(text), "", "L", false)
	}
	require.NoError(t, pdf.OutputFileAndClose(path))
	return path
}

// createTempPDF 核心字体、未压缩的PDF
func createTempPDF(t *testing.T, pages ...string) string {
	t.Helper()
	return buildPDF(t, coreFont, false, pages...)
}

func TestPDFLoaderSinglePage(t *testing.T) {
	file := createTempPDF(t, "The capital of France is Paris.")

	docs, err := NewPDFLoader().Load(file)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	assert.Equal(t, 0, docs[0].Page)
	assert.Equal(t, file, docs[0].Source)
	assert.Contains(t, docs[0].Content, "The capital of France is Paris.")
	assert.Equal(t, "1", docs[0].Meta["total_pages"])
}

func TestPDFLoaderFontsAndCompression(t *testing.T) {
	cases := []struct {
		name     string
		font     pdfFont
		compress bool
		text     string
	}{
		{"core font compressed", coreFont, true, "The capital of France is Paris."},
		{"embedded font", embeddedFont, false, "The capital of France is Paris. Café"},
		{"embedded font compressed", embeddedFont, true, "The capital of France is Paris. Café"},
		{"core font winansi quotes", coreFont, true, "“Paris” isn’t far"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			file := buildPDF(t, tc.font, tc.compress, tc.text, "")

			docs, err := NewPDFLoader().Load(file)
			require.NoError(t, err)
			require.Len(t, docs, 2)
			assert.Contains(t, docs[0].Content, tc.text)
			assert.Empty(t, docs[1].Content)

			chunks, err := Split(docs, 1000, 200)
			require.NoError(t, err)
			require.Len(t, chunks, 1)
			assert.Equal(t, 0, chunks[0].Page)
		})
	}
}

func TestPDFLoaderMultiPage(t *testing.T) {
	file := createTempPDF(t, "First page text.", "Second page text.", "Third page text.")

	docs, err := NewPDFLoader().Load(file)
	require.NoError(t, err)
	require.Len(t, docs, 3)

	for i, doc := range docs {
		assert.Equal(t, i, doc.Page)
		assert.Equal(t, file, doc.Source)
	}
	assert.Contains(t, docs[0].Content, "First page")
	assert.Contains(t, docs[1].Content, "Second page")
	assert.Contains(t, docs[2].Content, "Third page")
}

func TestPDFLoaderThenSplit(t *testing.T) {
	long := strings.Repeat("Students must submit the report before the deadline. ", 12)
	file := createTempPDF(t, long)

	docs, err := NewPDFLoader().Load(file)
	require.NoError(t, err)

	chunks, err := Split(docs, 200, 40)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.Equal(t, file, c.Source)
		assert.Equal(t, 0, c.Page)
		assert.NotEmpty(t, c.Content)
	}
}

func TestPDFLoaderInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("this is not a pdf"), 0644))

	_, err := NewPDFLoader().Load(path)
	require.Error(t, err)

	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, path, loadErr.Path)
}

func TestPDFLoaderMissingFile(t *testing.T) {
	_, err := NewPDFLoader().Load(filepath.Join(t.TempDir(), "missing.pdf"))
	require.Error(t, err)

	var loadErr *LoadError
	assert.True(t, errors.As(err, &loadErr))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoaderFactory(t *testing.T) {
	loader, err := LoaderFactory("notes/Lecture.PDF")
	require.NoError(t, err)
	assert.IsType(t, &PDFLoader{}, loader)

	_, err = LoaderFactory("notes.txt")
	assert.ErrorIs(t, err, ErrUnsupportedType)

	assert.True(t, IsSupported("a.pdf"))
	assert.False(t, IsSupported("a.docx"))
	assert.False(t, IsSupported("pdf"))
}
