package document

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// ErrNoPages PDF中没有任何页面
var ErrNoPages = errors.New("pdf has no pages")

// PDFLoader PDF文档加载器
// pdfcpu负责校验文件和统计页数，文本按字体的ToUnicode映射解码
type PDFLoader struct{}

// NewPDFLoader 创建一个新的PDF加载器
func NewPDFLoader() Loader {
	return &PDFLoader{}
}

// Load 读取PDF文件，按页提取文本
// 页码从0开始，每页的Source均为filePath
func (l *PDFLoader) Load(filePath string) ([]Document, error) {
	if _, err := os.Stat(filePath); err != nil {
		return nil, &LoadError{Path: filePath, Err: err}
	}

	pageCount, err := api.PageCountFile(filePath)
	if err != nil {
		return nil, &LoadError{Path: filePath, Err: fmt.Errorf("invalid pdf: %w", err)}
	}
	if pageCount == 0 {
		return nil, &LoadError{Path: filePath, Err: ErrNoPages}
	}

	pages, err := extractPages(filePath, pageCount)
	if err != nil {
		return nil, &LoadError{Path: filePath, Err: err}
	}

	total := strconv.Itoa(pageCount)
	docs := make([]Document, pageCount)
	for i, text := range pages {
		docs[i] = Document{
			Content: text,
			Source:  filePath,
			Page:    i,
			Meta:    map[string]string{"total_pages": total},
		}
	}
	return docs, nil
}

// extractPages 返回每页的纯文本，没有内容流的页面为空字符串
func extractPages(filePath string, pageCount int) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extract text: %v", r)
		}
	}()

	f, reader, err := pdf.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	pages = make([]string, pageCount)
	for i := range pages {
		if i >= reader.NumPage() {
			break
		}
		page := reader.Page(i + 1)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", i+1, err)
		}
		pages[i] = cleanText(text)
	}
	return pages, nil
}

// cleanText 去掉每行首尾空白和空行
func cleanText(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
