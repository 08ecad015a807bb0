// Package extract turns uploaded files into plain text plus approximate page offsets.
package extract

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/kailas-cloud/unihelp/internal/domain"
	"github.com/kailas-cloud/unihelp/internal/domain/chunk"
	"github.com/kailas-cloud/unihelp/internal/domain/document"
)

// Result is the text of one file.
type Result struct {
	Text       string
	Pages      int
	PageBreaks []int // rune offsets into the normalized text, never nil
}

// Extractor dispatches on file extension.
type Extractor struct {
	maxPDFBytes int64
}

// New creates an extractor. maxPDFBytes <= 0 disables the size check.
func New(maxPDFBytes int64) *Extractor {
	return &Extractor{maxPDFBytes: maxPDFBytes}
}

// Extract reads data according to the extension of name.
func (e *Extractor) Extract(name string, data []byte) (Result, error) {
	format, ok := document.FormatOf(name)
	if !ok {
		return Result{}, fmt.Errorf("%q: %w", name, domain.ErrUnsupportedFormat)
	}

	switch format {
	case document.FormatPDF:
		return e.extractPDF(data)
	default:
		return plainText(data), nil
	}
}

// plainText yields a single page.
func plainText(data []byte) Result {
	text := strings.TrimPrefix(string(data), "\ufeff")
	text = strings.ToValidUTF8(text, "")
	return Result{Text: text, Pages: 1, PageBreaks: []int{}}
}

func (e *Extractor) extractPDF(data []byte) (Result, error) {
	if e.maxPDFBytes > 0 && int64(len(data)) > e.maxPDFBytes {
		return Result{}, fmt.Errorf("pdf exceeds %d bytes: %w", e.maxPDFBytes, domain.ErrInvalidRequest)
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Result{}, fmt.Errorf("read pdf: %v: %w", err, domain.ErrInsufficientContent)
	}

	n := reader.NumPage()
	pages := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Страница без текстового слоя: пропускаем, остальные страницы ещё полезны
			continue
		}
		pages = append(pages, text)
	}

	return fromPages(pages, n), nil
}

// fromPages joins page texts and spreads page breaks evenly over the
// normalized result. Page density is assumed uniform.
func fromPages(pages []string, pageCount int) Result {
	text := strings.Join(pages, "\n")
	total := utf8.RuneCountInString(chunk.Normalize(text))
	return Result{
		Text:       text,
		Pages:      pageCount,
		PageBreaks: chunk.EvenPageBreaks(total, pageCount),
	}
}
