// Package document describes source documents known to the index.
package document

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// MinContentLength is the minimum number of non-space characters an
// extracted document must carry to be indexed.
const MinContentLength = 20

// MaxNameLength bounds document names (runes).
const MaxNameLength = 255

// Format is a supported source file format, keyed by lower-cased extension.
type Format string

const (
	// FormatPDF is a PDF file; text is extracted page by page.
	FormatPDF Format = ".pdf"
	// FormatText is plain UTF-8 text.
	FormatText Format = ".txt"
	// FormatMarkdown is treated as plain text.
	FormatMarkdown Format = ".md"
)

// Formats returns all supported formats.
func Formats() []Format {
	return []Format{FormatPDF, FormatText, FormatMarkdown}
}

// FormatOf returns the format of a file name by extension.
func FormatOf(name string) (Format, bool) {
	f := Format(strings.ToLower(filepath.Ext(name)))
	switch f {
	case FormatPDF, FormatText, FormatMarkdown:
		return f, true
	default:
		return "", false
	}
}

// ValidateName rejects empty names, names with path components and overlong names.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("document name is required")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return fmt.Errorf("document name exceeds %d characters", MaxNameLength)
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("document name must not contain path separators")
	}
	return nil
}

// HasEnoughContent reports whether text carries at least MinContentLength
// non-space characters.
func HasEnoughContent(text string) bool {
	n := 0
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		n++
		if n >= MinContentLength {
			return true
		}
	}
	return false
}

// Summary is a document as seen from the index.
type Summary struct {
	Name   string
	Chunks int
}

// IngestResult describes one successful ingestion.
type IngestResult struct {
	DocumentName  string
	ChunksCreated int
	PageCount     int
	Duration      time.Duration
}
