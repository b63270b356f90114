package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

const (
	// MinNativeLen is the caller-side threshold below which native
	// extraction is considered unusable and OCR should be tried. PDFs
	// that are image-only or corrupt typically land under it.
	MinNativeLen = 20

	// MinUsableLen is the final insufficiency threshold applied to
	// trimmed text after all extraction attempts.
	MinUsableLen = 10
)

// Text parses the PDF's text objects and concatenates them in document
// order. Structurally broken pages are skipped; a structurally broken
// document returns an error.
func Text(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	var b strings.Builder
	totalPages := reader.NumPage()
	for i := 1; i <= totalPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip problematic pages instead of failing the document.
			continue
		}
		text = Normalize(text)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(text)
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("no text extracted from pdf")
	}
	return b.String(), nil
}

// Normalize strips NUL bytes and invalid UTF-8, unifies line endings and
// trims surrounding whitespace.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\x00", " ")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ToValidUTF8(text, "")
	return strings.TrimSpace(text)
}

// Usable reports whether trimmed text meets the final insufficiency
// threshold shared by the native and OCR paths.
func Usable(text string) bool {
	return len(strings.TrimSpace(text)) >= MinUsableLen
}
