package extract

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"pdf-summarizer/internal/chunker"
)

// Document is the extracted text body plus per-page statistics. It is built
// once per pipeline run and never mutated afterwards.
type Document struct {
	Text           string
	PageCount      int
	PageWordCounts []int
	Encrypted      bool
}

// WordCount reports the total extractable word count of the document.
func (d Document) WordCount() int {
	return chunker.WordCount(d.Text)
}

// ErrNoTextLayer indicates a structurally valid PDF whose pages yielded no
// extractable text (scanned or image-only content without OCR).
var ErrNoTextLayer = errors.New("no extractable text layer")

// Bytes extracts the text layer of a PDF held in memory. Encrypted documents
// are reported via Document.Encrypted rather than an error so that the
// validator can reject them with a display-ready reason. Pages that fail to
// extract are counted as empty rather than failing the whole document.
func Bytes(content []byte) (Document, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		if isEncryptedErr(err) {
			return Document{Encrypted: true}, nil
		}
		return Document{}, fmt.Errorf("read pdf: %w", err)
	}

	numPages := reader.NumPage()
	doc := Document{
		PageCount:      numPages,
		PageWordCounts: make([]int, 0, numPages),
	}

	var textBuilder strings.Builder
	for pageNum := 1; pageNum <= numPages; pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() || page.V.Key("Contents").Kind() == pdf.Null {
			doc.PageWordCounts = append(doc.PageWordCounts, 0)
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip pages that fail to extract
			doc.PageWordCounts = append(doc.PageWordCounts, 0)
			continue
		}
		doc.PageWordCounts = append(doc.PageWordCounts, chunker.WordCount(text))
		textBuilder.WriteString(text)
		textBuilder.WriteString("\n\n")
	}

	doc.Text = strings.TrimSpace(textBuilder.String())
	if doc.Text == "" && numPages > 0 {
		return doc, ErrNoTextLayer
	}
	return doc, nil
}

// isEncryptedErr detects the reader's password failure without depending on
// the exact error value across library versions.
func isEncryptedErr(err error) bool {
	if errors.Is(err, pdf.ErrInvalidPassword) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "encrypted")
}
