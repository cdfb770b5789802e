package validate

import (
	"fmt"

	"pdf-summarizer/internal/extract"
)

// Reason identifies why a document was rejected.
type Reason string

const (
	ReasonEncrypted         Reason = "encrypted"
	ReasonTooLarge          Reason = "too_large"
	ReasonInsufficientText  Reason = "insufficient_text"
	ReasonTooFewPages       Reason = "too_few_pages"
	ReasonTooManyEmptyPages Reason = "too_many_empty_pages"
)

// Constraints are the acceptance thresholds, passed in explicitly so the
// validator stays testable without environment mutation.
type Constraints struct {
	MaxFileSize       int64
	MinWords          int
	MinPages          int
	MaxEmptyPageRatio float64
}

// Result is the terminal outcome of validation: either accepted, or rejected
// with a reason and a detail string precise enough to display verbatim.
type Result struct {
	Accepted bool
	Reason   Reason
	Detail   string
}

// emptyPageWordThreshold marks pages with near-zero extractable text
// (page numbers, lone headers) as empty for the ratio check.
const emptyPageWordThreshold = 10

func accepted() Result { return Result{Accepted: true} }

func rejected(reason Reason, format string, args ...any) Result {
	return Result{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// Check runs the acceptance checks in order, short-circuiting on the first
// failure: encryption, file size, total word count, page count, empty-page
// ratio. It only inspects the already-extracted document; no side effects.
func Check(doc extract.Document, fileSize int64, c Constraints) Result {
	if doc.Encrypted {
		return rejected(ReasonEncrypted, "document is password-protected; an unencrypted PDF is required")
	}
	if c.MaxFileSize > 0 && fileSize > c.MaxFileSize {
		return rejected(ReasonTooLarge, "file is %d bytes, maximum allowed is %d", fileSize, c.MaxFileSize)
	}
	if words := doc.WordCount(); words < c.MinWords {
		return rejected(ReasonInsufficientText, "%d words found, %d required", words, c.MinWords)
	}
	if doc.PageCount < c.MinPages {
		return rejected(ReasonTooFewPages, "%d pages found, %d required", doc.PageCount, c.MinPages)
	}
	if empty, ratio := emptyPages(doc); doc.PageCount > 0 && ratio > c.MaxEmptyPageRatio {
		return rejected(ReasonTooManyEmptyPages, "%d of %d pages have no extractable text", empty, doc.PageCount)
	}
	return accepted()
}

func emptyPages(doc extract.Document) (int, float64) {
	if doc.PageCount == 0 {
		return 0, 0
	}
	empty := 0
	for _, words := range doc.PageWordCounts {
		if words < emptyPageWordThreshold {
			empty++
		}
	}
	return empty, float64(empty) / float64(doc.PageCount)
}
