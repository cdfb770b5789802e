package chunker

import (
	"regexp"
	"strings"
)

// Chunk is a contiguous segment of the document text, bounded by a word ceiling.
type Chunk struct {
	Index     int
	Text      string
	WordCount int
}

const defaultMaxWords = 6000

// sentenceFallbackMinChars guards the sentence fallback: short texts with few
// paragraphs are left as-is instead of being shredded into sentences.
const sentenceFallbackMinChars = 500

var (
	paragraphRe = regexp.MustCompile(`\n\s*\n`)
	sentenceRe  = regexp.MustCompile(`[.!?]+`)
)

// WordCount counts whitespace-delimited words. It is the single word
// measurement used across validation, chunking, and summary sizing.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// Split partitions text into ordered chunks along semantic boundaries.
// Segments are paragraphs (blank-line separated); when the text has at most
// two paragraphs but substantial length, sentence boundaries are used
// instead. Consecutive segments accumulate greedily until the next one would
// push the chunk past maxWords. A single segment larger than the ceiling
// becomes its own oversized chunk rather than being cut mid-sentence.
func Split(text string, maxWords int) []Chunk {
	if maxWords <= 0 {
		maxWords = defaultMaxWords
	}

	segments := segment(text)
	if len(segments) == 0 {
		return nil
	}

	var chunks []Chunk
	var current []string
	currentWords := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, Chunk{
			Index:     len(chunks),
			Text:      strings.Join(current, "\n\n"),
			WordCount: currentWords,
		})
		current = nil
		currentWords = 0
	}

	for _, seg := range segments {
		segWords := WordCount(seg)
		if currentWords+segWords > maxWords && len(current) > 0 {
			flush()
		}
		current = append(current, seg)
		currentWords += segWords
	}
	flush()

	return chunks
}

// segment splits text into paragraphs, falling back to sentences when the
// text is substantial but has too few paragraph breaks to chunk on.
func segment(text string) []string {
	paragraphs := nonEmpty(paragraphRe.Split(text, -1))
	if len(paragraphs) <= 2 && len(text) > sentenceFallbackMinChars {
		if sentences := nonEmpty(sentenceRe.Split(text, -1)); len(sentences) > len(paragraphs) {
			return sentences
		}
	}
	return paragraphs
}

func nonEmpty(parts []string) []string {
	out := parts[:0:0]
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
