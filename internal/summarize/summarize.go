package summarize

import (
	"context"
	"fmt"
	"strings"

	"pdf-summarizer/internal/chunker"
	"pdf-summarizer/internal/llm"
)

// Result is the terminal artifact of a summarization run. WordCount is
// measured locally on the returned text, never taken from the model.
type Result struct {
	Text       string
	WordCount  int
	Level      DetailLevel
	ChunkCount int
}

// tokensPerWord is the usual heuristic for English text, used to convert
// word targets into completion token budgets.
const tokensPerWord = 1.3

func estimateTokens(words int) int {
	return int(float64(words) * tokensPerWord)
}

// Summarizer produces intermediate chunk summaries and synthesizes them into
// one final summary. Every method issues exactly one model call.
type Summarizer struct {
	llm           llm.Client
	minChunkWords int
}

// New builds a Summarizer. minChunkWords floors the per-chunk summary target
// so documents with many chunks still keep each intermediate summary
// substantive enough for synthesis.
func New(client llm.Client, minChunkWords int) *Summarizer {
	if minChunkWords <= 0 {
		minChunkWords = 150
	}
	return &Summarizer{llm: client, minChunkWords: minChunkWords}
}

// chunkTargetWords apportions the level's overall target across chunks,
// floored at minChunkWords.
func (s *Summarizer) chunkTargetWords(level DetailLevel, totalChunks int) int {
	if totalChunks < 1 {
		totalChunks = 1
	}
	target := level.TargetWords() / totalChunks
	if target < s.minChunkWords {
		target = s.minChunkWords
	}
	return target
}

// SummarizeChunk runs one model call over a single chunk and returns its
// intermediate summary.
func (s *Summarizer) SummarizeChunk(ctx context.Context, chunk chunker.Chunk, level DetailLevel, totalChunks int) (string, error) {
	target := s.chunkTargetWords(level, totalChunks)

	system := fmt.Sprintf("You are an expert summarizer specializing in %s summaries. "+
		"You are processing one segment of a larger document as part of a multi-stage summarization, so thoroughness is crucial.",
		level.description())

	prompt := fmt.Sprintf(`%s

Summarize the following text segment in about %d words. Preserve facts, names, dates, and figures verbatim. Do not introduce any information that is not present in the text.

Text segment:
%s`, level.instruction(), target, chunk.Text)

	out, err := s.llm.Complete(ctx, system, prompt, estimateTokens(target*2))
	if err != nil {
		return "", fmt.Errorf("summarize chunk %d: %w", chunk.Index, err)
	}
	return strings.TrimSpace(out), nil
}

// Synthesize merges the ordered intermediate summaries into the final
// summary with a single model call. A single-chunk run is re-passed through
// one resizing call instead, since that summary already has full context.
// Either way total model calls for a run stay at chunk count + 1.
func (s *Summarizer) Synthesize(ctx context.Context, summaries []string, level DetailLevel) (Result, error) {
	if len(summaries) == 0 {
		return Result{}, fmt.Errorf("no intermediate summaries to synthesize")
	}

	target := level.TargetWords()
	var system, prompt string
	if len(summaries) == 1 {
		system = fmt.Sprintf("You are an expert editor producing %s summaries.", level.description())
		prompt = fmt.Sprintf(`%s

Rewrite the following summary to approximately %d words, expanding or condensing as needed. Keep all facts, names, and figures verbatim and do not add new information.

Summary:
%s`, level.instruction(), target, summaries[0])
	} else {
		system = fmt.Sprintf("You are a master synthesizer capable of creating %s summaries. "+
			"You integrate multiple section summaries into one cohesive final summary that flows naturally.",
			level.description())
		prompt = fmt.Sprintf(`%s

Below are ordered summaries of consecutive sections of a single document. Synthesize them into one final summary that:

1. Preserves the document's original order of ideas
2. Eliminates points repeated across section boundaries
3. Reads as continuous prose, not a list of section summaries
4. Is approximately %d words long

%s

Final summary:`, level.instruction(), target, joinWithMarkers(summaries))
	}

	out, err := s.llm.Complete(ctx, system, prompt, estimateTokens(target))
	if err != nil {
		return Result{}, fmt.Errorf("synthesize final summary: %w", err)
	}

	text := strings.TrimSpace(out)
	return Result{
		Text:       text,
		WordCount:  chunker.WordCount(text),
		Level:      level,
		ChunkCount: len(summaries),
	}, nil
}

// joinWithMarkers concatenates intermediate summaries with explicit ordinal
// markers so the model can honor document order.
func joinWithMarkers(summaries []string) string {
	var b strings.Builder
	for i, sum := range summaries {
		fmt.Fprintf(&b, "=== Section %d of %d ===\n%s\n\n", i+1, len(summaries), sum)
	}
	return strings.TrimSpace(b.String())
}
