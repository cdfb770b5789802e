package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"pdf-summarizer/internal/chunker"
	"pdf-summarizer/internal/extract"
	"pdf-summarizer/internal/llm"
	"pdf-summarizer/internal/summarize"
	"pdf-summarizer/internal/validate"
)

// State names the pipeline stage a run is in. A run is single-shot: states
// advance Idle → Validating → Chunking → Summarizing → Synthesizing → Done,
// or jump to Failed from any non-terminal state, and never re-enter.
type State string

const (
	StateIdle         State = "idle"
	StateValidating   State = "validating"
	StateChunking     State = "chunking"
	StateSummarizing  State = "summarizing"
	StateSynthesizing State = "synthesizing"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	KindExtractionFailed Kind = "extraction_failed"
	KindRejected         Kind = "rejected"
	KindModelCallFailed  Kind = "model_call_failed"
	KindSynthesisFailed  Kind = "synthesis_failed"
	KindCancelled        Kind = "cancelled"
)

// Error is the typed failure a run terminates with. Detail is precise enough
// to display verbatim. ChunkIndex is -1 unless a specific chunk failed.
type Error struct {
	Kind       Kind
	Stage      State
	ChunkIndex int
	Reason     validate.Reason
	Detail     string
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindRejected:
		return fmt.Sprintf("document rejected (%s): %s", e.Reason, e.Detail)
	case KindModelCallFailed:
		return fmt.Sprintf("model call failed at chunk %d: %v", e.ChunkIndex, e.Err)
	case KindCancelled:
		return "summarization cancelled"
	default:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Progress is emitted on every stage transition and after each completed
// chunk summary. ChunkTotal is zero until chunking has run.
type Progress struct {
	Stage      State
	ChunksDone int
	ChunkTotal int
}

// ProgressFunc receives progress notifications. It is called from the
// pipeline goroutine; implementations must not block.
type ProgressFunc func(Progress)

// Options carries the thresholds a run is judged against.
type Options struct {
	Constraints          validate.Constraints
	MaxChunkWords        int
	MinChunkSummaryWords int
}

// Runner executes summarization runs. Each run owns its document, chunks,
// and intermediate summaries exclusively; Runner itself holds no per-run
// state, so concurrent runs do not interfere.
type Runner struct {
	extractFn  func([]byte) (extract.Document, error)
	summarizer *summarize.Summarizer
	opts       Options
	log        *slog.Logger
}

// NewRunner builds a Runner. extractFn may be nil, in which case the PDF
// extractor is used.
func NewRunner(extractFn func([]byte) (extract.Document, error), client llm.Client, opts Options, log *slog.Logger) *Runner {
	if extractFn == nil {
		extractFn = extract.Bytes
	}
	return &Runner{
		extractFn:  extractFn,
		summarizer: summarize.New(client, opts.MinChunkSummaryWords),
		opts:       opts,
		log:        log,
	}
}

// Run executes one full pipeline pass over the raw document bytes: extract,
// validate, chunk, summarize each chunk, synthesize. It blocks until the run
// reaches Done or Failed; callers wanting a responsive primary thread invoke
// it from their own goroutine. Cancellation is honored at chunk boundaries:
// a model call already in flight is not aborted, but no further calls start.
func (r *Runner) Run(ctx context.Context, content []byte, level summarize.DetailLevel, progress ProgressFunc) (summarize.Result, error) {
	notify := func(p Progress) {
		if progress != nil {
			progress(p)
		}
	}

	notify(Progress{Stage: StateValidating})
	doc, err := r.extractFn(content)
	if err != nil {
		if errors.Is(err, extract.ErrNoTextLayer) {
			return summarize.Result{}, &Error{
				Kind:       KindRejected,
				Stage:      StateValidating,
				ChunkIndex: -1,
				Reason:     validate.ReasonInsufficientText,
				Detail:     "no text could be extracted; the file may contain only images or scanned content without OCR",
				Err:        err,
			}
		}
		return summarize.Result{}, &Error{Kind: KindExtractionFailed, Stage: StateValidating, ChunkIndex: -1, Detail: err.Error(), Err: err}
	}

	if res := validate.Check(doc, int64(len(content)), r.opts.Constraints); !res.Accepted {
		return summarize.Result{}, &Error{
			Kind:       KindRejected,
			Stage:      StateValidating,
			ChunkIndex: -1,
			Reason:     res.Reason,
			Detail:     res.Detail,
		}
	}
	if err := r.cancelled(ctx, StateValidating); err != nil {
		return summarize.Result{}, err
	}

	notify(Progress{Stage: StateChunking})
	chunks := chunker.Split(doc.Text, r.opts.MaxChunkWords)
	r.log.Debug("document chunked", "chunks", len(chunks), "words", doc.WordCount(), "pages", doc.PageCount)
	if err := r.cancelled(ctx, StateChunking); err != nil {
		return summarize.Result{}, err
	}

	total := len(chunks)
	notify(Progress{Stage: StateSummarizing, ChunkTotal: total})
	summaries := make([]string, 0, total)
	for _, chunk := range chunks {
		if err := r.cancelled(ctx, StateSummarizing); err != nil {
			return summarize.Result{}, err
		}
		sum, err := r.summarizer.SummarizeChunk(ctx, chunk, level, total)
		if err != nil {
			return summarize.Result{}, &Error{
				Kind:       KindModelCallFailed,
				Stage:      StateSummarizing,
				ChunkIndex: chunk.Index,
				Detail:     err.Error(),
				Err:        err,
			}
		}
		summaries = append(summaries, sum)
		notify(Progress{Stage: StateSummarizing, ChunksDone: chunk.Index + 1, ChunkTotal: total})
	}

	if err := r.cancelled(ctx, StateSummarizing); err != nil {
		return summarize.Result{}, err
	}
	notify(Progress{Stage: StateSynthesizing, ChunksDone: total, ChunkTotal: total})
	result, err := r.summarizer.Synthesize(ctx, summaries, level)
	if err != nil {
		return summarize.Result{}, &Error{Kind: KindSynthesisFailed, Stage: StateSynthesizing, ChunkIndex: -1, Detail: err.Error(), Err: err}
	}

	notify(Progress{Stage: StateDone, ChunksDone: total, ChunkTotal: total})
	r.log.Info("summary produced", "level", level, "chunks", result.ChunkCount, "words", result.WordCount)
	return result, nil
}

func (r *Runner) cancelled(ctx context.Context, stage State) *Error {
	if ctx.Err() == nil {
		return nil
	}
	return &Error{Kind: KindCancelled, Stage: stage, ChunkIndex: -1, Err: ctx.Err()}
}
