package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"pdf-summarizer/internal/app"
	"pdf-summarizer/internal/cache"
	"pdf-summarizer/internal/extract"
	"pdf-summarizer/internal/httputil"
	"pdf-summarizer/internal/pipeline"
	"pdf-summarizer/internal/queue"
	"pdf-summarizer/internal/store"
	"pdf-summarizer/internal/summarize"
	"pdf-summarizer/internal/validate"
)

type summarizeTaskPayload struct {
	DocumentID uuid.UUID `json:"document_id"`
	Filename   string    `json:"filename"`
	Level      string    `json:"level"`
	Content    []byte    `json:"content"`
}

func main() {
	deps, err := app.Build()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	deps.Log.Info("summarizer worker starting")

	g, ctx := errgroup.WithContext(context.Background())

	// Run queue worker
	g.Go(func() error {
		return deps.Queue.Worker(ctx, queue.TaskTypeSummarize, func(ctx context.Context, task queue.Task) error {
			var payload summarizeTaskPayload
			if err := json.Unmarshal(task.Payload, &payload); err != nil {
				return err
			}
			return handleSummarize(ctx, deps, payload, nil)
		})
	})

	// Run health check server
	g.Go(func() error {
		return httputil.ServeHealth(deps, "summarizer")
	})

	// Wait for either to fail
	if err := g.Wait(); err != nil {
		deps.Log.Error("summarizer service stopped", "err", err)
	}
}

// handleSummarize runs one summarization task end to end. It returns an
// error only for failures worth redelivering (model calls, storage); runs
// that are terminally rejected or malformed consume the task. extractFn may
// be nil, in which case the PDF extractor is used.
func handleSummarize(ctx context.Context, deps app.Deps, payload summarizeTaskPayload, extractFn func([]byte) (extract.Document, error)) error {
	log := deps.Log.With("document_id", payload.DocumentID, "filename", payload.Filename)

	level, err := summarize.ParseLevel(payload.Level)
	if err != nil {
		markTerminal(ctx, deps, payload.DocumentID, store.StatusFailed, err.Error(), log)
		return nil
	}

	// A document already summarized at this level skips the model calls.
	key := cache.Key(payload.Content, payload.Level)
	if cached, err := deps.Cache.GetSummary(ctx, key); err != nil {
		log.Warn("cache lookup failed", "err", err)
	} else if cached != nil {
		log.Info("serving summary from cache")
		return finish(ctx, deps, payload.DocumentID, summarize.Result{
			Text:       cached.Text,
			WordCount:  cached.WordCount,
			Level:      summarize.DetailLevel(cached.Level),
			ChunkCount: cached.ChunkCount,
		})
	}

	if extractFn == nil {
		extractFn = extract.Bytes
	}
	// Persist per-page statistics as a side effect of extraction so the
	// status endpoint can report them.
	withStats := func(content []byte) (extract.Document, error) {
		doc, err := extractFn(content)
		if err == nil {
			if statsErr := deps.Store.SetDocumentStats(ctx, payload.DocumentID, doc.PageCount, doc.PageWordCounts); statsErr != nil {
				log.Warn("failed to persist document stats", "err", statsErr)
			}
		}
		return doc, err
	}

	runner := pipeline.NewRunner(withStats, deps.LLM, pipeline.Options{
		Constraints: validate.Constraints{
			MaxFileSize:       deps.Config.MaxUploadSize,
			MinWords:          deps.Config.MinWords,
			MinPages:          deps.Config.MinPages,
			MaxEmptyPageRatio: deps.Config.MaxEmptyPageRatio,
		},
		MaxChunkWords:        deps.Config.MaxChunkWords,
		MinChunkSummaryWords: deps.Config.MinChunkSummaryWords,
	}, deps.Log)

	result, err := runner.Run(ctx, payload.Content, level, func(p pipeline.Progress) {
		if upErr := deps.Store.UpdateProgress(ctx, payload.DocumentID, store.Progress{
			Stage:      string(p.Stage),
			ChunksDone: p.ChunksDone,
			ChunkTotal: p.ChunkTotal,
		}); upErr != nil {
			log.Warn("failed to persist progress", "err", upErr)
		}
	})
	if err != nil {
		return handleRunError(ctx, deps, payload.DocumentID, err, log)
	}

	if err := finish(ctx, deps, payload.DocumentID, result); err != nil {
		return err
	}
	if err := deps.Cache.SetSummary(ctx, key, &cache.Summary{
		Text:       result.Text,
		WordCount:  result.WordCount,
		Level:      string(result.Level),
		ChunkCount: result.ChunkCount,
	}, deps.Config.CacheTTL); err != nil {
		log.Warn("failed to cache summary", "err", err)
	}
	log.Info("summary ready", "words", result.WordCount, "chunks", result.ChunkCount)
	return nil
}

// handleRunError maps pipeline failures onto document status and decides
// whether the task is worth redelivering.
func handleRunError(ctx context.Context, deps app.Deps, docID uuid.UUID, err error, log *slog.Logger) error {
	var perr *pipeline.Error
	if !errors.As(err, &perr) {
		markTerminal(ctx, deps, docID, store.StatusFailed, err.Error(), log)
		return err
	}

	switch perr.Kind {
	case pipeline.KindRejected:
		// Rejections are terminal: redelivery cannot change the document.
		markTerminal(ctx, deps, docID, store.StatusRejected, perr.Detail, log)
		return nil
	case pipeline.KindExtractionFailed:
		markTerminal(ctx, deps, docID, store.StatusFailed, perr.Error(), log)
		return nil
	default:
		// Model failures and cancellations are retryable via queue redelivery;
		// the run recomputes from the payload, so retrying is safe.
		markTerminal(ctx, deps, docID, store.StatusFailed, perr.Error(), log)
		return err
	}
}

func finish(ctx context.Context, deps app.Deps, docID uuid.UUID, result summarize.Result) error {
	if err := deps.Store.SaveSummary(ctx, store.Summary{
		DocumentID: docID,
		Text:       result.Text,
		WordCount:  result.WordCount,
		Level:      string(result.Level),
		ChunkCount: result.ChunkCount,
	}); err != nil {
		return err
	}
	return deps.Store.UpdateDocumentStatus(ctx, docID, store.StatusReady, "")
}

func markTerminal(ctx context.Context, deps app.Deps, docID uuid.UUID, status store.DocumentStatus, detail string, log *slog.Logger) {
	if err := deps.Store.UpdateDocumentStatus(ctx, docID, status, detail); err != nil {
		log.Error("failed to update document status", "status", status, "err", err)
	}
}
