package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"pdf-summarizer/internal/app"
	"pdf-summarizer/internal/httputil"
	"pdf-summarizer/internal/queue"
	"pdf-summarizer/internal/store"
	"pdf-summarizer/internal/summarize"
)

type summarizeTaskPayload struct {
	DocumentID uuid.UUID `json:"document_id"`
	Filename   string    `json:"filename"`
	Level      string    `json:"level"`
	Content    []byte    `json:"content"`
}

type uploadRequest struct {
	Level string `validate:"required,oneof=concise balanced comprehensive"`
}

func main() {
	deps, err := app.Build()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	r := httputil.NewRouter(deps.Log)

	r.Post("/api/documents", uploadHandler(deps))
	r.Get("/api/documents/{id}", statusHandler(deps))
	r.Get("/api/documents/{id}/summary", summaryHandler(deps))
	r.Get("/healthz", httputil.HealthHandler(deps))

	addr := fmt.Sprintf(":%d", deps.Config.Port)
	deps.Log.Info("gateway listening", "addr", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		deps.Log.Error("server failed", "err", err)
	}
}

func uploadHandler(deps app.Deps) http.HandlerFunc {
	maxFileSize := deps.Config.MaxUploadSize
	validate := validator.New()

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		// Validate file size before parsing
		if r.ContentLength > maxFileSize {
			httputil.Fail(deps.Log, w, fmt.Sprintf("file too large (max %d bytes)", maxFileSize), nil, http.StatusBadRequest)
			return
		}

		req := uploadRequest{Level: r.FormValue("level")}
		if req.Level == "" {
			req.Level = string(summarize.LevelConcise)
		}
		if err := validate.Struct(req); err != nil {
			httputil.Fail(deps.Log, w, "level must be one of: concise, balanced, comprehensive", err, http.StatusBadRequest)
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			httputil.Fail(deps.Log, w, "file is required", err, http.StatusBadRequest)
			return
		}
		defer file.Close()

		if header.Size > maxFileSize {
			httputil.Fail(deps.Log, w, fmt.Sprintf("file too large (max %d bytes)", maxFileSize), nil, http.StatusBadRequest)
			return
		}

		if !isPDF(header.Filename, header.Header.Get("Content-Type")) {
			httputil.Fail(deps.Log, w, "unsupported file type (only PDF allowed)", nil, http.StatusBadRequest)
			return
		}

		content, err := io.ReadAll(file)
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to read file", err, http.StatusInternalServerError)
			return
		}

		doc, err := deps.Store.CreateDocument(ctx, header.Filename, req.Level)
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to persist document", err, http.StatusInternalServerError)
			return
		}

		payload := summarizeTaskPayload{
			DocumentID: doc.ID,
			Filename:   header.Filename,
			Level:      req.Level,
			Content:    content,
		}
		body, err := json.Marshal(payload)
		if err != nil {
			fail(deps, ctx, w, "marshal payload failed", err, doc.ID, http.StatusInternalServerError, true)
			return
		}
		task := queue.Task{Type: queue.TaskTypeSummarize, Payload: body}
		if err := queue.EnqueueWithRetry(ctx, deps.Queue, task, 3, 200*time.Millisecond); err != nil {
			fail(deps, ctx, w, "failed to enqueue document; please retry", err, doc.ID, http.StatusInternalServerError, true)
			return
		}

		httputil.WriteJSON(w, http.StatusAccepted, map[string]any{
			"document_id": doc.ID.String(),
			"status":      doc.Status,
			"level":       doc.Level,
		})
	}
}

// isPDF accepts a PDF by content type, falling back to the file extension
// when the client omitted the header.
func isPDF(filename, contentType string) bool {
	if contentType == "application/pdf" {
		return true
	}
	if contentType == "" {
		return strings.ToLower(filepath.Ext(filename)) == ".pdf"
	}
	return false
}

// fail is gateway-specific error handler that can mark documents as failed
func fail(deps app.Deps, ctx context.Context, w http.ResponseWriter, message string, err error, docID uuid.UUID, status int, markFailed bool) {
	log := deps.Log.With("document_id", docID)
	if markFailed && docID != uuid.Nil {
		if upErr := deps.Store.UpdateDocumentStatus(ctx, docID, store.StatusFailed, message); upErr != nil {
			log.Error("failed to mark document failed", "err", upErr)
		}
	}

	httputil.Fail(log, w, message, err, status)
}

func statusHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			httputil.Fail(deps.Log, w, "invalid document id", err, http.StatusBadRequest)
			return
		}
		doc, err := deps.Store.GetDocument(r.Context(), docID)
		if err != nil {
			httputil.Fail(deps.Log, w, "document not found", err, http.StatusNotFound)
			return
		}
		progress, err := deps.Store.GetProgress(r.Context(), docID)
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to load progress", err, http.StatusInternalServerError)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"document_id": doc.ID.String(),
			"filename":    doc.Filename,
			"status":      doc.Status,
			"level":       doc.Level,
			"detail":      doc.Detail,
			"stage":       progress.Stage,
			"chunks_done": progress.ChunksDone,
			"chunk_total": progress.ChunkTotal,
		})
	}
}

func summaryHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			httputil.Fail(deps.Log, w, "invalid document id", err, http.StatusBadRequest)
			return
		}
		sum, err := deps.Store.GetSummary(r.Context(), docID)
		if err != nil {
			httputil.Fail(deps.Log, w, "summary not ready", err, http.StatusNotFound)
			return
		}

		// The final artifact is also served as plain UTF-8 text.
		if strings.Contains(r.Header.Get("Accept"), "text/plain") {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			if _, err := io.WriteString(w, sum.Text); err != nil {
				deps.Log.Error("failed to write summary text", "err", err)
			}
			return
		}

		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"document_id": docID.String(),
			"summary":     sum.Text,
			"word_count":  sum.WordCount,
			"level":       sum.Level,
			"chunk_count": sum.ChunkCount,
		})
	}
}
