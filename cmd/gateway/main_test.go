package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"pdf-summarizer/internal/app"
	"pdf-summarizer/internal/config"
	"pdf-summarizer/internal/queue"
	"pdf-summarizer/internal/store"
)

func newTestDeps(st store.Store, q queue.Queue) app.Deps {
	return app.Deps{
		Store: st,
		Queue: q,
		Config: config.Config{
			MaxUploadSize: 1024 * 1024, // 1MB for tests
		},
		Log: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestUploadHandler(t *testing.T) {
	validDocID := uuid.New()

	tests := []struct {
		name          string
		filename      string
		contentType   string
		level         string
		content       []byte
		setup         func(*store.MockStore, *queue.MockQueue)
		wantStatus    int
		checkResponse func(*testing.T, *http.Response)
	}{
		{
			name:        "successful upload",
			filename:    "report.pdf",
			contentType: "application/pdf",
			level:       "balanced",
			content:     []byte("%PDF-1.4 fake"),
			setup: func(s *store.MockStore, q *queue.MockQueue) {
				s.On("CreateDocument", mock.Anything, "report.pdf", "balanced").
					Return(store.Document{ID: validDocID, Status: store.StatusProcessing, Level: "balanced"}, nil).Once()
				q.On("Enqueue", mock.Anything, mock.MatchedBy(func(task queue.Task) bool {
					return task.Type == queue.TaskTypeSummarize
				})).Return(nil).Once()
			},
			wantStatus: http.StatusAccepted,
			checkResponse: func(t *testing.T, resp *http.Response) {
				var result map[string]any
				if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
					t.Fatalf("Failed to decode response: %v", err)
				}
				if result["document_id"] == "" {
					t.Error("Expected document_id in response")
				}
				if result["status"] != string(store.StatusProcessing) {
					t.Errorf("Expected status %s, got %v", store.StatusProcessing, result["status"])
				}
			},
		},
		{
			name:        "missing level defaults to concise",
			filename:    "report.pdf",
			contentType: "application/pdf",
			level:       "",
			content:     []byte("%PDF-1.4 fake"),
			setup: func(s *store.MockStore, q *queue.MockQueue) {
				s.On("CreateDocument", mock.Anything, "report.pdf", "concise").
					Return(store.Document{ID: validDocID, Status: store.StatusProcessing, Level: "concise"}, nil).Once()
				q.On("Enqueue", mock.Anything, mock.Anything).Return(nil).Once()
			},
			wantStatus: http.StatusAccepted,
		},
		{
			name:        "invalid level",
			filename:    "report.pdf",
			contentType: "application/pdf",
			level:       "verbose",
			content:     []byte("%PDF-1.4 fake"),
			wantStatus:  http.StatusBadRequest,
		},
		{
			name:        "file too large",
			filename:    "large.pdf",
			contentType: "application/pdf",
			level:       "concise",
			content:     make([]byte, 2*1024*1024), // 2MB
			wantStatus:  http.StatusBadRequest,
		},
		{
			name:        "missing Content-Type detects from extension",
			filename:    "report.pdf",
			contentType: "", // Empty, should detect from .pdf
			level:       "concise",
			content:     []byte("%PDF-1.4 fake"),
			setup: func(s *store.MockStore, q *queue.MockQueue) {
				s.On("CreateDocument", mock.Anything, "report.pdf", "concise").
					Return(store.Document{ID: validDocID, Status: store.StatusProcessing, Level: "concise"}, nil).Once()
				q.On("Enqueue", mock.Anything, mock.Anything).Return(nil).Once()
			},
			wantStatus: http.StatusAccepted,
		},
		{
			name:        "unsupported extension",
			filename:    "notes.docx",
			contentType: "",
			level:       "concise",
			content:     []byte("content"),
			wantStatus:  http.StatusBadRequest,
		},
		{
			name:        "unsupported Content-Type",
			filename:    "notes.txt",
			contentType: "text/plain",
			level:       "concise",
			content:     []byte("content"),
			wantStatus:  http.StatusBadRequest,
		},
		{
			name:        "CreateDocument failure",
			filename:    "report.pdf",
			contentType: "application/pdf",
			level:       "concise",
			content:     []byte("%PDF-1.4 fake"),
			setup: func(s *store.MockStore, q *queue.MockQueue) {
				s.On("CreateDocument", mock.Anything, "report.pdf", "concise").
					Return(store.Document{}, errors.New("db error")).Once()
			},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:        "Enqueue failure marks doc failed",
			filename:    "report.pdf",
			contentType: "application/pdf",
			level:       "concise",
			content:     []byte("%PDF-1.4 fake"),
			setup: func(s *store.MockStore, q *queue.MockQueue) {
				s.On("CreateDocument", mock.Anything, "report.pdf", "concise").
					Return(store.Document{ID: validDocID, Status: store.StatusProcessing}, nil).Once()
				q.On("Enqueue", mock.Anything, mock.Anything).Return(errors.New("queue error")).Times(3)
				s.On("UpdateDocumentStatus", mock.Anything, validDocID, store.StatusFailed, mock.Anything).Return(nil).Once()
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockStore := new(store.MockStore)
			mockQueue := new(queue.MockQueue)

			if tt.setup != nil {
				tt.setup(mockStore, mockQueue)
			}

			deps := newTestDeps(mockStore, mockQueue)
			handler := uploadHandler(deps)

			req, err := createMultipartRequest(tt.filename, tt.contentType, tt.level, tt.content)
			if err != nil {
				t.Fatalf("Failed to create request: %v", err)
			}

			w := httptest.NewRecorder()
			handler(w, req)

			resp := w.Result()
			if resp.StatusCode != tt.wantStatus {
				body, _ := io.ReadAll(resp.Body)
				t.Errorf("Expected status %d, got %d. Body: %s", tt.wantStatus, resp.StatusCode, string(body))
			}

			if tt.checkResponse != nil {
				resp.Body = io.NopCloser(bytes.NewReader(w.Body.Bytes()))
				tt.checkResponse(t, resp)
			}

			mockStore.AssertExpectations(t)
			mockQueue.AssertExpectations(t)
		})
	}

	// Test missing file separately since it requires different request setup
	t.Run("missing file", func(t *testing.T) {
		mockStore := new(store.MockStore)
		mockQueue := new(queue.MockQueue)
		deps := newTestDeps(mockStore, mockQueue)
		handler := uploadHandler(deps)

		req := httptest.NewRequest(http.MethodPost, "/api/documents", nil)
		req.Header.Set("Content-Type", "multipart/form-data")
		w := httptest.NewRecorder()

		handler(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})
}

func TestStatusHandler(t *testing.T) {
	validDocID := uuid.New()

	tests := []struct {
		name          string
		docID         string
		setup         func(*store.MockStore)
		wantStatus    int
		checkResponse func(*testing.T, *http.Response)
	}{
		{
			name:  "in-flight document reports stage and chunks",
			docID: validDocID.String(),
			setup: func(s *store.MockStore) {
				s.On("GetDocument", mock.Anything, validDocID).
					Return(store.Document{ID: validDocID, Filename: "report.pdf", Status: store.StatusProcessing, Level: "concise"}, nil).Once()
				s.On("GetProgress", mock.Anything, validDocID).
					Return(store.Progress{Stage: "summarizing", ChunksDone: 2, ChunkTotal: 5}, nil).Once()
			},
			wantStatus: http.StatusOK,
			checkResponse: func(t *testing.T, resp *http.Response) {
				var result map[string]any
				if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
					t.Fatalf("Failed to decode response: %v", err)
				}
				if result["stage"] != "summarizing" {
					t.Errorf("Expected stage summarizing, got %v", result["stage"])
				}
				if result["chunks_done"] != float64(2) || result["chunk_total"] != float64(5) {
					t.Errorf("Expected progress 2/5, got %v/%v", result["chunks_done"], result["chunk_total"])
				}
			},
		},
		{
			name:  "rejected document carries the rejection detail",
			docID: validDocID.String(),
			setup: func(s *store.MockStore) {
				s.On("GetDocument", mock.Anything, validDocID).
					Return(store.Document{ID: validDocID, Status: store.StatusRejected, Detail: "40 words found, 50 required"}, nil).Once()
				s.On("GetProgress", mock.Anything, validDocID).
					Return(store.Progress{Stage: "validating"}, nil).Once()
			},
			wantStatus: http.StatusOK,
			checkResponse: func(t *testing.T, resp *http.Response) {
				var result map[string]any
				if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
					t.Fatalf("Failed to decode response: %v", err)
				}
				if result["detail"] != "40 words found, 50 required" {
					t.Errorf("Expected rejection detail verbatim, got %v", result["detail"])
				}
			},
		},
		{
			name:       "invalid UUID",
			docID:      "not-a-uuid",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:  "unknown document",
			docID: validDocID.String(),
			setup: func(s *store.MockStore) {
				s.On("GetDocument", mock.Anything, validDocID).
					Return(store.Document{}, errors.New("no rows")).Once()
			},
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockStore := new(store.MockStore)

			if tt.setup != nil {
				tt.setup(mockStore)
			}

			deps := newTestDeps(mockStore, new(queue.MockQueue))
			handler := statusHandler(deps)

			w := httptest.NewRecorder()
			handler(w, requestWithID(http.MethodGet, "/api/documents/"+tt.docID, tt.docID))

			resp := w.Result()
			if resp.StatusCode != tt.wantStatus {
				body, _ := io.ReadAll(resp.Body)
				t.Errorf("Expected status %d, got %d. Body: %s", tt.wantStatus, resp.StatusCode, string(body))
			}

			if tt.checkResponse != nil {
				resp.Body = io.NopCloser(bytes.NewReader(w.Body.Bytes()))
				tt.checkResponse(t, resp)
			}

			mockStore.AssertExpectations(t)
		})
	}
}

func TestSummaryHandler(t *testing.T) {
	validDocID := uuid.New()

	t.Run("successful retrieval", func(t *testing.T) {
		mockStore := new(store.MockStore)
		mockStore.On("GetSummary", mock.Anything, validDocID).
			Return(store.Summary{
				DocumentID: validDocID,
				Text:       "Final summary text",
				WordCount:  3,
				Level:      "concise",
				ChunkCount: 2,
			}, nil).Once()

		deps := newTestDeps(mockStore, new(queue.MockQueue))
		w := httptest.NewRecorder()
		summaryHandler(deps)(w, requestWithID(http.MethodGet, "/api/documents/"+validDocID.String()+"/summary", validDocID.String()))

		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		var result map[string]any
		if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if result["summary"] != "Final summary text" {
			t.Errorf("Expected summary text, got %v", result["summary"])
		}
		if result["word_count"] != float64(3) || result["chunk_count"] != float64(2) {
			t.Errorf("Expected word/chunk counts in response, got %v", result)
		}
		mockStore.AssertExpectations(t)
	})

	t.Run("plain text via Accept header", func(t *testing.T) {
		mockStore := new(store.MockStore)
		mockStore.On("GetSummary", mock.Anything, validDocID).
			Return(store.Summary{DocumentID: validDocID, Text: "Plain summary"}, nil).Once()

		deps := newTestDeps(mockStore, new(queue.MockQueue))
		req := requestWithID(http.MethodGet, "/api/documents/"+validDocID.String()+"/summary", validDocID.String())
		req.Header.Set("Accept", "text/plain")
		w := httptest.NewRecorder()
		summaryHandler(deps)(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		if ct := w.Header().Get("Content-Type"); ct != "text/plain; charset=utf-8" {
			t.Errorf("Expected text/plain content type, got %s", ct)
		}
		if w.Body.String() != "Plain summary" {
			t.Errorf("Expected raw summary body, got %q", w.Body.String())
		}
		mockStore.AssertExpectations(t)
	})

	t.Run("invalid UUID", func(t *testing.T) {
		deps := newTestDeps(new(store.MockStore), new(queue.MockQueue))
		w := httptest.NewRecorder()
		summaryHandler(deps)(w, requestWithID(http.MethodGet, "/api/documents/nope/summary", "nope"))
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})

	t.Run("summary not ready", func(t *testing.T) {
		mockStore := new(store.MockStore)
		mockStore.On("GetSummary", mock.Anything, validDocID).
			Return(store.Summary{}, store.ErrSummaryNotFound).Once()

		deps := newTestDeps(mockStore, new(queue.MockQueue))
		w := httptest.NewRecorder()
		summaryHandler(deps)(w, requestWithID(http.MethodGet, "/api/documents/"+validDocID.String()+"/summary", validDocID.String()))
		if w.Code != http.StatusNotFound {
			t.Errorf("Expected status 404, got %d", w.Code)
		}
		mockStore.AssertExpectations(t)
	})
}

func TestIsPDF(t *testing.T) {
	tests := []struct {
		filename    string
		contentType string
		want        bool
	}{
		{"a.pdf", "application/pdf", true},
		{"a.pdf", "", true},
		{"A.PDF", "", true},
		{"a.txt", "text/plain", false},
		{"a.pdf", "text/plain", false},
		{"a.docx", "", false},
	}
	for _, tt := range tests {
		if got := isPDF(tt.filename, tt.contentType); got != tt.want {
			t.Errorf("isPDF(%q, %q) = %v, want %v", tt.filename, tt.contentType, got, tt.want)
		}
	}
}

func requestWithID(method, path, id string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func createMultipartRequest(filename, contentType, level string, content []byte) (*http.Request, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if level != "" {
		if err := writer.WriteField("level", level); err != nil {
			return nil, err
		}
	}

	h := make(map[string][]string)
	h["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename)}
	if contentType != "" {
		h["Content-Type"] = []string{contentType}
	}

	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, err
	}

	if _, err := part.Write(content); err != nil {
		return nil, err
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}

	req := httptest.NewRequest(http.MethodPost, "/api/documents", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return req, nil
}
