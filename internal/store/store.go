package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type DocumentStatus string

const (
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusRejected   DocumentStatus = "rejected"
	StatusFailed     DocumentStatus = "failed"
)

var ErrSummaryNotFound = errors.New("summary not found")

// Document tracks one uploaded PDF through its summarization run. Detail
// carries the display-ready rejection or failure message when terminal.
type Document struct {
	ID             uuid.UUID
	Filename       string
	Status         DocumentStatus
	Level          string
	PageCount      int
	PageWordCounts []int
	Detail         string
	CreatedAt      time.Time
}

// Progress mirrors the pipeline's stage notifications so the gateway can
// serve live status for an in-flight run.
type Progress struct {
	Stage      string
	ChunksDone int
	ChunkTotal int
}

// Summary is the persisted terminal artifact of a successful run.
type Summary struct {
	DocumentID uuid.UUID
	Text       string
	WordCount  int
	Level      string
	ChunkCount int
	CreatedAt  time.Time
}

// Store defines persistence contract; an external DB implementation can replace this.
type Store interface {
	CreateDocument(ctx context.Context, filename, level string) (Document, error)
	GetDocument(ctx context.Context, id uuid.UUID) (Document, error)
	UpdateDocumentStatus(ctx context.Context, id uuid.UUID, status DocumentStatus, detail string) error
	SetDocumentStats(ctx context.Context, id uuid.UUID, pageCount int, pageWordCounts []int) error
	UpdateProgress(ctx context.Context, id uuid.UUID, p Progress) error
	GetProgress(ctx context.Context, id uuid.UUID) (Progress, error)
	SaveSummary(ctx context.Context, summary Summary) error
	GetSummary(ctx context.Context, docID uuid.UUID) (Summary, error)
}
