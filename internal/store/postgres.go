package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	s := &PostgresStore{db: db}
	if err := s.migrate(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	// Use advisory lock to prevent concurrent migrations from multiple services.
	// Note: In production, use dedicated migration tools (e.g., golang-migrate/migrate)
	// that run as a separate deployment step before app services start.
	const lockID = 824261047 // arbitrary number for this application's migration lock

	var acquired bool
	err := s.db.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, lockID).Scan(&acquired)
	if err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}

	if !acquired {
		// Another service is running migrations; wait briefly and skip
		time.Sleep(2 * time.Second)
		return nil
	}

	defer func() {
		_, _ = s.db.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, lockID)
	}()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id UUID PRIMARY KEY,
			filename TEXT,
			status TEXT,
			level TEXT,
			page_count INT DEFAULT 0,
			page_word_counts INT[] DEFAULT '{}',
			detail TEXT DEFAULT '',
			stage TEXT DEFAULT '',
			chunks_done INT DEFAULT 0,
			chunk_total INT DEFAULT 0,
			created_at TIMESTAMPTZ DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS summaries (
			document_id UUID PRIMARY KEY REFERENCES documents(id) ON DELETE CASCADE,
			summary TEXT,
			word_count INT,
			level TEXT,
			chunk_count INT,
			created_at TIMESTAMPTZ DEFAULT now()
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) CreateDocument(ctx context.Context, filename, level string) (Document, error) {
	doc := Document{
		ID:        uuid.New(),
		Filename:  filename,
		Status:    StatusProcessing,
		Level:     level,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, filename, status, level, created_at) VALUES ($1, $2, $3, $4, $5)`,
		doc.ID, doc.Filename, doc.Status, doc.Level, doc.CreatedAt)
	if err != nil {
		return Document{}, fmt.Errorf("create document: %w", err)
	}
	return doc, nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, id uuid.UUID) (Document, error) {
	var doc Document
	var counts pq.Int64Array
	err := s.db.QueryRowContext(ctx,
		`SELECT id, filename, status, level, page_count, page_word_counts, detail, created_at
		 FROM documents WHERE id = $1`, id).
		Scan(&doc.ID, &doc.Filename, &doc.Status, &doc.Level, &doc.PageCount, &counts, &doc.Detail, &doc.CreatedAt)
	if err != nil {
		return Document{}, fmt.Errorf("get document: %w", err)
	}
	doc.PageWordCounts = make([]int, len(counts))
	for i, c := range counts {
		doc.PageWordCounts[i] = int(c)
	}
	return doc, nil
}

func (s *PostgresStore) UpdateDocumentStatus(ctx context.Context, id uuid.UUID, status DocumentStatus, detail string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE documents SET status = $2, detail = $3 WHERE id = $1`, id, status, detail)
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetDocumentStats(ctx context.Context, id uuid.UUID, pageCount int, pageWordCounts []int) error {
	counts := make(pq.Int64Array, len(pageWordCounts))
	for i, c := range pageWordCounts {
		counts[i] = int64(c)
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE documents SET page_count = $2, page_word_counts = $3 WHERE id = $1`, id, pageCount, counts)
	if err != nil {
		return fmt.Errorf("set document stats: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateProgress(ctx context.Context, id uuid.UUID, p Progress) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE documents SET stage = $2, chunks_done = $3, chunk_total = $4 WHERE id = $1`,
		id, p.Stage, p.ChunksDone, p.ChunkTotal)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetProgress(ctx context.Context, id uuid.UUID) (Progress, error) {
	var p Progress
	err := s.db.QueryRowContext(ctx,
		`SELECT stage, chunks_done, chunk_total FROM documents WHERE id = $1`, id).
		Scan(&p.Stage, &p.ChunksDone, &p.ChunkTotal)
	if err != nil {
		return Progress{}, fmt.Errorf("get progress: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) SaveSummary(ctx context.Context, summary Summary) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO summaries (document_id, summary, word_count, level, chunk_count)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (document_id) DO UPDATE
		 SET summary = EXCLUDED.summary, word_count = EXCLUDED.word_count,
		     level = EXCLUDED.level, chunk_count = EXCLUDED.chunk_count`,
		summary.DocumentID, summary.Text, summary.WordCount, summary.Level, summary.ChunkCount)
	if err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetSummary(ctx context.Context, docID uuid.UUID) (Summary, error) {
	var summary Summary
	err := s.db.QueryRowContext(ctx,
		`SELECT document_id, summary, word_count, level, chunk_count, created_at
		 FROM summaries WHERE document_id = $1`, docID).
		Scan(&summary.DocumentID, &summary.Text, &summary.WordCount, &summary.Level, &summary.ChunkCount, &summary.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Summary{}, ErrSummaryNotFound
	}
	if err != nil {
		return Summary{}, fmt.Errorf("get summary: %w", err)
	}
	return summary, nil
}
