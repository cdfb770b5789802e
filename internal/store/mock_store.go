package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockStore is a mock implementation of Store using testify/mock.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreateDocument(ctx context.Context, filename, level string) (Document, error) {
	args := m.Called(ctx, filename, level)
	return args.Get(0).(Document), args.Error(1)
}

func (m *MockStore) GetDocument(ctx context.Context, id uuid.UUID) (Document, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(Document), args.Error(1)
}

func (m *MockStore) UpdateDocumentStatus(ctx context.Context, id uuid.UUID, status DocumentStatus, detail string) error {
	args := m.Called(ctx, id, status, detail)
	return args.Error(0)
}

func (m *MockStore) SetDocumentStats(ctx context.Context, id uuid.UUID, pageCount int, pageWordCounts []int) error {
	args := m.Called(ctx, id, pageCount, pageWordCounts)
	return args.Error(0)
}

func (m *MockStore) UpdateProgress(ctx context.Context, id uuid.UUID, p Progress) error {
	args := m.Called(ctx, id, p)
	return args.Error(0)
}

func (m *MockStore) GetProgress(ctx context.Context, id uuid.UUID) (Progress, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(Progress), args.Error(1)
}

func (m *MockStore) SaveSummary(ctx context.Context, summary Summary) error {
	args := m.Called(ctx, summary)
	return args.Error(0)
}

func (m *MockStore) GetSummary(ctx context.Context, docID uuid.UUID) (Summary, error) {
	args := m.Called(ctx, docID)
	return args.Get(0).(Summary), args.Error(1)
}
