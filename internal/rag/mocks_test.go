package rag

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/upb/sop-assistant/models"
	"github.com/upb/sop-assistant/repositories"
	"github.com/upb/sop-assistant/services/providers"
)

type MockProviderEmbedder struct {
	mock.Mock
}

func (m *MockProviderEmbedder) CreateEmbedding(ctx context.Context, req *providers.EmbeddingRequest) (*providers.EmbeddingResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*providers.EmbeddingResponse), args.Error(1)
}

type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) Embed(ctx context.Context, text string, cred providers.Credential) ([]float32, error) {
	args := m.Called(ctx, text, cred)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) Insert(ctx context.Context, doc *models.Document) error {
	return m.Called(ctx, doc).Error(0)
}

func (m *MockDocumentRepository) MatchDocuments(ctx context.Context, q repositories.MatchQuery) ([]models.SearchResult, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SearchResult), args.Error(1)
}

func (m *MockDocumentRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.DocumentSummary, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DocumentSummary), args.Error(1)
}

func (m *MockDocumentRepository) DeleteByOwner(ctx context.Context, id, ownerID uuid.UUID) (int64, error) {
	args := m.Called(ctx, id, ownerID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDocumentRepository) CategoryCounts(ctx context.Context, ownerID uuid.UUID) ([]models.CategoryCount, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CategoryCount), args.Error(1)
}
