package chat

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/upb/sop-assistant/internal/rag"
	"github.com/upb/sop-assistant/models"
	"github.com/upb/sop-assistant/repositories"
	"github.com/upb/sop-assistant/services/providers"
)

type MockRetriever struct {
	mock.Mock
}

func (m *MockRetriever) RetrieveBestEffort(ctx context.Context, q rag.Query) []models.SearchResult {
	return m.Called(ctx, q).Get(0).([]models.SearchResult)
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

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) IsAvailable(ctx context.Context) bool { return true }

func (m *MockProvider) ChatCompletionStream(ctx context.Context, req *providers.ChatRequest) (providers.ChatStream, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(providers.ChatStream), args.Error(1)
}

type MockConversationRepository struct {
	mock.Mock
}

func (m *MockConversationRepository) Upsert(ctx context.Context, conv *models.Conversation) error {
	return m.Called(ctx, conv).Error(0)
}

func (m *MockConversationRepository) GetByID(ctx context.Context, id string) (*models.Conversation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Conversation), args.Error(1)
}

func (m *MockConversationRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Conversation, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Conversation), args.Error(1)
}

// fakeTxManager runs fn inline and records the outcome
type fakeTxManager struct {
	committed  int
	rolledBack int
}

type fakeTx struct {
	ctx context.Context
}

func (t *fakeTx) Commit() error            { return nil }
func (t *fakeTx) Rollback() error          { return nil }
func (t *fakeTx) Context() context.Context { return t.ctx }

func (m *fakeTxManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	return &fakeTx{ctx: ctx}, nil
}

func (m *fakeTxManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	if err := fn(ctx, &fakeTx{ctx: ctx}); err != nil {
		m.rolledBack++
		return err
	}
	m.committed++
	return nil
}

// sliceStream replays tokens and then ends with err, io.EOF by default
type sliceStream struct {
	tokens []string
	err    error
	closed bool
}

func (s *sliceStream) Recv() (string, error) {
	if len(s.tokens) == 0 {
		if s.err != nil {
			return "", s.err
		}
		return "", io.EOF
	}
	tok := s.tokens[0]
	s.tokens = s.tokens[1:]
	return tok, nil
}

func (s *sliceStream) Close() error {
	s.closed = true
	return nil
}
