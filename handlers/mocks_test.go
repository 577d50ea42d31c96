package handlers

import (
	"context"
	"io"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/upb/sop-assistant/internal/rag"
	"github.com/upb/sop-assistant/models"
	"github.com/upb/sop-assistant/repositories"
	"github.com/upb/sop-assistant/services/documents"
	"github.com/upb/sop-assistant/services/providers"
)

// MockDocumentService is a mock implementation of DocumentService
type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) Upload(ctx context.Context, in documents.UploadInput) (*models.Document, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Document), args.Error(1)
}

func (m *MockDocumentService) List(ctx context.Context, userID uuid.UUID) ([]models.DocumentSummary, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DocumentSummary), args.Error(1)
}

func (m *MockDocumentService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return m.Called(ctx, userID, id).Error(0)
}

func (m *MockDocumentService) Search(ctx context.Context, userID uuid.UUID, query string, limit int) ([]models.SearchResult, error) {
	args := m.Called(ctx, userID, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SearchResult), args.Error(1)
}

func (m *MockDocumentService) Stats(ctx context.Context, userID uuid.UUID) (*models.DocumentStats, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DocumentStats), args.Error(1)
}

// stubRetriever always returns the same sources
type stubRetriever struct {
	sources []models.SearchResult
	queries []rag.Query
}

func (r *stubRetriever) RetrieveBestEffort(ctx context.Context, q rag.Query) []models.SearchResult {
	r.queries = append(r.queries, q)
	return r.sources
}

// stubProvider hands out a prepared stream, or fails with err
type stubProvider struct {
	stream      providers.ChatStream
	err         error
	unavailable bool
	requests    []*providers.ChatRequest
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) IsAvailable(ctx context.Context) bool { return !p.unavailable }

func (p *stubProvider) ChatCompletionStream(ctx context.Context, req *providers.ChatRequest) (providers.ChatStream, error) {
	p.requests = append(p.requests, req)
	if p.err != nil {
		return nil, p.err
	}
	return p.stream, nil
}

// tokenStream replays tokens, runs onEnd once they are exhausted, then ends with err (io.EOF by default)
type tokenStream struct {
	tokens []string
	onEnd  func()
	err    error
	closed bool
}

func (s *tokenStream) Recv() (string, error) {
	if len(s.tokens) > 0 {
		tok := s.tokens[0]
		s.tokens = s.tokens[1:]
		return tok, nil
	}
	if s.onEnd != nil {
		s.onEnd()
		s.onEnd = nil
	}
	if s.err != nil {
		return "", s.err
	}
	return "", io.EOF
}

func (s *tokenStream) Close() error {
	s.closed = true
	return nil
}

// memConversations is an in-memory ConversationRepository
type memConversations struct {
	mu    sync.Mutex
	convs map[string]*models.Conversation
}

func newMemConversations() *memConversations {
	return &memConversations{convs: make(map[string]*models.Conversation)}
}

func (m *memConversations) Upsert(ctx context.Context, conv *models.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *conv
	m.convs[conv.ID] = &stored
	return nil
}

func (m *memConversations) GetByID(ctx context.Context, id string) (*models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.convs[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	found := *conv
	return &found, nil
}

func (m *memConversations) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.Conversation{}
	for _, conv := range m.convs {
		if conv.UserID == userID {
			c := *conv
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return []*models.Conversation{}, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *memConversations) get(id string) (*models.Conversation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.convs[id]
	return conv, ok
}

func (m *memConversations) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.convs)
}

// inlineTxManager runs fn directly
type inlineTxManager struct{}

type inlineTx struct {
	ctx context.Context
}

func (t *inlineTx) Commit() error            { return nil }
func (t *inlineTx) Rollback() error          { return nil }
func (t *inlineTx) Context() context.Context { return t.ctx }

func (inlineTxManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	return &inlineTx{ctx: ctx}, nil
}

func (inlineTxManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	return fn(ctx, &inlineTx{ctx: ctx})
}
