package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/upb/sop-assistant/config"
	"github.com/upb/sop-assistant/internal/rag"
	"github.com/upb/sop-assistant/models"
	"github.com/upb/sop-assistant/repositories"
	"github.com/upb/sop-assistant/services"
	"github.com/upb/sop-assistant/services/providers"
	"go.uber.org/zap"
)

// Retriever finds document context for a question without failing the turn
type Retriever interface {
	RetrieveBestEffort(ctx context.Context, q rag.Query) []models.SearchResult
}

// TurnRequest is one chat request from a client
type TurnRequest struct {
	Messages       []models.Message
	ConversationID string
	UserID         uuid.UUID
	Credential     providers.Credential
}

// Service orchestrates chat turns and serves stored conversations
type Service struct {
	retriever     Retriever
	provider      providers.StreamingProvider
	conversations repositories.ConversationRepository
	txManager     repositories.TransactionManager
	openai        config.OpenAIConfig
	retrieval     config.RetrievalConfig
	logger        *zap.Logger
}

// NewService creates a chat service
func NewService(
	retriever Retriever,
	provider providers.StreamingProvider,
	conversations repositories.ConversationRepository,
	txManager repositories.TransactionManager,
	openai config.OpenAIConfig,
	retrieval config.RetrievalConfig,
	logger *zap.Logger,
) *Service {
	return &Service{
		retriever:     retriever,
		provider:      provider,
		conversations: conversations,
		txManager:     txManager,
		openai:        openai,
		retrieval:     retrieval,
		logger:        logger,
	}
}

// StartTurn retrieves context for the latest question and opens the completion
// stream. The caller drains the returned Turn, then persists it.
func (s *Service) StartTurn(ctx context.Context, req TurnRequest) (*Turn, error) {
	if len(req.Messages) == 0 {
		return nil, services.ErrNoMessages
	}
	for i, msg := range req.Messages {
		if err := msg.Validate(); err != nil {
			return nil, services.NewDomainError(services.ErrorTypeValidation, "invalid message", err).
				WithDetail("index", i)
		}
	}

	id := strings.TrimSpace(req.ConversationID)
	if id == "" {
		id = uuid.New().String()
	} else if err := s.checkOwner(ctx, id, req.UserID); err != nil {
		return nil, err
	}

	logger := s.logger.With(
		zap.String("conversation_id", id),
		zap.String("user_id", req.UserID.String()),
	)

	sources := []models.SearchResult{}
	if idx := models.LastUserMessage(req.Messages); idx >= 0 {
		q := rag.Query{
			Text:       req.Messages[idx].Content,
			Threshold:  s.retrieval.ChatMatchThreshold,
			Limit:      s.retrieval.ChatMatchCount,
			Credential: req.Credential,
		}
		if !s.retrieval.IsGlobal() {
			userID := req.UserID
			q.OwnerID = &userID
		}
		sources = s.retriever.RetrieveBestEffort(ctx, q)
	}

	prompt := rag.InjectContext(req.Messages, rag.AssembleContext(sources))

	temperature := s.openai.Temperature
	stream, err := s.provider.ChatCompletionStream(ctx, &providers.ChatRequest{
		Model:       s.openai.ChatModel,
		Messages:    toProviderMessages(prompt),
		Temperature: &temperature,
		User:        req.UserID.String(),
		Credential:  req.Credential,
	})
	if err != nil {
		logger.Error("failed to start completion stream",
			zap.Int("status", providers.StatusCode(err)),
			zap.Error(err),
		)
		return nil, services.WrapExternal("failed to start completion", err)
	}

	logger.Info("chat turn started",
		zap.Int("messages", len(req.Messages)),
		zap.Int("sources", len(sources)),
	)

	return &Turn{
		svc:      s,
		id:       id,
		userID:   req.UserID,
		messages: append([]models.Message(nil), req.Messages...),
		sources:  sources,
		stream:   stream,
		logger:   logger,
	}, nil
}

// checkOwner refuses ids that belong to another user before any work is done
func (s *Service) checkOwner(ctx context.Context, id string, userID uuid.UUID) error {
	existing, err := s.conversations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil
		}
		return services.WrapPersistence("failed to load conversation", err)
	}
	if !existing.IsOwnedBy(userID) {
		return services.ErrConversationOwner
	}
	return nil
}

// List returns the user's conversations newest first
func (s *Service) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Conversation, error) {
	convs, err := s.conversations.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, services.WrapPersistence("failed to list conversations", err)
	}
	return convs, nil
}

// Get returns a conversation of userID. Conversations of other users are not found.
func (s *Service) Get(ctx context.Context, userID uuid.UUID, id string) (*models.Conversation, error) {
	conv, err := s.conversations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrConversationNotFound
		}
		return nil, services.WrapPersistence("failed to load conversation", err)
	}
	if !conv.IsOwnedBy(userID) {
		return nil, services.ErrConversationNotFound
	}
	return conv, nil
}

func toProviderMessages(messages []models.Message) []providers.Message {
	out := make([]providers.Message, len(messages))
	for i, m := range messages {
		out[i] = providers.Message{Role: string(m.Role), Content: m.Content}
	}
	return out
}
