package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/upb/sop-assistant/internal/observability"
	"github.com/upb/sop-assistant/models"
	"github.com/upb/sop-assistant/services/chat"
	"github.com/upb/sop-assistant/services/providers"
	"github.com/upb/sop-assistant/utils"
	"go.uber.org/zap"
)

// ConversationIDHeader carries the id a turn is stored under back to the client
const ConversationIDHeader = "X-Conversation-ID"

const defaultConversationPageSize = 20

// ChatRequest is the body of POST /api/v1/chat
type ChatRequest struct {
	Messages     []models.Message `json:"messages"`
	ID           string           `json:"id,omitempty" validate:"omitempty,max=128,excludesall=/?#"`
	PreviewToken string           `json:"previewToken,omitempty"`
}

// ChatService defines the chat operations the HTTP layer needs
type ChatService interface {
	StartTurn(ctx context.Context, req chat.TurnRequest) (*chat.Turn, error)
	List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Conversation, error)
	Get(ctx context.Context, userID uuid.UUID, id string) (*models.Conversation, error)
}

// ChatHandler serves chat turns and stored conversations
type ChatHandler struct {
	service        ChatService
	persistTimeout time.Duration
	logger         *zap.Logger
}

// NewChatHandler creates a new ChatHandler. persistTimeout bounds the write of
// a finished conversation, which outlives the request.
func NewChatHandler(service ChatService, persistTimeout time.Duration, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		service:        service,
		persistTimeout: persistTimeout,
		logger:         logger,
	}
}

// HandleChat handles POST /api/v1/chat. The answer is streamed as plain text,
// one flush per token, and the conversation is stored once the stream ends.
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	logger := observability.WithContext(ctx, h.logger)

	var req ChatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		logger.Warn("failed to parse chat request", zap.Error(err))
		writeBadRequest(w, logger, "Invalid request body", nil)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, logger)
		return
	}

	turn, err := h.service.StartTurn(ctx, chat.TurnRequest{
		Messages:       req.Messages,
		ConversationID: strings.TrimSpace(req.ID),
		UserID:         userID,
		Credential:     providers.Credential{APIKey: strings.TrimSpace(req.PreviewToken)},
	})
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}
	defer turn.Close()
	logger = logger.With(zap.String("conversation_id", turn.ID()))

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set(ConversationIDHeader, turn.ID())
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	flush := func() {
		if flusher != nil {
			flusher.Flush()
		}
	}
	flush()

	for {
		token, err := turn.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("client went away before the answer completed, conversation not stored")
			} else {
				logger.Error("answer stream ended early, conversation not stored", zap.Error(err))
			}
			return
		}
		if _, err := io.WriteString(w, token); err != nil {
			logger.Info("failed to write token, conversation not stored", zap.Error(err))
			return
		}
		flush()
	}

	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.persistTimeout)
	defer cancel()
	if err := turn.Persist(persistCtx); err != nil {
		logger.Error("answer delivered but conversation not stored", zap.Error(err))
		return
	}
	logger.Info("chat turn completed",
		zap.Int("sources", len(turn.Sources())),
		zap.Int("answer_length", len(turn.Text())),
	)
}

// HandleListChats handles GET /api/v1/chats
func (h *ChatHandler) HandleListChats(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	logger := observability.WithContext(r.Context(), h.logger)

	limit, err := queryInt(r, "limit", defaultConversationPageSize)
	if err != nil {
		writeBadRequest(w, logger, err.Error(), nil)
		return
	}
	if limit == 0 || limit > 100 {
		limit = defaultConversationPageSize
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeBadRequest(w, logger, err.Error(), nil)
		return
	}

	convs, err := h.service.List(r.Context(), userID, limit, offset)
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	if err := utils.WriteOK(w, convs); err != nil {
		logger.Error("failed to write response", zap.Error(err))
	}
}

// HandleGetChat handles GET /api/v1/chats/{id}
func (h *ChatHandler) HandleGetChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	logger := observability.WithContext(r.Context(), h.logger)

	conv, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	if err := utils.WriteOK(w, conv); err != nil {
		logger.Error("failed to write response", zap.Error(err))
	}
}
