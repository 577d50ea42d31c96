package chat

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/upb/sop-assistant/models"
	"github.com/upb/sop-assistant/repositories"
	"github.com/upb/sop-assistant/services"
	"github.com/upb/sop-assistant/services/providers"
	"go.uber.org/zap"
)

// Turn is an open completion stream for one chat request. A Turn is used by a
// single goroutine.
type Turn struct {
	svc      *Service
	id       string
	userID   uuid.UUID
	messages []models.Message
	sources  []models.SearchResult
	stream   providers.ChatStream
	logger   *zap.Logger

	text strings.Builder
	done bool
}

// ID returns the conversation id the turn will be stored under
func (t *Turn) ID() string {
	return t.id
}

// Sources returns the documents used as context
func (t *Turn) Sources() []models.SearchResult {
	return t.sources
}

// Next returns the next token. It returns io.EOF once the answer is complete
// and ctx's error when the client went away.
func (t *Turn) Next(ctx context.Context) (string, error) {
	if t.done {
		return "", io.EOF
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	token, err := t.stream.Recv()
	if err != nil {
		if errors.Is(err, io.EOF) {
			t.done = true
			return "", io.EOF
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		t.logger.Error("completion stream failed", zap.Error(err))
		return "", services.WrapExternal("completion stream failed", err)
	}

	t.text.WriteString(token)
	return token, nil
}

// Text returns the answer accumulated so far
func (t *Turn) Text() string {
	return t.text.String()
}

// Persist stores the conversation with the completed answer appended. It fails
// with ErrStreamNotDrained until Next has returned io.EOF. The title and
// creation time of an existing conversation are kept.
func (t *Turn) Persist(ctx context.Context) error {
	if !t.done {
		return services.ErrStreamNotDrained
	}

	messages := make([]models.Message, 0, len(t.messages)+1)
	messages = append(messages, t.messages...)
	messages = append(messages, models.NewAssistantMessage(t.Text(), t.Sources()))

	err := t.svc.txManager.InTransaction(ctx, func(ctx context.Context, tx repositories.Transaction) error {
		conv := models.NewConversation(t.id, t.userID, messages)

		existing, err := t.svc.conversations.GetByID(ctx, t.id)
		switch {
		case errors.Is(err, repositories.ErrNotFound):
		case err != nil:
			return err
		case !existing.IsOwnedBy(t.userID):
			return services.ErrConversationOwner
		default:
			conv.Title = existing.Title
			conv.CreatedAt = existing.CreatedAt
		}

		return t.svc.conversations.Upsert(ctx, conv)
	})
	if err != nil {
		t.logger.Error("failed to persist conversation", zap.Error(err))
		return services.WrapPersistence("failed to save conversation", err)
	}

	t.logger.Info("conversation persisted",
		zap.Int("messages", len(messages)),
		zap.Int("answer_length", t.text.Len()),
	)
	return nil
}

// Close releases the upstream stream
func (t *Turn) Close() error {
	return t.stream.Close()
}
