package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/upb/sop-assistant/models"
	"github.com/upb/sop-assistant/repositories"
	"go.uber.org/zap"
)

// ConversationRepository implements repositories.ConversationRepository
type ConversationRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(db *DB, logger *zap.Logger) repositories.ConversationRepository {
	return &ConversationRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert inserts the conversation or replaces the stored one. The owner of an
// existing row never changes: an upsert from another user touches no row and fails.
func (r *ConversationRepository) Upsert(ctx context.Context, conv *models.Conversation) error {
	messages, err := json.Marshal(conv.Messages)
	if err != nil {
		return fmt.Errorf("failed to marshal messages: %w", err)
	}

	query := `
		INSERT INTO chats (id, user_id, title, path, messages, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			path = EXCLUDED.path,
			messages = EXCLUDED.messages,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at
		WHERE chats.user_id = EXCLUDED.user_id
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query,
		conv.ID,
		conv.UserID,
		conv.Title,
		conv.Path,
		messages,
		conv.CreatedAt,
		conv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert conversation: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("conversation %s is owned by another user", conv.ID)
	}

	r.logger.Debug("conversation upserted",
		zap.String("conversation_id", conv.ID),
		zap.Int("messages", len(conv.Messages)),
	)
	return nil
}

// GetByID retrieves a conversation by id, locking the row when called inside a transaction
func (r *ConversationRepository) GetByID(ctx context.Context, id string) (*models.Conversation, error) {
	query := `
		SELECT id, user_id, title, path, messages, created_at, updated_at
		FROM chats
		WHERE id = $1
	`
	if inTransaction(ctx) {
		query += ` FOR UPDATE`
	}

	executor := GetExecutor(ctx, r.db)
	conv, err := scanConversation(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	return conv, nil
}

// ListByUser returns a user's conversations newest first
func (r *ConversationRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Conversation, error) {
	query := `
		SELECT id, user_id, title, path, messages, created_at, updated_at
		FROM chats
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	convs := []*models.Conversation{}
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		convs = append(convs, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate conversations: %w", err)
	}

	return convs, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanConversation(row rowScanner) (*models.Conversation, error) {
	conv := &models.Conversation{}
	var messages []byte

	if err := row.Scan(
		&conv.ID,
		&conv.UserID,
		&conv.Title,
		&conv.Path,
		&messages,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(messages, &conv.Messages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal messages: %w", err)
	}

	return conv, nil
}
