package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/upb/sop-assistant/models"
)

// ErrNotFound is returned when a lookup by id matches no row
var ErrNotFound = errors.New("record not found")

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction.
	// Repositories called with the ctx passed to fn run inside the transaction.
	// Commits if fn succeeds, rolls back on error.
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// MatchQuery describes a similarity search over stored document embeddings
type MatchQuery struct {
	Embedding []float32

	// Threshold is exclusive: only similarity > Threshold matches
	Threshold float64

	Limit int

	// OwnerID restricts matches to one user's documents; nil searches every document
	OwnerID *uuid.UUID
}

// DocumentRepository persists SOP documents and their embeddings
type DocumentRepository interface {
	// Insert validates and stores a new document
	Insert(ctx context.Context, doc *models.Document) error

	// MatchDocuments returns up to Limit documents ordered by similarity descending, ties by id
	MatchDocuments(ctx context.Context, q MatchQuery) ([]models.SearchResult, error)

	// ListByOwner returns a user's documents newest first
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.DocumentSummary, error)

	// DeleteByOwner deletes a document only if ownerID owns it and returns the affected row count
	DeleteByOwner(ctx context.Context, id, ownerID uuid.UUID) (int64, error)

	// CategoryCounts groups a user's documents by category
	CategoryCounts(ctx context.Context, ownerID uuid.UUID) ([]models.CategoryCount, error)
}

// ConversationRepository persists chat conversations
type ConversationRepository interface {
	// Upsert inserts the conversation or replaces the stored one with the same id
	Upsert(ctx context.Context, conv *models.Conversation) error

	// GetByID returns ErrNotFound when no conversation has the id.
	// Inside a transaction the row stays locked until commit.
	GetByID(ctx context.Context, id string) (*models.Conversation, error)

	// ListByUser returns a user's conversations newest first
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Conversation, error)
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Documents     DocumentRepository
	Conversations ConversationRepository
}
