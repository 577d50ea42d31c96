package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/upb/sop-assistant/models"
	"github.com/upb/sop-assistant/repositories"
	"go.uber.org/zap"
)

// DocumentRepository implements repositories.DocumentRepository with pgvector
type DocumentRepository struct {
	db     *DB
	dims   int
	logger *zap.Logger
}

// NewDocumentRepository creates a new document repository. dims is the length every
// stored embedding must have.
func NewDocumentRepository(db *DB, dims int, logger *zap.Logger) repositories.DocumentRepository {
	return &DocumentRepository{
		db:     db,
		dims:   dims,
		logger: logger,
	}
}

// Insert validates and stores a new document
func (r *DocumentRepository) Insert(ctx context.Context, doc *models.Document) error {
	if err := doc.Validate(r.dims); err != nil {
		return fmt.Errorf("invalid document: %w", err)
	}

	query := `
		INSERT INTO sop_documents (id, user_id, title, category, content, file_type, embedding, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		doc.ID,
		doc.UserID,
		doc.Title,
		doc.Category,
		doc.Content,
		doc.FileType,
		pgvector.NewVector(doc.Embedding),
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}

	r.logger.Debug("document inserted",
		zap.String("document_id", doc.ID.String()),
		zap.String("user_id", doc.UserID.String()),
	)
	return nil
}

// MatchDocuments returns documents whose cosine similarity to q.Embedding is
// strictly greater than q.Threshold. The inner ORDER BY must stay on raw
// cosine distance for the HNSW index to apply.
func (r *DocumentRepository) MatchDocuments(ctx context.Context, q repositories.MatchQuery) ([]models.SearchResult, error) {
	if q.Limit <= 0 {
		return []models.SearchResult{}, nil
	}

	var b strings.Builder
	b.WriteString(`
		SELECT id, title, category, content, 1 - distance AS similarity
		FROM (
			SELECT id, title, category, content, embedding <=> $1 AS distance
			FROM sop_documents`)

	args := []interface{}{pgvector.NewVector(q.Embedding), q.Threshold, q.Limit}
	if q.OwnerID != nil {
		b.WriteString(`
			WHERE user_id = $4`)
		args = append(args, *q.OwnerID)
	}
	b.WriteString(`
			ORDER BY embedding <=> $1
			LIMIT $3
		) AS nearest
		WHERE 1 - distance > $2
		ORDER BY similarity DESC, id ASC`)

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to match documents: %w", err)
	}
	defer rows.Close()

	results := []models.SearchResult{}
	for rows.Next() {
		var res models.SearchResult
		if err := rows.Scan(&res.ID, &res.Title, &res.Category, &res.Content, &res.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate matches: %w", err)
	}

	return results, nil
}

// ListByOwner returns a user's documents newest first
func (r *DocumentRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.DocumentSummary, error) {
	query := `
		SELECT id, title, category, created_at, updated_at, file_type
		FROM sop_documents
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	docs := []models.DocumentSummary{}
	for rows.Next() {
		var d models.DocumentSummary
		if err := rows.Scan(&d.ID, &d.Title, &d.Category, &d.CreatedAt, &d.UpdatedAt, &d.FileType); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}

	return docs, nil
}

// DeleteByOwner deletes a document only when ownerID owns it
func (r *DocumentRepository) DeleteByOwner(ctx context.Context, id, ownerID uuid.UUID) (int64, error) {
	query := `DELETE FROM sop_documents WHERE id = $1 AND user_id = $2`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete document: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	r.logger.Debug("document delete",
		zap.String("document_id", id.String()),
		zap.Int64("rows_affected", affected),
	)
	return affected, nil
}

// CategoryCounts groups a user's documents by category
func (r *DocumentRepository) CategoryCounts(ctx context.Context, ownerID uuid.UUID) ([]models.CategoryCount, error) {
	query := `
		SELECT category, COUNT(*)
		FROM sop_documents
		WHERE user_id = $1
		GROUP BY category
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to count categories: %w", err)
	}
	defer rows.Close()

	counts := []models.CategoryCount{}
	for rows.Next() {
		var c models.CategoryCount
		if err := rows.Scan(&c.Name, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan category count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate category counts: %w", err)
	}

	return counts, nil
}
