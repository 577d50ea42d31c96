package rag

import (
	"context"

	"github.com/google/uuid"
	"github.com/upb/sop-assistant/models"
	"github.com/upb/sop-assistant/repositories"
	"github.com/upb/sop-assistant/services"
	"github.com/upb/sop-assistant/services/providers"
	"go.uber.org/zap"
)

// Embedder is the part of EmbeddingClient the Retriever depends on
type Embedder interface {
	Embed(ctx context.Context, text string, cred providers.Credential) ([]float32, error)
}

// Query describes a retrieval. Threshold is used as given, so zero admits any
// positive similarity. A nil OwnerID searches every document.
type Query struct {
	Text       string
	Threshold  float64
	Limit      int
	OwnerID    *uuid.UUID
	Credential providers.Credential
}

// Retriever finds the documents most similar to a query text
type Retriever struct {
	embedder Embedder
	docs     repositories.DocumentRepository
	logger   *zap.Logger
}

// NewRetriever creates a retriever over the document store
func NewRetriever(embedder Embedder, docs repositories.DocumentRepository, logger *zap.Logger) *Retriever {
	return &Retriever{
		embedder: embedder,
		docs:     docs,
		logger:   logger,
	}
}

// Retrieve embeds q.Text and returns the matching documents, best first.
// Embedding errors are returned as-is; store errors are persistence errors.
func (r *Retriever) Retrieve(ctx context.Context, q Query) ([]models.SearchResult, error) {
	if q.Limit <= 0 {
		return nil, services.ValidationFailed("limit", "limit must be positive")
	}

	embedding, err := r.embedder.Embed(ctx, q.Text, q.Credential)
	if err != nil {
		return nil, err
	}

	results, err := r.docs.MatchDocuments(ctx, repositories.MatchQuery{
		Embedding: embedding,
		Threshold: q.Threshold,
		Limit:     q.Limit,
		OwnerID:   q.OwnerID,
	})
	if err != nil {
		return nil, services.WrapPersistence("failed to search documents", err)
	}

	r.logger.Debug("documents retrieved",
		zap.Int("matches", len(results)),
		zap.Float64("threshold", q.Threshold),
		zap.Int("limit", q.Limit),
	)
	return results, nil
}

// RetrieveBestEffort is Retrieve for the chat path: any failure is logged
// and yields no results, so the answer is generated without context.
func (r *Retriever) RetrieveBestEffort(ctx context.Context, q Query) []models.SearchResult {
	results, err := r.Retrieve(ctx, q)
	if err != nil {
		r.logger.Warn("retrieval failed, continuing without document context", zap.Error(err))
		return []models.SearchResult{}
	}
	return results
}
