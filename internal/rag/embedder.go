package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/upb/sop-assistant/services"
	"github.com/upb/sop-assistant/services/providers"
	"go.uber.org/zap"
)

// EmbeddingClient turns text into vectors of a fixed length
type EmbeddingClient struct {
	embedder providers.Embedder
	model    string
	dims     int
	logger   *zap.Logger
}

// NewEmbeddingClient creates an embedding client for model producing dims-length vectors
func NewEmbeddingClient(embedder providers.Embedder, model string, dims int, logger *zap.Logger) *EmbeddingClient {
	return &EmbeddingClient{
		embedder: embedder,
		model:    model,
		dims:     dims,
		logger:   logger,
	}
}

// Dimensions returns the vector length the client guarantees
func (c *EmbeddingClient) Dimensions() int {
	return c.dims
}

// Embed returns the embedding of text. A single attempt is made.
func (c *EmbeddingClient) Embed(ctx context.Context, text string, cred providers.Credential) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, services.WrapEmbedding("cannot embed empty text", nil)
	}

	req := &providers.EmbeddingRequest{
		Model:      c.model,
		Input:      text,
		Credential: cred,
	}
	// only the text-embedding-3 family accepts a requested size
	if strings.HasPrefix(c.model, "text-embedding-3") {
		req.Dimensions = c.dims
	}

	resp, err := c.embedder.CreateEmbedding(ctx, req)
	if err != nil {
		c.logger.Warn("embedding request failed",
			zap.String("model", c.model),
			zap.Int("status", providers.StatusCode(err)),
			zap.Error(err),
		)
		return nil, services.WrapEmbedding("embedding request failed", err)
	}

	if resp == nil || len(resp.Embedding) == 0 {
		return nil, services.ErrEmbeddingMalformed
	}
	if len(resp.Embedding) != c.dims {
		return nil, services.WrapEmbedding(
			fmt.Sprintf("embedding has %d dimensions, expected %d", len(resp.Embedding), c.dims), nil)
	}

	return resp.Embedding, nil
}
