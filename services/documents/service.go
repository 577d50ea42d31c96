package documents

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/upb/sop-assistant/config"
	"github.com/upb/sop-assistant/internal/rag"
	"github.com/upb/sop-assistant/models"
	"github.com/upb/sop-assistant/repositories"
	"github.com/upb/sop-assistant/services"
	"github.com/upb/sop-assistant/services/providers"
	"github.com/upb/sop-assistant/utils"
	"go.uber.org/zap"
)

// UploadInput is a document upload as received from the client
type UploadInput struct {
	UserID   uuid.UUID `validate:"required"`
	Title    string    `validate:"required"`
	Category string    `validate:"required"`
	FileName string    `validate:"required"`
	MIMEType string
	Size     int64
	Data     []byte
}

// Service manages a user's SOP documents
type Service struct {
	docs      repositories.DocumentRepository
	embedder  rag.Embedder
	retriever *rag.Retriever
	extractor Extractor
	upload    config.UploadConfig
	retrieval config.RetrievalConfig
	logger    *zap.Logger
}

// NewService creates a document service
func NewService(
	docs repositories.DocumentRepository,
	embedder rag.Embedder,
	retriever *rag.Retriever,
	extractor Extractor,
	upload config.UploadConfig,
	retrieval config.RetrievalConfig,
	logger *zap.Logger,
) *Service {
	return &Service{
		docs:      docs,
		embedder:  embedder,
		retriever: retriever,
		extractor: extractor,
		upload:    upload,
		retrieval: retrieval,
		logger:    logger,
	}
}

// Upload validates, extracts, embeds and stores a document. Checks run in order:
// required fields, size, MIME type, then extraction.
func (s *Service) Upload(ctx context.Context, in UploadInput) (*models.Document, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Category = strings.TrimSpace(in.Category)

	if err := utils.ValidateStruct(in); err != nil {
		return nil, validationError(err)
	}
	if in.Size > s.upload.MaxFileSize || int64(len(in.Data)) > s.upload.MaxFileSize {
		return nil, services.ValidationFailed("file", services.ErrFileTooLarge.Message).
			WithDetail("max_file_size", s.upload.MaxFileSize)
	}
	if !s.upload.IsAllowedType(in.MIMEType) {
		return nil, services.ValidationFailed("file", services.ErrFileTypeForbidden.Message).
			WithDetail("file_type", in.MIMEType)
	}

	content, err := s.extractor.Extract(in.MIMEType, in.Data)
	if err != nil {
		return nil, services.WrapError(services.ErrorTypeValidation, "failed to extract text from file", err)
	}
	if strings.TrimSpace(content) == "" {
		return nil, services.ErrEmptyContent
	}

	embedding, err := s.embedder.Embed(ctx, content, providers.Credential{})
	if err != nil {
		return nil, err
	}

	doc := models.NewDocument(in.UserID, in.Title, in.Category, content, strings.ToLower(in.MIMEType), embedding)
	if err := s.docs.Insert(ctx, doc); err != nil {
		s.logger.Error("failed to store document",
			zap.String("user_id", in.UserID.String()),
			zap.String("title", in.Title),
			zap.Error(err),
		)
		return nil, services.WrapPersistence("failed to save document", err)
	}

	s.logger.Info("document uploaded",
		zap.String("document_id", doc.ID.String()),
		zap.String("user_id", in.UserID.String()),
		zap.String("category", doc.Category),
		zap.String("file_type", doc.FileType),
		zap.Int("content_length", len(content)),
	)
	return doc, nil
}

// List returns the user's documents newest first
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]models.DocumentSummary, error) {
	docs, err := s.docs.ListByOwner(ctx, userID)
	if err != nil {
		return nil, services.WrapPersistence("failed to fetch documents", err)
	}
	return docs, nil
}

// Delete removes a document owned by userID. Deleting a missing or foreign
// document succeeds without effect.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	affected, err := s.docs.DeleteByOwner(ctx, id, userID)
	if err != nil {
		return services.WrapPersistence("failed to delete document", err)
	}

	s.logger.Info("document delete requested",
		zap.String("document_id", id.String()),
		zap.String("user_id", userID.String()),
		zap.Int64("deleted", affected),
	)
	return nil
}

// Search ranks documents by similarity to query. A non-positive limit uses the
// configured default.
func (s *Service) Search(ctx context.Context, userID uuid.UUID, query string, limit int) ([]models.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, services.ErrEmptyQuery
	}
	if limit <= 0 {
		limit = s.retrieval.SearchDefaultLimit
	}

	q := rag.Query{
		Text:      query,
		Threshold: s.retrieval.SearchMatchThreshold,
		Limit:     limit,
	}
	if !s.retrieval.IsGlobal() {
		q.OwnerID = &userID
	}

	return s.retriever.Retrieve(ctx, q)
}

// Stats counts the user's documents per category
func (s *Service) Stats(ctx context.Context, userID uuid.UUID) (*models.DocumentStats, error) {
	counts, err := s.docs.CategoryCounts(ctx, userID)
	if err != nil {
		return nil, services.WrapPersistence("failed to fetch statistics", err)
	}
	return models.NewDocumentStats(counts), nil
}

func validationError(err error) error {
	domainErr := services.NewDomainError(services.ErrorTypeValidation, "missing required fields", err)
	for field, msg := range utils.GetValidationFields(err) {
		domainErr.WithDetail(strings.ToLower(field), msg)
	}
	return domainErr
}
