package handlers

import (
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/upb/sop-assistant/internal/observability"
	"github.com/upb/sop-assistant/models"
	"github.com/upb/sop-assistant/services"
	"github.com/upb/sop-assistant/services/documents"
	"github.com/upb/sop-assistant/utils"
	"go.uber.org/zap"
)

// multipartOverhead is the room left for form fields and part headers on top
// of the largest accepted file
const multipartOverhead = 1 << 20

// SearchRequest is the body of POST /api/v1/sop/search
type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty" validate:"gte=0,lte=50"`
}

// DocumentService defines the document operations the HTTP layer needs
type DocumentService interface {
	Upload(ctx context.Context, in documents.UploadInput) (*models.Document, error)
	List(ctx context.Context, userID uuid.UUID) ([]models.DocumentSummary, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	Search(ctx context.Context, userID uuid.UUID, query string, limit int) ([]models.SearchResult, error)
	Stats(ctx context.Context, userID uuid.UUID) (*models.DocumentStats, error)
}

// DocumentHandler handles SOP document HTTP requests
type DocumentHandler struct {
	service     DocumentService
	maxFileSize int64
	logger      *zap.Logger
}

// NewDocumentHandler creates a new DocumentHandler
func NewDocumentHandler(service DocumentService, maxFileSize int64, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{
		service:     service,
		maxFileSize: maxFileSize,
		logger:      logger,
	}
}

// HandleUpload handles POST /api/v1/sop with multipart fields title, category and file
func (h *DocumentHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	logger := observability.WithContext(r.Context(), h.logger)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+multipartOverhead)
	if err := r.ParseMultipartForm(h.maxFileSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			HandleServiceError(w, services.ValidationFailed("file", services.ErrFileTooLarge.Message).
				WithDetail("max_file_size", h.maxFileSize), logger)
			return
		}
		logger.Warn("failed to parse upload form", zap.Error(err))
		writeBadRequest(w, logger, "Invalid multipart form", nil)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	in := documents.UploadInput{
		UserID:   userID,
		Title:    r.FormValue("title"),
		Category: r.FormValue("category"),
	}

	file, header, err := r.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		// left to the service, which reports every missing field together
	case err != nil:
		logger.Warn("failed to open uploaded file", zap.Error(err))
		writeBadRequest(w, logger, "Invalid file", nil)
		return
	default:
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, h.maxFileSize+1))
		if err != nil {
			logger.Warn("failed to read uploaded file", zap.Error(err))
			writeBadRequest(w, logger, "Invalid file", nil)
			return
		}
		in.FileName = header.Filename
		in.MIMEType = partMediaType(header)
		in.Size = header.Size
		in.Data = data
	}

	doc, err := h.service.Upload(r.Context(), in)
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	if err := utils.WriteCreated(w, doc); err != nil {
		logger.Error("failed to write response", zap.Error(err))
	}
}

// HandleList handles GET /api/v1/sop
func (h *DocumentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	logger := observability.WithContext(r.Context(), h.logger)

	docs, err := h.service.List(r.Context(), userID)
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	if err := utils.WriteOK(w, docs); err != nil {
		logger.Error("failed to write response", zap.Error(err))
	}
}

// HandleDelete handles DELETE /api/v1/sop/{id}
func (h *DocumentHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	logger := observability.WithContext(r.Context(), h.logger)

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, logger, "Invalid document ID", map[string]interface{}{"id": "must be a valid UUID"})
		return
	}

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	if err := utils.WriteOK(w, map[string]bool{"success": true}); err != nil {
		logger.Error("failed to write response", zap.Error(err))
	}
}

// HandleSearch handles POST /api/v1/sop/search
func (h *DocumentHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	logger := observability.WithContext(r.Context(), h.logger)

	var req SearchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		logger.Warn("failed to parse search request", zap.Error(err))
		writeBadRequest(w, logger, "Invalid request body", nil)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, logger)
		return
	}

	results, err := h.service.Search(r.Context(), userID, req.Query, req.Limit)
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	if err := utils.WriteOK(w, results); err != nil {
		logger.Error("failed to write response", zap.Error(err))
	}
}

// HandleStats handles GET /api/v1/sop/stats
func (h *DocumentHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	logger := observability.WithContext(r.Context(), h.logger)

	stats, err := h.service.Stats(r.Context(), userID)
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	if err := utils.WriteOK(w, stats); err != nil {
		logger.Error("failed to write response", zap.Error(err))
	}
}

// partMediaType returns the bare media type declared for an uploaded part,
// falling back to the file extension
func partMediaType(header *multipart.FileHeader) string {
	if ct := header.Header.Get("Content-Type"); ct != "" {
		if mediaType, _, err := mime.ParseMediaType(ct); err == nil {
			return strings.ToLower(mediaType)
		}
	}
	if byExt := mime.TypeByExtension(filepath.Ext(header.Filename)); byExt != "" {
		if mediaType, _, err := mime.ParseMediaType(byExt); err == nil {
			return strings.ToLower(mediaType)
		}
	}
	return ""
}
