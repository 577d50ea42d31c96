package handlers

import (
	"errors"
	"net/http"

	"github.com/upb/sop-assistant/services"
	"github.com/upb/sop-assistant/utils"
	"go.uber.org/zap"
)

// HandleServiceError maps domain errors to HTTP responses.
// Server-side failures are logged with their cause and answered with a generic message.
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	details := services.GetErrorDetails(err)
	message := clientMessage(err)

	var writeErr error
	switch {
	case services.IsNotFoundError(err):
		writeErr = utils.WriteNotFound(w, message)

	case services.IsValidationError(err):
		writeErr = utils.WriteBadRequest(w, message, details)

	case services.IsUnauthorizedError(err):
		writeErr = utils.WriteUnauthorized(w, message)

	case services.IsForbiddenError(err):
		writeErr = utils.WriteForbidden(w, message)

	case services.IsRateLimitError(err):
		writeErr = utils.WriteTooManyRequests(w, message, details)

	case services.IsExternalError(err):
		logger.Error("completion provider error", zap.Error(err))
		writeErr = utils.WriteBadGateway(w, "The language model provider failed to respond")

	case services.IsEmbeddingError(err):
		logger.Error("embedding service error", zap.Error(err))
		writeErr = utils.WriteInternalServerError(w, "Failed to generate embedding")

	case services.IsPersistenceError(err):
		logger.Error("persistence error", zap.Error(err))
		writeErr = utils.WriteInternalServerError(w, "Failed to access storage")

	case services.IsInternalError(err):
		logger.Error("internal server error", zap.Error(err))
		writeErr = utils.WriteInternalServerError(w, "An internal error occurred")

	default:
		logger.Error("unhandled error type",
			zap.Error(err),
			zap.String("error_type", string(services.GetErrorType(err))))
		writeErr = utils.WriteInternalServerError(w, "An unexpected error occurred")
	}

	if writeErr != nil {
		logger.Error("failed to write error response", zap.Error(writeErr))
	}
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if utils.IsValidationError(err) {
		details := make(map[string]interface{})
		for k, v := range utils.GetValidationFields(err) {
			details[k] = v
		}
		writeBadRequest(w, logger, "Validation failed", details)
		return
	}

	writeBadRequest(w, logger, err.Error(), nil)
}

// clientMessage is the part of a domain error that is safe to show a caller
func clientMessage(err error) string {
	var domainErr *services.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return err.Error()
}
