package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/upb/sop-assistant/middleware"
	"github.com/upb/sop-assistant/utils"
	"go.uber.org/zap"
)

// maxJSONBodyBytes bounds JSON request bodies; uploads use their own limit
const maxJSONBodyBytes = 1 << 20

// requireUser returns the authenticated caller, writing a 401 when the auth
// middleware did not run or found no user
func requireUser(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		if err := utils.WriteUnauthorized(w, "Unauthorized"); err != nil {
			logger.Error("failed to write unauthorized response", zap.Error(err))
		}
		return uuid.Nil, false
	}
	return userID, true
}

// decodeJSON decodes a size-limited JSON body into dst
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("request body is empty")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// queryInt reads a non-negative integer query parameter, def when absent
func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", key)
	}
	return v, nil
}

func writeBadRequest(w http.ResponseWriter, logger *zap.Logger, message string, details map[string]interface{}) {
	if err := utils.WriteBadRequest(w, message, details); err != nil {
		logger.Error("failed to write bad request response", zap.Error(err))
	}
}
