package utils

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/upb/emr-gateway/apperr"
	"go.uber.org/zap"
)

// SuccessResponse represents a generic success response
type SuccessResponse struct {
	Status  string      `json:"status"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

const statusSuccess = "success"

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return nil
	}

	return json.NewEncoder(w).Encode(data)
}

// WriteOK writes a 200 OK response with optional data
func WriteOK(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, SuccessResponse{Status: statusSuccess, Data: data})
}

// WriteCreated writes a 201 Created response with optional data
func WriteCreated(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusCreated, SuccessResponse{Status: statusSuccess, Data: data})
}

// WriteNoContent writes a 204 No Content response
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteError is the only place that writes a failure body. The error is
// normalized into the envelope; the real cause is logged and never echoed.
func WriteError(w http.ResponseWriter, r *http.Request, err error, logger *zap.Logger) {
	status, env := apperr.Normalize(err)

	if logger != nil {
		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("kind", string(apperr.KindOf(err))),
			zap.Error(err),
		}
		if r != nil {
			fields = append(fields,
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
			)
		}
		if status >= http.StatusInternalServerError {
			logger.Error("request failed", fields...)
		} else {
			logger.Debug("request rejected", fields...)
		}
	}

	if encErr := WriteJSON(w, status, env); encErr != nil && logger != nil {
		logger.Warn("failed to encode error response", zap.Error(errors.Join(encErr, err)))
	}
}
