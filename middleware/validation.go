package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/upb/emr-gateway/apperr"
	"github.com/upb/emr-gateway/utils"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// ValidateBody decodes the JSON body into a fresh T, runs schema over it and
// stores the pointer in context for the handler (see BodyFromContext).
// Field failures answer 400 with one message per field; a failing schema
// answers the generic 500.
func ValidateBody[T any](schema utils.Schema, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body := new(T)

			decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
			decoder.DisallowUnknownFields()
			if err := decoder.Decode(body); err != nil {
				utils.WriteError(w, r, apperr.Wrap(http.StatusBadRequest, "Invalid request body", err), logger)
				return
			}

			if err := utils.Check(schema, body); err != nil {
				utils.WriteError(w, r, err, logger)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithBody(r.Context(), body)))
		})
	}
}
