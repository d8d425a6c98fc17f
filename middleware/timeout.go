package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/upb/emr-gateway/apperr"
	"github.com/upb/emr-gateway/utils"
	"go.uber.org/zap"
)

// ErrRequestTimeout is written when a handler overruns its deadline
var ErrRequestTimeout = apperr.New(http.StatusGatewayTimeout, "Request timeout")

// Timeout cancels the request context after timeout. Handlers must watch
// ctx.Done(); when one returns past the deadline without having written
// anything, the client gets the standard 504 error body. A handler that
// already started its response is left alone.
func Timeout(timeout time.Duration, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			r = r.WithContext(ctx)

			next.ServeHTTP(ww, r)

			if errors.Is(ctx.Err(), context.DeadlineExceeded) && ww.Status() == 0 {
				utils.WriteError(ww, r, ErrRequestTimeout, logger)
			}
		})
	}
}
