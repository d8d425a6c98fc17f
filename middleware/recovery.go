package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/upb/emr-gateway/apperr"
	"github.com/upb/emr-gateway/utils"
	"go.uber.org/zap"
)

// Recovery turns a panic anywhere below it into the generic 500 envelope.
// The panic value, including non-error values, is logged and never echoed.
func Recovery(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error("panic recovered",
					zap.String("request_id", GetRequestIDFromContext(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Any("panic", rec),
					zap.Stack("stack"))

				if ww.Status() != 0 {
					// headers already sent, nothing sane left to write
					return
				}
				utils.WriteError(ww, r, apperr.FromPanic(rec), logger)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
