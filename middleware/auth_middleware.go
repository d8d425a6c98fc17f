package middleware

import (
	"net/http"

	"github.com/upb/emr-gateway/apperr"
	"github.com/upb/emr-gateway/auth"
	"github.com/upb/emr-gateway/utils"
	"go.uber.org/zap"
)

// TokenVerifier defines the interface for verifying bearer tokens
type TokenVerifier interface {
	// Verify checks the raw Authorization header value and returns the principal
	Verify(rawHeader string) (auth.Principal, error)
}

// AuthMiddleware provides authentication and role middleware
type AuthMiddleware struct {
	verifier TokenVerifier
	observer AuthObserver
	logger   *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(verifier TokenVerifier, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		logger:   logger,
	}
}

// SetObserver reports the outcome of every Protect pipeline to o.
func (m *AuthMiddleware) SetObserver(o AuthObserver) {
	m.observer = o
}

// RequireAuth is a middleware that requires a valid bearer token
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		principal, err := m.verifier.Verify(r.Header.Get("Authorization"))
		if err != nil {
			m.logger.Warn("token verification failed",
				zap.String("request_id", requestID),
				zap.String("kind", string(apperr.KindOf(err))))
			utils.WriteError(w, r, err, m.logger)
			return
		}

		m.logger.Debug("authentication successful",
			zap.String("request_id", requestID),
			zap.String("user_id", principal.UserID),
			zap.String("role", string(principal.Role)))

		next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, principal)))
	})
}

// RequireRoles gates on the principal placed in context by RequireAuth.
// It must run after RequireAuth.
func (m *AuthMiddleware) RequireRoles(roles ...auth.Role) func(http.Handler) http.Handler {
	required := auth.NewRoleSet(roles...)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := GetRequestIDFromContext(ctx)

			principal, ok := PrincipalFromContext(ctx)
			if !ok {
				m.logger.Error("principal not found in context",
					zap.String("request_id", requestID))
				utils.WriteError(w, r, apperr.MissingToken(), m.logger)
				return
			}

			if err := auth.Authorize(principal, required); err != nil {
				m.logger.Warn("insufficient permissions",
					zap.String("request_id", requestID),
					zap.String("user_id", principal.UserID),
					zap.String("role", string(principal.Role)),
					zap.Strings("required_roles", required.Sorted()))
				utils.WriteError(w, r, err, m.logger)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin admits only admins.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return m.RequireRoles(auth.RoleAdmin)(next)
}

// RequireDoctor admits only doctors.
func (m *AuthMiddleware) RequireDoctor(next http.Handler) http.Handler {
	return m.RequireRoles(auth.RoleDoctor)(next)
}

// Protect verifies and gates in a single pipeline.
func (m *AuthMiddleware) Protect(roles ...auth.Role) func(http.Handler) http.Handler {
	return NewPipeline(m.verifier, m.logger, roles...).WithObserver(m.observer).Wrap
}
