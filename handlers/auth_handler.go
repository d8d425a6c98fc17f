package handlers

import (
	"context"
	"net/http"

	"github.com/upb/emr-gateway/models"
	"github.com/upb/emr-gateway/services"
	"github.com/upb/emr-gateway/utils"
	"go.uber.org/zap"
)

// LoginService defines the login operation used by AuthHandler
type LoginService interface {
	Login(ctx context.Context, input services.LoginInput, meta services.RequestMeta) (*services.LoginResult, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// MeResponse describes the caller. User is omitted when the account no
// longer exists but the token is still valid.
type MeResponse struct {
	UserID string       `json:"userId"`
	Role   string       `json:"role"`
	User   *models.User `json:"user,omitempty"`
}

// AuthHandler handles login and identity HTTP requests
type AuthHandler struct {
	service LoginService
	logger  *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service LoginService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger,
	}
}

// HandleLogin handles POST /api/v1/auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	input, err := body[services.LoginInput](r)
	if err != nil {
		utils.WriteError(w, r, err, h.logger)
		return
	}

	result, err := h.service.Login(r.Context(), *input, requestMeta(r))
	if err != nil {
		utils.WriteError(w, r, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, result)
}

// HandleMe handles GET /api/v1/auth/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		utils.WriteError(w, r, err, h.logger)
		return
	}

	resp := MeResponse{UserID: p.UserID, Role: string(p.Role)}
	if user, err := h.service.GetUser(r.Context(), p.UserID); err == nil {
		resp.User = user
	} else {
		h.logger.Debug("caller has no account record",
			zap.String("user_id", p.UserID),
			zap.Error(err))
	}

	_ = utils.WriteOK(w, resp)
}
