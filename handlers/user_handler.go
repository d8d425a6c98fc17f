package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/upb/emr-gateway/auth"
	"github.com/upb/emr-gateway/models"
	"github.com/upb/emr-gateway/services"
	"github.com/upb/emr-gateway/utils"
	"go.uber.org/zap"
)

// UserService defines the account operations used by UserHandler
type UserService interface {
	Register(ctx context.Context, actor auth.Principal, input services.CreateUserInput, meta services.RequestMeta) (*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error)
}

// UserListResponse is one page of users
type UserListResponse struct {
	Users  []*models.User `json:"users"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	service UserService
	logger  *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(service UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		logger:  logger,
	}
}

// HandleList handles GET /api/v1/users
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		utils.WriteError(w, r, err, h.logger)
		return
	}

	users, err := h.service.ListUsers(r.Context(), limit, offset)
	if err != nil {
		utils.WriteError(w, r, err, h.logger)
		return
	}

	limit, offset = services.NormalizePage(limit, offset)
	_ = utils.WriteOK(w, UserListResponse{Users: users, Limit: limit, Offset: offset})
}

// HandleCreate handles POST /api/v1/users
func (h *UserHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, err := principal(r)
	if err != nil {
		utils.WriteError(w, r, err, h.logger)
		return
	}
	input, err := body[services.CreateUserInput](r)
	if err != nil {
		utils.WriteError(w, r, err, h.logger)
		return
	}

	user, err := h.service.Register(r.Context(), actor, *input, requestMeta(r))
	if err != nil {
		utils.WriteError(w, r, err, h.logger)
		return
	}

	_ = utils.WriteCreated(w, user)
}

// HandleGet handles GET /api/v1/users/{id}
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteError(w, r, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, user)
}
