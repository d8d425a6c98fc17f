package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/upb/emr-gateway/apperr"
	"github.com/upb/emr-gateway/auth"
	"github.com/upb/emr-gateway/models"
	"github.com/upb/emr-gateway/services"
	"github.com/upb/emr-gateway/utils"
	"go.uber.org/zap"
)

var errRecordIDRequired = apperr.ValidationFailed([]string{"recordId is required"})

// PermissionChecker decides record access for a principal
type PermissionChecker interface {
	Check(ctx context.Context, p auth.Principal, input services.PermissionCheckInput, meta services.RequestMeta) (*services.PermissionDecision, error)
}

// PermissionService defines the permission operations used by PermissionHandler
type PermissionService interface {
	PermissionChecker
	Grant(ctx context.Context, actor auth.Principal, input services.GrantInput, meta services.RequestMeta) (*models.RecordGrant, error)
	Revoke(ctx context.Context, actor auth.Principal, recordID, granteeID string, meta services.RequestMeta) error
	ListGrants(ctx context.Context, actor auth.Principal, recordID string) ([]*models.RecordGrant, error)
}

// GrantListResponse lists the grants on one record
type GrantListResponse struct {
	RecordID string                `json:"recordId"`
	Grants   []*models.RecordGrant `json:"grants"`
}

// PermissionHandler handles permission HTTP requests
type PermissionHandler struct {
	service PermissionService
	logger  *zap.Logger
}

// NewPermissionHandler creates a new PermissionHandler
func NewPermissionHandler(service PermissionService, logger *zap.Logger) *PermissionHandler {
	return &PermissionHandler{
		service: service,
		logger:  logger,
	}
}

// HandleCheck handles POST /api/v1/permissions/check. A denial is still a
// 200 with allowed=false.
func (h *PermissionHandler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		utils.WriteError(w, r, err, h.logger)
		return
	}
	input, err := body[services.PermissionCheckInput](r)
	if err != nil {
		utils.WriteError(w, r, err, h.logger)
		return
	}

	decision, err := h.service.Check(r.Context(), p, *input, requestMeta(r))
	if err != nil {
		utils.WriteError(w, r, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, decision)
}

// HandleGrant handles POST /api/v1/permissions/grants
func (h *PermissionHandler) HandleGrant(w http.ResponseWriter, r *http.Request) {
	actor, err := principal(r)
	if err != nil {
		utils.WriteError(w, r, err, h.logger)
		return
	}
	input, err := body[services.GrantInput](r)
	if err != nil {
		utils.WriteError(w, r, err, h.logger)
		return
	}

	grant, err := h.service.Grant(r.Context(), actor, *input, requestMeta(r))
	if err != nil {
		utils.WriteError(w, r, err, h.logger)
		return
	}

	_ = utils.WriteCreated(w, grant)
}

// HandleListGrants handles GET /api/v1/permissions/grants?recordId=
func (h *PermissionHandler) HandleListGrants(w http.ResponseWriter, r *http.Request) {
	actor, err := principal(r)
	if err != nil {
		utils.WriteError(w, r, err, h.logger)
		return
	}
	recordID := r.URL.Query().Get("recordId")
	if recordID == "" {
		utils.WriteError(w, r, errRecordIDRequired, h.logger)
		return
	}

	grants, err := h.service.ListGrants(r.Context(), actor, recordID)
	if err != nil {
		utils.WriteError(w, r, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, GrantListResponse{RecordID: recordID, Grants: grants})
}

// HandleRevoke handles DELETE /api/v1/permissions/grants/{recordId}/{granteeId}
func (h *PermissionHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	actor, err := principal(r)
	if err != nil {
		utils.WriteError(w, r, err, h.logger)
		return
	}
	granteeID := chi.URLParam(r, "granteeId")
	if err := utils.ValidateUUID(granteeID); err != nil {
		utils.WriteError(w, r, services.ErrInvalidUserID, h.logger)
		return
	}

	if err := h.service.Revoke(r.Context(), actor, chi.URLParam(r, "recordId"), granteeID, requestMeta(r)); err != nil {
		utils.WriteError(w, r, err, h.logger)
		return
	}

	utils.WriteNoContent(w)
}
