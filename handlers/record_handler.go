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

// RecordService defines the record operations used by RecordHandler
type RecordService interface {
	CreateRecord(ctx context.Context, actor auth.Principal, input services.RecordInput, meta services.RequestMeta) (*models.Record, error)
	GetRecord(ctx context.Context, id string) (*models.Record, error)
}

// RecordHandler handles record HTTP requests
type RecordHandler struct {
	service RecordService
	checker PermissionChecker
	logger  *zap.Logger
}

// NewRecordHandler creates a new RecordHandler
func NewRecordHandler(service RecordService, checker PermissionChecker, logger *zap.Logger) *RecordHandler {
	return &RecordHandler{
		service: service,
		checker: checker,
		logger:  logger,
	}
}

// HandleCreate handles POST /api/v1/records
func (h *RecordHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, err := principal(r)
	if err != nil {
		utils.WriteError(w, r, err, h.logger)
		return
	}
	input, err := body[services.RecordInput](r)
	if err != nil {
		utils.WriteError(w, r, err, h.logger)
		return
	}

	record, err := h.service.CreateRecord(r.Context(), actor, *input, requestMeta(r))
	if err != nil {
		utils.WriteError(w, r, err, h.logger)
		return
	}

	_ = utils.WriteCreated(w, record)
}

// HandleGet handles GET /api/v1/records/{id}. The caller needs read access
// to the record; the check is audited like any other.
func (h *RecordHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		utils.WriteError(w, r, err, h.logger)
		return
	}
	recordID := chi.URLParam(r, "id")

	decision, err := h.checker.Check(r.Context(), p,
		services.PermissionCheckInput{RecordID: recordID, Action: services.ActionRead}, requestMeta(r))
	if err != nil {
		utils.WriteError(w, r, err, h.logger)
		return
	}
	switch {
	case decision.Reason == services.ReasonRecordNotFound:
		utils.WriteError(w, r, services.ErrRecordNotFound, h.logger)
		return
	case !decision.Allowed:
		utils.WriteError(w, r, services.ErrAccessDenied, h.logger)
		return
	}

	record, err := h.service.GetRecord(r.Context(), recordID)
	if err != nil {
		utils.WriteError(w, r, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, record)
}
