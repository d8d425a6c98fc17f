package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/upb/emr-gateway/apperr"
	"github.com/upb/emr-gateway/models"
	"github.com/upb/emr-gateway/services"
	"github.com/upb/emr-gateway/utils"
	"go.uber.org/zap"
)

// AuditReader reads stored audit logs
type AuditReader interface {
	List(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.AuditLog, error)
}

// AuditListResponse is one page of audit logs
type AuditListResponse struct {
	Logs   []*models.AuditLog `json:"logs"`
	Limit  int                `json:"limit"`
	Offset int                `json:"offset"`
}

// AuditHandler handles audit-log HTTP requests
type AuditHandler struct {
	reader AuditReader
	logger *zap.Logger
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(reader AuditReader, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{
		reader: reader,
		logger: logger,
	}
}

// HandleList handles GET /api/v1/audit/logs?limit&offset&userId
func (h *AuditHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		utils.WriteError(w, r, err, h.logger)
		return
	}
	limit, offset = services.NormalizePage(limit, offset)

	var logs []*models.AuditLog
	if userID := r.URL.Query().Get("userId"); userID != "" {
		if err := utils.ValidateUUID(userID); err != nil {
			utils.WriteError(w, r, apperr.Wrap(http.StatusBadRequest, "Invalid user id", err), h.logger)
			return
		}
		logs, err = h.reader.ListByUser(r.Context(), userID, limit, offset)
	} else {
		logs, err = h.reader.List(r.Context(), limit, offset)
	}
	if err != nil {
		utils.WriteError(w, r, apperr.Unhandled(fmt.Errorf("list audit logs: %w", err)), h.logger)
		return
	}
	if logs == nil {
		logs = []*models.AuditLog{}
	}

	_ = utils.WriteOK(w, AuditListResponse{Logs: logs, Limit: limit, Offset: offset})
}
