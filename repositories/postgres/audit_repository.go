package postgres

import (
	"context"
	"fmt"

	"github.com/upb/emr-gateway/models"
	"github.com/upb/emr-gateway/repositories"
	"go.uber.org/zap"
)

// AuditRepository implements the repositories.AuditRepository interface
type AuditRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *DB, logger *zap.Logger) repositories.AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Insert inserts a new audit log entry
func (r *AuditRepository) Insert(ctx context.Context, log *models.AuditLog) error {
	query := `
		INSERT INTO audit_logs (
			id, user_id, role, action, resource_type, resource_id,
			success, reason, details, request_id, ip_address, user_agent, timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		log.ID,
		log.UserID,
		log.Role,
		log.Action,
		log.ResourceType,
		log.ResourceID,
		log.Success,
		log.Reason,
		[]byte(log.Details),
		log.RequestID,
		log.IPAddress,
		log.UserAgent,
		log.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}

	r.logger.Debug("audit log inserted",
		zap.String("id", log.ID.String()),
		zap.String("action", string(log.Action)),
	)
	return nil
}

// List retrieves the most recent audit logs with pagination
func (r *AuditRepository) List(ctx context.Context, limit, offset int) ([]*models.AuditLog, error) {
	query := `
		SELECT ` + auditColumns + `
		FROM audit_logs
		ORDER BY timestamp DESC
		LIMIT $1 OFFSET $2
	`
	return r.queryAuditLogs(ctx, query, limit, offset)
}

// ListByUser retrieves audit logs for one user with pagination
func (r *AuditRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.AuditLog, error) {
	query := `
		SELECT ` + auditColumns + `
		FROM audit_logs
		WHERE user_id = $1
		ORDER BY timestamp DESC
		LIMIT $2 OFFSET $3
	`
	return r.queryAuditLogs(ctx, query, userID, limit, offset)
}

const auditColumns = `id, user_id, role, action, resource_type, COALESCE(resource_id, ''),
		success, COALESCE(reason, ''), details, COALESCE(request_id, ''),
		COALESCE(ip_address, ''), COALESCE(user_agent, ''), timestamp`

// queryAuditLogs is a helper method to query multiple audit logs
func (r *AuditRepository) queryAuditLogs(ctx context.Context, query string, args ...interface{}) ([]*models.AuditLog, error) {
	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()

	logs := make([]*models.AuditLog, 0)
	for rows.Next() {
		log := &models.AuditLog{}
		var details []byte
		err := rows.Scan(
			&log.ID,
			&log.UserID,
			&log.Role,
			&log.Action,
			&log.ResourceType,
			&log.ResourceID,
			&log.Success,
			&log.Reason,
			&details,
			&log.RequestID,
			&log.IPAddress,
			&log.UserAgent,
			&log.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		log.Details = details
		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit log rows: %w", err)
	}

	return logs, nil
}
