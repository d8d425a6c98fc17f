package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/upb/emr-gateway/models"
	"github.com/upb/emr-gateway/repositories"
	"go.uber.org/zap"
)

const grantColumns = `record_id, grantee_id, action, granted_by, granted_at, expires_at, revoked_at`

// GrantRepository implements the repositories.GrantRepository interface
type GrantRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewGrantRepository creates a new grant repository
func NewGrantRepository(db *DB, logger *zap.Logger) repositories.GrantRepository {
	return &GrantRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert creates or replaces the grant for a record and grantee
func (r *GrantRepository) Upsert(ctx context.Context, grant *models.RecordGrant) error {
	query := `
		INSERT INTO record_grants (` + grantColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, NULL)
		ON CONFLICT (record_id, grantee_id) DO UPDATE SET
			action = EXCLUDED.action,
			granted_by = EXCLUDED.granted_by,
			granted_at = EXCLUDED.granted_at,
			expires_at = EXCLUDED.expires_at,
			revoked_at = NULL
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		grant.RecordID,
		grant.GranteeID,
		grant.Action,
		grant.GrantedBy,
		grant.GrantedAt,
		nullTime(grant.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert grant: %w", translateError(err))
	}

	r.logger.Debug("grant stored",
		zap.String("record_id", grant.RecordID),
		zap.String("grantee_id", grant.GranteeID),
		zap.String("action", grant.Action),
	)
	return nil
}

// Get retrieves the grant for a record and grantee, revoked or not
func (r *GrantRepository) Get(ctx context.Context, recordID, granteeID string) (*models.RecordGrant, error) {
	query := `SELECT ` + grantColumns + ` FROM record_grants WHERE record_id = $1 AND grantee_id = $2`

	executor := GetExecutor(ctx, r.db)
	grant, err := scanGrant(executor.QueryRowContext(ctx, query, recordID, granteeID))
	if err != nil {
		return nil, fmt.Errorf("failed to get grant: %w", translateError(err))
	}
	return grant, nil
}

// Revoke marks the active grant revoked
func (r *GrantRepository) Revoke(ctx context.Context, recordID, granteeID string, at time.Time) error {
	query := `
		UPDATE record_grants
		SET revoked_at = $3
		WHERE record_id = $1 AND grantee_id = $2 AND revoked_at IS NULL
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, recordID, granteeID, at)
	if err != nil {
		return fmt.Errorf("failed to revoke grant: %w", translateError(err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to revoke grant: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("failed to revoke grant: %w", repositories.ErrNotFound)
	}

	r.logger.Debug("grant revoked", zap.String("record_id", recordID), zap.String("grantee_id", granteeID))
	return nil
}

// ListByRecord retrieves all grants for a record ordered by grant time
func (r *GrantRepository) ListByRecord(ctx context.Context, recordID string) ([]*models.RecordGrant, error) {
	query := `
		SELECT ` + grantColumns + `
		FROM record_grants
		WHERE record_id = $1
		ORDER BY granted_at
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to list grants: %w", err)
	}
	defer rows.Close()

	grants := make([]*models.RecordGrant, 0)
	for rows.Next() {
		grant, err := scanGrant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan grant: %w", err)
		}
		grants = append(grants, grant)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating grant rows: %w", err)
	}

	return grants, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanGrant(row rowScanner) (*models.RecordGrant, error) {
	grant := &models.RecordGrant{}
	var expiresAt, revokedAt sql.NullTime
	err := row.Scan(
		&grant.RecordID,
		&grant.GranteeID,
		&grant.Action,
		&grant.GrantedBy,
		&grant.GrantedAt,
		&expiresAt,
		&revokedAt,
	)
	if err != nil {
		return nil, err
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		grant.ExpiresAt = &t
	}
	if revokedAt.Valid {
		t := revokedAt.Time
		grant.RevokedAt = &t
	}
	return grant, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
