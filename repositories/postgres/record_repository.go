package postgres

import (
	"context"
	"fmt"

	"github.com/upb/emr-gateway/models"
	"github.com/upb/emr-gateway/repositories"
	"go.uber.org/zap"
)

const recordColumns = `id, patient_id, creator_id, content_hash, created_at`

// RecordRepository implements the repositories.RecordRepository interface
type RecordRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewRecordRepository creates a new record repository
func NewRecordRepository(db *DB, logger *zap.Logger) repositories.RecordRepository {
	return &RecordRepository{
		db:     db,
		logger: logger,
	}
}

// Create registers a record
func (r *RecordRepository) Create(ctx context.Context, record *models.Record) error {
	query := `
		INSERT INTO records (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		record.ID,
		record.PatientID,
		record.CreatorID,
		record.ContentHash,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create record: %w", translateError(err))
	}

	r.logger.Debug("record created", zap.String("id", record.ID), zap.String("patient_id", record.PatientID))
	return nil
}

// GetByID retrieves a record by its ID
func (r *RecordRepository) GetByID(ctx context.Context, id string) (*models.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM records WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	record := &models.Record{}
	err := executor.QueryRowContext(ctx, query, id).Scan(
		&record.ID,
		&record.PatientID,
		&record.CreatorID,
		&record.ContentHash,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", translateError(err))
	}
	return record, nil
}
