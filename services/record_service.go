package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/upb/emr-gateway/apperr"
	"github.com/upb/emr-gateway/auth"
	"github.com/upb/emr-gateway/models"
	"github.com/upb/emr-gateway/repositories"
	"go.uber.org/zap"
)

// RecordInput is the body of POST /records.
type RecordInput struct {
	RecordID    string `json:"recordId" validate:"required,max=128"`
	PatientID   string `json:"patientId" validate:"required,uuid"`
	ContentHash string `json:"contentHash" validate:"omitempty,max=128"`
}

// RecordService registers records and their owners
type RecordService struct {
	records repositories.RecordRepository
	users   repositories.UserRepository
	audits  repositories.AuditRepository
	txMgr   repositories.TransactionManager
	logger  *zap.Logger
}

// NewRecordService creates a new record service
func NewRecordService(repos *repositories.Repositories, txMgr repositories.TransactionManager, logger *zap.Logger) *RecordService {
	return &RecordService{
		records: repos.Records,
		users:   repos.Users,
		audits:  repos.AuditLogs,
		txMgr:   txMgr,
		logger:  logger,
	}
}

// CreateRecord registers a record owned by input.PatientID with actor as
// its creator. The record and its audit entry share a transaction.
func (s *RecordService) CreateRecord(ctx context.Context, actor auth.Principal, input RecordInput, meta RequestMeta) (*models.Record, error) {
	patientID, err := uuid.Parse(input.PatientID)
	if err != nil {
		return nil, ErrInvalidUserID
	}
	patient, err := s.users.GetByID(ctx, patientID)
	if err != nil {
		return nil, translateRepoError(err, ErrPatientNotFound, nil, "load patient")
	}
	if patient.Role != auth.RolePatient {
		return nil, ErrNotPatient
	}

	record := models.NewRecord(input.RecordID, patient.ID.String(), actor.UserID, input.ContentHash)

	created, err := RunInTxResult(ctx, s.txMgr, func(txCtx context.Context) (*models.Record, error) {
		if err := s.records.Create(txCtx, record); err != nil {
			return nil, translateRepoError(err, nil, ErrRecordExists, "create record")
		}

		entry := models.NewAuditLog(actor, models.AuditActionRecordCreated, "record").
			WithResource(record.ID).
			WithOutcome(true, "").
			WithDetails(map[string]string{"patientId": record.PatientID}).
			WithRequest(meta.RequestID, meta.IPAddress, meta.UserAgent)
		if err := s.audits.Insert(txCtx, entry); err != nil {
			return nil, apperr.Unhandled(err)
		}
		return record, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("record created",
		zap.String("record_id", created.ID),
		zap.String("patient_id", created.PatientID),
		zap.String("created_by", actor.UserID),
	)
	return created, nil
}

// GetRecord looks a record up by ID. Callers decide access first.
func (s *RecordService) GetRecord(ctx context.Context, id string) (*models.Record, error) {
	record, err := s.records.GetByID(ctx, id)
	if err != nil {
		return nil, translateRepoError(err, ErrRecordNotFound, nil, "get record")
	}
	return record, nil
}
