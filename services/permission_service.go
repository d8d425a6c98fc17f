package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/upb/emr-gateway/apperr"
	"github.com/upb/emr-gateway/auth"
	"github.com/upb/emr-gateway/models"
	"github.com/upb/emr-gateway/repositories"
	"go.uber.org/zap"
)

// Action is an operation on a medical record. Actions are ordered: each
// one implies every action below it.
type Action string

const (
	ActionRead  Action = "read"
	ActionShare Action = "share"
	ActionWrite Action = "write"
	ActionAdmin Action = "admin"
)

var actionLevels = map[Action]int{
	ActionRead:  1,
	ActionShare: 2,
	ActionWrite: 3,
	ActionAdmin: 4,
}

// roleCeilings caps what a grant can give each role: a nurse granted
// write still only reads.
var roleCeilings = map[auth.Role]Action{
	auth.RoleAdmin:   ActionAdmin,
	auth.RoleDoctor:  ActionWrite,
	auth.RoleNurse:   ActionRead,
	auth.RolePatient: ActionRead,
}

// Decision reasons, as reported to clients and written to the audit log.
const (
	ReasonOwner          = "Owner access"
	ReasonCreator        = "Creator access"
	ReasonGranted        = "Permission granted"
	ReasonInsufficient   = "Insufficient permission level"
	ReasonNoGrant        = "No permission granted"
	ReasonRevoked        = "Permission inactive"
	ReasonExpired        = "Permission expired"
	ReasonRecordNotFound = "Record not found"
)

// Decision levels for owners; grant-based decisions report the action.
const (
	LevelOwner   = "owner"
	LevelCreator = "creator"
)

// Level returns the position of a in the hierarchy, or 0 if a is unknown.
func (a Action) Level() int {
	return actionLevels[a]
}

// Cap returns the lower of a and the ceiling for role.
func (a Action) Cap(role auth.Role) Action {
	ceiling, ok := roleCeilings[role]
	if !ok {
		return ""
	}
	if ceiling.Level() < a.Level() {
		return ceiling
	}
	return a
}

// PermissionCheckInput is the body of POST /permissions/check.
type PermissionCheckInput struct {
	RecordID string `json:"recordId" validate:"required,max=128"`
	Action   Action `json:"action" validate:"required,oneof=read share write admin"`
}

// PermissionDecision is the outcome of a permission check.
type PermissionDecision struct {
	RecordID  string     `json:"recordId"`
	Action    Action     `json:"action"`
	Allowed   bool       `json:"allowed"`
	Reason    string     `json:"reason"`
	Level     string     `json:"level,omitempty"`
	GrantedBy string     `json:"grantedBy,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// GrantInput is the body of POST /permissions/grants.
type GrantInput struct {
	RecordID  string     `json:"recordId" validate:"required,max=128"`
	GranteeID string     `json:"granteeId" validate:"required,uuid"`
	Action    Action     `json:"action" validate:"required,oneof=read share write admin"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// PermissionService decides record access from record ownership and
// per-record grants, and manages those grants
type PermissionService struct {
	records  repositories.RecordRepository
	grants   repositories.GrantRepository
	users    repositories.UserRepository
	audits   repositories.AuditRepository
	txMgr    repositories.TransactionManager
	recorder AuditRecorder
	logger   *zap.Logger
	now      func() time.Time
}

// NewPermissionService creates a new permission service. recorder may be
// nil when access auditing is disabled.
func NewPermissionService(
	repos *repositories.Repositories,
	txMgr repositories.TransactionManager,
	recorder AuditRecorder,
	logger *zap.Logger,
) *PermissionService {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &PermissionService{
		records:  repos.Records,
		grants:   repos.Grants,
		users:    repos.Users,
		audits:   repos.AuditLogs,
		txMgr:    txMgr,
		recorder: recorder,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Check decides whether p may perform input.Action on the record and
// records the attempt. A denial is a normal result, not an error.
//
// Patients and creators of a record have every action on it. Anyone else
// needs an active, unexpired grant whose action, capped by their role,
// reaches the requested one.
func (s *PermissionService) Check(ctx context.Context, p auth.Principal, input PermissionCheckInput, meta RequestMeta) (*PermissionDecision, error) {
	if input.Action.Level() == 0 {
		return nil, ErrUnknownAction
	}

	decision, err := s.decide(ctx, p, input)
	if err != nil {
		return nil, err
	}

	entry := models.NewAuditLog(p, models.AuditActionPermissionCheck, "record").
		WithResource(input.RecordID).
		WithOutcome(decision.Allowed, decision.Reason).
		WithDetails(map[string]string{"action": string(input.Action), "level": decision.Level}).
		WithRequest(meta.RequestID, meta.IPAddress, meta.UserAgent)
	if err := s.recorder.Record(entry); err != nil {
		s.logger.Warn("failed to record permission check",
			zap.String("record_id", input.RecordID),
			zap.Error(err),
		)
	}

	s.logger.Debug("permission checked",
		zap.String("user_id", p.UserID),
		zap.String("role", string(p.Role)),
		zap.String("action", string(input.Action)),
		zap.Bool("allowed", decision.Allowed),
		zap.String("reason", decision.Reason),
	)
	return decision, nil
}

func (s *PermissionService) decide(ctx context.Context, p auth.Principal, input PermissionCheckInput) (*PermissionDecision, error) {
	decision := &PermissionDecision{RecordID: input.RecordID, Action: input.Action}

	record, err := s.records.GetByID(ctx, input.RecordID)
	if errors.Is(err, repositories.ErrNotFound) {
		decision.Reason = ReasonRecordNotFound
		return decision, nil
	}
	if err != nil {
		return nil, translateRepoError(err, nil, nil, "load record for permission check")
	}

	switch p.UserID {
	case record.PatientID:
		decision.Allowed, decision.Reason, decision.Level = true, ReasonOwner, LevelOwner
		return decision, nil
	case record.CreatorID:
		decision.Allowed, decision.Reason, decision.Level = true, ReasonCreator, LevelCreator
		return decision, nil
	}

	grant, err := s.grants.Get(ctx, input.RecordID, p.UserID)
	if errors.Is(err, repositories.ErrNotFound) {
		decision.Reason = ReasonNoGrant
		return decision, nil
	}
	if err != nil {
		return nil, translateRepoError(err, nil, nil, "load grant for permission check")
	}

	decision.GrantedBy = grant.GrantedBy
	decision.ExpiresAt = grant.ExpiresAt
	switch {
	case !grant.Active():
		decision.Reason = ReasonRevoked
		return decision, nil
	case grant.ExpiredAt(s.now()):
		decision.Reason = ReasonExpired
		return decision, nil
	}

	effective := Action(grant.Action).Cap(p.Role)
	decision.Level = string(effective)
	decision.Allowed = effective.Level() >= input.Action.Level()
	if decision.Allowed {
		decision.Reason = ReasonGranted
	} else {
		decision.Reason = ReasonInsufficient
	}
	return decision, nil
}

// Grant gives input.GranteeID access to the record up to input.Action,
// replacing any earlier grant for the same grantee. Only the record's
// owners and admins may grant.
func (s *PermissionService) Grant(ctx context.Context, actor auth.Principal, input GrantInput, meta RequestMeta) (*models.RecordGrant, error) {
	if input.Action.Level() == 0 {
		return nil, ErrUnknownAction
	}
	if _, err := s.managedRecord(ctx, actor, input.RecordID); err != nil {
		return nil, err
	}
	if input.ExpiresAt != nil && input.ExpiresAt.Before(s.now()) {
		return nil, ErrExpiryInPast
	}

	granteeID, err := uuid.Parse(input.GranteeID)
	if err != nil {
		return nil, ErrInvalidUserID
	}
	if _, err := s.users.GetByID(ctx, granteeID); err != nil {
		return nil, translateRepoError(err, ErrGranteeNotFound, nil, "load grantee")
	}

	grant := models.NewRecordGrant(input.RecordID, granteeID.String(), string(input.Action), actor.UserID, input.ExpiresAt)
	grant.GrantedAt = s.now()

	err = RunInTx(ctx, s.txMgr, func(txCtx context.Context) error {
		if err := s.grants.Upsert(txCtx, grant); err != nil {
			return translateRepoError(err, nil, nil, "store grant")
		}

		details := map[string]string{"granteeId": grant.GranteeID, "action": grant.Action}
		if grant.ExpiresAt != nil {
			details["expiresAt"] = grant.ExpiresAt.Format(time.RFC3339)
		}
		entry := models.NewAuditLog(actor, models.AuditActionAccessGranted, "record").
			WithResource(grant.RecordID).
			WithOutcome(true, "").
			WithDetails(details).
			WithRequest(meta.RequestID, meta.IPAddress, meta.UserAgent)
		if err := s.audits.Insert(txCtx, entry); err != nil {
			return apperr.Unhandled(fmt.Errorf("audit access grant: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("access granted",
		zap.String("record_id", grant.RecordID),
		zap.String("grantee_id", grant.GranteeID),
		zap.String("action", grant.Action),
		zap.String("granted_by", actor.UserID),
	)
	return grant, nil
}

// Revoke withdraws the grantee's active grant on the record.
func (s *PermissionService) Revoke(ctx context.Context, actor auth.Principal, recordID, granteeID string, meta RequestMeta) error {
	if _, err := s.managedRecord(ctx, actor, recordID); err != nil {
		return err
	}

	err := RunInTx(ctx, s.txMgr, func(txCtx context.Context) error {
		if err := s.grants.Revoke(txCtx, recordID, granteeID, s.now()); err != nil {
			return translateRepoError(err, ErrGrantNotFound, nil, "revoke grant")
		}

		entry := models.NewAuditLog(actor, models.AuditActionAccessRevoked, "record").
			WithResource(recordID).
			WithOutcome(true, "").
			WithDetails(map[string]string{"granteeId": granteeID}).
			WithRequest(meta.RequestID, meta.IPAddress, meta.UserAgent)
		if err := s.audits.Insert(txCtx, entry); err != nil {
			return apperr.Unhandled(fmt.Errorf("audit access revocation: %w", err))
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("access revoked",
		zap.String("record_id", recordID),
		zap.String("grantee_id", granteeID),
		zap.String("revoked_by", actor.UserID),
	)
	return nil
}

// ListGrants returns every grant on the record, revoked ones included.
func (s *PermissionService) ListGrants(ctx context.Context, actor auth.Principal, recordID string) ([]*models.RecordGrant, error) {
	if _, err := s.managedRecord(ctx, actor, recordID); err != nil {
		return nil, err
	}

	grants, err := s.grants.ListByRecord(ctx, recordID)
	if err != nil {
		return nil, translateRepoError(err, nil, nil, "list grants")
	}
	if grants == nil {
		grants = []*models.RecordGrant{}
	}
	return grants, nil
}

// managedRecord loads the record and checks that actor may manage its grants.
func (s *PermissionService) managedRecord(ctx context.Context, actor auth.Principal, recordID string) (*models.Record, error) {
	record, err := s.records.GetByID(ctx, recordID)
	if err != nil {
		return nil, translateRepoError(err, ErrRecordNotFound, nil, "load record")
	}
	if actor.Role != auth.RoleAdmin && !record.IsOwner(actor.UserID) {
		return nil, ErrNotRecordOwner
	}
	return record, nil
}
