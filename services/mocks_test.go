package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/upb/emr-gateway/models"
	"github.com/upb/emr-gateway/repositories"
)

type txMarkerKey struct{}

// MockTransactionManager runs fn for real so the code under test executes,
// and records whether the outcome was a commit or a rollback.
type MockTransactionManager struct {
	mock.Mock
	committed  bool
	rolledback bool
}

func (m *MockTransactionManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	args := m.Called(ctx)
	if tx := args.Get(0); tx != nil {
		return tx.(repositories.Transaction), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTransactionManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}

	txCtx := context.WithValue(ctx, txMarkerKey{}, true)
	if err := fn(txCtx, nil); err != nil {
		m.rolledback = true
		return err
	}
	m.committed = true
	return nil
}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txMarkerKey{}).(bool)
	return v
}

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	args := m.Called(ctx, limit, offset)
	if u := args.Get(0); u != nil {
		return u.([]*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockAuditRepository is a mock implementation of AuditRepository
type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Insert(ctx context.Context, log *models.AuditLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *MockAuditRepository) List(ctx context.Context, limit, offset int) ([]*models.AuditLog, error) {
	args := m.Called(ctx, limit, offset)
	if l := args.Get(0); l != nil {
		return l.([]*models.AuditLog), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAuditRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.AuditLog, error) {
	args := m.Called(ctx, userID, limit, offset)
	if l := args.Get(0); l != nil {
		return l.([]*models.AuditLog), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockAuditRecorder is a mock implementation of AuditRecorder
type MockAuditRecorder struct {
	mock.Mock
}

func (m *MockAuditRecorder) Record(log *models.AuditLog) error {
	args := m.Called(log)
	return args.Error(0)
}

// MockRecordRepository is a mock implementation of RecordRepository
type MockRecordRepository struct {
	mock.Mock
}

func (m *MockRecordRepository) Create(ctx context.Context, record *models.Record) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockRecordRepository) GetByID(ctx context.Context, id string) (*models.Record, error) {
	args := m.Called(ctx, id)
	if r := args.Get(0); r != nil {
		return r.(*models.Record), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockGrantRepository is a mock implementation of GrantRepository
type MockGrantRepository struct {
	mock.Mock
}

func (m *MockGrantRepository) Upsert(ctx context.Context, grant *models.RecordGrant) error {
	args := m.Called(ctx, grant)
	return args.Error(0)
}

func (m *MockGrantRepository) Get(ctx context.Context, recordID, granteeID string) (*models.RecordGrant, error) {
	args := m.Called(ctx, recordID, granteeID)
	if g := args.Get(0); g != nil {
		return g.(*models.RecordGrant), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGrantRepository) Revoke(ctx context.Context, recordID, granteeID string, at time.Time) error {
	args := m.Called(ctx, recordID, granteeID, at)
	return args.Error(0)
}

func (m *MockGrantRepository) ListByRecord(ctx context.Context, recordID string) ([]*models.RecordGrant, error) {
	args := m.Called(ctx, recordID)
	if g := args.Get(0); g != nil {
		return g.([]*models.RecordGrant), args.Error(1)
	}
	return nil, args.Error(1)
}
