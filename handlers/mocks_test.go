package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/emr-gateway/auth"
	"github.com/upb/emr-gateway/middleware"
	"github.com/upb/emr-gateway/models"
	"github.com/upb/emr-gateway/services"
)

// MockUserService implements both LoginService and UserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Login(ctx context.Context, input services.LoginInput, meta services.RequestMeta) (*services.LoginResult, error) {
	args := m.Called(ctx, input, meta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.LoginResult), args.Error(1)
}

func (m *MockUserService) Register(ctx context.Context, actor auth.Principal, input services.CreateUserInput, meta services.RequestMeta) (*models.User, error) {
	args := m.Called(ctx, actor, input, meta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

// MockPermissionService is a mock implementation of PermissionService
type MockPermissionService struct {
	mock.Mock
}

func (m *MockPermissionService) Check(ctx context.Context, p auth.Principal, input services.PermissionCheckInput, meta services.RequestMeta) (*services.PermissionDecision, error) {
	args := m.Called(ctx, p, input, meta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.PermissionDecision), args.Error(1)
}

func (m *MockPermissionService) Grant(ctx context.Context, actor auth.Principal, input services.GrantInput, meta services.RequestMeta) (*models.RecordGrant, error) {
	args := m.Called(ctx, actor, input, meta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RecordGrant), args.Error(1)
}

func (m *MockPermissionService) Revoke(ctx context.Context, actor auth.Principal, recordID, granteeID string, meta services.RequestMeta) error {
	args := m.Called(ctx, actor, recordID, granteeID, meta)
	return args.Error(0)
}

func (m *MockPermissionService) ListGrants(ctx context.Context, actor auth.Principal, recordID string) ([]*models.RecordGrant, error) {
	args := m.Called(ctx, actor, recordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.RecordGrant), args.Error(1)
}

// MockRecordService is a mock implementation of RecordService
type MockRecordService struct {
	mock.Mock
}

func (m *MockRecordService) CreateRecord(ctx context.Context, actor auth.Principal, input services.RecordInput, meta services.RequestMeta) (*models.Record, error) {
	args := m.Called(ctx, actor, input, meta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Record), args.Error(1)
}

func (m *MockRecordService) GetRecord(ctx context.Context, id string) (*models.Record, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Record), args.Error(1)
}

// MockAuditReader is a mock implementation of AuditReader
type MockAuditReader struct {
	mock.Mock
}

func (m *MockAuditReader) List(ctx context.Context, limit, offset int) ([]*models.AuditLog, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AuditLog), args.Error(1)
}

func (m *MockAuditReader) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.AuditLog, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AuditLog), args.Error(1)
}

// withPrincipal mimics the auth pipeline having run.
func withPrincipal(r *http.Request, p auth.Principal) *http.Request {
	return r.WithContext(middleware.WithPrincipal(r.Context(), p))
}

// withBody mimics ValidateBody having run.
func withBody[T any](r *http.Request, b *T) *http.Request {
	return r.WithContext(middleware.WithBody(r.Context(), b))
}

type envelope struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Errors  []string        `json:"errors"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
	return env
}
