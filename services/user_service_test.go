package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/emr-gateway/apperr"
	"github.com/upb/emr-gateway/auth"
	"github.com/upb/emr-gateway/models"
	"github.com/upb/emr-gateway/repositories"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type MockTokenIssuer struct {
	mock.Mock
}

func (m *MockTokenIssuer) Issue(p auth.Principal) (string, time.Time, error) {
	args := m.Called(p)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

type userServiceFixture struct {
	svc      *UserService
	users    *MockUserRepository
	audits   *MockAuditRepository
	txMgr    *MockTransactionManager
	issuer   *MockTokenIssuer
	recorder *MockAuditRecorder
}

func newUserServiceFixture() *userServiceFixture {
	f := &userServiceFixture{
		users:    new(MockUserRepository),
		audits:   new(MockAuditRepository),
		txMgr:    new(MockTransactionManager),
		issuer:   new(MockTokenIssuer),
		recorder: new(MockAuditRecorder),
	}
	repos := &repositories.Repositories{Users: f.users, AuditLogs: f.audits}
	f.svc = NewUserService(repos, f.txMgr, f.issuer, f.recorder, zap.NewNop())
	f.svc.hashCost = bcrypt.MinCost
	return f
}

func testUser(t *testing.T, password string, role auth.Role) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return models.NewUser("drhouse", "house@clinic.test", "Gregory House", string(hash), role)
}

func TestUserService_Login(t *testing.T) {
	ctx := context.Background()
	meta := RequestMeta{RequestID: "req-1", IPAddress: "10.0.0.1", UserAgent: "test"}

	t.Run("success issues token", func(t *testing.T) {
		f := newUserServiceFixture()
		user := testUser(t, "correct-horse", auth.RoleDoctor)
		expiresAt := time.Now().Add(time.Hour)

		f.users.On("GetByUsername", ctx, "drhouse").Return(user, nil)
		f.issuer.On("Issue", user.Principal()).Return("signed.jwt.token", expiresAt, nil)
		f.recorder.On("Record", mock.MatchedBy(func(l *models.AuditLog) bool {
			return l.Action == models.AuditActionLogin && l.Success && l.RequestID == "req-1"
		})).Return(nil)

		result, err := f.svc.Login(ctx, LoginInput{Username: "drhouse", Password: "correct-horse"}, meta)

		require.NoError(t, err)
		assert.Equal(t, "signed.jwt.token", result.Token)
		assert.Equal(t, expiresAt, result.ExpiresAt)
		assert.Equal(t, user, result.User)
		f.issuer.AssertExpectations(t)
		f.recorder.AssertExpectations(t)
	})

	t.Run("wrong password", func(t *testing.T) {
		f := newUserServiceFixture()
		user := testUser(t, "correct-horse", auth.RoleDoctor)

		f.users.On("GetByUsername", ctx, "drhouse").Return(user, nil)
		f.recorder.On("Record", mock.MatchedBy(func(l *models.AuditLog) bool {
			return l.Action == models.AuditActionLoginFailed && !l.Success && l.Reason == "wrong password"
		})).Return(nil)

		_, err := f.svc.Login(ctx, LoginInput{Username: "drhouse", Password: "battery-staple"}, meta)

		assert.ErrorIs(t, err, ErrInvalidCredentials)
		f.issuer.AssertNotCalled(t, "Issue", mock.Anything)
		f.recorder.AssertExpectations(t)
	})

	t.Run("unknown user fails like a wrong password", func(t *testing.T) {
		f := newUserServiceFixture()

		f.users.On("GetByUsername", ctx, "ghost").Return(nil, repositories.ErrNotFound)
		f.recorder.On("Record", mock.Anything).Return(nil)

		_, err := f.svc.Login(ctx, LoginInput{Username: "ghost", Password: "whatever"}, meta)

		assert.ErrorIs(t, err, ErrInvalidCredentials)
		status, env := apperr.Normalize(err)
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "Invalid credentials", env.Message)
	})

	t.Run("repository failure is internal", func(t *testing.T) {
		f := newUserServiceFixture()
		f.users.On("GetByUsername", ctx, "drhouse").Return(nil, errors.New("connection refused"))

		_, err := f.svc.Login(ctx, LoginInput{Username: "drhouse", Password: "x"}, meta)

		assert.Equal(t, apperr.KindUnhandled, apperr.KindOf(err))
		f.recorder.AssertNotCalled(t, "Record", mock.Anything)
	})

	t.Run("audit failure does not fail login", func(t *testing.T) {
		f := newUserServiceFixture()
		user := testUser(t, "correct-horse", auth.RoleNurse)

		f.users.On("GetByUsername", ctx, "drhouse").Return(user, nil)
		f.issuer.On("Issue", user.Principal()).Return("tok", time.Now(), nil)
		f.recorder.On("Record", mock.Anything).Return(errors.New("audit event buffer full"))

		result, err := f.svc.Login(ctx, LoginInput{Username: "drhouse", Password: "correct-horse"}, meta)

		require.NoError(t, err)
		assert.Equal(t, "tok", result.Token)
	})
}

func TestUserService_Register(t *testing.T) {
	ctx := context.Background()
	admin := auth.Principal{UserID: uuid.NewString(), Role: auth.RoleAdmin}
	input := CreateUserInput{
		Username: "nurse1",
		Email:    "nurse1@clinic.test",
		FullName: "Carla Espinosa",
		Password: "long-enough-password",
		Role:     auth.RoleNurse,
	}

	t.Run("creates user and audit entry in one transaction", func(t *testing.T) {
		f := newUserServiceFixture()
		f.txMgr.On("InTransaction", ctx).Return(nil)
		f.users.On("Create", mock.MatchedBy(inTx), mock.MatchedBy(func(u *models.User) bool {
			return u.Username == "nurse1" && u.Role == auth.RoleNurse && u.PasswordHash != input.Password
		})).Return(nil)
		f.audits.On("Insert", mock.MatchedBy(inTx), mock.MatchedBy(func(l *models.AuditLog) bool {
			return l.Action == models.AuditActionUserCreated && l.UserID == admin.UserID
		})).Return(nil)

		user, err := f.svc.Register(ctx, admin, input, RequestMeta{})

		require.NoError(t, err)
		assert.Equal(t, "nurse1", user.Username)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)))
		assert.True(t, f.txMgr.committed)
		f.users.AssertExpectations(t)
		f.audits.AssertExpectations(t)
	})

	t.Run("duplicate username is a conflict", func(t *testing.T) {
		f := newUserServiceFixture()
		f.txMgr.On("InTransaction", ctx).Return(nil)
		f.users.On("Create", mock.Anything, mock.Anything).Return(repositories.ErrDuplicate)

		_, err := f.svc.Register(ctx, admin, input, RequestMeta{})

		assert.ErrorIs(t, err, ErrUsernameTaken)
		assert.True(t, f.txMgr.rolledback)
		f.audits.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	})

	t.Run("audit insert failure rolls back", func(t *testing.T) {
		f := newUserServiceFixture()
		f.txMgr.On("InTransaction", ctx).Return(nil)
		f.users.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.audits.On("Insert", mock.Anything, mock.Anything).Return(errors.New("disk full"))

		_, err := f.svc.Register(ctx, admin, input, RequestMeta{})

		assert.Equal(t, apperr.KindUnhandled, apperr.KindOf(err))
		assert.True(t, f.txMgr.rolledback)
	})

	t.Run("non-admin is forbidden", func(t *testing.T) {
		f := newUserServiceFixture()
		doctor := auth.Principal{UserID: uuid.NewString(), Role: auth.RoleDoctor}

		_, err := f.svc.Register(ctx, doctor, input, RequestMeta{})

		assert.ErrorIs(t, err, apperr.ErrForbidden)
		status, env := apperr.Normalize(err)
		assert.Equal(t, http.StatusForbidden, status)
		assert.Equal(t, "Admin access required", env.Message)
		f.txMgr.AssertNotCalled(t, "InTransaction", mock.Anything)
	})

	t.Run("unknown role is a validation failure", func(t *testing.T) {
		f := newUserServiceFixture()
		bad := input
		bad.Role = "janitor"

		_, err := f.svc.Register(ctx, admin, bad, RequestMeta{})

		assert.ErrorIs(t, err, apperr.ErrValidation)
	})
}

func TestUserService_GetUser(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		f := newUserServiceFixture()
		user := testUser(t, "pw", auth.RolePatient)
		f.users.On("GetByID", ctx, user.ID).Return(user, nil)

		got, err := f.svc.GetUser(ctx, user.ID.String())

		require.NoError(t, err)
		assert.Equal(t, user, got)
	})

	t.Run("malformed id", func(t *testing.T) {
		f := newUserServiceFixture()

		_, err := f.svc.GetUser(ctx, "not-a-uuid")

		assert.ErrorIs(t, err, ErrInvalidUserID)
		f.users.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("not found", func(t *testing.T) {
		f := newUserServiceFixture()
		id := uuid.New()
		f.users.On("GetByID", ctx, id).Return(nil, repositories.ErrNotFound)

		_, err := f.svc.GetUser(ctx, id.String())

		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestUserService_ListUsers(t *testing.T) {
	ctx := context.Background()

	t.Run("clamps page size", func(t *testing.T) {
		f := newUserServiceFixture()
		f.users.On("List", ctx, 100, 0).Return([]*models.User{}, nil)

		users, err := f.svc.ListUsers(ctx, 1000, -5)

		require.NoError(t, err)
		assert.Empty(t, users)
		f.users.AssertExpectations(t)
	})

	t.Run("nil slice becomes empty", func(t *testing.T) {
		f := newUserServiceFixture()
		f.users.On("List", ctx, 50, 10).Return(nil, nil)

		users, err := f.svc.ListUsers(ctx, 0, 10)

		require.NoError(t, err)
		assert.NotNil(t, users)
	})
}

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		limit, offset         int
		wantLimit, wantOffset int
	}{
		{0, 0, 50, 0},
		{-1, -1, 50, 0},
		{25, 5, 25, 5},
		{101, 0, 100, 0},
	}
	for _, tt := range tests {
		limit, offset := NormalizePage(tt.limit, tt.offset)
		assert.Equal(t, tt.wantLimit, limit)
		assert.Equal(t, tt.wantOffset, offset)
	}
}

func TestUserService_EnsureAdmin(t *testing.T) {
	ctx := context.Background()
	input := CreateUserInput{
		Username: "root",
		Email:    "root@clinic.test",
		FullName: "Bootstrap Admin",
		Password: "bootstrap-password",
	}

	t.Run("creates the admin when missing", func(t *testing.T) {
		f := newUserServiceFixture()
		f.users.On("GetByUsername", ctx, "root").Return(nil, repositories.ErrNotFound)
		f.txMgr.On("InTransaction", ctx).Return(nil)
		f.users.On("Create", mock.MatchedBy(inTx), mock.MatchedBy(func(u *models.User) bool {
			return u.Username == "root" && u.Role == auth.RoleAdmin
		})).Return(nil)
		f.audits.On("Insert", mock.MatchedBy(inTx), mock.MatchedBy(func(l *models.AuditLog) bool {
			return l.UserID == "system" && l.RequestID == "bootstrap"
		})).Return(nil)

		created, err := f.svc.EnsureAdmin(ctx, input)

		require.NoError(t, err)
		assert.True(t, created)
		f.users.AssertExpectations(t)
		f.audits.AssertExpectations(t)
	})

	t.Run("existing account is left alone", func(t *testing.T) {
		f := newUserServiceFixture()
		f.users.On("GetByUsername", ctx, "root").Return(testUser(t, "whatever", auth.RoleDoctor), nil)

		created, err := f.svc.EnsureAdmin(ctx, input)

		require.NoError(t, err)
		assert.False(t, created)
		f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("lost race is not an error", func(t *testing.T) {
		f := newUserServiceFixture()
		f.users.On("GetByUsername", ctx, "root").Return(nil, repositories.ErrNotFound)
		f.txMgr.On("InTransaction", ctx).Return(nil)
		f.users.On("Create", mock.Anything, mock.Anything).Return(repositories.ErrDuplicate)

		created, err := f.svc.EnsureAdmin(ctx, input)

		require.NoError(t, err)
		assert.False(t, created)
	})

	t.Run("weak password is rejected before any lookup", func(t *testing.T) {
		f := newUserServiceFixture()
		weak := input
		weak.Password = "short"

		_, err := f.svc.EnsureAdmin(ctx, weak)

		assert.Equal(t, apperr.KindValidationFailed, apperr.KindOf(err))
		assert.Contains(t, err.Error(), "password must be at least 8 characters")
		f.users.AssertNotCalled(t, "GetByUsername", mock.Anything, mock.Anything)
	})

	t.Run("missing email names the field", func(t *testing.T) {
		f := newUserServiceFixture()
		noEmail := input
		noEmail.Email = ""

		_, err := f.svc.EnsureAdmin(ctx, noEmail)

		assert.Equal(t, apperr.KindValidationFailed, apperr.KindOf(err))
		assert.Contains(t, err.Error(), "email is required")
	})

	t.Run("lookup failure surfaces", func(t *testing.T) {
		f := newUserServiceFixture()
		f.users.On("GetByUsername", ctx, "root").Return(nil, errors.New("connection reset"))

		_, err := f.svc.EnsureAdmin(ctx, input)

		assert.Equal(t, apperr.KindUnhandled, apperr.KindOf(err))
	})
}
