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
	"github.com/upb/emr-gateway/utils"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// TokenIssuer mints access tokens for a principal.
type TokenIssuer interface {
	Issue(p auth.Principal) (token string, expiresAt time.Time, err error)
}

// AuditRecorder accepts audit events without blocking the caller.
type AuditRecorder interface {
	Record(log *models.AuditLog) error
}

// RequestMeta is the request information copied onto audit events.
type RequestMeta struct {
	RequestID string
	IPAddress string
	UserAgent string
}

// LoginInput is the body of POST /auth/login.
type LoginInput struct {
	Username string `json:"username" validate:"required,max=50"`
	Password string `json:"password" validate:"required,max=72"`
}

// LoginResult is returned on a successful login.
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

// CreateUserInput is the body of POST /users.
type CreateUserInput struct {
	Username string    `json:"username" validate:"required,min=3,max=50,alphanum"`
	Email    string    `json:"email" validate:"required,email,max=255"`
	FullName string    `json:"fullName" validate:"required,max=100"`
	Password string    `json:"password" validate:"required,min=8,max=72"`
	Role     auth.Role `json:"role" validate:"required,oneof=admin doctor nurse patient"`
}

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// dummyHash is compared against when the username is unknown so that a
// missing account costs the same bcrypt work as a wrong password.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("emr-gateway-dummy-password"), bcrypt.DefaultCost)

// UserService handles login and account management
type UserService struct {
	users    repositories.UserRepository
	audits   repositories.AuditRepository
	txMgr    repositories.TransactionManager
	issuer   TokenIssuer
	recorder AuditRecorder
	logger   *zap.Logger
	hashCost int
}

// NewUserService creates a new user service. recorder may be nil when
// access auditing is disabled.
func NewUserService(
	repos *repositories.Repositories,
	txMgr repositories.TransactionManager,
	issuer TokenIssuer,
	recorder AuditRecorder,
	logger *zap.Logger,
) *UserService {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &UserService{
		users:    repos.Users,
		audits:   repos.AuditLogs,
		txMgr:    txMgr,
		issuer:   issuer,
		recorder: recorder,
		logger:   logger,
		hashCost: bcrypt.DefaultCost,
	}
}

// Login checks the credentials and issues a token. Unknown usernames and
// wrong passwords fail identically.
func (s *UserService) Login(ctx context.Context, input LoginInput, meta RequestMeta) (*LoginResult, error) {
	user, err := s.users.GetByUsername(ctx, input.Username)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, apperr.Unhandled(fmt.Errorf("load user for login: %w", err))
	}

	if user == nil {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(input.Password))
		s.recordLogin(auth.Principal{}, input.Username, false, "unknown user", meta)
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		s.recordLogin(user.Principal(), input.Username, false, "wrong password", meta)
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.issuer.Issue(user.Principal())
	if err != nil {
		return nil, apperr.Unhandled(fmt.Errorf("issue token: %w", err))
	}

	s.recordLogin(user.Principal(), input.Username, true, "", meta)
	s.logger.Info("user logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)),
	)

	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Register creates an account. Only admins may do so; the user row and its
// audit entry are written in the same transaction.
func (s *UserService) Register(ctx context.Context, actor auth.Principal, input CreateUserInput, meta RequestMeta) (*models.User, error) {
	if actor.Role != auth.RoleAdmin {
		return nil, apperr.Forbidden(auth.RequirementMessage(auth.NewRoleSet(auth.RoleAdmin)))
	}
	if !input.Role.Valid() {
		return nil, apperr.ValidationFailed([]string{"role must be one of: admin, doctor, nurse, patient"})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.hashCost)
	if err != nil {
		return nil, apperr.Unhandled(fmt.Errorf("hash password: %w", err))
	}

	user := models.NewUser(input.Username, input.Email, input.FullName, string(hash), input.Role)

	created, err := RunInTxResult(ctx, s.txMgr, func(txCtx context.Context) (*models.User, error) {
		if err := s.users.Create(txCtx, user); err != nil {
			return nil, translateRepoError(err, nil, ErrUsernameTaken, "create user")
		}

		entry := models.NewAuditLog(actor, models.AuditActionUserCreated, "user").
			WithResource(user.ID.String()).
			WithOutcome(true, "").
			WithDetails(map[string]string{"username": user.Username, "role": string(user.Role)}).
			WithRequest(meta.RequestID, meta.IPAddress, meta.UserAgent)
		if err := s.audits.Insert(txCtx, entry); err != nil {
			return nil, apperr.Unhandled(fmt.Errorf("audit user creation: %w", err))
		}
		return user, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user created",
		zap.String("user_id", created.ID.String()),
		zap.String("role", string(created.Role)),
		zap.String("created_by", actor.UserID),
	)
	return created, nil
}

// systemPrincipal is the actor recorded for accounts created at startup.
var systemPrincipal = auth.Principal{UserID: "system", Role: auth.RoleAdmin}

// EnsureAdmin creates the bootstrap admin account unless a user with that
// username already exists. It reports whether an account was created.
func (s *UserService) EnsureAdmin(ctx context.Context, input CreateUserInput) (bool, error) {
	input.Role = auth.RoleAdmin
	if err := utils.ValidateStruct(input); err != nil {
		return false, err
	}

	_, err := s.users.GetByUsername(ctx, input.Username)
	switch {
	case err == nil:
		s.logger.Debug("bootstrap admin already present", zap.String("username", input.Username))
		return false, nil
	case !errors.Is(err, repositories.ErrNotFound):
		return false, translateRepoError(err, nil, nil, "lookup bootstrap admin")
	}

	_, err = s.Register(ctx, systemPrincipal, input, RequestMeta{RequestID: "bootstrap"})
	if errors.Is(err, ErrUsernameTaken) {
		// another instance won the race
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetUser looks a user up by its textual id.
func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrInvalidUserID
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, translateRepoError(err, ErrUserNotFound, nil, "get user")
	}
	return user, nil
}

// ListUsers returns one page of users.
func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	limit, offset = NormalizePage(limit, offset)

	users, err := s.users.List(ctx, limit, offset)
	if err != nil {
		return nil, translateRepoError(err, nil, nil, "list users")
	}
	if users == nil {
		users = []*models.User{}
	}
	return users, nil
}

func (s *UserService) recordLogin(actor auth.Principal, username string, success bool, reason string, meta RequestMeta) {
	action := models.AuditActionLogin
	if !success {
		action = models.AuditActionLoginFailed
	}

	entry := models.NewAuditLog(actor, action, "session").
		WithResource(username).
		WithOutcome(success, reason).
		WithRequest(meta.RequestID, meta.IPAddress, meta.UserAgent)

	if err := s.recorder.Record(entry); err != nil {
		s.logger.Warn("failed to record login audit event",
			zap.String("action", string(action)),
			zap.Error(err),
		)
	}
}

// NormalizePage clamps pagination arguments to sane bounds.
func NormalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

type noopRecorder struct{}

func (noopRecorder) Record(*models.AuditLog) error { return nil }
