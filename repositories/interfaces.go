package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/upb/emr-gateway/models"
)

var (
	// ErrNotFound is returned when a lookup matches no row
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when an insert violates a unique constraint
	ErrDuplicate = errors.New("duplicate record")
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// UserRepository handles user data operations
type UserRepository interface {
	// Create creates a new user; ErrDuplicate when the username is taken
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// GetByUsername retrieves a user by login name
	GetByUsername(ctx context.Context, username string) (*models.User, error)

	// List retrieves users ordered by username with pagination
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
}

// AuditRepository handles audit log data operations
type AuditRepository interface {
	// Insert inserts a new audit log entry
	Insert(ctx context.Context, log *models.AuditLog) error

	// List retrieves the most recent audit logs with pagination
	List(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)

	// ListByUser retrieves audit logs for one user with pagination
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.AuditLog, error)
}

// RecordRepository handles record ownership data
type RecordRepository interface {
	// Create registers a record; ErrDuplicate when the ID is taken
	Create(ctx context.Context, record *models.Record) error

	// GetByID retrieves a record by its ID
	GetByID(ctx context.Context, id string) (*models.Record, error)
}

// GrantRepository handles per-record access grants
type GrantRepository interface {
	// Upsert creates the grant or replaces the existing one for the same
	// record and grantee, reactivating it if it was revoked
	Upsert(ctx context.Context, grant *models.RecordGrant) error

	// Get retrieves the grant for a record and grantee, revoked or not
	Get(ctx context.Context, recordID, granteeID string) (*models.RecordGrant, error)

	// Revoke marks the active grant revoked at the given time;
	// ErrNotFound when no active grant exists
	Revoke(ctx context.Context, recordID, granteeID string, at time.Time) error

	// ListByRecord retrieves all grants for a record ordered by grant time
	ListByRecord(ctx context.Context, recordID string) ([]*models.RecordGrant, error)
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Users     UserRepository
	AuditLogs AuditRepository
	Records   RecordRepository
	Grants    GrantRepository
}
