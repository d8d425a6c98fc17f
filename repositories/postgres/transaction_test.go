package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/emr-gateway/auth"
	"github.com/upb/emr-gateway/models"
	"github.com/upb/emr-gateway/repositories"
	"go.uber.org/zap"
)

func TestTransactionManager_InTransaction(t *testing.T) {
	t.Run("commits and routes writes through the tx", func(t *testing.T) {
		db, mock := newMockDB(t)
		tm := NewTransactionManager(db, zap.NewNop())
		users := NewUserRepository(db, zap.NewNop())

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := tm.InTransaction(context.Background(), func(ctx context.Context, tx repositories.Transaction) error {
			_, ok := GetTransactionFromContext(ctx)
			assert.True(t, ok)
			return users.Create(ctx, models.NewUser("a", "a@b.c", "", "h", auth.RoleNurse))
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		db, mock := newMockDB(t)
		tm := NewTransactionManager(db, zap.NewNop())
		boom := errors.New("boom")

		mock.ExpectBegin()
		mock.ExpectRollback()

		err := tm.InTransaction(context.Background(), func(ctx context.Context, tx repositories.Transaction) error {
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back and re-panics", func(t *testing.T) {
		db, mock := newMockDB(t)
		tm := NewTransactionManager(db, zap.NewNop())

		mock.ExpectBegin()
		mock.ExpectRollback()

		assert.PanicsWithValue(t, "kaboom", func() {
			_ = tm.InTransaction(context.Background(), func(ctx context.Context, tx repositories.Transaction) error {
				panic("kaboom")
			})
		})
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nested call joins the outer transaction", func(t *testing.T) {
		db, mock := newMockDB(t)
		tm := NewTransactionManager(db, zap.NewNop())

		mock.ExpectBegin()
		mock.ExpectCommit()

		err := tm.InTransaction(context.Background(), func(ctx context.Context, outer repositories.Transaction) error {
			return tm.InTransaction(ctx, func(ctx context.Context, inner repositories.Transaction) error {
				assert.Same(t, outer, inner)
				return nil
			})
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin failure", func(t *testing.T) {
		db, mock := newMockDB(t)
		tm := NewTransactionManager(db, zap.NewNop())

		mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

		called := false
		err := tm.InTransaction(context.Background(), func(ctx context.Context, tx repositories.Transaction) error {
			called = true
			return nil
		})
		assert.ErrorContains(t, err, "failed to begin transaction")
		assert.False(t, called)
	})
}

func TestDB_HealthCheck(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectPing()
		mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

		assert.NoError(t, db.HealthCheck(context.Background()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ping fails", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectPing().WillReturnError(errors.New("connection refused"))

		err := db.HealthCheck(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database health check failed")
	})
}
