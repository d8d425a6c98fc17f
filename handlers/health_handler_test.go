package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/emr-gateway/repositories/postgres"
	"go.uber.org/zap"
)

func TestHandleLiveness(t *testing.T) {
	handler := NewHealthHandler(nil, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	handler.HandleLiveness(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestHandleReadiness(t *testing.T) {
	logger := zap.NewNop()

	newDB := func(t *testing.T) (*postgres.DB, sqlmock.Sqlmock) {
		t.Helper()
		sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		t.Cleanup(func() { _ = sqlDB.Close() })
		return postgres.Wrap(sqlDB, logger), mock
	}

	decode := func(t *testing.T, w *httptest.ResponseRecorder) HealthResponse {
		t.Helper()
		var resp HealthResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		return resp
	}

	t.Run("ready when database is available", func(t *testing.T) {
		db, mock := newDB(t)
		mock.ExpectPing()
		mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

		handler := NewHealthHandler(db, logger)
		w := httptest.NewRecorder()
		handler.HandleReadiness(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		resp := decode(t, w)
		assert.Equal(t, "ready", resp.Status)
		assert.Equal(t, "healthy", resp.Checks["database"])
		assert.NotEmpty(t, resp.Timestamp)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not ready when ping fails", func(t *testing.T) {
		db, mock := newDB(t)
		mock.ExpectPing().WillReturnError(errors.New("connection refused"))

		handler := NewHealthHandler(db, logger)
		w := httptest.NewRecorder()
		handler.HandleReadiness(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		resp := decode(t, w)
		assert.Equal(t, "not_ready", resp.Status)
		assert.Equal(t, "unhealthy", resp.Checks["database"])
		assert.NotContains(t, w.Body.String(), "connection refused")
	})

	t.Run("not ready when query fails", func(t *testing.T) {
		db, mock := newDB(t)
		mock.ExpectPing()
		mock.ExpectQuery("SELECT 1").WillReturnError(errors.New("query failed"))

		handler := NewHealthHandler(db, logger)
		w := httptest.NewRecorder()
		handler.HandleReadiness(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "unhealthy", decode(t, w).Checks["database"])
	})

	t.Run("not ready without a database", func(t *testing.T) {
		handler := NewHealthHandler(nil, logger)
		w := httptest.NewRecorder()
		handler.HandleReadiness(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		resp := decode(t, w)
		assert.Equal(t, "not_ready", resp.Status)
		assert.Equal(t, "not_initialized", resp.Checks["database"])
	})
}
