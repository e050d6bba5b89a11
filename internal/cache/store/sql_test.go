package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLStore(sqlx.NewDb(db, "postgres"), time.Second), mock
}

func TestSQLStore_GetHit(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT value`).
		WithArgs("abc123", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow([]byte(`{"data":[]}`)))

	value, ok, err := s.Get(context.Background(), "abc123")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte(`{"data":[]}`), value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_GetMiss(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT value`).
		WithArgs("missing", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	_, ok, err := s.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_SetUpserts(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO cache_entries`).
		WithArgs("abc123", []byte("payload"), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.Set(context.Background(), "abc123", []byte("payload"), time.Hour)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_Delete(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`DELETE FROM cache_entries WHERE key`).
		WithArgs("abc123").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Delete(context.Background(), "abc123"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_CleanupExpired(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`DELETE FROM cache_entries WHERE expiry`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 7))

	n, err := s.CleanupExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
