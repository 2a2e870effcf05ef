package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

func newSlotRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func TestPostgresSlotRepositoryGet(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewPostgresSlotRepository(db)

	rows := sqlmock.NewRows([]string{"key", "payload", "updated_at"}).
		AddRow("lms:courses", `[{"id":"c1"}]`, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT key, payload, updated_at FROM lms_slots WHERE key = $1")).
		WithArgs("lms:courses").
		WillReturnRows(rows)

	payload, err := repo.Get(context.Background(), "lms:courses")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"c1"}]`, string(payload))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSlotRepositoryGetMissing(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewPostgresSlotRepository(db)

	mock.ExpectQuery("SELECT key, payload").
		WithArgs("lms:progress").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "lms:progress")
	assert.True(t, appErrors.Is(err, appErrors.ErrSlotNotFound))
}

func TestPostgresSlotRepositoryGetFailure(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewPostgresSlotRepository(db)

	mock.ExpectQuery("SELECT key, payload").
		WithArgs("lms:progress").
		WillReturnError(errors.New("connection reset"))

	_, err := repo.Get(context.Background(), "lms:progress")
	require.Error(t, err)
	assert.False(t, appErrors.Is(err, appErrors.ErrSlotNotFound))
}

func TestPostgresSlotRepositorySet(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewPostgresSlotRepository(db)

	mock.ExpectExec("INSERT INTO lms_slots").
		WithArgs("lms:enrollments", `[]`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Set(context.Background(), "lms:enrollments", []byte(`[]`)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSlotRepositoryEnsureSchema(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewPostgresSlotRepository(db)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS lms_slots").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
