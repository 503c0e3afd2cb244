package repository_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/shopswift-api/repository"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

func TestGormUserRepository_FindSummaries(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormUserRepository(gormDB)

	rows := sqlmock.NewRows([]string{"id", "name"}).
		AddRow("u-1", "Ada").
		AddRow("u-2", "Grace")
	mock.ExpectQuery(regexp.QuoteMeta(`FROM "users" WHERE id IN ($1,$2)`)).
		WithArgs("u-1", "u-2").
		WillReturnRows(rows)

	users, err := repo.FindSummaries(context.Background(), []string{"u-1", "u-2"})

	require.NoError(t, err)
	assert.Equal(t, "Ada", users["u-1"].Name)
	assert.Equal(t, "Grace", users["u-2"].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormUserRepository_FindSummaries_Empty(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormUserRepository(gormDB)

	users, err := repo.FindSummaries(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, users)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormUserRepository_FindSummaries_Error(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormUserRepository(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM "users"`)).
		WillReturnError(errors.New("connection reset"))

	_, err := repo.FindSummaries(context.Background(), []string{"u-1"})
	assert.ErrorContains(t, err, "connection reset")
}
