package profile

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserIDByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT user_id\s+FROM profiles`).
		WithArgs("viewer@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("u1"))

	repo := NewRepository(db)
	userID, err := repo.UserIDByEmail(context.Background(), "viewer@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserIDByEmailAbsent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT user_id\s+FROM profiles`).
		WithArgs("ghost@example.com").
		WillReturnError(sql.ErrNoRows)

	repo := NewRepository(db)
	_, err = repo.UserIDByEmail(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestCreateProfileIgnoresDuplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO profiles`).
		WithArgs("u1", "viewer@example.com", "Viewer", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewRepository(db)
	require.NoError(t, repo.CreateProfile(context.Background(), "u1", "viewer@example.com", "Viewer"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateReturnsFreshRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"user_id", "email", "display_name", "favourite_genre", "created_at", "updated_at"}).
		AddRow("u1", "viewer@example.com", "New Name", "noir", now, now)

	mock.ExpectQuery(`UPDATE profiles`).
		WithArgs("viewer@example.com", "New Name", "noir", sqlmock.AnyArg()).
		WillReturnRows(rows)

	repo := NewRepository(db)
	p, err := repo.Update(context.Background(), "viewer@example.com", "New Name", "noir")
	require.NoError(t, err)
	assert.Equal(t, "New Name", p.DisplayName)
	assert.Equal(t, "noir", p.FavouriteGenre)
	assert.NoError(t, mock.ExpectationsWereMet())
}
