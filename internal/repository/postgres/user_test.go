package postgres_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trainingportal-backend/internal/domain"
	"trainingportal-backend/internal/repository"
	"trainingportal-backend/internal/repository/postgres"
)

var userRowColumns = []string{"id", "email", "phone_number", "id_number", "name", "role", "created_on"}

func TestUserRepository(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := postgres.NewUserRepository(db)
	ctx := context.Background()
	created := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	t.Run("GetByID", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM users WHERE id = \\$1").
			WithArgs(int32(10)).
			WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow(10, "owner@example.com", "", "12345678", "Owner", "USER", created))

		u, err := repo.GetByID(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, "12345678", u.IDNumber)
		assert.Equal(t, domain.RoleUser, u.Role)
		assert.Equal(t, "2024-01-02", u.CreatedOn)
	})

	t.Run("GetByIDMissing", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM users WHERE id = \\$1").WithArgs(int32(11)).WillReturnError(sql.ErrNoRows)

		_, err := repo.GetByID(ctx, 11)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("ListByRole", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM users WHERE role = \\$1").
			WithArgs("ADMIN").
			WillReturnRows(sqlmock.NewRows(userRowColumns).
				AddRow(1, "a@portal.test", "", "", "Admin A", "ADMIN", created).
				AddRow(2, "b@portal.test", "", "", "Admin B", "ADMIN", created))

		admins, err := repo.ListByRole(ctx, domain.RoleAdmin)
		require.NoError(t, err)
		assert.Len(t, admins, 2)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
