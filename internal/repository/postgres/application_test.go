package postgres_test

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trainingportal-backend/internal/domain"
	"trainingportal-backend/internal/repository"
	"trainingportal-backend/internal/repository/postgres"
)

var applicationRowColumns = []string{
	"id", "status", "fee_cents", "currency", "delivery_mode", "owner_id", "created_by_id",
	"organization_id", "training_session_id", "message", "rejection_reason",
	"approved_by_id", "approved_at", "created_at", "updated_at",
}

func TestApplicationRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := postgres.NewApplicationRepository(db, txOpts)
	ctx := context.Background()
	created := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	t.Run("Found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM applications a WHERE a.id = \\$1").
			WithArgs(int32(7)).
			WillReturnRows(sqlmock.NewRows(applicationRowColumns).
				AddRow(7, "PENDING", 5000000, "KES", "PHYSICAL", 10, 11, 4, 3, "", "", nil, nil, created, created))

		app, err := repo.GetByID(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, domain.ApplicationStatusPending, app.Status)
		assert.Equal(t, int64(5000000), app.FeeCents)
		require.NotNil(t, app.OrganizationID)
		assert.Equal(t, int32(4), *app.OrganizationID)
		assert.Nil(t, app.ApprovedByID)
		assert.Nil(t, app.ApprovedAt)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM applications a WHERE a.id = \\$1").
			WithArgs(int32(8)).
			WillReturnError(sql.ErrNoRows)

		_, err := repo.GetByID(ctx, 8)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepository_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := postgres.NewApplicationRepository(db, txOpts)
	created := time.Now()

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM applications").
		WithArgs("APPROVED").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(21))
	mock.ExpectQuery("SELECT (.+) FROM applications a").
		WithArgs("APPROVED", int32(10), int32(10)).
		WillReturnRows(sqlmock.NewRows(applicationRowColumns).
			AddRow(9, "APPROVED", 100, "KES", "VIRTUAL", 10, 10, nil, 3, "", "", 99, created, created, created))

	apps, total, err := repo.List(context.Background(), domain.ApplicationStatusApproved, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, int32(21), total)
	require.Len(t, apps, 1)
	assert.Equal(t, int32(99), *apps[0].ApprovedByID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepository_Reject(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := postgres.NewApplicationRepository(db, txOpts)
	ctx := context.Background()

	mock.ExpectExec("UPDATE applications SET status = 'REJECTED'").
		WithArgs(int32(7), "Full", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, repo.Reject(ctx, 7, "Full"))

	mock.ExpectExec("UPDATE applications SET status = 'REJECTED'").
		WithArgs(int32(7), "Full", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Reject(ctx, 7, "Full"), repository.ErrStatusConflict)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepository_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := postgres.NewApplicationRepository(db, txOpts)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM documents").WithArgs(int32(7)).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("DELETE FROM payment_references").WithArgs(int32(7)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM payments").WithArgs(int32(7)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM invoices").WithArgs(int32(7)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM participants").WithArgs(int32(7)).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("UPDATE notifications SET application_id = NULL").WithArgs(int32(7)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM applications").WithArgs(int32(7)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	assert.NoError(t, repo.Delete(context.Background(), 7))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepository_DeleteParticipant(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := postgres.NewApplicationRepository(db, txOpts)

	mock.ExpectExec("DELETE FROM participants WHERE id = \\$1 AND application_id = \\$2").
		WithArgs(int32(2), int32(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.DeleteParticipant(context.Background(), 7, 2)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepository_ListAwaitingPayment(t *testing.T) {
	// Part payments mark the invoice SETTLED, so selection must not depend on
	// invoice status.
	matcher := sqlmock.QueryMatcherFunc(func(expected, actual string) error {
		if strings.Contains(actual, "i.status") {
			return fmt.Errorf("query filters on invoice status: %s", actual)
		}
		return sqlmock.QueryMatcherRegexp.Match(expected, actual)
	})
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(matcher))
	require.NoError(t, err)
	defer db.Close()

	repo := postgres.NewApplicationRepository(db, txOpts)
	cutoff := time.Date(2025, 6, 7, 2, 0, 0, 0, time.UTC)
	approved := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM applications a\s+WHERE a.status = 'APPROVED'` +
		`.+MIN\(i.created_at\).+< \$1` +
		`.+` + regexp.QuoteMeta("COALESCE(SUM(p.amount_cents), 0)") + `.+p.currency = a.currency\) < a.fee_cents`).
		WithArgs(cutoff).
		WillReturnRows(sqlmock.NewRows(applicationRowColumns).
			AddRow(7, "APPROVED", 5000000, "KES", "PHYSICAL", 10, 11, nil, 3, "", "", 99, approved, approved, approved))

	apps, err := repo.ListAwaitingPayment(context.Background(), cutoff)
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, int32(7), apps[0].ID)
	assert.Equal(t, domain.ApplicationStatusApproved, apps[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
