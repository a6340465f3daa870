package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"trainingportal-backend/internal/domain"
	"trainingportal-backend/internal/logger"
	"trainingportal-backend/internal/repository"
)

type applicationRepository struct {
	db     *sql.DB
	txOpts TxOptions
}

func NewApplicationRepository(db *sql.DB, txOpts TxOptions) repository.ApplicationRepository {
	return &applicationRepository{db: db, txOpts: txOpts}
}

const applicationColumns = `a.id, a.status, a.fee_cents, a.currency, a.delivery_mode, a.owner_id, a.created_by_id,
	a.organization_id, a.training_session_id, COALESCE(a.message, ''), COALESCE(a.rejection_reason, ''),
	a.approved_by_id, a.approved_at, a.created_at, a.updated_at`

func scanApplication(row interface{ Scan(...any) error }) (*domain.Application, error) {
	a := &domain.Application{}
	var orgID, approvedBy sql.NullInt32
	var approvedAt sql.NullTime
	err := row.Scan(&a.ID, &a.Status, &a.FeeCents, &a.Currency, &a.DeliveryMode, &a.OwnerID, &a.CreatedByID,
		&orgID, &a.TrainingSessionID, &a.Message, &a.RejectionReason,
		&approvedBy, &approvedAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.OrganizationID = int32Ptr(orgID)
	a.ApprovedByID = int32Ptr(approvedBy)
	a.ApprovedAt = timePtr(approvedAt)
	return a, nil
}

func scanApplications(rows *sql.Rows) ([]domain.Application, error) {
	defer rows.Close()
	var apps []domain.Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, *a)
	}
	return apps, rows.Err()
}

func (r *applicationRepository) GetByID(ctx context.Context, id int32) (*domain.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications a WHERE a.id = $1`
	a, err := scanApplication(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

// List returns one page of applications, newest first. An empty status
// matches every status.
func (r *applicationRepository) List(ctx context.Context, status domain.ApplicationStatus, page, pageSize int32) ([]domain.Application, int32, error) {
	offset := (page - 1) * pageSize

	var count int32
	countQuery := `SELECT count(*) FROM applications a WHERE ($1 = '' OR a.status = $1)`
	if err := r.db.QueryRowContext(ctx, countQuery, string(status)).Scan(&count); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + applicationColumns + ` FROM applications a
	          WHERE ($1 = '' OR a.status = $1)
	          ORDER BY a.created_at DESC, a.id DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, string(status), pageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	apps, err := scanApplications(rows)
	if err != nil {
		return nil, 0, err
	}
	return apps, count, nil
}

func (r *applicationRepository) CountByStatus(ctx context.Context, status domain.ApplicationStatus) (int32, error) {
	var count int32
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM applications WHERE status = $1`, status).Scan(&count)
	return count, err
}

// ListAwaitingPayment selects by outstanding balance rather than invoice
// status: a part payment settles the invoice row but leaves a balance owing.
func (r *applicationRepository) ListAwaitingPayment(ctx context.Context, issuedBefore time.Time) ([]domain.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications a
	          WHERE a.status = 'APPROVED'
	            AND (SELECT MIN(i.created_at) FROM invoices i WHERE i.application_id = a.id) < $1
	            AND (SELECT COALESCE(SUM(p.amount_cents), 0) FROM payments p
	                 WHERE p.application_id = a.id AND p.currency = a.currency) < a.fee_cents
	          ORDER BY a.id`
	rows, err := r.db.QueryContext(ctx, query, issuedBefore)
	if err != nil {
		return nil, err
	}
	return scanApplications(rows)
}

// Reject moves a PENDING application to REJECTED. Returns
// repository.ErrStatusConflict when the application is no longer PENDING.
func (r *applicationRepository) Reject(ctx context.Context, id int32, reason string) error {
	query := `UPDATE applications SET status = 'REJECTED', rejection_reason = $2, updated_at = $3
	          WHERE id = $1 AND status = 'PENDING'`
	logger.DatabaseCall("UPDATE", "applications", "applicationID", id, "status", "REJECTED")
	result, err := r.db.ExecContext(ctx, query, id, reason, time.Now().UTC())
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err)
		return err
	}
	rows, err := result.RowsAffected()
	logger.DatabaseResult("UPDATE", rows, err)
	if err != nil {
		return err
	}
	if rows == 0 {
		return repository.ErrStatusConflict
	}
	return nil
}

func (r *applicationRepository) Delete(ctx context.Context, id int32) error {
	return withTx(ctx, r.db, r.txOpts, "delete application", func(ctx context.Context, tx *sql.Tx) error {
		statements := []string{
			`DELETE FROM documents WHERE application_id = $1`,
			`DELETE FROM payment_references WHERE payment_id IN (SELECT id FROM payments WHERE application_id = $1)`,
			`DELETE FROM payments WHERE application_id = $1`,
			`DELETE FROM invoices WHERE application_id = $1`,
			`DELETE FROM participants WHERE application_id = $1`,
			`UPDATE notifications SET application_id = NULL WHERE application_id = $1`,
		}
		for _, stmt := range statements {
			if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
				return fmt.Errorf("delete application %d: %w", id, err)
			}
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM applications WHERE id = $1`, id)
		if err != nil {
			return err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return repository.ErrNotFound
		}
		return nil
	})
}

func (r *applicationRepository) ListParticipants(ctx context.Context, applicationID int32) ([]domain.Participant, error) {
	query := `SELECT id, application_id, name, COALESCE(email, ''), COALESCE(phone, ''), COALESCE(designation, ''), created_at
	          FROM participants WHERE application_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []domain.Participant
	for rows.Next() {
		var p domain.Participant
		if err := rows.Scan(&p.ID, &p.ApplicationID, &p.Name, &p.Email, &p.Phone, &p.Designation, &p.CreatedAt); err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

func (r *applicationRepository) GetParticipant(ctx context.Context, id int32) (*domain.Participant, error) {
	p := &domain.Participant{}
	query := `SELECT id, application_id, name, COALESCE(email, ''), COALESCE(phone, ''), COALESCE(designation, ''), created_at
	          FROM participants WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.ApplicationID, &p.Name, &p.Email, &p.Phone, &p.Designation, &p.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func (r *applicationRepository) DeleteParticipant(ctx context.Context, applicationID, participantID int32) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM participants WHERE id = $1 AND application_id = $2`, participantID, applicationID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}
