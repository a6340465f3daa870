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

type workflowRepository struct {
	db     *sql.DB
	txOpts TxOptions
	now    func() time.Time
}

func NewWorkflowRepository(db *sql.DB, txOpts TxOptions) repository.WorkflowRepository {
	return &workflowRepository{db: db, txOpts: txOpts, now: time.Now}
}

func (r *workflowRepository) ClaimApproval(ctx context.Context, applicationID int32, token string, staleBefore time.Time) error {
	logger.DatabaseCall("UPDATE", "applications", "applicationID", applicationID, "claim", token)
	result, err := r.db.ExecContext(ctx,
		`UPDATE applications
		 SET approval_claim = $2, approval_claimed_at = $3
		 WHERE id = $1 AND status = 'PENDING'
		   AND (approval_claim IS NULL OR approval_claimed_at < $4)`,
		applicationID, token, r.now().UTC(), staleBefore.UTC())
	if err != nil {
		return fmt.Errorf("claim application: %w", err)
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

func (r *workflowRepository) ReleaseApproval(ctx context.Context, applicationID int32, token string) error {
	logger.DatabaseCall("UPDATE", "applications", "applicationID", applicationID, "release", token)
	_, err := r.db.ExecContext(ctx,
		`UPDATE applications SET approval_claim = NULL, approval_claimed_at = NULL
		 WHERE id = $1 AND approval_claim = $2`,
		applicationID, token)
	if err != nil {
		return fmt.Errorf("release application: %w", err)
	}
	return nil
}

func (r *workflowRepository) CommitApproval(ctx context.Context, rec *repository.ApprovalRecord) error {
	logger.EnterMethod("workflowRepository.CommitApproval", "applicationID", rec.ApplicationID)
	now := r.now().UTC()

	err := withTx(ctx, r.db, r.txOpts, "commit approval", func(ctx context.Context, tx *sql.Tx) error {
		logger.DatabaseCall("UPDATE", "applications", "applicationID", rec.ApplicationID, "status", "APPROVED")
		result, err := tx.ExecContext(ctx,
			`UPDATE applications
			 SET status = 'APPROVED', fee_cents = $2, message = $3, approved_by_id = $4, approved_at = $5, updated_at = $6,
			     approval_claim = NULL, approval_claimed_at = NULL
			 WHERE id = $1 AND status = 'PENDING' AND approval_claim = $7`,
			rec.ApplicationID, rec.FeeCents, rec.Message, rec.ApprovedByID, rec.ApprovedAt, now, rec.ClaimToken)
		if err != nil {
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

		for _, d := range rec.Documents {
			d.ApplicationID = rec.ApplicationID
			d.CreatedAt = now
			if err := insertDocument(ctx, tx, d); err != nil {
				return fmt.Errorf("insert %s document: %w", d.Kind, err)
			}
		}

		inv := rec.Invoice
		inv.ApplicationID = rec.ApplicationID
		inv.CreatedAt = now
		inv.UpdatedAt = now
		logger.DatabaseCall("INSERT", "invoices", "applicationID", rec.ApplicationID, "invoiceNumber", inv.InvoiceNumber)
		err = tx.QueryRowContext(ctx,
			`INSERT INTO invoices (application_id, invoice_number, invoice_link, bill_reference, email, amount_cents, currency, status, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`,
			inv.ApplicationID, inv.InvoiceNumber, inv.InvoiceLink, inv.BillReference, inv.Email,
			inv.AmountCents, inv.Currency, inv.Status, inv.CreatedAt, inv.UpdatedAt).Scan(&inv.ID)
		logger.DatabaseResult("INSERT", 1, err, "invoiceID", inv.ID)
		if err != nil {
			return fmt.Errorf("insert invoice: %w", err)
		}
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("workflowRepository.CommitApproval", err, "applicationID", rec.ApplicationID)
		return err
	}
	logger.ExitMethod("workflowRepository.CommitApproval", "applicationID", rec.ApplicationID)
	return nil
}

// CommitSettlement records the payment, its references and receipt, settles
// the invoice and completes the application once the fee is covered.
func (r *workflowRepository) CommitSettlement(ctx context.Context, rec *repository.SettlementRecord) (bool, error) {
	logger.EnterMethod("workflowRepository.CommitSettlement", "applicationID", rec.ApplicationID, "invoiceID", rec.InvoiceID)
	now := r.now().UTC()
	completed := false

	err := withTx(ctx, r.db, r.txOpts, "commit settlement", func(ctx context.Context, tx *sql.Tx) error {
		p := rec.Payment
		p.ApplicationID = rec.ApplicationID
		p.InvoiceID = rec.InvoiceID
		p.CreatedAt = now
		err := tx.QueryRowContext(ctx,
			`INSERT INTO payments (application_id, invoice_id, amount_cents, currency, channel, paid_at, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
			p.ApplicationID, p.InvoiceID, p.AmountCents, p.Currency, p.Channel, p.PaidAt, p.CreatedAt).Scan(&p.ID)
		if err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}

		for i := range p.References {
			ref := &p.References[i]
			ref.PaymentID = p.ID
			err := tx.QueryRowContext(ctx,
				`INSERT INTO payment_references (payment_id, reference, amount_cents, currency, paid_at)
				 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
				ref.PaymentID, ref.Reference, ref.AmountCents, ref.Currency, ref.PaidAt).Scan(&ref.ID)
			if err != nil {
				if isUniqueViolation(err) {
					return repository.ErrDuplicatePayment
				}
				return fmt.Errorf("insert payment reference: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx, `UPDATE invoices SET status = $2, updated_at = $3 WHERE id = $1`,
			rec.InvoiceID, domain.InvoiceStatusSettled, now); err != nil {
			return fmt.Errorf("settle invoice: %w", err)
		}

		if rec.Receipt != nil {
			rec.Receipt.ApplicationID = rec.ApplicationID
			rec.Receipt.PaymentID = &p.ID
			rec.Receipt.CreatedAt = now
			if err := insertDocument(ctx, tx, rec.Receipt); err != nil {
				return fmt.Errorf("insert receipt: %w", err)
			}
		}

		var paid int64
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(SUM(amount_cents), 0) FROM payments WHERE application_id = $1 AND currency = $2`,
			rec.ApplicationID, rec.Currency).Scan(&paid); err != nil {
			return fmt.Errorf("sum payments: %w", err)
		}
		if paid < rec.FeeCents {
			return nil
		}

		result, err := tx.ExecContext(ctx,
			`UPDATE applications SET status = 'COMPLETED', updated_at = $2 WHERE id = $1 AND status = 'APPROVED'`,
			rec.ApplicationID, now)
		if err != nil {
			return fmt.Errorf("complete application: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		completed = rows > 0
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("workflowRepository.CommitSettlement", err, "applicationID", rec.ApplicationID)
		return false, err
	}
	logger.ExitMethod("workflowRepository.CommitSettlement", "applicationID", rec.ApplicationID, "completed", completed)
	return completed, nil
}
