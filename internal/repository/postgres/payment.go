package postgres

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"trainingportal-backend/internal/domain"
	"trainingportal-backend/internal/repository"
)

type paymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) repository.PaymentRepository {
	return &paymentRepository{db: db}
}

// ListByApplication returns the payments in the order they were made, each
// with its gateway references.
func (r *paymentRepository) ListByApplication(ctx context.Context, applicationID int32) ([]domain.Payment, error) {
	query := `SELECT id, application_id, invoice_id, amount_cents, currency, COALESCE(channel, ''), paid_at, created_at
	          FROM payments WHERE application_id = $1 ORDER BY paid_at, id`
	rows, err := r.db.QueryContext(ctx, query, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []domain.Payment
	index := make(map[int32]int)
	var ids []int32
	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(&p.ID, &p.ApplicationID, &p.InvoiceID, &p.AmountCents, &p.Currency, &p.Channel, &p.PaidAt, &p.CreatedAt); err != nil {
			return nil, err
		}
		index[p.ID] = len(payments)
		ids = append(ids, p.ID)
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return payments, nil
	}

	refQuery := `SELECT id, payment_id, reference, amount_cents, currency, paid_at
	             FROM payment_references WHERE payment_id = ANY($1) ORDER BY id`
	refRows, err := r.db.QueryContext(ctx, refQuery, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer refRows.Close()

	for refRows.Next() {
		var ref domain.PaymentReference
		if err := refRows.Scan(&ref.ID, &ref.PaymentID, &ref.Reference, &ref.AmountCents, &ref.Currency, &ref.PaidAt); err != nil {
			return nil, err
		}
		if i, ok := index[ref.PaymentID]; ok {
			payments[i].References = append(payments[i].References, ref)
		}
	}
	return payments, refRows.Err()
}
