package postgres

import (
	"context"
	"database/sql"

	"trainingportal-backend/internal/domain"
	"trainingportal-backend/internal/repository"
)

type invoiceRepository struct {
	db *sql.DB
}

func NewInvoiceRepository(db *sql.DB) repository.InvoiceRepository {
	return &invoiceRepository{db: db}
}

const invoiceColumns = `id, application_id, invoice_number, invoice_link, bill_reference, email,
	amount_cents, currency, status, created_at, updated_at`

func scanInvoice(row *sql.Row) (*domain.Invoice, error) {
	i := &domain.Invoice{}
	err := row.Scan(&i.ID, &i.ApplicationID, &i.InvoiceNumber, &i.InvoiceLink, &i.BillReference, &i.Email,
		&i.AmountCents, &i.Currency, &i.Status, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return i, nil
}

// GetByApplication returns the most recent invoice of the application.
func (r *invoiceRepository) GetByApplication(ctx context.Context, applicationID int32) (*domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE application_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1`
	return scanInvoice(r.db.QueryRowContext(ctx, query, applicationID))
}

func (r *invoiceRepository) GetByNumber(ctx context.Context, applicationID int32, invoiceNumber string) (*domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE application_id = $1 AND invoice_number = $2`
	return scanInvoice(r.db.QueryRowContext(ctx, query, applicationID, invoiceNumber))
}
