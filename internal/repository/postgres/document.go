package postgres

import (
	"context"
	"database/sql"

	"trainingportal-backend/internal/domain"
	"trainingportal-backend/internal/repository"
)

type documentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) repository.DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) ListByApplication(ctx context.Context, applicationID int32) ([]domain.Document, error) {
	query := `SELECT id, application_id, payment_id, kind, file_name, storage_key, url, created_at
	          FROM documents WHERE application_id = $1 ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		var d domain.Document
		var paymentID sql.NullInt32
		if err := rows.Scan(&d.ID, &d.ApplicationID, &paymentID, &d.Kind, &d.FileName, &d.StorageKey, &d.URL, &d.CreatedAt); err != nil {
			return nil, err
		}
		d.PaymentID = int32Ptr(paymentID)
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// insertDocument writes a document inside an open transaction.
func insertDocument(ctx context.Context, tx *sql.Tx, d *domain.Document) error {
	query := `INSERT INTO documents (application_id, payment_id, kind, file_name, storage_key, url, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	return tx.QueryRowContext(ctx, query, d.ApplicationID, nullInt32(d.PaymentID), d.Kind, d.FileName, d.StorageKey, d.URL, d.CreatedAt).Scan(&d.ID)
}
