package postgres

import (
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"trainingportal-backend/internal/repository"
)

// uniqueViolation is the PostgreSQL SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

type Store struct {
	db *sql.DB
	repository.UserRepository
	repository.OrganizationRepository
	repository.TrainingRepository
	repository.ApplicationRepository
	repository.InvoiceRepository
	repository.DocumentRepository
	repository.PaymentRepository
	repository.NotificationRepository
	repository.WorkflowRepository
}

func NewStore(db *sql.DB, txOpts TxOptions) *Store {
	return &Store{
		db:                     db,
		UserRepository:         NewUserRepository(db),
		OrganizationRepository: NewOrganizationRepository(db),
		TrainingRepository:     NewTrainingRepository(db),
		ApplicationRepository:  NewApplicationRepository(db, txOpts),
		InvoiceRepository:      NewInvoiceRepository(db),
		DocumentRepository:     NewDocumentRepository(db),
		PaymentRepository:      NewPaymentRepository(db),
		NotificationRepository: NewNotificationRepository(db),
		WorkflowRepository:     NewWorkflowRepository(db, txOpts),
	}
}

// DB exposes the underlying pool for health checks.
func (s *Store) DB() *sql.DB {
	return s.db
}

// notFound maps sql.ErrNoRows to repository.ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func nullInt32(v *int32) sql.NullInt32 {
	if v == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: *v, Valid: true}
}

func int32Ptr(v sql.NullInt32) *int32 {
	if !v.Valid {
		return nil
	}
	i := v.Int32
	return &i
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
