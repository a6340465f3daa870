package repository

import (
	"context"
	"errors"
	"time"

	"trainingportal-backend/internal/domain"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrStatusConflict is returned by conditional status transitions when the
	// row is no longer in the expected status.
	ErrStatusConflict = errors.New("application status changed concurrently")
	// ErrDuplicatePayment is returned when a settlement carries a payment
	// reference that has already been recorded.
	ErrDuplicatePayment = errors.New("payment reference already recorded")
)

type UserRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.User, error)
	ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error)
}

type OrganizationRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.Organization, error)
}

type TrainingRepository interface {
	// GetSession returns the session with its fee schedule populated.
	GetSession(ctx context.Context, id int32) (*domain.TrainingSession, error)
	GetProgram(ctx context.Context, id int32) (*domain.Program, error)
}

type ApplicationRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.Application, error)
	List(ctx context.Context, status domain.ApplicationStatus, page, pageSize int32) ([]domain.Application, int32, error)
	CountByStatus(ctx context.Context, status domain.ApplicationStatus) (int32, error)
	// ListAwaitingPayment returns APPROVED applications invoiced before the
	// given time whose payments in the application currency are still short
	// of the fee.
	ListAwaitingPayment(ctx context.Context, issuedBefore time.Time) ([]domain.Application, error)
	Reject(ctx context.Context, id int32, reason string) error
	// Delete removes the application and everything it owns in one transaction.
	Delete(ctx context.Context, id int32) error

	ListParticipants(ctx context.Context, applicationID int32) ([]domain.Participant, error)
	GetParticipant(ctx context.Context, id int32) (*domain.Participant, error)
	DeleteParticipant(ctx context.Context, applicationID, participantID int32) error
}

type InvoiceRepository interface {
	GetByApplication(ctx context.Context, applicationID int32) (*domain.Invoice, error)
	GetByNumber(ctx context.Context, applicationID int32, invoiceNumber string) (*domain.Invoice, error)
}

type DocumentRepository interface {
	ListByApplication(ctx context.Context, applicationID int32) ([]domain.Document, error)
}

type PaymentRepository interface {
	ListByApplication(ctx context.Context, applicationID int32) ([]domain.Payment, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, note *domain.Notification) error
	List(ctx context.Context, userID int32, limit, offset int32) ([]domain.Notification, int32, error)
	MarkAsRead(ctx context.Context, id, userID int32) error
}

// ApprovalRecord is everything persisted when an application is approved.
type ApprovalRecord struct {
	ApplicationID int32
	ApprovedByID  int32
	FeeCents      int64
	Message       string
	ApprovedAt    time.Time
	ClaimToken    string
	Documents     []*domain.Document
	Invoice       *domain.Invoice
}

// SettlementRecord is everything persisted when the gateway reports a payment.
type SettlementRecord struct {
	ApplicationID int32
	InvoiceID     int32
	FeeCents      int64
	Currency      string
	Payment       *domain.Payment
	Receipt       *domain.Document
}

// WorkflowRepository holds the multi-statement writes that must be atomic.
type WorkflowRepository interface {
	// ClaimApproval reserves a PENDING application for one approval attempt.
	// A claim taken before staleBefore may be taken over. Returns
	// ErrStatusConflict if the application is no longer PENDING or another
	// live claim holds it.
	ClaimApproval(ctx context.Context, applicationID int32, token string, staleBefore time.Time) error
	// ReleaseApproval drops the claim if token still holds it.
	ReleaseApproval(ctx context.Context, applicationID int32, token string) error
	// CommitApproval moves the application from PENDING to APPROVED and attaches
	// the documents and invoice. Returns ErrStatusConflict if the application is
	// no longer PENDING or rec.ClaimToken no longer holds the claim.
	CommitApproval(ctx context.Context, rec *ApprovalRecord) error
	// CommitSettlement records the payment and reports whether the application
	// was transitioned to COMPLETED. Only payments in rec.Currency count
	// towards the fee.
	CommitSettlement(ctx context.Context, rec *SettlementRecord) (bool, error)
}
