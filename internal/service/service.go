package service

import (
	"context"
	"io"

	"trainingportal-backend/internal/domain"
	"trainingportal-backend/internal/render"
	"trainingportal-backend/internal/repository"
)

type ApprovalService interface {
	Approve(ctx context.Context, actor *domain.Actor, req *ApproveRequest) (*ApprovalResult, error)
}

type SettlementService interface {
	RecordSettlement(ctx context.Context, applicationID int32, payload *SettlementPayload) (*SettlementResult, error)
}

type ApplicationService interface {
	GetApplication(ctx context.Context, actor *domain.Actor, id int32) (*domain.ApplicationDetails, error)
	ListApplications(ctx context.Context, actor *domain.Actor, status domain.ApplicationStatus, page, pageSize int32) ([]domain.Application, int32, error)
	RejectApplication(ctx context.Context, actor *domain.Actor, id int32, reason string) (*domain.Application, error)
	RemoveParticipant(ctx context.Context, actor *domain.Actor, applicationID, participantID int32) error
	DeleteApplication(ctx context.Context, actor *domain.Actor, id int32) error
	PreviewDocument(ctx context.Context, actor *domain.Actor, applicationID int32, tmpl render.Template) ([]byte, error)
	OpenDocument(ctx context.Context, actor *domain.Actor, key string) (io.ReadCloser, error)
}

type NotificationService interface {
	GetNotifications(ctx context.Context, userID int32, page, pageSize int32) ([]domain.Notification, int32, error)
	MarkAsRead(ctx context.Context, userID, notificationID int32) error
	Notify(ctx context.Context, userID, applicationID int32, title, message string, attrs map[string]string)
}

type EmailService interface {
	SendApprovalNotification(ctx context.Context, n *ApprovalEmail) error
	SendPaymentConfirmation(ctx context.Context, n *PaymentEmail) error
	SendRejectionNotification(ctx context.Context, to, name, sessionTitle, reason string) error
	SendPaymentReminder(ctx context.Context, to, name, sessionTitle, balance, invoiceLink string) error
	SendAdminNotification(ctx context.Context, to, subject, body string) error
}

// Repositories groups the stores the workflow services read and write.
type Repositories struct {
	Applications  repository.ApplicationRepository
	Users         repository.UserRepository
	Organizations repository.OrganizationRepository
	Training      repository.TrainingRepository
	Invoices      repository.InvoiceRepository
	Documents     repository.DocumentRepository
	Payments      repository.PaymentRepository
	Workflow      repository.WorkflowRepository
}
