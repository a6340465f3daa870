package service_test

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"

	"trainingportal-backend/internal/client"
	"trainingportal-backend/internal/domain"
	"trainingportal-backend/internal/render"
	"trainingportal-backend/internal/repository"
	"trainingportal-backend/internal/service"
)

type MockApplicationRepo struct{ mock.Mock }

func (m *MockApplicationRepo) GetByID(ctx context.Context, id int32) (*domain.Application, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Application), args.Error(1)
}
func (m *MockApplicationRepo) List(ctx context.Context, status domain.ApplicationStatus, page, pageSize int32) ([]domain.Application, int32, error) {
	args := m.Called(ctx, status, page, pageSize)
	return args.Get(0).([]domain.Application), args.Get(1).(int32), args.Error(2)
}
func (m *MockApplicationRepo) CountByStatus(ctx context.Context, status domain.ApplicationStatus) (int32, error) {
	args := m.Called(ctx, status)
	return args.Get(0).(int32), args.Error(1)
}
func (m *MockApplicationRepo) ListAwaitingPayment(ctx context.Context, issuedBefore time.Time) ([]domain.Application, error) {
	args := m.Called(ctx, issuedBefore)
	return args.Get(0).([]domain.Application), args.Error(1)
}
func (m *MockApplicationRepo) Reject(ctx context.Context, id int32, reason string) error {
	return m.Called(ctx, id, reason).Error(0)
}
func (m *MockApplicationRepo) Delete(ctx context.Context, id int32) error {
	return m.Called(ctx, id).Error(0)
}
func (m *MockApplicationRepo) ListParticipants(ctx context.Context, applicationID int32) ([]domain.Participant, error) {
	args := m.Called(ctx, applicationID)
	return args.Get(0).([]domain.Participant), args.Error(1)
}
func (m *MockApplicationRepo) GetParticipant(ctx context.Context, id int32) (*domain.Participant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Participant), args.Error(1)
}
func (m *MockApplicationRepo) DeleteParticipant(ctx context.Context, applicationID, participantID int32) error {
	return m.Called(ctx, applicationID, participantID).Error(0)
}

type MockUserRepo struct{ mock.Mock }

func (m *MockUserRepo) GetByID(ctx context.Context, id int32) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
func (m *MockUserRepo) ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	args := m.Called(ctx, role)
	return args.Get(0).([]domain.User), args.Error(1)
}

type MockOrganizationRepo struct{ mock.Mock }

func (m *MockOrganizationRepo) GetByID(ctx context.Context, id int32) (*domain.Organization, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Organization), args.Error(1)
}

type MockTrainingRepo struct{ mock.Mock }

func (m *MockTrainingRepo) GetSession(ctx context.Context, id int32) (*domain.TrainingSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TrainingSession), args.Error(1)
}
func (m *MockTrainingRepo) GetProgram(ctx context.Context, id int32) (*domain.Program, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Program), args.Error(1)
}

type MockInvoiceRepo struct{ mock.Mock }

func (m *MockInvoiceRepo) GetByApplication(ctx context.Context, applicationID int32) (*domain.Invoice, error) {
	args := m.Called(ctx, applicationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Invoice), args.Error(1)
}
func (m *MockInvoiceRepo) GetByNumber(ctx context.Context, applicationID int32, invoiceNumber string) (*domain.Invoice, error) {
	args := m.Called(ctx, applicationID, invoiceNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Invoice), args.Error(1)
}

type MockDocumentRepo struct{ mock.Mock }

func (m *MockDocumentRepo) ListByApplication(ctx context.Context, applicationID int32) ([]domain.Document, error) {
	args := m.Called(ctx, applicationID)
	return args.Get(0).([]domain.Document), args.Error(1)
}

type MockPaymentRepo struct{ mock.Mock }

func (m *MockPaymentRepo) ListByApplication(ctx context.Context, applicationID int32) ([]domain.Payment, error) {
	args := m.Called(ctx, applicationID)
	return args.Get(0).([]domain.Payment), args.Error(1)
}

type MockWorkflowRepo struct{ mock.Mock }

func (m *MockWorkflowRepo) ClaimApproval(ctx context.Context, applicationID int32, token string, staleBefore time.Time) error {
	return m.Called(ctx, applicationID, token, staleBefore).Error(0)
}
func (m *MockWorkflowRepo) ReleaseApproval(ctx context.Context, applicationID int32, token string) error {
	return m.Called(ctx, applicationID, token).Error(0)
}

func (m *MockWorkflowRepo) CommitApproval(ctx context.Context, rec *repository.ApprovalRecord) error {
	return m.Called(ctx, rec).Error(0)
}
func (m *MockWorkflowRepo) CommitSettlement(ctx context.Context, rec *repository.SettlementRecord) (bool, error) {
	args := m.Called(ctx, rec)
	return args.Bool(0), args.Error(1)
}

type MockNotificationRepo struct{ mock.Mock }

func (m *MockNotificationRepo) Create(ctx context.Context, note *domain.Notification) error {
	return m.Called(ctx, note).Error(0)
}
func (m *MockNotificationRepo) List(ctx context.Context, userID int32, limit, offset int32) ([]domain.Notification, int32, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]domain.Notification), args.Get(1).(int32), args.Error(2)
}
func (m *MockNotificationRepo) MarkAsRead(ctx context.Context, id, userID int32) error {
	return m.Called(ctx, id, userID).Error(0)
}

type MockNotificationService struct{ mock.Mock }

func (m *MockNotificationService) GetNotifications(ctx context.Context, userID int32, page, pageSize int32) ([]domain.Notification, int32, error) {
	args := m.Called(ctx, userID, page, pageSize)
	return args.Get(0).([]domain.Notification), args.Get(1).(int32), args.Error(2)
}
func (m *MockNotificationService) MarkAsRead(ctx context.Context, userID, notificationID int32) error {
	return m.Called(ctx, userID, notificationID).Error(0)
}
func (m *MockNotificationService) Notify(ctx context.Context, userID, applicationID int32, title, message string, attrs map[string]string) {
	m.Called(ctx, userID, applicationID, title, message, attrs)
}

type MockEmailService struct{ mock.Mock }

func (m *MockEmailService) SendApprovalNotification(ctx context.Context, n *service.ApprovalEmail) error {
	return m.Called(ctx, n).Error(0)
}
func (m *MockEmailService) SendPaymentConfirmation(ctx context.Context, n *service.PaymentEmail) error {
	return m.Called(ctx, n).Error(0)
}
func (m *MockEmailService) SendRejectionNotification(ctx context.Context, to, name, sessionTitle, reason string) error {
	return m.Called(ctx, to, name, sessionTitle, reason).Error(0)
}
func (m *MockEmailService) SendPaymentReminder(ctx context.Context, to, name, sessionTitle, balance, invoiceLink string) error {
	return m.Called(ctx, to, name, sessionTitle, balance, invoiceLink).Error(0)
}
func (m *MockEmailService) SendAdminNotification(ctx context.Context, to, subject, body string) error {
	return m.Called(ctx, to, subject, body).Error(0)
}

type MockRenderer struct{ mock.Mock }

func (m *MockRenderer) Render(ctx context.Context, tmpl render.Template, data *render.Data) ([]byte, error) {
	args := m.Called(ctx, tmpl, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

type MockStorage struct{ mock.Mock }

func (m *MockStorage) Upload(ctx context.Context, key string, contentType string, data []byte) (string, error) {
	args := m.Called(ctx, key, contentType, data)
	return args.String(0), args.Error(1)
}
func (m *MockStorage) FileExists(ctx context.Context, key string) (bool, int64, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Get(1).(int64), args.Error(2)
}
func (m *MockStorage) ReadFile(ctx context.Context, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}
func (m *MockStorage) DeleteFile(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type MockGateway struct{ mock.Mock }

func (m *MockGateway) RequestInvoice(ctx context.Context, req *client.InvoiceRequest) (*client.InvoiceResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*client.InvoiceResponse), args.Error(1)
}

type MockSender struct{ mock.Mock }

func (m *MockSender) Send(ctx context.Context, msg *service.Message) error {
	return m.Called(ctx, msg).Error(0)
}

// fixture bundles the mocks behind service.Repositories.
type fixture struct {
	apps      *MockApplicationRepo
	users     *MockUserRepo
	orgs      *MockOrganizationRepo
	training  *MockTrainingRepo
	invoices  *MockInvoiceRepo
	documents *MockDocumentRepo
	payments  *MockPaymentRepo
	workflow  *MockWorkflowRepo
	renderer  *MockRenderer
	store     *MockStorage
	gateway   *MockGateway
	email     *MockEmailService
	notes     *MockNotificationService
}

func newFixture() *fixture {
	return &fixture{
		apps:      new(MockApplicationRepo),
		users:     new(MockUserRepo),
		orgs:      new(MockOrganizationRepo),
		training:  new(MockTrainingRepo),
		invoices:  new(MockInvoiceRepo),
		documents: new(MockDocumentRepo),
		payments:  new(MockPaymentRepo),
		workflow:  new(MockWorkflowRepo),
		renderer:  new(MockRenderer),
		store:     new(MockStorage),
		gateway:   new(MockGateway),
		email:     new(MockEmailService),
		notes:     new(MockNotificationService),
	}
}

func (f *fixture) repos() service.Repositories {
	return service.Repositories{
		Applications:  f.apps,
		Users:         f.users,
		Organizations: f.orgs,
		Training:      f.training,
		Invoices:      f.invoices,
		Documents:     f.documents,
		Payments:      f.payments,
		Workflow:      f.workflow,
	}
}

var (
	adminActor = &domain.Actor{UserID: 99, Email: "admin@portal.test", Role: domain.RoleAdmin}
	userActor  = &domain.Actor{UserID: 10, Email: "owner@example.com", Role: domain.RoleUser}
)

func pendingApplication() *domain.Application {
	return &domain.Application{
		ID:                7,
		Status:            domain.ApplicationStatusPending,
		FeeCents:          5000000,
		Currency:          "KES",
		DeliveryMode:      domain.DeliveryModePhysical,
		OwnerID:           10,
		CreatedByID:       11,
		TrainingSessionID: 3,
	}
}

func trainingSession() *domain.TrainingSession {
	return &domain.TrainingSession{
		ID:        3,
		ProgramID: 2,
		Title:     "Leadership Development",
		Venue:     "Nairobi",
		StartDate: time.Date(2025, 5, 12, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 5, 16, 0, 0, 0, 0, time.UTC),
		Fees: []domain.SessionFee{
			{Currency: "KES", DeliveryMode: domain.DeliveryModePhysical, AmountCents: 5000000, GatewayServiceID: "svc-kes"},
		},
	}
}

// expectDetails registers the lookups performed by loadDetails.
func (f *fixture) expectDetails(app *domain.Application, owner *domain.User) {
	f.users.On("GetByID", mock.Anything, app.OwnerID).Return(owner, nil)
	f.users.On("GetByID", mock.Anything, app.CreatedByID).
		Return(&domain.User{ID: app.CreatedByID, Name: "Submitter", Email: "submitter@example.com"}, nil)
	f.training.On("GetSession", mock.Anything, app.TrainingSessionID).Return(trainingSession(), nil)
	f.training.On("GetProgram", mock.Anything, int32(2)).Return(&domain.Program{ID: 2, Code: "LDP", Title: "Leadership"}, nil)
	f.apps.On("ListParticipants", mock.Anything, app.ID).Return([]domain.Participant{
		{ID: 1, ApplicationID: app.ID, Name: "Jane"},
		{ID: 2, ApplicationID: app.ID, Name: "John"},
	}, nil)
}

func (f *fixture) expectBilling(appID int32, inv *domain.Invoice, payments []domain.Payment) {
	if inv != nil {
		f.invoices.On("GetByApplication", mock.Anything, appID).Return(inv, nil)
	} else {
		f.invoices.On("GetByApplication", mock.Anything, appID).Return(nil, repository.ErrNotFound)
	}
	f.documents.On("ListByApplication", mock.Anything, appID).Return([]domain.Document{}, nil)
	f.payments.On("ListByApplication", mock.Anything, appID).Return(payments, nil)
}

func owner() *domain.User {
	return &domain.User{ID: 10, Name: "Owner", Email: "owner@example.com", IDNumber: "12345678", PhoneNumber: "+254700000000"}
}
