package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"trainingportal-backend/internal/client"
	"trainingportal-backend/internal/domain"
	"trainingportal-backend/internal/logger"
	"trainingportal-backend/internal/render"
	"trainingportal-backend/internal/repository"
	"trainingportal-backend/internal/storage"
	"trainingportal-backend/internal/utils"
)

// compensationTimeout bounds the cleanup of uploaded objects after a failed
// approval. Cleanup runs even when the request context is already done.
const compensationTimeout = 30 * time.Second

// approvalClaimTTL is how long an approval claim holds the application before
// another attempt may take it over. It must outlast render, upload and the
// gateway round trip.
const approvalClaimTTL = 5 * time.Minute

var approvalTemplates = []render.Template{render.TemplateProformaInvoice, render.TemplateOfferLetter}

// ApproveRequest is an administrator's decision on a pending application.
type ApproveRequest struct {
	ApplicationID int32  `json:"-" validate:"gt=0"`
	FeeCents      int64  `json:"fee_cents" validate:"gt=0"`
	Message       string `json:"message" validate:"max=2000"`
}

// ApprovalResult is returned once the approval is committed. EmailError is set
// when the notification could not be delivered; the approval still stands.
type ApprovalResult struct {
	Application *domain.Application `json:"application"`
	Invoice     *domain.Invoice     `json:"invoice"`
	Documents   []*domain.Document  `json:"documents"`
	EmailSent   bool                `json:"email_sent"`
	EmailError  error               `json:"-"`
}

type approvalService struct {
	repos    Repositories
	renderer render.Renderer
	store    storage.StorageInterface
	gateway  client.PaymentGateway
	emailSvc EmailService
	notes    NotificationService
	validate *validator.Validate
	now      func() time.Time
}

func NewApprovalService(
	repos Repositories,
	renderer render.Renderer,
	store storage.StorageInterface,
	gateway client.PaymentGateway,
	emailSvc EmailService,
	notes NotificationService,
) ApprovalService {
	return &approvalService{
		repos:    repos,
		renderer: renderer,
		store:    store,
		gateway:  gateway,
		emailSvc: emailSvc,
		notes:    notes,
		validate: validator.New(),
		now:      time.Now,
	}
}

func (s *approvalService) Approve(ctx context.Context, actor *domain.Actor, req *ApproveRequest) (*ApprovalResult, error) {
	logger.EnterMethod("approvalService.Approve", "applicationID", req.ApplicationID)
	log := logger.WithApplication(ctx, req.ApplicationID)

	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only administrators can approve applications", ErrUnauthorized)
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	app, err := s.repos.Applications.GetByID(ctx, req.ApplicationID)
	if err != nil {
		return nil, notFound(err, "application")
	}
	if app.Status != domain.ApplicationStatusPending {
		return nil, fmt.Errorf("%w: application is %s", ErrInvalidState, app.Status)
	}

	details, err := loadDetails(ctx, s.repos, app)
	if err != nil {
		return nil, err
	}
	if details.Owner == nil || details.Owner.Email == "" {
		return nil, fmt.Errorf("%w: owner has no email", ErrValidation)
	}
	serviceID, ok := details.Session.ServiceID(app.Currency)
	if !ok {
		return nil, fmt.Errorf("%w: no gateway service configured for %s", ErrValidation, app.Currency)
	}
	if req.FeeCents != app.FeeCents {
		log.Info("Fee adjusted on approval", "stored_fee_cents", app.FeeCents, "fee_cents", req.FeeCents)
	}

	// Storage keys are shared by every attempt on this application, so only
	// the claim holder may write them.
	claim := uuid.NewString()
	if err := s.repos.Workflow.ClaimApproval(ctx, app.ID, claim, s.now().Add(-approvalClaimTTL)); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, fmt.Errorf("%w: application is being approved or is no longer pending", ErrInvalidState)
		}
		return nil, fmt.Errorf("%w: claim application: %v", ErrUpstream, err)
	}

	docs, err := s.renderDocuments(ctx, details, req)
	if err != nil {
		s.release(ctx, app.ID, claim)
		logger.ExitMethodWithError("approvalService.Approve", err)
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	if err := s.uploadDocuments(ctx, app.ID, docs); err != nil {
		s.compensate(ctx, app.ID, docs)
		s.release(ctx, app.ID, claim)
		logger.ExitMethodWithError("approvalService.Approve", err)
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	invoice, err := s.gateway.RequestInvoice(ctx, &client.InvoiceRequest{
		ApplicationID: app.ID,
		AmountCents:   req.FeeCents,
		ServiceID:     serviceID,
		PayerIDNumber: payerIDNumber(details.Owner),
		PayerName:     details.Owner.Name,
		PayerEmail:    details.Owner.Email,
		PayerPhone:    details.Owner.PhoneNumber,
		Currency:      app.Currency,
		Description:   sessionTitle(details),
	})
	if err != nil {
		s.compensate(ctx, app.ID, docs)
		s.release(ctx, app.ID, claim)
		logger.ExitMethodWithError("approvalService.Approve", err)
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	approvedAt := s.now().UTC()
	rec := &repository.ApprovalRecord{
		ApplicationID: app.ID,
		ApprovedByID:  actor.UserID,
		FeeCents:      req.FeeCents,
		Message:       req.Message,
		ApprovedAt:    approvedAt,
		ClaimToken:    claim,
		Invoice: &domain.Invoice{
			ApplicationID: app.ID,
			InvoiceNumber: invoice.InvoiceNumber,
			InvoiceLink:   invoice.InvoiceLink,
			BillReference: invoice.BillReference,
			Email:         details.Owner.Email,
			AmountCents:   invoice.AmountCents,
			Currency:      app.Currency,
			Status:        domain.InvoiceStatusPending,
		},
	}
	for _, d := range docs {
		rec.Documents = append(rec.Documents, &domain.Document{
			ApplicationID: app.ID,
			Kind:          d.template.Kind(),
			FileName:      documentFileName(app.ID, d.template.Kind()),
			StorageKey:    d.key(app.ID),
			URL:           d.url,
		})
	}

	if err := s.repos.Workflow.CommitApproval(ctx, rec); err != nil {
		logger.ExitMethodWithError("approvalService.Approve", err)
		if errors.Is(err, repository.ErrStatusConflict) {
			// The claim went stale and another attempt took over. The stored
			// objects may already be the other attempt's, so leave them.
			log.Warn("Approval claim lost before commit, keeping stored documents")
			return nil, fmt.Errorf("%w: application is no longer pending", ErrInvalidState)
		}
		s.compensate(ctx, app.ID, docs)
		s.release(ctx, app.ID, claim)
		return nil, fmt.Errorf("%w: commit approval: %v", ErrUpstream, err)
	}
	log.Info("Application approved", "approved_by", actor.UserID, "fee_cents", req.FeeCents, "invoice_number", invoice.InvoiceNumber)

	app.Status = domain.ApplicationStatusApproved
	app.FeeCents = req.FeeCents
	app.Message = req.Message
	approver := actor.UserID
	app.ApprovedByID = &approver
	app.ApprovedAt = &approvedAt
	details.Application = *app

	result := &ApprovalResult{Application: app, Invoice: rec.Invoice, Documents: rec.Documents}

	to, cc := emailRecipients(details)
	attachments := make([]Attachment, 0, len(docs))
	for _, d := range docs {
		attachments = append(attachments, d.attachment(app.ID))
	}
	result.EmailError = s.emailSvc.SendApprovalNotification(ctx, &ApprovalEmail{
		To:           to,
		Cc:           cc,
		Name:         details.Owner.Name,
		SessionTitle: sessionTitle(details),
		SessionDates: utils.FormatDateRange(details.Session.StartDate, details.Session.EndDate),
		Venue:        details.Session.Venue,
		Amount:       utils.FormatMoney(req.FeeCents, app.Currency),
		InvoiceLink:  invoice.InvoiceLink,
		Message:      req.Message,
		Attachments:  attachments,
	})
	if result.EmailError != nil {
		log.Error("Approval email failed", "to", to, "error", result.EmailError)
	} else {
		result.EmailSent = true
	}

	s.notes.Notify(ctx, app.OwnerID, app.ID, "Application approved",
		fmt.Sprintf("Your application for %s has been approved. Amount due: %s.", sessionTitle(details), utils.FormatMoney(req.FeeCents, app.Currency)),
		map[string]string{"invoice_link": invoice.InvoiceLink})

	logger.ExitMethod("approvalService.Approve", "applicationID", app.ID)
	return result, nil
}

// renderDocuments renders the proforma invoice and offer letter concurrently.
// Both must succeed.
func (s *approvalService) renderDocuments(ctx context.Context, details *domain.ApplicationDetails, req *ApproveRequest) ([]*renderedDocument, error) {
	issuedAt := s.now()
	docs := make([]*renderedDocument, len(approvalTemplates))

	g, gctx := errgroup.WithContext(ctx)
	for i, tmpl := range approvalTemplates {
		g.Go(func() error {
			data, err := s.renderer.Render(gctx, tmpl, &render.Data{
				Details:  details,
				FeeCents: req.FeeCents,
				Message:  req.Message,
				IssuedAt: issuedAt,
			})
			if err != nil {
				return fmt.Errorf("render %s: %w", tmpl, err)
			}
			docs[i] = &renderedDocument{template: tmpl, data: data}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}

// uploadDocuments stores the rendered documents concurrently, marking each one
// that reached storage so that it can be compensated.
func (s *approvalService) uploadDocuments(ctx context.Context, applicationID int32, docs []*renderedDocument) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, d := range docs {
		g.Go(func() error {
			url, err := s.store.Upload(gctx, d.key(applicationID), "application/pdf", d.data)
			if err != nil {
				return fmt.Errorf("upload %s: %w", d.template, err)
			}
			d.url = url
			d.uploaded = true
			return nil
		})
	}
	return g.Wait()
}

// compensate deletes every document of this attempt that reached storage.
func (s *approvalService) compensate(ctx context.Context, applicationID int32, docs []*renderedDocument) {
	var keys []string
	for _, d := range docs {
		if d.uploaded {
			keys = append(keys, d.key(applicationID))
		}
	}
	if len(keys) == 0 {
		return
	}
	logger.WithApplication(ctx, applicationID).Warn("Removing uploaded documents after failed approval", "keys", keys)

	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()
	deleteObjects(cctx, s.store, keys)
}

// release gives up the approval claim so the application can be approved
// again without waiting for the claim to go stale.
func (s *approvalService) release(ctx context.Context, applicationID int32, claim string) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()
	if err := s.repos.Workflow.ReleaseApproval(cctx, applicationID, claim); err != nil {
		logger.WithApplication(ctx, applicationID).Error("Failed to release approval claim", "error", err)
	}
}

// payerIDNumber falls back to the user id when no identity document is on file.
func payerIDNumber(u *domain.User) string {
	if u.IDNumber != "" {
		return u.IDNumber
	}
	return fmt.Sprintf("%d", u.ID)
}
