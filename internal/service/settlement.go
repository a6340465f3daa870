package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"trainingportal-backend/internal/domain"
	"trainingportal-backend/internal/logger"
	"trainingportal-backend/internal/render"
	"trainingportal-backend/internal/repository"
	"trainingportal-backend/internal/storage"
	"trainingportal-backend/internal/utils"
)

// SettlementPayload is the notification the gateway posts when an invoice is
// paid. Amounts arrive as decimal strings.
type SettlementPayload struct {
	Status            string                `json:"status" validate:"required"`
	InvoiceNumber     string                `json:"invoice_number" validate:"required"`
	ClientInvoiceRef  string                `json:"client_invoice_ref"`
	AmountPaid        string                `json:"amount_paid" validate:"required"`
	InvoiceAmount     string                `json:"invoice_amount"`
	LastPaymentAmount string                `json:"last_payment_amount"`
	Currency          string                `json:"currency" validate:"required,len=3"`
	PaymentChannel    string                `json:"payment_channel"`
	PaymentDate       string                `json:"payment_date" validate:"required"`
	PhoneNumber       string                `json:"phone_number"`
	PaymentReferences []SettlementReference `json:"payment_reference" validate:"required,min=1,dive"`
}

type SettlementReference struct {
	PaymentReference string `json:"payment_reference" validate:"required"`
	PaymentDate      string `json:"payment_date"`
	InsertedAt       string `json:"inserted_at"`
	Currency         string `json:"currency"`
	Amount           string `json:"amount" validate:"required"`
}

// SettlementResult reports what the callback changed. Duplicate is set when
// the payment had already been recorded and nothing was written.
type SettlementResult struct {
	Payment   *domain.Payment `json:"payment,omitempty"`
	Completed bool            `json:"completed"`
	Duplicate bool            `json:"duplicate"`
}

// gatewayTimeLayouts are the timestamp formats seen in settlement payloads.
var gatewayTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

type settlementService struct {
	repos    Repositories
	renderer render.Renderer
	store    storage.StorageInterface
	emailSvc EmailService
	notes    NotificationService
	validate *validator.Validate
	now      func() time.Time
}

func NewSettlementService(
	repos Repositories,
	renderer render.Renderer,
	store storage.StorageInterface,
	emailSvc EmailService,
	notes NotificationService,
) SettlementService {
	return &settlementService{
		repos:    repos,
		renderer: renderer,
		store:    store,
		emailSvc: emailSvc,
		notes:    notes,
		validate: validator.New(),
		now:      time.Now,
	}
}

func (s *settlementService) RecordSettlement(ctx context.Context, applicationID int32, payload *SettlementPayload) (*SettlementResult, error) {
	logger.EnterMethod("settlementService.RecordSettlement", "applicationID", applicationID)
	log := logger.WithApplication(ctx, applicationID)

	if payload == nil {
		return nil, fmt.Errorf("%w: empty payload", ErrValidation)
	}
	if err := s.validate.Struct(payload); err != nil {
		return nil, validationError(err)
	}
	payment, err := s.parsePayment(payload)
	if err != nil {
		return nil, err
	}

	app, err := s.repos.Applications.GetByID(ctx, applicationID)
	if err != nil {
		return nil, notFound(err, "application")
	}
	invoice, err := s.repos.Invoices.GetByNumber(ctx, applicationID, payload.InvoiceNumber)
	if err != nil {
		return nil, notFound(err, "invoice")
	}
	if payment.Currency != app.Currency {
		return nil, fmt.Errorf("%w: payment currency %s does not match application currency %s",
			ErrValidation, payment.Currency, app.Currency)
	}
	payment.ApplicationID = app.ID
	payment.InvoiceID = invoice.ID

	details, err := loadDetails(ctx, s.repos, app)
	if err != nil {
		return nil, err
	}
	if err := loadBilling(ctx, s.repos, details); err != nil {
		return nil, err
	}
	if recorded(details.Payments, payment.References) {
		log.Info("Settlement already recorded", "invoice_number", invoice.InvoiceNumber)
		return &SettlementResult{Duplicate: true}, nil
	}
	details.Payments = append(details.Payments, *payment)
	details.Invoice = invoice

	receipt, err := s.renderer.Render(ctx, render.TemplateReceipt, &render.Data{
		Details:  details,
		FeeCents: app.FeeCents,
		Invoice:  invoice,
		Payment:  payment,
		IssuedAt: s.now(),
	})
	if err != nil {
		logger.ExitMethodWithError("settlementService.RecordSettlement", err)
		return nil, fmt.Errorf("%w: render receipt: %v", ErrUpstream, err)
	}
	key := storageKey(app.ID, domain.DocumentKindReceipt)
	previous, err := s.snapshot(ctx, key)
	if err != nil {
		logger.ExitMethodWithError("settlementService.RecordSettlement", err)
		return nil, fmt.Errorf("%w: read current receipt: %v", ErrUpstream, err)
	}
	url, err := s.store.Upload(ctx, key, "application/pdf", receipt)
	if err != nil {
		logger.ExitMethodWithError("settlementService.RecordSettlement", err)
		return nil, fmt.Errorf("%w: upload receipt: %v", ErrUpstream, err)
	}

	completed, err := s.repos.Workflow.CommitSettlement(ctx, &repository.SettlementRecord{
		ApplicationID: app.ID,
		InvoiceID:     invoice.ID,
		FeeCents:      app.FeeCents,
		Currency:      app.Currency,
		Payment:       payment,
		Receipt: &domain.Document{
			ApplicationID: app.ID,
			Kind:          domain.DocumentKindReceipt,
			FileName:      documentFileName(app.ID, domain.DocumentKindReceipt),
			StorageKey:    key,
			URL:           url,
		},
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicatePayment) {
			// The concurrent callback recorded this same payment; the object
			// now holds a receipt for it either way.
			log.Info("Settlement already recorded", "invoice_number", invoice.InvoiceNumber)
			return &SettlementResult{Duplicate: true}, nil
		}
		s.restore(ctx, app.ID, key, previous)
		logger.ExitMethodWithError("settlementService.RecordSettlement", err)
		return nil, fmt.Errorf("%w: commit settlement: %v", ErrUpstream, err)
	}
	log.Info("Payment recorded", "payment_id", payment.ID, "amount_cents", payment.AmountCents, "completed", completed)

	paid := details.PaidCents()
	balance := app.FeeCents - paid
	if balance < 0 {
		balance = 0
	}

	if details.Owner != nil && details.Owner.Email != "" {
		to, cc := emailRecipients(details)
		err := s.emailSvc.SendPaymentConfirmation(ctx, &PaymentEmail{
			To:           to,
			Cc:           cc,
			Name:         details.Owner.Name,
			SessionTitle: sessionTitle(details),
			Amount:       utils.FormatMoney(payment.AmountCents, payment.Currency),
			Balance:      utils.FormatMoney(balance, app.Currency),
			Completed:    completed,
			Attachments: []Attachment{{
				FileName:    documentFileName(app.ID, domain.DocumentKindReceipt),
				ContentType: "application/pdf",
				Data:        receipt,
			}},
		})
		if err != nil {
			log.Error("Payment confirmation email failed", "to", to, "error", err)
		}
	} else {
		log.Warn("Owner has no email, payment confirmation skipped")
	}

	s.notes.Notify(ctx, app.OwnerID, app.ID, "Payment received",
		fmt.Sprintf("We received %s for %s.", utils.FormatMoney(payment.AmountCents, payment.Currency), sessionTitle(details)),
		map[string]string{"receipt_url": url})

	logger.ExitMethod("settlementService.RecordSettlement", "applicationID", app.ID)
	return &SettlementResult{Payment: payment, Completed: completed}, nil
}

// snapshot returns the object currently stored under key, or nil when there
// is none.
func (s *settlementService) snapshot(ctx context.Context, key string) ([]byte, error) {
	rc, err := s.store.ReadFile(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			return nil, nil
		}
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// restore puts back the receipt that was stored before a failed settlement,
// so the last recorded payment keeps its receipt.
func (s *settlementService) restore(ctx context.Context, applicationID int32, key string, previous []byte) {
	log := logger.WithApplication(ctx, applicationID)
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	var err error
	if previous == nil {
		err = s.store.DeleteFile(cctx, key)
	} else {
		_, err = s.store.Upload(cctx, key, "application/pdf", previous)
	}
	if err != nil {
		log.Error("Failed to restore receipt after failed settlement", "key", key, "error", err)
		return
	}
	log.Warn("Restored receipt after failed settlement", "key", key, "had_previous", previous != nil)
}

// parsePayment converts the payload into a payment. The amount of this
// payment is last_payment_amount when present, otherwise amount_paid.
func (s *settlementService) parsePayment(p *SettlementPayload) (*domain.Payment, error) {
	amountField := p.AmountPaid
	if strings.TrimSpace(p.LastPaymentAmount) != "" {
		amountField = p.LastPaymentAmount
	}
	amount, err := utils.ParseAmountCents(amountField)
	if err != nil {
		return nil, fmt.Errorf("%w: amount: %v", ErrValidation, err)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	paidAt, err := parseGatewayTime(p.PaymentDate)
	if err != nil {
		return nil, fmt.Errorf("%w: payment_date: %v", ErrValidation, err)
	}

	currency := strings.ToUpper(p.Currency)
	payment := &domain.Payment{
		AmountCents: amount,
		Currency:    currency,
		Channel:     p.PaymentChannel,
		PaidAt:      paidAt,
	}
	seen := make(map[string]bool, len(p.PaymentReferences))
	for _, r := range p.PaymentReferences {
		if seen[r.PaymentReference] {
			return nil, fmt.Errorf("%w: payment reference %s repeated", ErrValidation, r.PaymentReference)
		}
		seen[r.PaymentReference] = true

		refAmount, err := utils.ParseAmountCents(r.Amount)
		if err != nil {
			return nil, fmt.Errorf("%w: payment reference %s amount: %v", ErrValidation, r.PaymentReference, err)
		}
		refPaidAt := paidAt
		if r.PaymentDate != "" {
			if refPaidAt, err = parseGatewayTime(r.PaymentDate); err != nil {
				return nil, fmt.Errorf("%w: payment reference %s date: %v", ErrValidation, r.PaymentReference, err)
			}
		}
		refCurrency := currency
		if r.Currency != "" {
			refCurrency = strings.ToUpper(r.Currency)
		}
		payment.References = append(payment.References, domain.PaymentReference{
			Reference:   r.PaymentReference,
			AmountCents: refAmount,
			Currency:    refCurrency,
			PaidAt:      refPaidAt,
		})
	}
	return payment, nil
}

func parseGatewayTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	for _, layout := range gatewayTimeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", v)
}

// recorded reports whether any of refs is already attached to a payment.
func recorded(payments []domain.Payment, refs []domain.PaymentReference) bool {
	known := make(map[string]bool)
	for _, p := range payments {
		for _, r := range p.References {
			known[r.Reference] = true
		}
	}
	for _, r := range refs {
		if known[r.Reference] {
			return true
		}
	}
	return false
}
