package render

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trainingportal-backend/internal/config"
	"trainingportal-backend/internal/domain"
)

func testDetails() *domain.ApplicationDetails {
	start := time.Date(2025, 5, 12, 0, 0, 0, 0, time.UTC)
	return &domain.ApplicationDetails{
		Application: domain.Application{
			ID:           12,
			Status:       domain.ApplicationStatusPending,
			FeeCents:     15000000,
			Currency:     "KES",
			DeliveryMode: domain.DeliveryModePhysical,
		},
		Owner:   &domain.User{ID: 3, Name: "Wanjiru Kamau", Email: "wanjiru@test.com"},
		Session: &domain.TrainingSession{ID: 5, Title: "Public Finance Management", Venue: "Nairobi", StartDate: start, EndDate: start.AddDate(0, 0, 4)},
		Participants: []domain.Participant{
			{ID: 1, Name: "Otieno Ouma", Designation: "Accountant", Email: "otieno@test.com"},
			{ID: 2, Name: "Amina Hassan", Designation: "Auditor", Email: "amina@test.com"},
		},
	}
}

func TestPDFRenderer_Render(t *testing.T) {
	r := NewPDFRenderer(config.RenderConfig{
		TimeoutMs:      5000,
		IssuerName:     "Institute of Training",
		IssuerAddress:  "P.O. Box 1, Nairobi",
		SignatoryName:  "Registrar",
		SignatoryTitle: "Head of Admissions",
		PaymentTerms:   "Payment is due before the start of the session.",
	})
	ctx := context.Background()
	issued := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)

	t.Run("ProformaAndOfferLetter", func(t *testing.T) {
		for _, tmpl := range []Template{TemplateProformaInvoice, TemplateOfferLetter} {
			out, err := r.Render(ctx, tmpl, &Data{Details: testDetails(), FeeCents: 15000000, Message: "Welcome aboard.", IssuedAt: issued})
			require.NoError(t, err, tmpl)
			assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")), tmpl)
		}
	})

	t.Run("Receipt", func(t *testing.T) {
		payment := &domain.Payment{
			ID: 9, AmountCents: 15000000, Currency: "KES", Channel: "MPESA", PaidAt: issued,
			References: []domain.PaymentReference{{Reference: "QWE123", AmountCents: 15000000, Currency: "KES", PaidAt: issued}},
		}
		details := testDetails()
		details.Payments = []domain.Payment{*payment}

		out, err := r.Render(ctx, TemplateReceipt, &Data{Details: details, Payment: payment, IssuedAt: issued})
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	})

	t.Run("ReceiptWithoutPayment", func(t *testing.T) {
		_, err := r.Render(ctx, TemplateReceipt, &Data{Details: testDetails()})
		assert.Error(t, err)
	})

	t.Run("UnknownTemplate", func(t *testing.T) {
		_, err := r.Render(ctx, Template("brochure"), &Data{Details: testDetails()})
		assert.ErrorIs(t, err, ErrUnknownTemplate)
	})

	t.Run("CancelledContext", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := r.Render(cctx, TemplateOfferLetter, &Data{Details: testDetails()})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestParseTemplate(t *testing.T) {
	tmpl, err := ParseTemplate("pro-forma-invoice")
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentKindProformaInvoice, tmpl.Kind())

	tmpl, err = ParseTemplate("receipt")
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentKindReceipt, tmpl.Kind())

	_, err = ParseTemplate("../etc")
	assert.ErrorIs(t, err, ErrUnknownTemplate)
}
