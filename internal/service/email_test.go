package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"trainingportal-backend/internal/service"
)

func TestEmailService_SendApprovalNotification(t *testing.T) {
	ctx := context.Background()
	sender := new(MockSender)
	svc := service.NewEmailService(sender, "")

	var sent *service.Message
	sender.On("Send", ctx, mock.Anything).Run(func(args mock.Arguments) {
		sent = args.Get(1).(*service.Message)
	}).Return(nil)

	err := svc.SendApprovalNotification(ctx, &service.ApprovalEmail{
		To:           "owner@example.com",
		Cc:           []string{"submitter@example.com"},
		Name:         "Owner",
		SessionTitle: "Leadership Development",
		SessionDates: "12 - 16 May 2025",
		Venue:        "Nairobi",
		Amount:       "KES 45,000.00",
		InvoiceLink:  "https://pay.test/INV-001",
		Message:      "Welcome aboard",
		Attachments:  []service.Attachment{{FileName: "7-offer-letter.pdf", ContentType: "application/pdf", Data: []byte("x")}},
	})
	require.NoError(t, err)
	require.NotNil(t, sent)

	assert.Equal(t, []string{"owner@example.com"}, sent.To)
	assert.Equal(t, []string{"submitter@example.com"}, sent.Cc)
	assert.Equal(t, "Application Approved - Leadership Development", sent.Subject)
	assert.Contains(t, sent.Body, "https://pay.test/INV-001")
	assert.Contains(t, sent.Body, "KES 45,000.00")
	assert.Contains(t, sent.Body, "Welcome aboard")
	assert.Contains(t, sent.Body, "The Training Team")
	assert.Len(t, sent.Attachments, 1)
}

func TestEmailService_SendPaymentConfirmation(t *testing.T) {
	ctx := context.Background()

	t.Run("Partial", func(t *testing.T) {
		sender := new(MockSender)
		sender.On("Send", ctx, mock.MatchedBy(func(m *service.Message) bool {
			return m.Subject == "Payment Received - Leadership Development" &&
				assert.ObjectsAreEqual([]string{"owner@example.com"}, m.To) &&
				containsAll(m.Body, "KES 10,000.00", "Outstanding balance: KES 40,000.00")
		})).Return(nil)

		err := service.NewEmailService(sender, "Portal").SendPaymentConfirmation(ctx, &service.PaymentEmail{
			To: "owner@example.com", Name: "Owner", SessionTitle: "Leadership Development",
			Amount: "KES 10,000.00", Balance: "KES 40,000.00",
		})
		assert.NoError(t, err)
		sender.AssertExpectations(t)
	})

	t.Run("SenderError", func(t *testing.T) {
		sender := new(MockSender)
		sender.On("Send", ctx, mock.Anything).Return(errors.New("connection refused"))

		err := service.NewEmailService(sender, "Portal").SendPaymentConfirmation(ctx, &service.PaymentEmail{To: "owner@example.com"})
		assert.ErrorContains(t, err, "failed to send payment confirmation")
	})
}

func TestEmailService_SendRejectionNotification(t *testing.T) {
	ctx := context.Background()
	sender := new(MockSender)
	sender.On("Send", ctx, mock.MatchedBy(func(m *service.Message) bool {
		return len(m.Cc) == 0 && containsAll(m.Body, "Dear Owner", "Reason: Session is full")
	})).Return(nil)

	err := service.NewEmailService(sender, "Portal").SendRejectionNotification(ctx, "owner@example.com", "Owner", "Leadership Development", "Session is full")
	assert.NoError(t, err)
	sender.AssertExpectations(t)
}

func containsAll(s string, parts ...string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
