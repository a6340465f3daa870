package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"gopkg.in/gomail.v2"

	"trainingportal-backend/internal/config"
	"trainingportal-backend/internal/logger"
)

// Attachment is a file sent with an email.
type Attachment struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Message is a provider independent outgoing email.
type Message struct {
	To          []string
	Cc          []string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Sender delivers a composed message. SMTP and SendGrid implementations exist.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// ApprovalEmail carries what the owner needs after approval.
type ApprovalEmail struct {
	To           string
	Cc           []string
	Name         string
	SessionTitle string
	SessionDates string
	Venue        string
	Amount       string
	InvoiceLink  string
	Message      string
	Attachments  []Attachment
}

// PaymentEmail confirms a recorded payment.
type PaymentEmail struct {
	To           string
	Cc           []string
	Name         string
	SessionTitle string
	Amount       string
	Balance      string
	Completed    bool
	Attachments  []Attachment
}

type emailService struct {
	sender   Sender
	teamName string
}

// NewEmailService composes portal emails and hands them to sender.
func NewEmailService(sender Sender, teamName string) EmailService {
	if teamName == "" {
		teamName = "The Training Team"
	}
	return &emailService{sender: sender, teamName: teamName}
}

func (s *emailService) signature() string {
	return "\n\nBest regards,\n" + s.teamName
}

func (s *emailService) SendApprovalNotification(ctx context.Context, n *ApprovalEmail) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\nYour application for %s has been approved.\n\n", n.Name, n.SessionTitle)
	fmt.Fprintf(&b, "Dates: %s\n", n.SessionDates)
	if n.Venue != "" {
		fmt.Fprintf(&b, "Venue: %s\n", n.Venue)
	}
	fmt.Fprintf(&b, "Amount due: %s\n", n.Amount)
	if n.Message != "" {
		fmt.Fprintf(&b, "\n%s\n", n.Message)
	}
	fmt.Fprintf(&b, "\nPlease complete payment using the link below:\n%s\n", n.InvoiceLink)
	b.WriteString("\nYour pro forma invoice and offer letter are attached.")
	b.WriteString(s.signature())

	err := s.sender.Send(ctx, &Message{
		To:          []string{n.To},
		Cc:          n.Cc,
		Subject:     fmt.Sprintf("Application Approved - %s", n.SessionTitle),
		Body:        b.String(),
		Attachments: n.Attachments,
	})
	if err != nil {
		return fmt.Errorf("failed to send approval notification: %w", err)
	}
	return nil
}

func (s *emailService) SendPaymentConfirmation(ctx context.Context, n *PaymentEmail) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\nWe have received your payment of %s for %s.\n", n.Name, n.Amount, n.SessionTitle)
	if n.Completed {
		b.WriteString("\nYour application is now fully paid. We look forward to seeing you.\n")
	} else {
		fmt.Fprintf(&b, "\nOutstanding balance: %s\n", n.Balance)
	}
	b.WriteString("\nYour receipt is attached.")
	b.WriteString(s.signature())

	err := s.sender.Send(ctx, &Message{
		To:          []string{n.To},
		Cc:          n.Cc,
		Subject:     fmt.Sprintf("Payment Received - %s", n.SessionTitle),
		Body:        b.String(),
		Attachments: n.Attachments,
	})
	if err != nil {
		return fmt.Errorf("failed to send payment confirmation: %w", err)
	}
	return nil
}

func (s *emailService) SendRejectionNotification(ctx context.Context, to, name, sessionTitle, reason string) error {
	body := fmt.Sprintf("Dear %s,\n\nWe regret to inform you that your application for %s was not approved.", name, sessionTitle)
	if reason != "" {
		body += fmt.Sprintf("\n\nReason: %s", reason)
	}
	body += s.signature()

	err := s.sender.Send(ctx, &Message{
		To:      []string{to},
		Subject: fmt.Sprintf("Application Update - %s", sessionTitle),
		Body:    body,
	})
	if err != nil {
		return fmt.Errorf("failed to send rejection notification: %w", err)
	}
	return nil
}

func (s *emailService) SendPaymentReminder(ctx context.Context, to, name, sessionTitle, balance, invoiceLink string) error {
	body := fmt.Sprintf("Dear %s,\n\nThis is a reminder that %s is still outstanding for %s.\n\nYou can pay online here:\n%s",
		name, balance, sessionTitle, invoiceLink)
	body += s.signature()

	err := s.sender.Send(ctx, &Message{
		To:      []string{to},
		Subject: fmt.Sprintf("Payment Reminder - %s", sessionTitle),
		Body:    body,
	})
	if err != nil {
		return fmt.Errorf("failed to send payment reminder: %w", err)
	}
	return nil
}

func (s *emailService) SendAdminNotification(ctx context.Context, to, subject, body string) error {
	if err := s.sender.Send(ctx, &Message{To: []string{to}, Subject: subject, Body: body}); err != nil {
		return fmt.Errorf("failed to send admin notification: %w", err)
	}
	return nil
}

// SMTPSender delivers mail through an SMTP relay with gomail.
type SMTPSender struct {
	dialer   *gomail.Dialer
	from     string
	fromName string
}

func NewSMTPSender(cfg config.SMTPConfig, from, fromName string) *SMTPSender {
	return &SMTPSender{
		dialer:   gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:     from,
		fromName: fromName,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg *Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.from, s.fromName)
	m.SetHeader("To", msg.To...)
	if len(msg.Cc) > 0 {
		m.SetHeader("Cc", msg.Cc...)
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	for _, a := range msg.Attachments {
		data := a.Data
		m.Attach(a.FileName,
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(data)
				return err
			}),
			gomail.SetHeader(map[string][]string{"Content-Type": {a.ContentType}}),
		)
	}

	logger.ExternalServiceCall("SMTP", "Send", "to", msg.To, "subject", msg.Subject)
	err := s.dialer.DialAndSend(m)
	logger.ExternalServiceResult("SMTP", "Send", err)
	if err != nil {
		return fmt.Errorf("failed to send email via gomail: %w", err)
	}
	return nil
}
