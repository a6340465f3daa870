package domain

import "time"

// Payment is recorded from a gateway settlement notification.
type Payment struct {
	ID            int32              `json:"id"`
	ApplicationID int32              `json:"application_id"`
	InvoiceID     int32              `json:"invoice_id"`
	AmountCents   int64              `json:"amount_cents"`
	Currency      string             `json:"currency"`
	Channel       string             `json:"channel"`
	PaidAt        time.Time          `json:"paid_at"`
	References    []PaymentReference `json:"references,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
}

type PaymentReference struct {
	ID          int32     `json:"id"`
	PaymentID   int32     `json:"payment_id"`
	Reference   string    `json:"reference"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	PaidAt      time.Time `json:"paid_at"`
}
