package domain

import "time"

type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "PENDING"
	InvoiceStatusSettled InvoiceStatus = "SETTLED"
)

// Invoice is the payment-gateway invoice issued when an application is approved.
type Invoice struct {
	ID            int32         `json:"id"`
	ApplicationID int32         `json:"application_id"`
	InvoiceNumber string        `json:"invoice_number"`
	InvoiceLink   string        `json:"invoice_link"`
	BillReference string        `json:"bill_reference"`
	Email         string        `json:"email"`
	AmountCents   int64         `json:"amount_cents"` // amount requested from the gateway
	Currency      string        `json:"currency"`
	Status        InvoiceStatus `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}
