package domain

import "time"

type Program struct {
	ID          int32  `json:"id"`
	Code        string `json:"code"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type TrainingSession struct {
	ID        int32        `json:"id"`
	ProgramID int32        `json:"program_id"`
	Title     string       `json:"title"`
	Venue     string       `json:"venue"`
	StartDate time.Time    `json:"start_date"`
	EndDate   time.Time    `json:"end_date"`
	Fees      []SessionFee `json:"fees,omitempty"`
}

// SessionFee is one entry of a session's fee schedule. The gateway bills each
// currency against its own service identifier.
type SessionFee struct {
	Currency         string       `json:"currency"`
	DeliveryMode     DeliveryMode `json:"delivery_mode"`
	AmountCents      int64        `json:"amount_cents"`
	GatewayServiceID string       `json:"gateway_service_id"`
}

// ServiceID returns the gateway service identifier configured for currency.
func (s *TrainingSession) ServiceID(currency string) (string, bool) {
	for _, f := range s.Fees {
		if f.Currency == currency && f.GatewayServiceID != "" {
			return f.GatewayServiceID, true
		}
	}
	return "", false
}
