package domain

import "time"

type ApplicationStatus string

const (
	ApplicationStatusPending   ApplicationStatus = "PENDING"
	ApplicationStatusApproved  ApplicationStatus = "APPROVED"
	ApplicationStatusCompleted ApplicationStatus = "COMPLETED"
	ApplicationStatusRejected  ApplicationStatus = "REJECTED"
)

type DeliveryMode string

const (
	DeliveryModePhysical DeliveryMode = "PHYSICAL"
	DeliveryModeVirtual  DeliveryMode = "VIRTUAL"
	DeliveryModeHybrid   DeliveryMode = "HYBRID"
)

// Application is a request by an owner (optionally on behalf of an organization)
// to enrol participants in a training session.
type Application struct {
	ID                int32             `json:"id"`
	Status            ApplicationStatus `json:"status"`
	FeeCents          int64             `json:"fee_cents"`
	Currency          string            `json:"currency"`
	DeliveryMode      DeliveryMode      `json:"delivery_mode"`
	OwnerID           int32             `json:"owner_id"`
	CreatedByID       int32             `json:"created_by_id"`
	OrganizationID    *int32            `json:"organization_id,omitempty"`
	TrainingSessionID int32             `json:"training_session_id"`
	Message           string            `json:"message"`
	RejectionReason   string            `json:"rejection_reason"`
	ApprovedByID      *int32            `json:"approved_by_id,omitempty"`
	ApprovedAt        *time.Time        `json:"approved_at,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// ApplicationDetails is an application with its owned and referenced records
// populated for display and document rendering.
type ApplicationDetails struct {
	Application  Application      `json:"application"`
	Owner        *User            `json:"owner,omitempty"`
	Submitter    *User            `json:"submitter,omitempty"`
	Organization *Organization    `json:"organization,omitempty"`
	Session      *TrainingSession `json:"session,omitempty"`
	Program      *Program         `json:"program,omitempty"`
	Invoice      *Invoice         `json:"invoice,omitempty"`
	Documents    []Document       `json:"documents,omitempty"`
	Participants []Participant    `json:"participants,omitempty"`
	Payments     []Payment        `json:"payments,omitempty"`
}

// PaidCents sums the recorded payments.
func (d *ApplicationDetails) PaidCents() int64 {
	var total int64
	for _, p := range d.Payments {
		total += p.AmountCents
	}
	return total
}

// Document returns the first document of the given kind, or nil.
func (d *ApplicationDetails) Document(kind DocumentKind) *Document {
	for i := range d.Documents {
		if d.Documents[i].Kind == kind {
			return &d.Documents[i]
		}
	}
	return nil
}

type Participant struct {
	ID            int32     `json:"id"`
	ApplicationID int32     `json:"application_id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	Designation   string    `json:"designation"`
	CreatedAt     time.Time `json:"created_at"`
}
