package domain

// Notification is an in-portal message shown to a user alongside the email
// that accompanies most workflow transitions.
type Notification struct {
	ID            int32             `json:"id"`
	UserID        int32             `json:"user_id"`
	ApplicationID *int32            `json:"application_id,omitempty"`
	Title         string            `json:"title"`
	Message       string            `json:"message"`
	IsRead        bool              `json:"is_read"`
	Attributes    map[string]string `json:"attributes"`
	CreatedOn     string            `json:"created_on"`
}
