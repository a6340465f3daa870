package domain

type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

type User struct {
	ID          int32  `json:"id"`
	Email       string `json:"email"` // empty when the account has no address on file
	PhoneNumber string `json:"phone_number"`
	IDNumber    string `json:"id_number"` // national id or passport, used as gateway payer id
	Name        string `json:"name"`
	Role        Role   `json:"role"`
	CreatedOn   string `json:"created_on"`
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID int32
	Email  string
	Role   Role
}

func (a *Actor) IsAdmin() bool {
	return a != nil && a.Role == RoleAdmin
}
