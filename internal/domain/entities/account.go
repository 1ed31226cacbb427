package entities

import "time"

// AccountRole is the authorization role of an account
type AccountRole string

const (
	RoleAdmin  AccountRole = "admin"
	RoleMember AccountRole = "member"
)

// Account is a user account known to the datastore
type Account struct {
	ID          string      `json:"id"`
	Email       string      `json:"email"`
	DisplayName string      `json:"display_name"`
	Role        AccountRole `json:"role"`
	CreatedAt   time.Time   `json:"created_at"`
}

// IsAdmin reports whether the account holds the admin role
func (a Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// NewAccount is the input for account provisioning
type NewAccount struct {
	Email        string
	PasswordHash string
	DisplayName  string
	Role         AccountRole
}

// Invitation is a pending account invitation
type Invitation struct {
	Token     string    `json:"token"`
	AccountID string    `json:"account_id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
