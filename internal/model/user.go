package model

import "time"

// Role identifies the category of worker a user belongs to. Roles double
// as an authorization level (admin) and a bulk-assignment target.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleFrontend Role = "frontend"
	RoleBackend  Role = "backend"
	RoleDesigner Role = "designer"
	RoleTesting  Role = "testing"
)

// Roles lists every valid role.
var Roles = []Role{RoleAdmin, RoleFrontend, RoleBackend, RoleDesigner, RoleTesting}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// UserStatus tracks an account through the admin approval flow.
type UserStatus string

const (
	UserPending  UserStatus = "pending"
	UserApproved UserStatus = "approved"
	UserRejected UserStatus = "rejected"
)

// User is a registered account. Accounts start in pending status and may
// only authenticate or be assigned work once an admin approves them.
// Rejected accounts are deleted, not retained.
type User struct {
	ID string `json:"id" db:"id"`

	// Name is the display name shown in assignments and comments.
	Name string `json:"name" db:"name"`

	// Email is the login identifier; unique across the directory.
	Email string `json:"email" db:"email"`

	// PasswordHash is the bcrypt hash of the account password.
	// Never serialized.
	PasswordHash string `json:"-" db:"password_hash"`

	Role   Role       `json:"role" db:"role"`
	Status UserStatus `json:"status" db:"status"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
