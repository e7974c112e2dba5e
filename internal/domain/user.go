package domain

import "time"

// Staff roles. Roles gate what the HTTP surface lets a caller do; the
// store itself does not enforce them.
const (
	RoleAdmin   = "ADMIN"
	RoleManager = "MANAGER"
	RoleWorker  = "WORKER"
)

// ValidRole reports whether role is one of the known staff roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleManager, RoleWorker:
		return true
	}
	return false
}

// User represents a staff account. Accounts are never physically deleted,
// only deactivated, so EmployeeID uniqueness spans inactive users too.
type User struct {
	ID           string    `json:"id"`
	EmployeeID   string    `json:"employeeId"` // human-chosen login name, unique
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"passwordHash,omitempty"` // bcrypt hash
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Identity is the ephemeral representation of a logged-in user. It lives
// only inside a session token and is never written to the snapshot.
type Identity struct {
	ID         string `json:"id"`
	EmployeeID string `json:"employeeId"`
	Name       string `json:"name"`
	Role       string `json:"role"`
}
