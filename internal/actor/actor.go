// Package actor carries the authenticated caller into operations that are
// gated by role, instead of reading ambient session state.
package actor

import "marketstall/internal/apperror"

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleVendor Role = "vendor"
)

type Actor struct {
	Role     Role
	UserID   string
	Username string
}

// Vendor is the anonymous caller of the public booking endpoints.
func Vendor() Actor { return Actor{Role: RoleVendor, Username: "vendor"} }

func Admin(userID, username string) Actor {
	return Actor{Role: RoleAdmin, UserID: userID, Username: username}
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// Label is the value written to audit and event rows.
func (a Actor) Label() string {
	if a.Username != "" {
		return a.Username
	}
	return string(a.Role)
}

func RequireAdmin(a Actor) error {
	if !a.IsAdmin() {
		return &apperror.ForbiddenError{Message: "admin role required"}
	}
	return nil
}
