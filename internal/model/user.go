package model

import "strings"

// Role names the kind of actor using the system.  The value is written
// verbatim into audit entries and session tokens.
type Role string

const (
	RoleCustomer     Role = "Customer"
	RoleReceptionist Role = "Receptionist"
	RoleAdmin        Role = "Admin"
)

// ParseRole maps a case-insensitive role name onto a Role.  ok is false for
// unknown names.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "customer":
		return RoleCustomer, true
	case "receptionist":
		return RoleReceptionist, true
	case "admin":
		return RoleAdmin, true
	}
	return "", false
}

// IsStaff reports whether the role may act on reservations it does not own.
func (r Role) IsStaff() bool {
	return r == RoleReceptionist || r == RoleAdmin
}

// Account represents a login as stored by an account repository.  Only the
// bcrypt hash of the password is kept.
//
// Fields:
//
//	Username     – unique alphanumeric login name.
//	Role         – Customer, Receptionist or Admin.
//	PasswordHash – bcrypt hash of the password.
type Account struct {
	Username     string
	Role         Role
	PasswordHash string
}
