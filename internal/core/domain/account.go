package domain

import (
	"strings"
	"time"
)

// Role is the closed set of access roles. The numeric values mirror the
// identifiers stored alongside each account.
type Role int

const (
	RoleAdministrator Role = iota + 1
	RoleManager
	RoleUser
)

var roleNames = map[Role]string{
	RoleAdministrator: "Administrator",
	RoleManager:       "Manager",
	RoleUser:          "User",
}

var rolesByName = invert(roleNames)

func (r Role) String() string { return roleNames[r] }

func (r Role) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

// ParseRole resolves a role by name, case-insensitively.
func ParseRole(name string) (Role, bool) {
	r, ok := rolesByName[strings.ToLower(strings.TrimSpace(name))]
	return r, ok
}

// AccountStatus is the lifecycle state of an account's access.
type AccountStatus int

const (
	StatusPendingEmail AccountStatus = iota + 1
	StatusPendingApproval
	StatusActive
	StatusDenied
	StatusDisabled
)

var statusNames = map[AccountStatus]string{
	StatusPendingEmail:    "PendingEmail",
	StatusPendingApproval: "PendingApproval",
	StatusActive:          "Active",
	StatusDenied:          "Denied",
	StatusDisabled:        "Disabled",
}

var statusesByName = invert(statusNames)

func (s AccountStatus) String() string { return statusNames[s] }

func (s AccountStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s AccountStatus) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// ParseAccountStatus resolves a status by name, case-insensitively.
func ParseAccountStatus(name string) (AccountStatus, bool) {
	s, ok := statusesByName[strings.ToLower(strings.TrimSpace(name))]
	return s, ok
}

// accountTransitions defines the allowed status changes.
// Disabled -> Active is the administrative reinstatement path.
var accountTransitions = map[AccountStatus][]AccountStatus{
	StatusPendingEmail:    {StatusPendingApproval, StatusActive, StatusDisabled},
	StatusPendingApproval: {StatusActive, StatusDenied, StatusDisabled},
	StatusActive:          {StatusDisabled},
	StatusDisabled:        {StatusActive},
}

// CanTransitionTo reports whether a transition from s to next is valid.
func (s AccountStatus) CanTransitionTo(next AccountStatus) bool {
	for _, allowed := range accountTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// LoginBlockedMessage is the end-user explanation for a non-Active status.
func (s AccountStatus) LoginBlockedMessage() string {
	switch s {
	case StatusPendingEmail:
		return "email address has not been verified"
	case StatusPendingApproval:
		return "account is pending administrator approval"
	case StatusDenied:
		return "account registration was denied"
	case StatusDisabled:
		return "account is disabled"
	default:
		return "account is not active"
	}
}

// Account is the identity and access aggregate.
type Account struct {
	Record
	Email           string        `json:"email"`
	NormalizedEmail string        `json:"-"`
	PasswordHash    string        `json:"-"`
	Role            Role          `json:"role"`
	Status          AccountStatus `json:"status"`
}

// NewAccount builds an account in its initial status. The email is stored as
// supplied; NormalizedEmail is derived once and never changes.
func NewAccount(id, email, passwordHash string, role Role, status AccountStatus, now time.Time) *Account {
	a := &Account{
		Email:           strings.TrimSpace(email),
		NormalizedEmail: NormalizeEmail(email),
		PasswordHash:    passwordHash,
		Role:            role,
		Status:          status,
	}
	a.Stamp(id, now)
	return a
}

// TransitionTo applies a validated status change.
func (a *Account) TransitionTo(next AccountStatus, now time.Time) error {
	if !next.Valid() {
		return Fail(KindValidation, "unknown account status")
	}
	if a.Status == next {
		return nil
	}
	if !a.Status.CanTransitionTo(next) {
		return Fail(KindValidation, "cannot change account status from "+a.Status.String()+" to "+next.String())
	}
	a.Status = next
	a.UpdatedAt = now.UTC()
	return nil
}

func invert[K comparable](m map[K]string) map[string]K {
	out := make(map[string]K, len(m))
	for k, v := range m {
		out[strings.ToLower(v)] = k
	}
	return out
}
