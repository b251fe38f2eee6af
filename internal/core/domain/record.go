package domain

import (
	"strings"
	"time"
)

// Record holds the identity, audit timestamps and soft-delete fields shared by
// every aggregate. DeletedAt != nil if and only if the aggregate is Deleted.
type Record struct {
	ID        string     `json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	DeletedBy *string    `json:"deleted_by,omitempty"`
}

// Aggregate is satisfied by every soft-deletable entity through an embedded Record.
type Aggregate interface {
	GetID() string
	IsDeleted() bool
	MarkDeleted(at time.Time, actorID string)
	ClearDeleted(at time.Time)
	Stamp(id string, at time.Time)
}

func (r *Record) GetID() string { return r.ID }

func (r *Record) IsDeleted() bool { return r.DeletedAt != nil }

// MarkDeleted moves the record to Deleted. Callers check IsDeleted first.
func (r *Record) MarkDeleted(at time.Time, actorID string) {
	ts := at.UTC()
	actor := actorID
	r.DeletedAt = &ts
	r.DeletedBy = &actor
	r.UpdatedAt = ts
}

// ClearDeleted moves the record back to Active.
func (r *Record) ClearDeleted(at time.Time) {
	r.DeletedAt = nil
	r.DeletedBy = nil
	r.UpdatedAt = at.UTC()
}

// Stamp sets the creation and update timestamps of a new record.
func (r *Record) Stamp(id string, at time.Time) {
	ts := at.UTC()
	r.ID = id
	r.CreatedAt = ts
	r.UpdatedAt = ts
}

// NormalizeEmail returns the projection used for uniqueness and lookup.
// The stored email keeps the casing the user supplied.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeCode returns the projection used for code-keyed aggregates.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
