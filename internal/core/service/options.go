package service

import (
	"time"

	"github.com/google/uuid"

	"github.com/northwind/backoffice/internal/core/ports"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

type settings struct {
	now func() time.Time
}

// Option customizes service construction.
type Option func(*settings)

// WithClock injects a custom clock (useful for tests).
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

func applyOptions(opts []Option) settings {
	s := settings{now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	return s
}

// newID returns a time-sortable identifier.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func normalizeFilter(f ports.ListFilter) ports.ListFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = defaultPageLimit
	}
	if f.Limit > maxPageLimit {
		f.Limit = maxPageLimit
	}
	return f
}

func newPage[T any](items []T, total int64, f ports.ListFilter) *ports.Page[T] {
	totalPages := int((total + int64(f.Limit) - 1) / int64(f.Limit))
	if items == nil {
		items = []T{}
	}
	return &ports.Page[T]{
		Items:      items,
		Total:      total,
		Page:       f.Page,
		Limit:      f.Limit,
		TotalPages: totalPages,
	}
}
