package ports

import (
	"context"

	"github.com/northwind/backoffice/internal/core/domain"
)

// CatalogService is the use-case surface shared by employees, positions,
// projects and clients.
type CatalogService[T domain.Aggregate] interface {
	Create(ctx context.Context, entity T) (T, error)
	Get(ctx context.Context, id string) (T, error)
	List(ctx context.Context, filter ListFilter) (*Page[T], error)
	SoftDelete(ctx context.Context, id, actorID string) error
	Restore(ctx context.Context, id string) error
}
