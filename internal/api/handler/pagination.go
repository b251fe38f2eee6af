package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/northwind/backoffice/internal/core/domain"
	"github.com/northwind/backoffice/internal/core/ports"
)

type pageResponse[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

// listFilter reads page, limit, search and include_deleted from the query.
// Defaults and caps are applied by the service.
func listFilter(c echo.Context) (ports.ListFilter, error) {
	var f ports.ListFilter
	err := echo.QueryParamsBinder(c).
		Int("page", &f.Page).
		Int("limit", &f.Limit).
		String("search", &f.Search).
		Bool("include_deleted", &f.IncludeDeleted).
		BindError()
	if err != nil {
		return ports.ListFilter{}, domain.Fail(domain.KindValidation, "invalid query parameters")
	}
	return f, nil
}

func toPageResponse[T, R any](p *ports.Page[T], mapItem func(T) R) pageResponse[R] {
	items := make([]R, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, mapItem(it))
	}
	return pageResponse[R]{
		Items:      items,
		Total:      p.Total,
		Page:       p.Page,
		Limit:      p.Limit,
		TotalPages: p.TotalPages,
	}
}
