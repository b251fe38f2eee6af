package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/northwind/backoffice/internal/core/domain"
	"github.com/northwind/backoffice/internal/core/ports"
)

// CatalogHandler serves create/get/list/delete/restore for one aggregate.
// Req is the create payload; build turns a validated payload into a new
// unsaved aggregate.
type CatalogHandler[T domain.Aggregate, Req any] struct {
	name    string
	service ports.CatalogService[T]
	build   func(Req) T
}

func NewCatalogHandler[T domain.Aggregate, Req any](name string, service ports.CatalogService[T], build func(Req) T) *CatalogHandler[T, Req] {
	return &CatalogHandler[T, Req]{name: name, service: service, build: build}
}

// Create handles POST /v1/{aggregate}.
//
// @Summary      Create a catalog entity
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Success      201  {object}  map[string]any
// @Failure      400  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Router       /v1/positions [post]
// @Router       /v1/projects [post]
// @Router       /v1/employees [post]
// @Router       /v1/clients [post]
func (h *CatalogHandler[T, Req]) Create(c echo.Context) error {
	var req Req
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	created, err := h.service.Create(c.Request().Context(), h.build(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, created)
}

// Get returns the entity whether Active or Deleted.
//
// @Summary      Get a catalog entity
// @Tags         catalog
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Entity id"
// @Success      200  {object}  map[string]any
// @Failure      404  {object}  errorResponse
// @Router       /v1/positions/{id} [get]
// @Router       /v1/projects/{id} [get]
// @Router       /v1/employees/{id} [get]
// @Router       /v1/clients/{id} [get]
func (h *CatalogHandler[T, Req]) Get(c echo.Context) error {
	entity, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entity)
}

// List handles GET /v1/{aggregate}.
//
// @Summary      List catalog entities
// @Tags         catalog
// @Produce      json
// @Security     BearerAuth
// @Param        page             query     int     false  "Page (1-based)"
// @Param        limit            query     int     false  "Page size (max 100)"
// @Param        search           query     string  false  "Text search"
// @Param        include_deleted  query     bool    false  "Include soft-deleted entities"
// @Success      200              {object}  map[string]any
// @Router       /v1/positions [get]
// @Router       /v1/projects [get]
// @Router       /v1/employees [get]
// @Router       /v1/clients [get]
func (h *CatalogHandler[T, Req]) List(c echo.Context) error {
	filter, err := listFilter(c)
	if err != nil {
		return err
	}
	page, err := h.service.List(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toPageResponse(page, func(t T) T { return t }))
}

// Delete soft-deletes the entity on behalf of the caller.
//
// @Summary      Soft-delete a catalog entity
// @Tags         catalog
// @Security     BearerAuth
// @Param        id   path  string  true  "Entity id"
// @Success      204
// @Failure      404  {object}  errorResponse
// @Router       /v1/positions/{id} [delete]
// @Router       /v1/projects/{id} [delete]
// @Router       /v1/employees/{id} [delete]
// @Router       /v1/clients/{id} [delete]
func (h *CatalogHandler[T, Req]) Delete(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	err = h.service.SoftDelete(c.Request().Context(), c.Param("id"), p.AccountID)
	observeLifecycle(h.name, "delete", err)
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Restore brings a soft-deleted entity back.
//
// @Summary      Restore a catalog entity
// @Tags         catalog
// @Security     BearerAuth
// @Param        id   path  string  true  "Entity id"
// @Success      204
// @Failure      404  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Failure      422  {object}  errorResponse
// @Router       /v1/positions/{id}/restore [post]
// @Router       /v1/projects/{id}/restore [post]
// @Router       /v1/employees/{id}/restore [post]
// @Router       /v1/clients/{id}/restore [post]
func (h *CatalogHandler[T, Req]) Restore(c echo.Context) error {
	err := h.service.Restore(c.Request().Context(), c.Param("id"))
	observeLifecycle(h.name, "restore", err)
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
