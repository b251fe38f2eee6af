package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/northwind/backoffice/internal/api/metrics"
	"github.com/northwind/backoffice/internal/core/domain"
	"github.com/northwind/backoffice/internal/core/ports"
)

// AccountHandler serves the administrator account endpoints.
type AccountHandler struct {
	service ports.AccountAdminService
}

func NewAccountHandler(service ports.AccountAdminService) *AccountHandler {
	return &AccountHandler{service: service}
}

type accountResponse struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	DeletedBy *string    `json:"deleted_by,omitempty"`
}

type setStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=PendingEmail PendingApproval Active Denied Disabled"`
}

type setRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=Administrator Manager User"`
}

func toAccountResponse(a *domain.Account) accountResponse {
	return accountResponse{
		ID:        a.ID,
		Email:     a.Email,
		Role:      a.Role.String(),
		Status:    a.Status.String(),
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
		DeletedAt: a.DeletedAt,
		DeletedBy: a.DeletedBy,
	}
}

// List handles GET /v1/accounts.
//
// @Summary      List accounts
// @Tags         accounts
// @Produce      json
// @Security     BearerAuth
// @Param        page             query     int     false  "Page (1-based)"
// @Param        limit            query     int     false  "Page size (max 100)"
// @Param        search           query     string  false  "Email substring"
// @Param        include_deleted  query     bool    false  "Include soft-deleted accounts"
// @Success      200              {object}  pageResponse[accountResponse]
// @Failure      403              {object}  errorResponse
// @Router       /v1/accounts [get]
func (h *AccountHandler) List(c echo.Context) error {
	filter, err := listFilter(c)
	if err != nil {
		return err
	}
	page, err := h.service.List(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toPageResponse(page, toAccountResponse))
}

// Get handles GET /v1/accounts/:id.
//
// @Summary      Get an account
// @Tags         accounts
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Account id"
// @Success      200  {object}  accountResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/accounts/{id} [get]
func (h *AccountHandler) Get(c echo.Context) error {
	account, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAccountResponse(account))
}

// SetStatus handles PATCH /v1/accounts/:id/status.
//
// @Summary      Change an account's status
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string            true  "Account id"
// @Param        body  body      setStatusRequest  true  "New status"
// @Success      200   {object}  accountResponse
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /v1/accounts/{id}/status [patch]
func (h *AccountHandler) SetStatus(c echo.Context) error {
	var req setStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	status, ok := domain.ParseAccountStatus(req.Status)
	if !ok {
		return domain.Fail(domain.KindValidation, "unknown account status")
	}
	account, err := h.service.SetStatus(c.Request().Context(), c.Param("id"), status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAccountResponse(account))
}

// SetRole handles PATCH /v1/accounts/:id/role.
//
// @Summary      Change an account's role
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string          true  "Account id"
// @Param        body  body      setRoleRequest  true  "New role"
// @Success      200   {object}  accountResponse
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /v1/accounts/{id}/role [patch]
func (h *AccountHandler) SetRole(c echo.Context) error {
	var req setRoleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	role, ok := domain.ParseRole(req.Role)
	if !ok {
		return domain.Fail(domain.KindValidation, "unknown role")
	}
	account, err := h.service.SetRole(c.Request().Context(), c.Param("id"), role)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAccountResponse(account))
}

// Delete handles DELETE /v1/accounts/:id.
//
// @Summary      Soft-delete an account
// @Tags         accounts
// @Security     BearerAuth
// @Param        id   path  string  true  "Account id"
// @Success      204
// @Failure      404  {object}  errorResponse
// @Router       /v1/accounts/{id} [delete]
func (h *AccountHandler) Delete(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	err = h.service.SoftDelete(c.Request().Context(), c.Param("id"), p.AccountID)
	observeLifecycle("account", "delete", err)
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Restore handles POST /v1/accounts/:id/restore.
//
// @Summary      Restore a soft-deleted account
// @Tags         accounts
// @Security     BearerAuth
// @Param        id   path  string  true  "Account id"
// @Success      204
// @Failure      404  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Router       /v1/accounts/{id}/restore [post]
func (h *AccountHandler) Restore(c echo.Context) error {
	err := h.service.Restore(c.Request().Context(), c.Param("id"))
	observeLifecycle("account", "restore", err)
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func observeLifecycle(aggregate, operation string, err error) {
	result := "ok"
	if err != nil {
		result = resultLabel(err)
	}
	metrics.LifecycleOperationsTotal.WithLabelValues(aggregate, operation, result).Inc()
}
