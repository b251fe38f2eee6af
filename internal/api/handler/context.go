package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/northwind/backoffice/internal/api/middleware"
)

// principal is the authenticated caller as injected by the Auth middleware.
type principal struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

// ctxPrincipal extracts the caller and fails fast when the middleware did not
// run or the token carried no subject.
func ctxPrincipal(c echo.Context) (principal, error) {
	p := principal{}
	p.AccountID, _ = c.Get(middleware.KeyAccountID).(string)
	p.Email, _ = c.Get(middleware.KeyEmail).(string)
	p.Role, _ = c.Get(middleware.KeyRole).(string)
	if p.AccountID == "" || p.Role == "" {
		return principal{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return p, nil
}
