package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/northwind/backoffice/internal/api/metrics"
	"github.com/northwind/backoffice/internal/core/domain"
	"github.com/northwind/backoffice/internal/core/ports"
)

// LoginThrottle tracks failed sign-in attempts per normalized email.
type LoginThrottle interface {
	Blocked(ctx context.Context, email string) (bool, error)
	RecordFailure(ctx context.Context, email string) error
	Reset(ctx context.Context, email string) error
}

type AuthHandler struct {
	authService ports.AuthService
	throttle    LoginThrottle
	frontendURL string
	log         zerolog.Logger
}

// NewAuthHandler wires the auth endpoints. throttle may be nil.
func NewAuthHandler(authService ports.AuthService, throttle LoginThrottle, frontendURL string, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		throttle:    throttle,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		log:         log,
	}
}

// Register creates a new account and sends the verification email.
//
// @Summary      Register a new account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Registration details"
// @Success      201   {object}  registerResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		return err
	}

	id, err := h.authService.Register(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues(resultLabel(err)).Inc()
		return err
	}

	metrics.RegistrationsTotal.WithLabelValues("created").Inc()
	return c.JSON(http.StatusCreated, registerResponse{AccountID: id})
}

// VerifyEmail consumes a verification token and redirects to the frontend
// result page. Failures are reported through the redirect as well.
//
// @Summary      Verify an email address
// @Tags         auth
// @Param        token  query  string  true  "Raw verification token"
// @Success      302
// @Router       /auth/verify-email [get]
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	outcome, err := h.authService.VerifyEmail(c.Request().Context(), c.QueryParam("token"))
	if err != nil {
		var de *domain.Error
		if !errors.As(err, &de) {
			h.log.Error().Err(err).Msg("email verification failed unexpectedly")
			metrics.VerificationsTotal.WithLabelValues("error").Inc()
			return c.Redirect(http.StatusFound, h.resultURL("error", "verification could not be completed, please try again later"))
		}
		metrics.VerificationsTotal.WithLabelValues(verificationFailureLabel(de)).Inc()
		return c.Redirect(http.StatusFound, h.resultURL(de.Kind.String(), de.Error()))
	}

	metrics.VerificationsTotal.WithLabelValues(outcome.Code).Inc()
	return c.Redirect(http.StatusFound, h.resultURL(outcome.Code, outcome.Message))
}

// ResendVerification issues a new verification email for a pending account.
// The response is the same whether or not the address is registered.
//
// @Summary      Resend the verification email
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      resendRequest  true  "Account email"
// @Success      202   {object}  messageResponse
// @Failure      400   {object}  errorResponse
// @Router       /auth/resend-verification [post]
func (h *AuthHandler) ResendVerification(c echo.Context) error {
	var req resendRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.authService.ResendVerification(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, messageResponse{
		Message: "if the address belongs to an unverified account, a new verification email has been sent",
	})
}

// Login authenticates an account and returns a bearer token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	key := domain.NormalizeEmail(req.Email)

	if h.throttle != nil {
		blocked, err := h.throttle.Blocked(ctx, key)
		if err != nil {
			h.log.Warn().Err(err).Msg("login throttle unavailable")
		} else if blocked {
			metrics.LoginsTotal.WithLabelValues("throttled").Inc()
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many failed login attempts, try again later")
		}
	}

	result, err := h.authService.Login(ctx, req.Email, req.Password)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues(resultLabel(err)).Inc()
		if errors.Is(err, domain.ErrUnauthorized) && h.throttle != nil {
			if terr := h.throttle.RecordFailure(ctx, key); terr != nil {
				h.log.Warn().Err(terr).Msg("login throttle record failed")
			}
		}
		return err
	}

	if h.throttle != nil {
		if terr := h.throttle.Reset(ctx, key); terr != nil {
			h.log.Warn().Err(terr).Msg("login throttle reset failed")
		}
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	return c.JSON(http.StatusOK, loginResponse{
		Token:     result.Token,
		TokenType: "Bearer",
		ExpiresAt: result.ExpiresAt.UTC().Format(time.RFC3339),
		AccountID: result.AccountID,
		Role:      result.Role,
	})
}

// Me returns the claims of the authenticated caller.
//
// @Summary      Current account
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  principal
// @Failure      401  {object}  errorResponse
// @Router       /v1/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *AuthHandler) resultURL(status, message string) string {
	q := url.Values{}
	q.Set("status", status)
	q.Set("message", message)
	return h.frontendURL + "/verify-result?" + q.Encode()
}

// resultLabel maps an error to a metrics label: the domain kind, or "error".
func resultLabel(err error) string {
	if kind, ok := domain.KindOf(err); ok {
		return kind.String()
	}
	return "error"
}

func verificationFailureLabel(de *domain.Error) string {
	if de.Kind == domain.KindConflict {
		return "already_used"
	}
	return de.Kind.String()
}
