package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/northwind/backoffice/docs"
	"github.com/northwind/backoffice/internal/api/handler"
	"github.com/northwind/backoffice/internal/api/middleware"
	"github.com/northwind/backoffice/internal/core/domain"
	"github.com/northwind/backoffice/internal/core/ports"
)

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Auth      ports.AuthService
	Accounts  ports.AccountAdminService
	Employees ports.CatalogService[*domain.Employee]
	Positions ports.CatalogService[*domain.Position]
	Projects  ports.CatalogService[*domain.Project]
	Clients   ports.CatalogService[*domain.Client]

	Tokens      middleware.TokenParser
	Throttle    handler.LoginThrottle // optional
	Health      map[string]handler.Pinger
	FrontendURL string
	Log         zerolog.Logger
}

// catalogRoutes is the route set shared by every catalog handler.
type catalogRoutes interface {
	Create(echo.Context) error
	Get(echo.Context) error
	List(echo.Context) error
	Delete(echo.Context) error
	Restore(echo.Context) error
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(echoprometheus.NewMiddleware("backoffice"))

	// --- Operational endpoints (no auth required) ---
	health := handler.NewHealthHandler(d.Health)
	e.GET("/health", health.Liveness)
	e.GET("/health/ready", health.Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Auth routes ---
	authHandler := handler.NewAuthHandler(d.Auth, d.Throttle, d.FrontendURL, d.Log)
	auth := e.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.GET("/verify-email", authHandler.VerifyEmail)
	auth.POST("/resend-verification", authHandler.ResendVerification)
	auth.POST("/login", authHandler.Login)

	v1 := e.Group("/v1", middleware.Auth(d.Tokens))
	v1.GET("/me", authHandler.Me)

	// --- Account administration ---
	accountHandler := handler.NewAccountHandler(d.Accounts)
	accounts := v1.Group("/accounts", middleware.RBAC(domain.RoleAdministrator))
	accounts.GET("", accountHandler.List)
	accounts.GET("/:id", accountHandler.Get)
	accounts.PATCH("/:id/status", accountHandler.SetStatus)
	accounts.PATCH("/:id/role", accountHandler.SetRole)
	accounts.DELETE("/:id", accountHandler.Delete)
	accounts.POST("/:id/restore", accountHandler.Restore)

	// --- Catalog ---
	mountCatalog(v1.Group("/employees"), handler.NewEmployeeHandler(d.Employees))
	mountCatalog(v1.Group("/positions"), handler.NewPositionHandler(d.Positions))
	mountCatalog(v1.Group("/projects"), handler.NewProjectHandler(d.Projects))
	mountCatalog(v1.Group("/clients"), handler.NewClientHandler(d.Clients))

	return e
}

// mountCatalog registers reads for any authenticated caller and writes for
// managers and administrators.
func mountCatalog(g *echo.Group, h catalogRoutes) {
	writers := middleware.RBAC(domain.RoleAdministrator, domain.RoleManager)

	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.POST("", h.Create, writers)
	g.DELETE("/:id", h.Delete, writers)
	g.POST("/:id/restore", h.Restore, writers)
}

// requestLogger logs one line per request through zerolog.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Status >= 500 {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("path", v.URIPath).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
