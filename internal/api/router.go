package api

import (
	"strings"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/minicrm/crm-api/docs"
	"github.com/minicrm/crm-api/internal/api/handler"
	"github.com/minicrm/crm-api/internal/api/middleware"
	"github.com/minicrm/crm-api/internal/core/domain"
	"github.com/minicrm/crm-api/internal/core/ports"
	"github.com/minicrm/crm-api/internal/infrastructure/http/handlers"
)

// Dependencies are the collaborators the router wires into handlers.
type Dependencies struct {
	Tokens      ports.TokenService
	Auth        ports.AuthService
	Leads       ports.LeadService
	Clients     ports.ClientService
	Conversions ports.ConversionService
	Staff       ports.StaffService
	Projects    ports.ProjectService

	Readiness *handlers.HealthDependenciesHandler
	Log       zerolog.Logger

	// Registry receives the HTTP request metrics. Nil means the default
	// Prometheus registry.
	Registry *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if d.Registry != nil {
		registerer, gatherer = d.Registry, d.Registry
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "crm",
		Registerer: registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics" || strings.HasPrefix(c.Path(), "/swagger")
		},
	}))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(d.Auth)
	leadHandler := handler.NewLeadHandler(d.Leads)
	clientHandler := handler.NewClientHandler(d.Clients, d.Conversions)
	staffHandler := handler.NewStaffHandler(d.Staff)
	projectHandler := handler.NewProjectHandler(d.Projects)

	authenticated := middleware.Auth(d.Tokens)
	can := middleware.Authorize

	api := e.Group("/api")

	// --- Auth routes ---
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/register", authHandler.Register, authenticated, can(domain.ActionRegisterUser))
	api.POST("/auth/logout", authHandler.Logout, authenticated)
	api.GET("/auth/me", authHandler.Me, authenticated)
	api.GET("/policy", authHandler.Policy, authenticated)

	// --- Leads ---
	leads := api.Group("/leads", authenticated)
	leads.GET("", leadHandler.List, can(domain.ActionReadLeads))
	leads.POST("", leadHandler.Create, can(domain.ActionCreateLead))
	leads.PUT("/:id", leadHandler.Update, can(domain.ActionManageLeads))
	leads.DELETE("/:id", leadHandler.Delete, can(domain.ActionManageLeads))

	// --- Clients ---
	clients := api.Group("/clients", authenticated)
	clients.POST("/convert/:key", clientHandler.Convert, can(domain.ActionConvertLead))
	clients.GET("", clientHandler.List, can(domain.ActionReadClients))
	clients.PUT("/:id", clientHandler.Update, can(domain.ActionManageClients))
	clients.DELETE("/:id", clientHandler.Delete, can(domain.ActionManageClients))

	// --- Staff ---
	staff := api.Group("/staff", authenticated)
	staff.GET("", staffHandler.List, can(domain.ActionManageStaff))
	staff.POST("", staffHandler.Create, can(domain.ActionCreateStaff))
	staff.PUT("/:id", staffHandler.Update, can(domain.ActionManageStaff))
	staff.DELETE("/:id", staffHandler.Delete, can(domain.ActionManageStaff))

	// --- Projects (scoped per caller by the service) ---
	projects := api.Group("/projects", authenticated)
	projects.GET("", projectHandler.List, can(domain.ActionReadProjects))
	projects.GET("/:id", projectHandler.Get, can(domain.ActionReadProjects))
	projects.POST("", projectHandler.Create, can(domain.ActionCreateProject))
	projects.PUT("/:id", projectHandler.Update, can(domain.ActionUpdateProjectProgress))
	projects.DELETE("/:id", projectHandler.Delete, can(domain.ActionDeleteProject))

	// --- Health probes, metrics and docs (no auth required) ---
	e.GET("/health", handlers.NewHealthHandler().Liveness)
	if d.Readiness != nil {
		e.GET("/health/ready", d.Readiness.Readiness)
	}
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// requestLogger writes one zerolog line per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			evt := log.Info()
			if v.Status >= 500 {
				evt = log.Error().Err(v.Error)
			}
			evt.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
