package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/corepass/hallpass/docs"
	"github.com/corepass/hallpass/internal/api/handler"
	"github.com/corepass/hallpass/internal/api/middleware"
	"github.com/corepass/hallpass/internal/core/domain"
	"github.com/corepass/hallpass/internal/core/ports"
	"github.com/corepass/hallpass/internal/core/service"
)

// Dependencies are the services the HTTP layer is built on.
type Dependencies struct {
	Auth        ports.AuthService
	Revocations ports.TokenRevocations
	Passes      ports.PassReader
	Submitter   ports.PassSubmitter
	NewFlow     func() *service.SubmissionFlow
	NewQuery    func() *service.PassQueryService
	Readiness   map[string]handler.DependencyCheck

	JWTSecret string
	// SessionFixtureUID disables token checks on the pass routes.
	SessionFixtureUID string
	Log               zerolog.Logger
	// Registerer receives the HTTP request metrics. Defaults to the global
	// Prometheus registry.
	Registerer prometheus.Registerer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	registerer := deps.Registerer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "hallpass",
		Registerer: registerer,
	}))

	// --- Health probes, metrics and docs (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(deps.Readiness)

	e.GET("/health", healthHandler.Liveness)           // liveness: is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness: are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	authMiddleware := middleware.Auth(deps.JWTSecret, deps.Revocations)
	v1 := e.Group("/v1")

	// --- Auth routes ---
	authHandler := handler.NewAuthHandler(deps.Auth)
	v1.POST("/auth/register", authHandler.Register)
	v1.POST("/auth/login", authHandler.Login)
	v1.POST("/auth/logout", authHandler.Logout, authMiddleware)
	v1.GET("/auth/me", authHandler.Me, authMiddleware)

	// --- Pass routes ---
	// Every account role may use the pass routes; the role list only turns away
	// tokens carrying a role no account can be registered with.
	passRoutes := v1.Group("")
	if deps.SessionFixtureUID == "" {
		passRoutes.Use(authMiddleware, middleware.RBAC(domain.RoleStudent, domain.RoleStaff))
	} else {
		deps.Log.Warn().Str("uid", deps.SessionFixtureUID).Msg("session fixture active, pass routes are unauthenticated")
	}

	roomHandler := handler.NewRoomHandler(deps.Submitter)
	passHandler := handler.NewPassHandler(deps.Passes, deps.NewFlow, deps.NewQuery, deps.Log)

	passRoutes.GET("/rooms", roomHandler.List)
	passRoutes.GET("/passes", passHandler.List)
	passRoutes.POST("/passes", passHandler.Submit)
	passRoutes.GET("/passes/stream", passHandler.Stream)
	passRoutes.POST("/passes/:id/end", passHandler.End)
	passRoutes.GET("/passes/:id/progress", passHandler.Progress)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
