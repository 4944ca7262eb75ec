package http

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/angocine/internal/api/http/handlers"
	"github.com/spec-kit/angocine/internal/auth"
	"github.com/spec-kit/angocine/internal/observability"
	apperrors "github.com/spec-kit/angocine/pkg/util/errorutil"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Accounts       *handlers.AccountHandler
	Activity       *handlers.ActivityHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
	CORSOrigins    string
	AuthRateLimit  int
	AuthRateWindow time.Duration
}

// RegisterEdgeMiddlewares installs the request id, security headers and CORS.
// They run ahead of RegisterMiddlewares so every logged request has an id.
func RegisterEdgeMiddlewares(app *fiber.App, corsOrigins string) {
	app.Use(requestid.New())
	app.Use(helmet.New())
	origins := strings.TrimSpace(corsOrigins)
	if origins == "" {
		origins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry(), promhttp.HandlerOpts{})))
	}

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	if cfg.AuthRateLimit > 0 {
		authGroup.Use(authLimiter(cfg.AuthRateLimit, cfg.AuthRateWindow))
	}
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/refresh-token", cfg.Auth.RefreshToken)
	authGroup.Post("/forgot-password", cfg.Auth.ForgotPassword)
	authGroup.Post("/reset-password", cfg.Auth.ResetPassword)

	user := api.Group("/user", cfg.AuthMiddleware.Handle)
	user.Get("/profile", cfg.Accounts.GetAccount)
	user.Put("/profile", cfg.Accounts.UpdateAccount)
	user.Get("/profiles", cfg.Accounts.ListProfiles)
	user.Post("/profiles", cfg.Accounts.CreateProfile)
	user.Put("/profiles/:id", cfg.Accounts.UpdateProfile)
	user.Delete("/profiles/:id", cfg.Accounts.DeleteProfile)
	user.Get("/history/:profileId", cfg.Activity.History)
	user.Post("/history/:profileId/:movieId", cfg.Activity.RecordWatch)

	analytics := api.Group("/analytics", cfg.AuthMiddleware.Handle)
	analytics.Post("/event", cfg.Activity.RecordEvent)
	analytics.Get("/activity/:profileId", cfg.Activity.Activity)
	analytics.Get("/watch-time/:profileId", cfg.Activity.WatchTime)
	analytics.Get("/profiles/:profileId/events", cfg.Activity.Events)

	admin := api.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireAdmin())
	admin.Get("/users", cfg.Admin.ListUsers)
	admin.Get("/users/:id", cfg.Admin.GetUser)
	admin.Put("/users/:id/role", cfg.Admin.ChangeRole)
	admin.Delete("/users/:id", cfg.Admin.DeleteUser)
}

func authLimiter(limit int, window time.Duration) fiber.Handler {
	if window <= 0 {
		window = time.Minute
	}
	return limiter.New(limiter.Config{
		Max:        limit,
		Expiration: window,
		LimitReached: func(c *fiber.Ctx) error {
			return apperrors.NewTooManyRequests("Too many requests, please try again later.")
		},
	})
}
