package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ahtrading/backend/internal/domain/device"
	"github.com/ahtrading/backend/internal/infrastructure/auth"
	"github.com/ahtrading/backend/internal/infrastructure/config"
	"github.com/ahtrading/backend/internal/infrastructure/logger"
	"github.com/ahtrading/backend/internal/interfaces/http/handler"
	"github.com/ahtrading/backend/internal/interfaces/http/middleware"
)

// Handlers aggregates the route handlers the router serves.
type Handlers struct {
	System           *handler.SystemHandler
	Outbox           *handler.OutboxHandler
	Device           *handler.DeviceHandler
	SupplierInvoices *handler.SupplierInvoiceHandler
}

// Options bundles router dependencies.
type Options struct {
	Config     *config.Config
	Logger     *zap.Logger
	JWTService *auth.JWTService
	Devices    device.Repository
	Handlers   Handlers
}

// New builds the gin engine with the full middleware chain and routes.
func New(opts Options) *gin.Engine {
	if opts.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	middleware.SetupValidator()

	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(opts.Logger),
		logger.Recovery(opts.Logger),
		middleware.Secure(),
		middleware.CORSWithConfig(middleware.DefaultCORSConfig()),
		middleware.BodyLimit(opts.Config.HTTP.MaxBodySize),
	)

	engine.GET("/health", opts.Handlers.System.Health)
	engine.GET("/ready", opts.Handlers.System.Ready)

	api := engine.Group("/api/v1")

	// Device-facing surface: token-authenticated terminals submitting and
	// inspecting their own queue.
	submitLimiter := middleware.NewRateLimiter(120, time.Minute)
	pos := api.Group("/pos/outbox")
	pos.Use(middleware.DeviceAuth(opts.Devices), middleware.RateLimit(submitLimiter))
	{
		pos.POST("/submit", opts.Handlers.Outbox.Submit)
		pos.GET("/events", opts.Handlers.Outbox.Events)
		pos.GET("/summary", opts.Handlers.Outbox.Summary)
	}

	// Operator surface: JWT-authenticated queue and device management.
	admin := api.Group("/admin")
	admin.Use(middleware.OperatorAuth(opts.JWTService))
	{
		outbox := admin.Group("/outbox")
		{
			outbox.POST("/:id/requeue",
				middleware.RequirePermission(auth.PermOutboxRequeue),
				opts.Handlers.Outbox.Requeue)
			outbox.POST("/:id/process",
				middleware.RequirePermission(auth.PermOutboxRequeue),
				opts.Handlers.Outbox.Process)
		}

		invoices := admin.Group("/supplier-invoices")
		{
			invoices.POST("/:id/release-hold",
				middleware.RequirePermission(auth.PermOutboxRequeue),
				opts.Handlers.SupplierInvoices.ReleaseHold)
		}

		devices := admin.Group("/devices")
		{
			devices.POST("",
				middleware.RequirePermission(auth.PermDeviceManage),
				opts.Handlers.Device.Register)
			devices.POST("/:id/reset-token",
				middleware.RequirePermission(auth.PermDeviceManage),
				opts.Handlers.Device.ResetToken)
			devices.POST("/:id/deactivate",
				middleware.RequirePermission(auth.PermDeviceManage),
				opts.Handlers.Device.Deactivate)
			devices.GET("/:id/events",
				middleware.RequirePermission(auth.PermOutboxRead),
				opts.Handlers.Outbox.DeviceEvents)
		}
	}

	return engine
}
