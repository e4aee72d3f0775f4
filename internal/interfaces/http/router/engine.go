package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/erp/syncbridge/internal/infrastructure/config"
	"github.com/erp/syncbridge/internal/infrastructure/logger"
	"github.com/erp/syncbridge/internal/interfaces/http/handler"
	"github.com/erp/syncbridge/internal/interfaces/http/middleware"
)

// Handlers are the HTTP handlers served by the admin API
type Handlers struct {
	Health     *handler.HealthHandler
	System     *handler.SystemHandler
	SyncResult *handler.SyncResultHandler
	Trigger    *handler.TriggerHandler
	Report     *handler.ReportHandler
}

// NewEngine builds the gin engine with the middleware chain and all routes.
//
// Middleware order:
//  1. RequestID, so every later layer sees the same ID
//  2. Tracing and span enrichment
//  3. Recovery and access logging
//  4. Security headers, CORS and the body limit
func NewEngine(cfg *config.Config, h Handlers, log *zap.Logger) (*gin.Engine, error) {
	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			return nil, err
		}
	} else if err := engine.SetTrustedProxies(nil); err != nil {
		return nil, err
	}

	serviceName := cfg.Telemetry.ServiceName
	if serviceName == "" {
		serviceName = cfg.App.Name
	}

	engine.Use(middleware.RequestID())
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: serviceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.SpanEnricher())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if h.Health != nil {
		engine.GET("/health", h.Health.Check)
	}

	r := NewRouter(engine, WithAPIVersion("v1"))
	r.Register(SyncRoutes(h))
	r.Setup()

	return engine, nil
}

// SyncRoutes returns the /api/v1 route table. Nil handlers are skipped.
//
//	GET  /sync-results
//	GET  /report
//	POST /admin/trigger
//	GET  /admin/tasks
//	GET  /admin/tasks/:id
//	GET  /system/info
//	GET  /system/ping
func SyncRoutes(h Handlers) RouteRegistrar {
	root := NewDomainGroup("api", "")

	if h.SyncResult != nil {
		root.GET("/sync-results", h.SyncResult.List)
	}
	if h.Report != nil {
		root.GET("/report", h.Report.Report)
	}
	if h.Trigger != nil {
		root.Group("admin", "/admin").
			POST("/trigger", h.Trigger.Trigger).
			GET("/tasks", h.Trigger.ListTasks).
			GET("/tasks/:id", h.Trigger.GetTask)
	}
	if h.System != nil {
		root.Group("system", "/system").
			GET("/info", h.System.GetSystemInfo).
			GET("/ping", h.System.Ping)
	}
	return root
}
