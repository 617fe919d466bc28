package router

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"control-produccion/app/controller"
	"control-produccion/app/middleware"
	"control-produccion/apperrors"
)

// Controllers groups the HTTP handlers mounted by SetupRoutes.
type Controllers struct {
	Catalog *controller.CatalogController
	Batch   *controller.BatchController
	Session *controller.SessionController
}

// Options configures the engine around the controllers.
type Options struct {
	JWT    middleware.JWTConfig
	Logger *zap.Logger
	// Ping reports store health for /healthz. Nil means always healthy.
	Ping func(ctx context.Context) error
}

// SetupRoutes builds the gin engine. Everything except /healthz requires an
// operator token.
func SetupRoutes(controllers *Controllers, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.AccessLog(opts.Logger), middleware.ErrorHandler())

	r.GET("/healthz", healthHandler(opts.Ping))

	api := r.Group("/", middleware.JWTAuth(opts.JWT))

	// Catalog
	api.GET("/machines", controllers.Catalog.Machines)
	api.POST("/catalog/orders", controllers.Catalog.Import)
	api.GET("/batches/:parent/orders", controllers.Catalog.Orders)

	// Batch progress
	api.GET("/batches/:parent/status", controllers.Batch.Status)

	// Sessions
	api.GET("/sessions/active", controllers.Session.Active)
	api.POST("/sessions", controllers.Session.Start)
	api.POST("/sessions/:key/finalize", controllers.Session.Finalize)

	// Line items
	api.GET("/sessions/:key/lines", controllers.Session.Lines)
	api.POST("/sessions/:key/lines", controllers.Session.AppendLine)
	api.PATCH("/sessions/:key/lines/:line", controllers.Session.EditLine)
	api.DELETE("/sessions/:key/lines/:line", controllers.Session.RemoveLine)

	return r
}

// healthHandler handles GET /healthz
func healthHandler(ping func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ping != nil {
			if err := ping(c.Request.Context()); err != nil {
				_ = c.Error(apperrors.ErrStoreUnavailable(err))
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
