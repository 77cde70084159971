package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"payflow/internal/config"
	"payflow/internal/handler"
	"payflow/internal/middleware"
)

// Handlers collects the HTTP handlers wired into the router.
type Handlers struct {
	Health   *handler.HealthHandler
	Workflow *handler.WorkflowHandler
	History  *handler.HistoryHandler
}

// New builds the gin engine with middleware and all routes.
func New(cfg *config.ServerConfig, h Handlers, gatherer prometheus.Gatherer) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())

	r.GET("/healthz", h.Health.Liveness)
	r.GET("/readyz", h.Health.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	v1 := r.Group("/api/v1")
	{
		v1.GET("/workflows", h.Workflow.List)
		v1.GET("/workflows/:id", h.Workflow.Get)
		v1.GET("/workflows/:id/history", h.Workflow.History)
		v1.GET("/workflows/invoice/:number", h.Workflow.GetByInvoice)
		v1.POST("/workflows/run", h.Workflow.Run)
		v1.GET("/invoices/:number/snapshot", h.Workflow.Snapshot)
		v1.GET("/history", h.History.List)
		v1.GET("/history/export", h.History.Export)
	}

	return r
}
