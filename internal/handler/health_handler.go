package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type cachePinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	db    *sqlx.DB
	cache cachePinger
}

// NewHealthHandler creates a new HealthHandler. cache may be nil when the
// snapshot cache is not part of the deployment.
func NewHealthHandler(db *sqlx.DB, cache cachePinger) *HealthHandler {
	return &HealthHandler{db: db, cache: cache}
}

// Liveness handles GET /healthz
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness handles GET /readyz. Ready means the workflow store and, if
// configured, the snapshot cache both respond.
func (h *HealthHandler) Readiness(c *gin.Context) {
	components := gin.H{"database": "ok"}
	healthy := true

	if err := h.db.PingContext(c.Request.Context()); err != nil {
		components["database"] = "unreachable"
		healthy = false
	}
	if h.cache != nil {
		components["cache"] = "ok"
		if err := h.cache.Ping(c.Request.Context()); err != nil {
			components["cache"] = "unreachable"
			healthy = false
		}
	}

	if !healthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "components": components})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "components": components})
}
