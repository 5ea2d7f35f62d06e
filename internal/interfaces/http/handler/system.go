package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ahtrading/backend/internal/interfaces/http/dto"
)

// Pinger reports backing store liveness.
type Pinger interface {
	Ping() error
}

// SystemHandler serves health and readiness probes.
type SystemHandler struct {
	BaseHandler
	db      Pinger
	version string
	started time.Time
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(db Pinger, version string) *SystemHandler {
	return &SystemHandler{db: db, version: version, started: time.Now()}
}

// Health reports process liveness.
// GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	h.Success(c, gin.H{
		"status":  "ok",
		"version": h.version,
		"uptime":  time.Since(h.started).Round(time.Second).String(),
	})
}

// Ready reports whether the backing store is reachable.
// GET /ready
func (h *SystemHandler) Ready(c *gin.Context) {
	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable,
				dto.NewErrorResponse(dto.ErrCodeUnavailable, "database unreachable"))
			return
		}
	}
	h.Success(c, gin.H{"status": "ready"})
}
