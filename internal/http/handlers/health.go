package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/attrition-backend/internal/prediction/artifact"
)

type HealthHandler struct {
	artifact *artifact.Handle
}

func NewHealthHandler(h *artifact.Handle) *HealthHandler { return &HealthHandler{artifact: h} }

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// GET /readyz
// The service is ready even when degraded: intake keeps working on fallback scores.
func (h *HealthHandler) Ready(c *gin.Context) {
	info := h.artifact.Info()
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"artifact": info.Status,
		"degraded": info.Status != artifact.StatusLoaded,
	})
}

// GET /api/model
func (h *HealthHandler) Model(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"model": h.artifact.Info()})
}
