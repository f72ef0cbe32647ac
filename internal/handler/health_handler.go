package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/simplegis/pkg/response"
)

// HealthHandler reports liveness and the configured source type
type HealthHandler struct {
	sourceKind string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(sourceKind string) *HealthHandler {
	return &HealthHandler{sourceKind: sourceKind}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	response.JSON(c, http.StatusOK, gin.H{
		"status": "ok",
		"source": h.sourceKind,
	})
}
