package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jengzang/simplegis/internal/models"
	"github.com/jengzang/simplegis/internal/service"
	"github.com/jengzang/simplegis/pkg/response"
)

// QueryHandler handles HTTP requests for ad-hoc map queries
type QueryHandler struct {
	queryService *service.QueryService
}

// NewQueryHandler creates a new query handler
func NewQueryHandler(queryService *service.QueryService) *QueryHandler {
	return &QueryHandler{
		queryService: queryService,
	}
}

// Query handles POST /query/
func (h *QueryHandler) Query(c *gin.Context) {
	var req models.QueryRequest

	// Form fields, or a JSON body with the same names
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	status, body := h.queryService.Handle(c.Request.Context(), req)
	response.Raw(c, status, body)
}
