package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cleberrangel/workscan-api/internal/middleware"
	"github.com/cleberrangel/workscan-api/internal/model"
	"github.com/cleberrangel/workscan-api/internal/service"
	"github.com/cleberrangel/workscan-api/internal/websocket"
)

// WebSocketHandler handles WebSocket-related HTTP requests
type WebSocketHandler struct {
	hub       *websocket.Hub
	workflows *service.WorkflowService
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(hub *websocket.Hub, workflows *service.WorkflowService) *WebSocketHandler {
	return &WebSocketHandler{
		hub:       hub,
		workflows: workflows,
	}
}

// Subscribe upgrades the connection and streams the workflow's analysis progress
// @Summary Subscribe to analysis progress
// @Tags websocket
// @Param id path int true "Workflow ID"
// @Router /ws/workflows/{id} [get]
func (h *WebSocketHandler) Subscribe(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if _, err := h.workflows.Get(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	h.hub.ServeWS(c, id, middleware.ClientID(c))
}

// GetConnectionStats returns WebSocket connection statistics
func (h *WebSocketHandler) GetConnectionStats(c *gin.Context) {
	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Data: map[string]interface{}{
			"total_connections":    h.hub.GetConnectionCount(),
			"subscribed_workflows": h.hub.GetSubscribedWorkflows(),
		},
	})
}
