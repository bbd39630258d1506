package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/archsheet-backend/internal/http/response"
	"github.com/yungbote/archsheet-backend/internal/platform/logger"
	"github.com/yungbote/archsheet-backend/internal/sse"
)

// StreamHandler serves the per-design SSE stream the UI listens on for
// workflow state transitions.
type StreamHandler struct {
	log *logger.Logger
	hub *sse.Hub
}

func NewStreamHandler(log *logger.Logger, hub *sse.Hub) *StreamHandler {
	return &StreamHandler{
		log: log.With("handler", "StreamHandler"),
		hub: hub,
	}
}

// GET /api/designs/:designId/stream
// GET /sse/stream?design_id=...
func (h *StreamHandler) Stream(c *gin.Context) {
	designID := strings.TrimSpace(c.Param("designId"))
	if designID == "" {
		designID = strings.TrimSpace(c.Query("design_id"))
	}
	if designID == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_design_id", errors.New("design id required"))
		return
	}

	client := h.hub.NewClient()
	h.hub.Subscribe(client, sse.DesignChannel(designID))
	h.log.Info("sse stream open", "design_id", designID, "client_id", client.ID)

	h.hub.ServeHTTP(c.Writer, c.Request, client)

	h.hub.CloseClient(client)
	h.log.Info("sse stream closed", "design_id", designID, "client_id", client.ID)
}
