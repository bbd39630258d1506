package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/archsheet-backend/internal/domain"
	"github.com/yungbote/archsheet-backend/internal/http/response"
	"github.com/yungbote/archsheet-backend/internal/platform/logger"
	"github.com/yungbote/archsheet-backend/internal/services"
)

type SheetHandler struct {
	log    *logger.Logger
	sheets services.SheetService
}

func NewSheetHandler(log *logger.Logger, sheets services.SheetService) *SheetHandler {
	return &SheetHandler{
		log:    log.With("handler", "SheetHandler"),
		sheets: sheets,
	}
}

// POST /api/designs/:designId/generate
// Body is the raw design DNA document.
func (h *SheetHandler) Generate(c *gin.Context) {
	designID := strings.TrimSpace(c.Param("designId"))
	if designID == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_design_id", errors.New("design id required"))
		return
	}

	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	result, err := h.sheets.Generate(c.Request.Context(), designID, raw)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"sheet": result})
}

// POST /api/designs/:designId/modify
func (h *SheetHandler) Modify(c *gin.Context) {
	designID := strings.TrimSpace(c.Param("designId"))
	if designID == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_design_id", errors.New("design id required"))
		return
	}

	var req domain.ModifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	req.DesignID = designID

	result, err := h.sheets.Modify(c.Request.Context(), req)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"sheet": result})
}

// GET /api/designs/:designId
func (h *SheetHandler) GetLatest(c *gin.Context) {
	designID := strings.TrimSpace(c.Param("designId"))
	if designID == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_design_id", errors.New("design id required"))
		return
	}

	result, err := h.sheets.GetLatest(c.Request.Context(), designID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"sheet": result})
}

// GET /api/designs/:designId/versions
func (h *SheetHandler) ListVersions(c *gin.Context) {
	designID := strings.TrimSpace(c.Param("designId"))
	if designID == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_design_id", errors.New("design id required"))
		return
	}

	rows, err := h.sheets.ListVersions(c.Request.Context(), designID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"design_id": designID, "versions": rows})
}
