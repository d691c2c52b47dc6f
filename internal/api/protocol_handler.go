package api

import (
	"net/http"

	"alcyxob/protocol-engine/internal/domain"
	"alcyxob/protocol-engine/internal/service"

	"github.com/gin-gonic/gin"
)

// ProtocolHandler serves the wizard: the condition catalogue and direct generation.
type ProtocolHandler struct {
	protocolService service.ProtocolService
}

func NewProtocolHandler(protocolService service.ProtocolService) *ProtocolHandler {
	return &ProtocolHandler{protocolService: protocolService}
}

type ConditionResponse struct {
	ID          string                   `json:"id"`
	DisplayName string                   `json:"displayName"`
	Category    domain.ConditionCategory `json:"category"`
}

type GenerateResponse struct {
	Artifact *domain.ProtocolArtifact `json:"artifact"`
	Warnings []string                 `json:"warnings"`
}

// ListConditions godoc
// @Summary List selectable health conditions
// @Tags Protocols
// @Produce json
// @Security BearerAuth
// @Success 200 {array} ConditionResponse
// @Router /conditions [get]
func (h *ProtocolHandler) ListConditions(c *gin.Context) {
	conditions := h.protocolService.Conditions()
	resp := make([]ConditionResponse, len(conditions))
	for i, cond := range conditions {
		resp[i] = ConditionResponse{ID: cond.ID, DisplayName: cond.DisplayName, Category: cond.Category}
	}
	c.JSON(http.StatusOK, resp)
}

// Generate godoc
// @Summary Generate a protocol without saving a plan
// @Tags Protocols
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body domain.GenerationRequest true "Wizard submission"
// @Success 200 {object} GenerateResponse
// @Failure 400 {object} ErrorResponse "Invalid or unsafe input"
// @Failure 422 {object} ErrorResponse "Blocked by the safety gate"
// @Failure 502 {object} ErrorResponse "Generation failed"
// @Router /trainer/protocols/generate [post]
func (h *ProtocolHandler) Generate(c *gin.Context) {
	var req domain.GenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Request body must be a valid generation request.")
		return
	}

	result, err := h.protocolService.Generate(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	warnings := result.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	c.JSON(http.StatusOK, GenerateResponse{Artifact: result.Artifact, Warnings: warnings})
}
