package api

import (
	"net/http"
	"time"

	"alcyxob/protocol-engine/internal/domain"
	"alcyxob/protocol-engine/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PlanHandler struct {
	planService service.PlanService
}

func NewPlanHandler(planService service.PlanService) *PlanHandler {
	return &PlanHandler{planService: planService}
}

// --- DTOs ---

type SavePlanRequest struct {
	PlanName            string                   `json:"planName" binding:"required"`
	PlanDescription     string                   `json:"planDescription"`
	IsTemplate          bool                     `json:"isTemplate"`
	WizardConfiguration domain.GenerationRequest `json:"wizardConfiguration"`
}

type AssignPlanRequest struct {
	CustomerID string `json:"customerId" binding:"required,len=24,hexadecimal"`
}

type UpdateStatusRequest struct {
	Status domain.InstanceStatus `json:"status" binding:"required,oneof=active completed cancelled"`
}

type PlanResponse struct {
	ID                  string                   `json:"id"`
	PlanName            string                   `json:"planName"`
	PlanDescription     string                   `json:"planDescription,omitempty"`
	WizardConfiguration domain.GenerationRequest `json:"wizardConfiguration"`
	UsageCount          int64                    `json:"usageCount"`
	IsTemplate          bool                     `json:"isTemplate"`
	CreatedAt           time.Time                `json:"createdAt"`
	ArchivedAt          *time.Time               `json:"archivedAt,omitempty"`
}

type InstanceResponse struct {
	ID             string                  `json:"id"`
	PlanID         string                  `json:"planId"`
	CustomerID     string                  `json:"customerId"`
	PlanName       string                  `json:"planName"`
	Status         domain.InstanceStatus   `json:"status"`
	AssignedAt     time.Time               `json:"assignedAt"`
	AcknowledgedAt *time.Time              `json:"acknowledgedAt,omitempty"`
	Exportable     bool                    `json:"exportable"`
	Artifact       domain.ProtocolArtifact `json:"artifact"`
}

// InstanceSummary is the list form of an instance, without the artifact body.
type InstanceSummary struct {
	ID             string                `json:"id"`
	PlanID         string                `json:"planId"`
	CustomerID     string                `json:"customerId"`
	PlanName       string                `json:"planName"`
	Status         domain.InstanceStatus `json:"status"`
	DurationDays   int                   `json:"durationDays"`
	AssignedAt     time.Time             `json:"assignedAt"`
	AcknowledgedAt *time.Time            `json:"acknowledgedAt,omitempty"`
}

// --- Handlers ---

// SavePlan godoc
// @Summary Save a wizard configuration as a reusable plan
// @Tags Protocol Plans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body SavePlanRequest true "Plan"
// @Success 201 {object} PlanResponse
// @Failure 400 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /trainer/protocol-plans [post]
func (h *PlanHandler) SavePlan(c *gin.Context) {
	var req SavePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: planName and wizardConfiguration are required.")
		return
	}
	trainerID, ok := currentUserID(c)
	if !ok {
		return
	}

	plan, err := h.planService.SavePlan(c.Request.Context(), trainerID, req.PlanName, req.PlanDescription, req.WizardConfiguration, req.IsTemplate)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, MapPlanToResponse(plan))
}

// ListPlans godoc
// @Summary List the trainer's plans, optionally filtered by name
// @Tags Protocol Plans
// @Produce json
// @Security BearerAuth
// @Param search query string false "Case-insensitive name filter"
// @Success 200 {array} PlanResponse
// @Router /trainer/protocol-plans [get]
func (h *PlanHandler) ListPlans(c *gin.Context) {
	trainerID, ok := currentUserID(c)
	if !ok {
		return
	}
	plans, err := h.planService.ListPlans(c.Request.Context(), trainerID, c.Query("search"))
	if err != nil {
		respondError(c, err)
		return
	}
	resp := make([]PlanResponse, len(plans))
	for i := range plans {
		resp[i] = MapPlanToResponse(&plans[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PlanHandler) GetPlan(c *gin.Context) {
	planID, ok := pathObjectID(c, "planId")
	if !ok {
		return
	}
	trainerID, ok := currentUserID(c)
	if !ok {
		return
	}
	plan, err := h.planService.GetPlan(c.Request.Context(), trainerID, planID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapPlanToResponse(plan))
}

func (h *PlanHandler) ArchivePlan(c *gin.Context) {
	planID, ok := pathObjectID(c, "planId")
	if !ok {
		return
	}
	trainerID, ok := currentUserID(c)
	if !ok {
		return
	}
	if err := h.planService.ArchivePlan(c.Request.Context(), trainerID, planID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeletePlan godoc
// @Summary Delete a plan and its finished instances
// @Tags Protocol Plans
// @Security BearerAuth
// @Param planId path string true "Plan ID"
// @Success 204
// @Failure 409 {object} ErrorResponse "PLAN_IN_USE"
// @Router /trainer/protocol-plans/{planId} [delete]
func (h *PlanHandler) DeletePlan(c *gin.Context) {
	planID, ok := pathObjectID(c, "planId")
	if !ok {
		return
	}
	trainerID, ok := currentUserID(c)
	if !ok {
		return
	}
	if err := h.planService.DeletePlan(c.Request.Context(), trainerID, planID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AssignPlan godoc
// @Summary Generate the plan for a customer and assign it
// @Tags Protocol Plans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan ID"
// @Param body body AssignPlanRequest true "Customer"
// @Success 201 {object} InstanceResponse
// @Failure 409 {object} ErrorResponse "Plan archived"
// @Failure 502 {object} ErrorResponse "Generation failed"
// @Router /trainer/protocol-plans/{planId}/assign [post]
func (h *PlanHandler) AssignPlan(c *gin.Context) {
	planID, ok := pathObjectID(c, "planId")
	if !ok {
		return
	}
	var req AssignPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: customerId is required.")
		return
	}
	customerID, err := primitive.ObjectIDFromHex(req.CustomerID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid customerId format.")
		return
	}
	trainerID, ok := currentUserID(c)
	if !ok {
		return
	}

	instance, err := h.planService.AssignPlan(c.Request.Context(), trainerID, planID, customerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, MapInstanceToResponse(instance))
}

func (h *PlanHandler) ListInstances(c *gin.Context) {
	planID, ok := pathObjectID(c, "planId")
	if !ok {
		return
	}
	trainerID, ok := currentUserID(c)
	if !ok {
		return
	}
	instances, err := h.planService.ListInstances(c.Request.Context(), trainerID, planID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapInstancesToSummary(instances))
}

func (h *PlanHandler) UpdateInstanceStatus(c *gin.Context) {
	instanceID, ok := pathObjectID(c, "instanceId")
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: status must be active, completed or cancelled.")
		return
	}
	trainerID, ok := currentUserID(c)
	if !ok {
		return
	}

	instance, err := h.planService.UpdateInstanceStatus(c.Request.Context(), trainerID, instanceID, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapInstanceToSummary(instance))
}

// --- Mappers ---

func MapPlanToResponse(plan *domain.ProtocolPlan) PlanResponse {
	return PlanResponse{
		ID:                  plan.ID.Hex(),
		PlanName:            plan.PlanName,
		PlanDescription:     plan.PlanDescription,
		WizardConfiguration: plan.WizardConfiguration,
		UsageCount:          plan.UsageCount,
		IsTemplate:          plan.IsTemplate,
		CreatedAt:           plan.CreatedAt,
		ArchivedAt:          plan.ArchivedAt,
	}
}

func MapInstanceToResponse(instance *domain.ProtocolInstance) InstanceResponse {
	return InstanceResponse{
		ID:             instance.ID.Hex(),
		PlanID:         instance.PlanID.Hex(),
		CustomerID:     instance.CustomerID.Hex(),
		PlanName:       instance.PlanName,
		Status:         instance.Status,
		AssignedAt:     instance.AssignedAt,
		AcknowledgedAt: instance.AcknowledgedAt,
		Exportable:     instance.ArtifactObjectKey != "",
		Artifact:       instance.Artifact,
	}
}

func MapInstanceToSummary(instance *domain.ProtocolInstance) InstanceSummary {
	return InstanceSummary{
		ID:             instance.ID.Hex(),
		PlanID:         instance.PlanID.Hex(),
		CustomerID:     instance.CustomerID.Hex(),
		PlanName:       instance.PlanName,
		Status:         instance.Status,
		DurationDays:   instance.Artifact.DurationDays,
		AssignedAt:     instance.AssignedAt,
		AcknowledgedAt: instance.AcknowledgedAt,
	}
}

func MapInstancesToSummary(instances []domain.ProtocolInstance) []InstanceSummary {
	resp := make([]InstanceSummary, len(instances))
	for i := range instances {
		resp[i] = MapInstanceToSummary(&instances[i])
	}
	return resp
}
