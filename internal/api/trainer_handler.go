package api

import (
	"net/http"

	"alcyxob/protocol-engine/internal/domain"
	"alcyxob/protocol-engine/internal/service"

	"github.com/gin-gonic/gin"
)

type TrainerHandler struct {
	trainerService service.TrainerService
}

func NewTrainerHandler(trainerService service.TrainerService) *TrainerHandler {
	return &TrainerHandler{trainerService: trainerService}
}

type AddCustomerRequest struct {
	CustomerEmail string `json:"customerEmail" binding:"required,email"`
}

// AddCustomerByEmail godoc
// @Summary Add a registered customer to the trainer's roster
// @Tags Trainer
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body AddCustomerRequest true "Customer email"
// @Success 200 {object} UserResponse
// @Failure 404 {object} ErrorResponse "Customer not found"
// @Failure 409 {object} ErrorResponse "Customer belongs to another trainer"
// @Router /trainer/customers [post]
func (h *TrainerHandler) AddCustomerByEmail(c *gin.Context) {
	var req AddCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	trainerID, ok := currentUserID(c)
	if !ok {
		return
	}

	customer, err := h.trainerService.AddCustomerByEmail(c.Request.Context(), trainerID, req.CustomerEmail)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapUserToResponse(customer))
}

// GetManagedCustomers godoc
// @Summary List the trainer's customers
// @Tags Trainer
// @Produce json
// @Security BearerAuth
// @Success 200 {array} UserResponse
// @Router /trainer/customers [get]
func (h *TrainerHandler) GetManagedCustomers(c *gin.Context) {
	trainerID, ok := currentUserID(c)
	if !ok {
		return
	}
	customers, err := h.trainerService.GetManagedCustomers(c.Request.Context(), trainerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapUsersToResponse(customers))
}

// UpdateCustomerProfile godoc
// @Summary Replace a customer's physical profile
// @Description The profile fills in missing profile fields of every plan assigned to the customer.
// @Tags Trainer
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param customerId path string true "Customer ID"
// @Param body body domain.ClientProfile true "Profile"
// @Success 200 {object} UserResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /trainer/customers/{customerId}/profile [put]
func (h *TrainerHandler) UpdateCustomerProfile(c *gin.Context) {
	customerID, ok := pathObjectID(c, "customerId")
	if !ok {
		return
	}
	var profile domain.ClientProfile
	if err := c.ShouldBindJSON(&profile); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	trainerID, ok := currentUserID(c)
	if !ok {
		return
	}

	customer, err := h.trainerService.UpdateCustomerProfile(c.Request.Context(), trainerID, customerID, profile)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapUserToResponse(customer))
}
