package api

import (
	"net/http"

	"alcyxob/protocol-engine/internal/service"

	"github.com/gin-gonic/gin"
)

type CustomerHandler struct {
	customerService service.CustomerService
}

func NewCustomerHandler(customerService service.CustomerService) *CustomerHandler {
	return &CustomerHandler{customerService: customerService}
}

type ExportResponse struct {
	URL string `json:"url"`
}

// ListMyProtocols godoc
// @Summary List protocols assigned to me
// @Tags Customer
// @Produce json
// @Security BearerAuth
// @Success 200 {array} InstanceSummary
// @Router /customer/protocols [get]
func (h *CustomerHandler) ListMyProtocols(c *gin.Context) {
	customerID, ok := currentUserID(c)
	if !ok {
		return
	}
	instances, err := h.customerService.ListProtocols(c.Request.Context(), customerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapInstancesToSummary(instances))
}

// GetMyProtocol godoc
// @Summary Get one of my protocols with its full artifact
// @Tags Customer
// @Produce json
// @Security BearerAuth
// @Param instanceId path string true "Protocol instance ID"
// @Success 200 {object} InstanceResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /customer/protocols/{instanceId} [get]
func (h *CustomerHandler) GetMyProtocol(c *gin.Context) {
	instanceID, ok := pathObjectID(c, "instanceId")
	if !ok {
		return
	}
	customerID, ok := currentUserID(c)
	if !ok {
		return
	}
	instance, err := h.customerService.GetProtocol(c.Request.Context(), customerID, instanceID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapInstanceToResponse(instance))
}

func (h *CustomerHandler) AcknowledgeDisclaimer(c *gin.Context) {
	instanceID, ok := pathObjectID(c, "instanceId")
	if !ok {
		return
	}
	customerID, ok := currentUserID(c)
	if !ok {
		return
	}
	instance, err := h.customerService.AcknowledgeDisclaimer(c.Request.Context(), customerID, instanceID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapInstanceToSummary(instance))
}

// ExportMyProtocol godoc
// @Summary Get a temporary download URL for the protocol JSON
// @Tags Customer
// @Produce json
// @Security BearerAuth
// @Param instanceId path string true "Protocol instance ID"
// @Success 200 {object} ExportResponse
// @Failure 404 {object} ErrorResponse "No snapshot stored"
// @Router /customer/protocols/{instanceId}/export [get]
func (h *CustomerHandler) ExportMyProtocol(c *gin.Context) {
	instanceID, ok := pathObjectID(c, "instanceId")
	if !ok {
		return
	}
	customerID, ok := currentUserID(c)
	if !ok {
		return
	}
	url, err := h.customerService.ExportURL(c.Request.Context(), customerID, instanceID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ExportResponse{URL: url})
}
