package api

import (
	"net/http"
	"time"

	"alcyxob/protocol-engine/internal/domain"
	"alcyxob/protocol-engine/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	requestTimeout time.Duration,
	authService service.AuthService,
	trainerService service.TrainerService,
	protocolService service.ProtocolService,
	planService service.PlanService,
	customerService service.CustomerService,
) {
	authHandler := NewAuthHandler(authService)
	trainerHandler := NewTrainerHandler(trainerService)
	protocolHandler := NewProtocolHandler(protocolService)
	planHandler := NewPlanHandler(planService)
	customerHandler := NewCustomerHandler(customerService)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiV1 := router.Group("/api/v1")
	apiV1.Use(RequestTimeout(requestTimeout))
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}
	}

	protected := apiV1.Group("")
	protected.Use(AuthMiddleware(jwtSecret))
	{
		protected.GET("/me", authHandler.Me)
		protected.GET("/conditions", protocolHandler.ListConditions)

		trainerGroup := protected.Group("/trainer")
		trainerGroup.Use(RoleMiddleware(domain.RoleTrainer))
		{
			trainerGroup.POST("/customers", trainerHandler.AddCustomerByEmail)
			trainerGroup.GET("/customers", trainerHandler.GetManagedCustomers)
			trainerGroup.PUT("/customers/:customerId/profile", trainerHandler.UpdateCustomerProfile)

			trainerGroup.POST("/protocols/generate", protocolHandler.Generate)

			trainerGroup.POST("/protocol-plans", planHandler.SavePlan)
			trainerGroup.GET("/protocol-plans", planHandler.ListPlans)
			trainerGroup.GET("/protocol-plans/:planId", planHandler.GetPlan)
			trainerGroup.POST("/protocol-plans/:planId/archive", planHandler.ArchivePlan)
			trainerGroup.DELETE("/protocol-plans/:planId", planHandler.DeletePlan)
			trainerGroup.POST("/protocol-plans/:planId/assign", planHandler.AssignPlan)
			trainerGroup.GET("/protocol-plans/:planId/instances", planHandler.ListInstances)

			trainerGroup.PATCH("/protocol-instances/:instanceId/status", planHandler.UpdateInstanceStatus)
		}

		customerGroup := protected.Group("/customer")
		customerGroup.Use(RoleMiddleware(domain.RoleCustomer))
		{
			customerGroup.GET("/protocols", customerHandler.ListMyProtocols)
			customerGroup.GET("/protocols/:instanceId", customerHandler.GetMyProtocol)
			customerGroup.POST("/protocols/:instanceId/acknowledge", customerHandler.AcknowledgeDisclaimer)
			customerGroup.GET("/protocols/:instanceId/export", customerHandler.ExportMyProtocol)
		}
	}
}
