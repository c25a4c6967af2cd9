package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cobranca/billing-backoffice/internal/handlers"
	"github.com/cobranca/billing-backoffice/internal/telemetry"
)

func NewRouter(chargeHandler *handlers.ChargeHandler, customerHandler *handlers.CustomerHandler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(telemetry.Middleware())

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "billing-backoffice"})
	})

	v1 := r.Group("/api/v1")

	charges := v1.Group("/charges")
	charges.POST("", chargeHandler.Create)
	charges.GET("", chargeHandler.List)
	charges.GET("/:id", chargeHandler.Get)
	charges.PUT("/:id", chargeHandler.Update)
	charges.DELETE("/:id", chargeHandler.Delete)
	charges.POST("/:id/cancel", chargeHandler.Cancel)
	charges.POST("/:id/pay", chargeHandler.Pay)
	charges.POST("/:id/refund", chargeHandler.Refund)
	charges.POST("/:id/sync", chargeHandler.Sync)

	// Gateway identifiers live in their own namespace so they never collide
	// with numeric charge ids.
	v1.GET("/gateway-charges/:gateway_charge_id", chargeHandler.GetByGatewayID)

	customers := v1.Group("/customers")
	customers.POST("", customerHandler.Create)
	customers.GET("", customerHandler.List)
	customers.GET("/:id", customerHandler.Get)
	customers.PUT("/:id", customerHandler.Update)
	customers.DELETE("/:id", customerHandler.Delete)
	customers.POST("/:id/activate", customerHandler.Activate)
	customers.POST("/:id/deactivate", customerHandler.Deactivate)
	customers.POST("/:id/block", customerHandler.Block)

	return r
}
