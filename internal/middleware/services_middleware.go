package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/aveline/ticketing/config"
	"github.com/aveline/ticketing/internal/issuance"
	"github.com/aveline/ticketing/internal/reconcile"
	"github.com/aveline/ticketing/internal/refunds"
	"github.com/aveline/ticketing/internal/validation"
)

// Services bundles the domain services handlers pull out of the gin
// context.
type Services struct {
	Config     *config.Config
	Issuance   *issuance.Service
	Validation *validation.Service
	Reconciler *reconcile.Reconciler
	Refunds    *refunds.Service
	Checkout   issuance.CheckoutCreator
}

func ServicesMiddleware(services *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("services", services)
		c.Next()
	}
}

func GetServices(c *gin.Context) *Services {
	value, exists := c.Get("services")
	if !exists {
		return nil
	}
	return value.(*Services)
}
