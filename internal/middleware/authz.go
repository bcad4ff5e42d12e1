package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/certtrack-api/internal/models"
	"github.com/noah-isme/certtrack-api/internal/service"
	appErrors "github.com/noah-isme/certtrack-api/pkg/errors"
	"github.com/noah-isme/certtrack-api/pkg/response"
)

// RequirePermission gates a route on the central policy table. Services run
// the same check again for operations with record-level rules; this
// middleware only short-circuits requests that can never succeed.
func RequirePermission(op service.Operation) gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)

		if err := service.Authorize(claims.Role, op); err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Next()
	}
}
