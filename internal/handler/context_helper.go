package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/certtrack-api/internal/middleware"
	"github.com/noah-isme/certtrack-api/internal/models"
)

// claimsFromContext retrieves the authenticated caller stored by the JWT
// middleware. A nil return means the route was reached without passing
// authentication.
func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, _ := c.Value(middleware.ContextUserKey).(*models.JWTClaims)
	return claims
}
