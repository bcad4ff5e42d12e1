package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/certtrack-api/internal/models"
	"github.com/noah-isme/certtrack-api/internal/service"
	appErrors "github.com/noah-isme/certtrack-api/pkg/errors"
	"github.com/noah-isme/certtrack-api/pkg/response"
)

// AdvisoryHandler exposes the certification advisory endpoint.
type AdvisoryHandler struct {
	service *service.AdvisoryService
}

// NewAdvisoryHandler creates a new handler.
func NewAdvisoryHandler(svc *service.AdvisoryService) *AdvisoryHandler {
	return &AdvisoryHandler{service: svc}
}

// Recommend godoc
// @Summary Get certification recommendations
// @Description Returns advisory recommendations based on skills and current certifications. Falls back to a degraded response when the advisory backend is unavailable.
// @Tags Advisory
// @Accept json
// @Produce json
// @Param request body models.AdvisoryRequest true "Skills and current certifications"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /advisory/recommendations [post]
func (h *AdvisoryHandler) Recommend(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.AdvisoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid advisory payload"))
		return
	}

	output, err := h.service.GetRecommendationsWithFallback(c.Request.Context(), claims.Actor(), req, c.ClientIP())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, output, nil)
}
