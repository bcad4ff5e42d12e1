package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/certtrack-api/internal/dto"
	"github.com/noah-isme/certtrack-api/internal/models"
	"github.com/noah-isme/certtrack-api/internal/service"
	appErrors "github.com/noah-isme/certtrack-api/pkg/errors"
	"github.com/noah-isme/certtrack-api/pkg/response"
)

// AuditHandler exposes the audit trail to managers.
type AuditHandler struct {
	service *service.AuditService
}

// NewAuditHandler creates a new handler.
func NewAuditHandler(svc *service.AuditService) *AuditHandler {
	return &AuditHandler{service: svc}
}

// List godoc
// @Summary List audit logs
// @Description Manager-only paginated audit trail, newest first
// @Tags Audit
// @Produce json
// @Param limit query int false "Page size" default(100)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /audit-logs [get]
func (h *AuditHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var query dto.AuditLogQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid audit query"))
		return
	}

	logs, total, err := h.service.GetLogs(c.Request.Context(), claims.Actor(), models.AuditFilter{
		Limit:  query.Limit,
		Offset: query.Offset,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	pageSize := query.Limit
	if pageSize <= 0 {
		pageSize = len(logs)
	}
	page := 1
	if pageSize > 0 {
		page = query.Offset/pageSize + 1
	}
	response.JSON(c, http.StatusOK, logs, &models.Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
	})
}

// ListByEntity godoc
// @Summary List audit logs for an entity
// @Description Manager-only audit trail for a single entity
// @Tags Audit
// @Produce json
// @Param entity_type path string true "Entity type"
// @Param entity_id path string true "Entity ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /audit-logs/{entity_type}/{entity_id} [get]
func (h *AuditHandler) ListByEntity(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	logs, err := h.service.GetEntityLogs(c.Request.Context(), claims.Actor(), c.Param("entity_type"), c.Param("entity_id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, logs, nil)
}
