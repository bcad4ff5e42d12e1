package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/certtrack-api/internal/dto"
	"github.com/noah-isme/certtrack-api/internal/service"
	appErrors "github.com/noah-isme/certtrack-api/pkg/errors"
	"github.com/noah-isme/certtrack-api/pkg/response"
)

// CertificationHandler wires HTTP endpoints to the certification service.
type CertificationHandler struct {
	service *service.CertificationService
}

// NewCertificationHandler creates a new handler.
func NewCertificationHandler(svc *service.CertificationService) *CertificationHandler {
	return &CertificationHandler{service: svc}
}

// Create godoc
// @Summary Upload certification
// @Description Upload a new certification with optional attachment
// @Tags Certifications
// @Accept mpfd
// @Produce json
// @Param vendor_oem formData string true "Vendor/OEM"
// @Param certification_name formData string true "Certification name"
// @Param date_obtained formData string true "Date obtained (YYYY-MM-DD)"
// @Param credential_id formData string false "Credential ID"
// @Param expiry_date formData string false "Expiry date (YYYY-MM-DD)"
// @Param file formData file false "Attachment (pdf/png/jpeg)"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /certifications [post]
func (h *CertificationHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.CreateCertificationRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid certification payload"))
		return
	}

	var upload *service.AttachmentUpload
	if fileHeader, err := c.FormFile("file"); err == nil && fileHeader != nil {
		f, err := fileHeader.Open()
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unable to read attachment"))
			return
		}
		defer f.Close()
		upload = &service.AttachmentUpload{
			Filename: fileHeader.Filename,
			Size:     fileHeader.Size,
			MimeType: fileHeader.Header.Get("Content-Type"),
			Content:  f,
		}
	}

	cert, err := h.service.Create(c.Request.Context(), claims.Actor(), req, upload, c.ClientIP())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, cert)
}

// My godoc
// @Summary List own certifications
// @Tags Certifications
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /certifications/my [get]
func (h *CertificationHandler) My(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	certs, err := h.service.ListOwn(c.Request.Context(), claims.Actor())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, certs, nil)
}

// List godoc
// @Summary List all certifications
// @Description Manager-only register view
// @Tags Certifications
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /certifications [get]
func (h *CertificationHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	certs, err := h.service.ListAll(c.Request.Context(), claims.Actor())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, certs, nil)
}

// Get godoc
// @Summary Get certification
// @Tags Certifications
// @Produce json
// @Param id path string true "Certification ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /certifications/{id} [get]
func (h *CertificationHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	cert, err := h.service.Get(c.Request.Context(), claims.Actor(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, cert, nil)
}

// Validate godoc
// @Summary Validate certification
// @Description Manager-only validation of an uploaded certification
// @Tags Certifications
// @Produce json
// @Param id path string true "Certification ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /certifications/{id}/validate [post]
func (h *CertificationHandler) Validate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	cert, err := h.service.Validate(c.Request.Context(), claims.Actor(), c.Param("id"), c.ClientIP())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, cert, nil)
}

// Delete godoc
// @Summary Delete certification
// @Description Manager-only deletion
// @Tags Certifications
// @Produce json
// @Param id path string true "Certification ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /certifications/{id} [delete]
func (h *CertificationHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Delete(c.Request.Context(), claims.Actor(), c.Param("id"), c.ClientIP()); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Export godoc
// @Summary Export certification register
// @Description Manager-only export as CSV or PDF
// @Tags Certifications
// @Produce octet-stream
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /certifications/export [get]
func (h *CertificationHandler) Export(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var query dto.ExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export query"))
		return
	}

	filename, contentType, data, err := h.service.Export(c.Request.Context(), claims.Actor(), query.Format, c.ClientIP())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Attachment(c, filename, contentType, data)
}

// AttachmentURL godoc
// @Summary Get signed attachment download URL
// @Tags Certifications
// @Produce json
// @Param id path string true "Certification ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /certifications/{id}/attachment [get]
func (h *CertificationHandler) AttachmentURL(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	token, expiresAt, err := h.service.AttachmentURL(c.Request.Context(), claims.Actor(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{
		"download_url": "/downloads/" + token,
		"expires_at":   expiresAt,
	}, nil)
}

// Download godoc
// @Summary Download attachment via signed token
// @Tags Certifications
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Router /downloads/{token} [get]
func (h *CertificationHandler) Download(c *gin.Context) {
	download, err := h.service.OpenAttachment(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	c.Header("Content-Disposition", `attachment; filename="`+download.Filename+`"`)
	c.File(download.File.Name())
}
