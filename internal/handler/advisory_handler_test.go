package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/certtrack-api/internal/middleware"
	"github.com/noah-isme/certtrack-api/internal/models"
	"github.com/noah-isme/certtrack-api/internal/service"
	"github.com/noah-isme/certtrack-api/pkg/response"
)

type advisoryClientMock struct {
	output *models.AdvisoryOutput
	err    error
}

func (m *advisoryClientMock) Recommend(ctx context.Context, skills, existingCerts []string) (*models.AdvisoryOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.output, nil
}

type auditRecorderMock struct{}

func (auditRecorderMock) Record(ctx context.Context, actor models.Actor, action models.AuditAction, entityType, entityID, notes, ip string) {
}

func newAdvisoryHandler(client *advisoryClientMock) *AdvisoryHandler {
	svc := service.NewAdvisoryService(client, nil, auditRecorderMock{}, nil, time.Minute)
	return NewAdvisoryHandler(svc)
}

func TestAdvisoryHandlerSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newAdvisoryHandler(&advisoryClientMock{
		output: &models.AdvisoryOutput{
			Recommendations: []models.Recommendation{{CertificationName: "CCNP", Vendor: "Cisco"}},
			Confidence:      "high",
		},
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body := bytes.NewBufferString(`{"skills":["networking"],"current_certifications":["CCNA"]}`)
	req, _ := http.NewRequest(http.MethodPost, "/advisory/recommendations", body)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, employeeClaims())

	handler.Recommend(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	data, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	var out models.AdvisoryOutput
	require.NoError(t, json.Unmarshal(data, &out))
	require.Len(t, out.Recommendations, 1)
	assert.Equal(t, "CCNP", out.Recommendations[0].CertificationName)
}

func TestAdvisoryHandlerFallbackStillOK(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newAdvisoryHandler(&advisoryClientMock{err: errors.New("upstream down")})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/advisory/recommendations", bytes.NewBufferString(`{"skills":["go"]}`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, employeeClaims())

	handler.Recommend(c)
	// Upstream failure degrades; the HTTP call itself still succeeds.
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "temporarily unavailable")
	assert.Contains(t, w.Body.String(), `"confidence":"low"`)
}

func TestAdvisoryHandlerInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newAdvisoryHandler(&advisoryClientMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/advisory/recommendations", bytes.NewBufferString(`{"skills":`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, employeeClaims())

	handler.Recommend(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
