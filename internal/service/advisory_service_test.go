package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/certtrack-api/internal/models"
	appErrors "github.com/noah-isme/certtrack-api/pkg/errors"
)

type mockAdvisoryClient struct {
	output     *models.AdvisoryOutput
	err        error
	calls      int
	lastSkills []string
	lastCerts  []string
}

func (m *mockAdvisoryClient) Recommend(ctx context.Context, skills, existingCerts []string) (*models.AdvisoryOutput, error) {
	m.calls++
	m.lastSkills = skills
	m.lastCerts = existingCerts
	if m.err != nil {
		return nil, m.err
	}
	return m.output, nil
}

type memoryCache struct {
	values map[string]*models.AdvisoryOutput
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	v, ok := c.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*dest.(*models.AdvisoryOutput) = *v
	return nil
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.values == nil {
		c.values = make(map[string]*models.AdvisoryOutput)
	}
	out := value.(*models.AdvisoryOutput)
	copied := *out
	c.values[key] = &copied
	return nil
}

type countingMetrics struct{ fallbacks int }

func (c *countingMetrics) IncAdvisoryFallback() { c.fallbacks++ }

func TestAdvisoryFallbackOnClientError(t *testing.T) {
	client := &mockAdvisoryClient{err: errors.New("connection refused: upstream advisory endpoint is not reachable from this network segment right now")}
	audit := &mockRecorder{}
	metrics := &countingMetrics{}
	svc := NewAdvisoryService(client, nil, audit, nil, time.Minute).WithMetrics(metrics)

	out, err := svc.GetRecommendationsWithFallback(context.Background(), employee, models.AdvisoryRequest{
		Skills: []string{"networking", "security"},
	}, "10.0.0.5")
	require.NoError(t, err)

	// Fallback is a valid value, not an error: empty recommendations, low
	// confidence, bounded error excerpt.
	assert.Empty(t, out.Recommendations)
	assert.NotNil(t, out.Recommendations)
	assert.Equal(t, "low", out.Confidence)
	require.NotNil(t, out.ClarificationNeeded)
	assert.Contains(t, *out.ClarificationNeeded, "Advisory service temporarily unavailable")
	excerpt := strings.TrimPrefix(*out.ClarificationNeeded, "Advisory service temporarily unavailable. Please try again later. Error: ")
	assert.LessOrEqual(t, len(excerpt), 100)

	assert.Equal(t, 1, client.calls)
	assert.Equal(t, 1, metrics.fallbacks)

	entry := audit.last(t)
	assert.Equal(t, models.AuditActionAdvisory, entry.action)
	assert.Contains(t, entry.notes, "networking")
}

func TestAdvisoryCapsInputs(t *testing.T) {
	client := &mockAdvisoryClient{output: &models.AdvisoryOutput{Confidence: "high"}}
	svc := NewAdvisoryService(client, nil, &mockRecorder{}, nil, time.Minute)

	skills := make([]string, 30)
	for i := range skills {
		skills[i] = "skill"
	}
	certs := make([]string, 15)
	for i := range certs {
		certs[i] = "cert"
	}

	_, err := svc.GetRecommendationsWithFallback(context.Background(), employee, models.AdvisoryRequest{
		Skills:                skills,
		CurrentCertifications: certs,
	}, "")
	require.NoError(t, err)
	assert.Len(t, client.lastSkills, 20)
	assert.Len(t, client.lastCerts, 10)
}

func TestAdvisoryClampsRecommendations(t *testing.T) {
	recs := make([]models.Recommendation, 8)
	client := &mockAdvisoryClient{output: &models.AdvisoryOutput{Recommendations: recs, Confidence: "certain"}}
	svc := NewAdvisoryService(client, nil, &mockRecorder{}, nil, time.Minute)

	out, err := svc.GetRecommendationsWithFallback(context.Background(), manager, models.AdvisoryRequest{Skills: []string{"go"}}, "")
	require.NoError(t, err)
	assert.Len(t, out.Recommendations, 5)
	// Unknown confidence values collapse to low.
	assert.Equal(t, "low", out.Confidence)
}

func TestAdvisoryCacheHitSkipsClient(t *testing.T) {
	client := &mockAdvisoryClient{output: &models.AdvisoryOutput{Confidence: "high"}}
	cache := &memoryCache{}
	svc := NewAdvisoryService(client, cache, &mockRecorder{}, nil, time.Minute)

	req := models.AdvisoryRequest{Skills: []string{"kubernetes"}}
	_, err := svc.GetRecommendationsWithFallback(context.Background(), employee, req, "")
	require.NoError(t, err)
	_, err = svc.GetRecommendationsWithFallback(context.Background(), employee, req, "")
	require.NoError(t, err)

	assert.Equal(t, 1, client.calls)
}

func TestAdvisoryFailureIsNotCached(t *testing.T) {
	client := &mockAdvisoryClient{err: errors.New("timeout")}
	cache := &memoryCache{}
	svc := NewAdvisoryService(client, cache, &mockRecorder{}, nil, time.Minute)

	req := models.AdvisoryRequest{Skills: []string{"kubernetes"}}
	_, err := svc.GetRecommendationsWithFallback(context.Background(), employee, req, "")
	require.NoError(t, err)
	_, err = svc.GetRecommendationsWithFallback(context.Background(), employee, req, "")
	require.NoError(t, err)

	// Each request makes exactly one upstream attempt; the fallback is never
	// stored, so recovery is possible on the next call.
	assert.Equal(t, 2, client.calls)
	assert.Empty(t, cache.values)
}

func TestAdvisoryAuditNotesCapSkills(t *testing.T) {
	client := &mockAdvisoryClient{output: &models.AdvisoryOutput{Confidence: "medium"}}
	audit := &mockRecorder{}
	svc := NewAdvisoryService(client, nil, audit, nil, time.Minute)

	_, err := svc.GetRecommendationsWithFallback(context.Background(), employee, models.AdvisoryRequest{
		Skills: []string{"a", "b", "c", "d", "e", "f", "g"},
	}, "")
	require.NoError(t, err)

	entry := audit.last(t)
	assert.Equal(t, "Skills: a, b, c, d, e", entry.notes)
}
