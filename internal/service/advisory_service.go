package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/certtrack-api/internal/models"
)

// Input caps bound the cost and latency of the external call.
const (
	maxAdvisorySkills  = 20
	maxAdvisoryCerts   = 10
	maxRecommendations = 5
	maxErrorExcerpt    = 100
)

type advisoryClient interface {
	Recommend(ctx context.Context, skills, existingCerts []string) (*models.AdvisoryOutput, error)
}

type advisoryCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// AdvisoryService wraps the external recommendation capability with input
// capping, caching and graceful degradation. Callers always receive a
// structurally valid output; upstream failures are absorbed into a fallback
// value and never retried.
type fallbackCounter interface {
	IncAdvisoryFallback()
}

type AdvisoryService struct {
	client   advisoryClient
	cache    advisoryCache
	audit    auditRecorder
	logger   *zap.Logger
	metrics  fallbackCounter
	cacheTTL time.Duration
}

// NewAdvisoryService constructs an AdvisoryService instance.
func NewAdvisoryService(client advisoryClient, cache advisoryCache, audit auditRecorder, logger *zap.Logger, cacheTTL time.Duration) *AdvisoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &AdvisoryService{client: client, cache: cache, audit: audit, logger: logger, cacheTTL: cacheTTL}
}

// WithMetrics attaches a fallback counter. Optional.
func (s *AdvisoryService) WithMetrics(metrics fallbackCounter) *AdvisoryService {
	s.metrics = metrics
	return s
}

// GetRecommendationsWithFallback returns recommendations for the actor's
// profile. Every outcome, including the degraded fallback, is audited as an
// ADVISORY action.
func (s *AdvisoryService) GetRecommendationsWithFallback(ctx context.Context, actor models.Actor, req models.AdvisoryRequest, ip string) (*models.AdvisoryOutput, error) {
	if err := Authorize(actor.Role, OpRequestAdvisory); err != nil {
		return nil, err
	}

	skills := capList(req.Skills, maxAdvisorySkills)
	certs := capList(req.CurrentCertifications, maxAdvisoryCerts)

	output := s.cachedRecommendations(ctx, skills, certs)

	notes := "Skills: " + strings.Join(capList(skills, 5), ", ")
	s.audit.Record(ctx, actor, models.AuditActionAdvisory, "advisory", "", notes, ip)

	return output, nil
}

func (s *AdvisoryService) cachedRecommendations(ctx context.Context, skills, certs []string) *models.AdvisoryOutput {
	key := advisoryCacheKey(skills, certs)

	if s.cache != nil {
		var cached models.AdvisoryOutput
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return normalizeAdvisoryOutput(&cached)
		}
	}

	output, err := s.client.Recommend(ctx, skills, certs)
	if err != nil {
		s.logger.Warn("advisory capability failed, returning fallback", zap.Error(err))
		if s.metrics != nil {
			s.metrics.IncAdvisoryFallback()
		}
		return fallbackOutput(err)
	}
	output = normalizeAdvisoryOutput(output)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, output, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache advisory output", zap.Error(err))
		}
	}
	return output
}

// fallbackOutput is the deterministic degraded value: empty recommendations,
// low confidence, and an operator-safe message carrying at most a short
// excerpt of the underlying failure.
func fallbackOutput(err error) *models.AdvisoryOutput {
	excerpt := err.Error()
	if len(excerpt) > maxErrorExcerpt {
		excerpt = excerpt[:maxErrorExcerpt]
	}
	msg := "Advisory service temporarily unavailable. Please try again later. Error: " + excerpt
	return &models.AdvisoryOutput{
		Recommendations:     []models.Recommendation{},
		Confidence:          "low",
		ClarificationNeeded: &msg,
	}
}

func normalizeAdvisoryOutput(output *models.AdvisoryOutput) *models.AdvisoryOutput {
	if output.Recommendations == nil {
		output.Recommendations = []models.Recommendation{}
	}
	if len(output.Recommendations) > maxRecommendations {
		output.Recommendations = output.Recommendations[:maxRecommendations]
	}
	switch output.Confidence {
	case "high", "medium", "low":
	default:
		output.Confidence = "low"
	}
	return output
}

func capList(items []string, limit int) []string {
	if len(items) <= limit {
		return items
	}
	return items[:limit]
}

func advisoryCacheKey(skills, certs []string) string {
	h := sha256.New()
	h.Write([]byte(strings.Join(skills, "|")))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(certs, "|")))
	return "advisory:" + hex.EncodeToString(h.Sum(nil))
}
