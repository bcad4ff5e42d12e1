package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/noah-isme/certtrack-api/internal/models"
	"github.com/noah-isme/certtrack-api/pkg/config"
)

const advisorySystemPrompt = `You are a professional certification advisor for enterprise IT professionals.

Rules:
1. Only recommend real, industry-recognized certifications from vendors like AWS, Azure, Google Cloud, Oracle, Cisco, CompTIA, ISC2, ISACA, Salesforce.
2. Never invent certifications or policies.
3. Output must be a single JSON object matching the schema exactly.
4. Base recommendations on skill gaps and career progression.
5. Maximum 5 recommendations per request.

Schema:
{"recommendations":[{"certification_name":"string","vendor":"string","difficulty":"Beginner|Intermediate|Advanced","reason":"string (max 50 words)","estimated_prep_time":"string (e.g. '2-3 months')"}],"confidence":"high|medium|low","clarification_needed":null}`

// HTTPAdvisoryClient calls a chat-completion style endpoint and parses the
// structured JSON the model is instructed to emit. The request is bounded by
// both the caller's context and the configured client timeout.
type HTTPAdvisoryClient struct {
	cfg    config.AdvisoryConfig
	client *http.Client
}

// NewHTTPAdvisoryClient constructs a client from configuration.
func NewHTTPAdvisoryClient(cfg config.AdvisoryConfig) *HTTPAdvisoryClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &HTTPAdvisoryClient{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Recommend requests certification recommendations for the given profile.
func (c *HTTPAdvisoryClient) Recommend(ctx context.Context, skills, existingCerts []string) (*models.AdvisoryOutput, error) {
	certsLine := strings.Join(existingCerts, ", ")
	if certsLine == "" {
		certsLine = "None"
	}
	userPrompt := fmt.Sprintf("Current skills: %s\nExisting certifications: %s\nRecommend relevant certifications.",
		strings.Join(skills, ", "), certsLine)

	payload, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: advisorySystemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal advisory request: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build advisory request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("advisory call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("advisory call returned status %d", resp.StatusCode)
	}

	var completion chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return nil, fmt.Errorf("decode advisory response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("advisory response has no choices")
	}

	content := extractJSONObject(completion.Choices[0].Message.Content)
	var output models.AdvisoryOutput
	if err := json.Unmarshal([]byte(content), &output); err != nil {
		return nil, fmt.Errorf("parse advisory output: %w", err)
	}
	return &output, nil
}

// extractJSONObject strips markdown fences some models wrap around JSON.
func extractJSONObject(content string) string {
	content = strings.TrimSpace(content)
	if start := strings.Index(content, "{"); start >= 0 {
		if end := strings.LastIndex(content, "}"); end > start {
			return content[start : end+1]
		}
	}
	return content
}
