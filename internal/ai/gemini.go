package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/genai"

	"github.com/fiercfly/proteinHunt/internal/metrics"
)

const geminiMaxOutputTokens = 8192

// GeminiGenerator calls the Gemini API through the genai SDK.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, ErrNoCredentials
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0),
		MaxOutputTokens:   geminiMaxOutputTokens,
		ResponseMIMEType:  "application/json",
	})
	metrics.ObserveNetworkRequest("gemini", "generate_content", g.model, start, err)
	if err != nil {
		if isGeminiRateLimit(err) {
			return "", fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}

	if u := resp.UsageMetadata; u != nil {
		metrics.ObserveLLMGeneration(g.model, time.Since(start), int(u.PromptTokenCount), int(u.CandidatesTokenCount), int(u.TotalTokenCount))
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("no text part in gemini response")
	}
	return text, nil
}

func isGeminiRateLimit(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return apiErrPtr.Code == http.StatusTooManyRequests
	}
	return false
}
