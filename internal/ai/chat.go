package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fiercfly/proteinHunt/internal/metrics"
)

const (
	defaultChatBaseURL   = "https://api.groq.com/openai/v1"
	chatMaxTokens        = 8192
	chatComponent        = "groq"
	chatCompletionsRoute = "/chat/completions"
	maxChatResponseBytes = 4 << 20
)

// ChatGenerator calls an OpenAI-compatible chat completions endpoint (Groq by
// default).
type ChatGenerator struct {
	http    *http.Client
	baseURL string
	apiKey  string
	model   string
}

func NewChatGenerator(apiKey, baseURL, model string, timeout time.Duration) *ChatGenerator {
	if baseURL == "" {
		baseURL = defaultChatBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ChatGenerator{
		http:    &http.Client{Timeout: timeout + 5*time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
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
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
}

type chatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *ChatGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", ErrNoCredentials
	}
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		Temperature: 0,
		MaxTokens:   chatMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatCompletionsRoute, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("chat: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveNetworkRequest(chatComponent, "chat_completions", c.model, start, err)
		return "", fmt.Errorf("chat: do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxChatResponseBytes))
	if err != nil {
		metrics.ObserveNetworkRequest(chatComponent, "chat_completions", c.model, start, err)
		return "", fmt.Errorf("chat: read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		err = fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
		metrics.ObserveNetworkRequest(chatComponent, "chat_completions", c.model, start, err)
		return "", err
	}
	if resp.StatusCode >= 400 {
		var apiErr chatErrorResponse
		if jsonErr := json.Unmarshal(respBody, &apiErr); jsonErr == nil && apiErr.Error.Message != "" {
			err = fmt.Errorf("chat: %s", apiErr.Error.Message)
		} else {
			err = fmt.Errorf("chat: unexpected status %d", resp.StatusCode)
		}
		metrics.ObserveNetworkRequest(chatComponent, "chat_completions", c.model, start, err)
		return "", err
	}

	var completion chatResponse
	if err := json.Unmarshal(respBody, &completion); err != nil {
		metrics.ObserveNetworkRequest(chatComponent, "chat_completions", c.model, start, err)
		return "", fmt.Errorf("chat: decode response: %w", err)
	}
	metrics.ObserveNetworkRequest(chatComponent, "chat_completions", c.model, start, nil)
	if u := completion.Usage; u != nil {
		metrics.ObserveLLMGeneration(c.model, time.Since(start), u.PromptTokens, u.CompletionTokens, u.TotalTokens)
	}

	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("chat: no choices in response")
	}
	return completion.Choices[0].Message.Content, nil
}
