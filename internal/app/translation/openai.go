package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"globalnews_translator/internal/common"
)

const systemPrompt = "You are a professional news translator. Reply with JSON only."

// OpenAIGateway calls any OpenAI-compatible /v1/chat/completions endpoint.
type OpenAIGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
	policy  RetryPolicy
}

func NewOpenAIGateway(baseURL, apiKey string, client *http.Client, policy RetryPolicy) *OpenAIGateway {
	return &OpenAIGateway{baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, client: client, policy: policy}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (g *OpenAIGateway) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model: opts.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%w: encode request: %v", common.ErrGateway, err)
	}

	body, err := send(ctx, g.client, g.policy, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if g.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+g.apiKey)
		}
		return req, nil
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}

	var out chatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("%w: openai decode: %v", common.ErrGateway, err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: openai returned no choices", common.ErrGateway)
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}
