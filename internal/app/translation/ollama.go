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

// OllamaGateway talks to a local Ollama server's /api/generate endpoint.
type OllamaGateway struct {
	baseURL string
	client  *http.Client
	policy  RetryPolicy
}

func NewOllamaGateway(baseURL string, client *http.Client, policy RetryPolicy) *OllamaGateway {
	return &OllamaGateway{baseURL: strings.TrimRight(baseURL, "/"), client: client, policy: policy}
}

type ollamaGenerateRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func (g *OllamaGateway) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	payload, err := json.Marshal(ollamaGenerateRequest{
		Model:   opts.Model,
		Prompt:  prompt,
		Stream:  false,
		Options: ollamaOptions{Temperature: opts.Temperature, NumPredict: opts.MaxTokens},
	})
	if err != nil {
		return "", fmt.Errorf("%w: encode request: %v", common.ErrGateway, err)
	}

	body, err := send(ctx, g.client, g.policy, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/generate", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}

	var out ollamaGenerateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("%w: ollama decode: %v", common.ErrGateway, err)
	}
	return strings.TrimSpace(out.Response), nil
}

// Healthy checks that the server answers /api/tags.
func (g *OllamaGateway) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrGateway, err)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: ollama unreachable: %v", common.ErrGateway, err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: ollama tags status %d", common.ErrGateway, resp.StatusCode)
	}
	return nil
}
