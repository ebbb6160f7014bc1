package translation

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"globalnews_translator/internal/common"
	"globalnews_translator/internal/platform/config"
)

// Gateway is the language-generation service. Implementations wrap every
// failure in common.ErrGateway.
type Gateway interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// HealthChecker is implemented by gateways that can report readiness.
type HealthChecker interface {
	Healthy(ctx context.Context) error
}

type GenerateOptions struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// RetryPolicy retries transport errors, 429 and 5xx with exponential backoff.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

const (
	maxResponseBody = 8 << 20
	maxRetryDelay   = 30 * time.Second
)

// NewGateway builds the gateway selected by cfg.Provider.
func NewGateway(cfg config.GatewayConfig) (Gateway, error) {
	client := &http.Client{Timeout: cfg.Timeout}
	policy := RetryPolicy{MaxRetries: cfg.MaxRetries, BaseDelay: cfg.RetryBaseDelay}

	switch cfg.Provider {
	case "ollama":
		return NewOllamaGateway(cfg.BaseURL, client, policy), nil
	case "openai":
		return NewOpenAIGateway(cfg.BaseURL, cfg.APIKey, client, policy), nil
	default:
		return nil, fmt.Errorf("unknown gateway provider %q: %w", cfg.Provider, common.ErrValidation)
	}
}

// backoff returns the wait before retry attempt+1, honouring Retry-After when the
// server sent one.
func (p RetryPolicy) backoff(attempt int, resp *http.Response) time.Duration {
	if resp != nil {
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			return min(time.Duration(secs)*time.Second, maxRetryDelay)
		}
	}
	if p.BaseDelay <= 0 {
		return 0
	}
	d := p.BaseDelay << attempt
	if d <= 0 || d > maxRetryDelay {
		return maxRetryDelay
	}
	return d
}

// send executes the request built by newReq, retrying per policy. It returns the
// body of the first 2xx response.
func send(ctx context.Context, client *http.Client, policy RetryPolicy, newReq func(context.Context) (*http.Request, error)) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		req, err := newReq(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: build request: %v", common.ErrGateway, err)
		}

		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %v", common.ErrGateway, ctx.Err())
			}
			lastErr = fmt.Errorf("%w: request failed: %v", common.ErrGateway, err)
			if werr := wait(ctx, policy, attempt, nil); werr != nil {
				return nil, werr
			}
			continue
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
		resp.Body.Close()

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			if readErr != nil {
				return nil, fmt.Errorf("%w: read body: %v", common.ErrGateway, readErr)
			}
			return body, nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			lastErr = fmt.Errorf("%w: status %d: %s", common.ErrGateway, resp.StatusCode, truncate(string(body), 300))
			if werr := wait(ctx, policy, attempt, resp); werr != nil {
				return nil, werr
			}
		default:
			return nil, fmt.Errorf("%w: status %d: %s", common.ErrGateway, resp.StatusCode, truncate(string(body), 300))
		}
	}
	return nil, fmt.Errorf("giving up after %d attempts: %w", policy.MaxRetries+1, lastErr)
}

func wait(ctx context.Context, policy RetryPolicy, attempt int, resp *http.Response) error {
	if attempt >= policy.MaxRetries {
		return nil
	}
	timer := time.NewTimer(policy.backoff(attempt, resp))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", common.ErrGateway, ctx.Err())
	case <-timer.C:
		return nil
	}
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
