package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/capecontrol/server/internal/shared/config"
)

// QueryProvider answers AI queries.
type QueryProvider interface {
	Name() string
	Query(ctx context.Context, prompt string) (string, error)
}

// NewProvider builds a query provider from configuration.
func NewProvider(cfg *config.AIConfig) (QueryProvider, error) {
	switch cfg.Provider {
	case "", "echo":
		return &EchoProvider{}, nil
	case "http":
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("ai provider %q requires an endpoint", cfg.Provider)
		}
		return NewHTTPProvider(cfg), nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
	}
}

// EchoProvider answers every query with the prompt itself. Used in
// development and tests.
type EchoProvider struct{}

func (p *EchoProvider) Name() string { return "echo" }

func (p *EchoProvider) Query(_ context.Context, prompt string) (string, error) {
	return prompt, nil
}

// HTTPProvider forwards queries to an upstream completion endpoint behind a
// circuit breaker, so a failing upstream sheds load instead of stacking up
// timed-out requests.
type HTTPProvider struct {
	endpoint string
	apiKey   string
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker[string]
}

// NewHTTPProvider creates an HTTP-backed query provider.
func NewHTTPProvider(cfg *config.AIConfig) *HTTPProvider {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	timeout := cfg.CircuitTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        "ai-upstream",
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
	}

	return &HTTPProvider{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: cfg.RequestTimeout},
		breaker:  gobreaker.NewCircuitBreaker[string](settings),
	}
}

func (p *HTTPProvider) Name() string { return "http" }

func (p *HTTPProvider) Query(ctx context.Context, prompt string) (string, error) {
	answer, err := p.breaker.Execute(func() (string, error) {
		return p.query(ctx, prompt)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return "", fmt.Errorf("%w: circuit open", ErrProviderUnavailable)
		}
		return "", err
	}
	return answer, nil
}

type upstreamRequest struct {
	Prompt string `json:"prompt"`
}

type upstreamResponse struct {
	Answer string `json:"answer"`
}

func (p *HTTPProvider) query(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(upstreamRequest{Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%w: upstream status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	var out upstreamResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return out.Answer, nil
}
