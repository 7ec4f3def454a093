package claude

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"scenarioflow/internal/config"
	"scenarioflow/internal/domain"
	"scenarioflow/internal/llm"
	"scenarioflow/internal/port"
)

const (
	apiURL       = "https://api.anthropic.com/v1/messages"
	apiVersion   = "2023-06-01"
	providerName = "claude"
)

func init() {
	llm.RegisterProvider(providerName, func(cfg *config.ProviderConfig) (port.CompletionClient, error) {
		return NewClient(cfg), nil
	})
}

// Client implements port.CompletionClient using the Anthropic Messages API.
type Client struct {
	apiKey    string
	model     string
	maxTokens int
	endpoint  string
	client    *http.Client
}

// NewClient creates a Claude completion client from a provider config.
func NewClient(cfg *config.ProviderConfig) *Client {
	return newClient(cfg, apiURL)
}

// NewClientWithEndpoint creates a client pointing at a custom API endpoint (for testing).
func NewClientWithEndpoint(cfg *config.ProviderConfig, endpoint string) *Client {
	return newClient(cfg, endpoint)
}

func newClient(cfg *config.ProviderConfig, endpoint string) *Client {
	model := cfg.DefaultModel
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 16384
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		apiKey:    cfg.APIKey,
		model:     model,
		maxTokens: maxTokens,
		endpoint:  endpoint,
		client:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Complete(ctx context.Context, input port.CompletionInput) (*port.CompletionOutput, error) {
	maxTokens := c.maxTokens
	if input.MaxTokens > 0 {
		maxTokens = input.MaxTokens
	}

	reqBody := map[string]interface{}{
		"model":      c.model,
		"max_tokens": maxTokens,
		"messages": []map[string]interface{}{
			{
				"role":    "user",
				"content": input.Prompt,
			},
		},
	}
	if input.System != "" {
		reqBody["system"] = input.System
	}

	headers := map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": apiVersion,
	}
	body, err := llm.PostJSON(ctx, c.client, providerName, c.endpoint, headers, reqBody)
	if err != nil {
		return nil, err
	}

	return c.parseResponse(body)
}

// apiResponse models the parts of the Messages API response checked before extraction.
type apiResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

func (c *Client) parseResponse(body []byte) (*port.CompletionOutput, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}

	if len(resp.Content) == 0 {
		return nil, fmt.Errorf("%s: %w", providerName, domain.ErrEmptyProviderResponse)
	}

	if resp.StopReason == "max_tokens" {
		return nil, fmt.Errorf("%s (stop_reason: max_tokens): %w", providerName, domain.ErrOutputTruncated)
	}

	raw, err := llm.DecodeRaw(body)
	if err != nil {
		return nil, err
	}

	return &port.CompletionOutput{
		Raw:      raw,
		Provider: providerName,
		Model:    c.model,
	}, nil
}
