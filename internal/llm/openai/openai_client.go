package openai

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
	apiURL       = "https://api.openai.com/v1/chat/completions"
	providerName = "openai"
)

func init() {
	llm.RegisterProvider(providerName, func(cfg *config.ProviderConfig) (port.CompletionClient, error) {
		return NewClient(cfg), nil
	})
}

// Client implements port.CompletionClient using the OpenAI Chat Completions API.
type Client struct {
	apiKey    string
	model     string
	maxTokens int
	endpoint  string
	client    *http.Client
}

// NewClient creates an OpenAI completion client from a provider config.
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
		model = "gpt-4o"
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

	var messages []map[string]interface{}
	if input.System != "" {
		messages = append(messages, map[string]interface{}{
			"role":    "system",
			"content": input.System,
		})
	}
	messages = append(messages, map[string]interface{}{
		"role":    "user",
		"content": input.Prompt,
	})

	reqBody := map[string]interface{}{
		"model":                 c.model,
		"max_completion_tokens": maxTokens,
		"messages":              messages,
	}

	headers := map[string]string{
		"Authorization": "Bearer " + c.apiKey,
	}
	body, err := llm.PostJSON(ctx, c.client, providerName, c.endpoint, headers, reqBody)
	if err != nil {
		return nil, err
	}

	return c.parseResponse(body)
}

// apiResponse models the parts of the Chat Completions response checked before extraction.
type apiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func (c *Client) parseResponse(body []byte) (*port.CompletionOutput, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s: no choices: %w", providerName, domain.ErrEmptyProviderResponse)
	}

	if resp.Choices[0].FinishReason == "length" {
		return nil, fmt.Errorf("%s (finish_reason: length): %w", providerName, domain.ErrOutputTruncated)
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
