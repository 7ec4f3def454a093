package llm

import (
	"fmt"

	"go.uber.org/zap"

	"scenarioflow/internal/config"
	"scenarioflow/internal/domain"
	"scenarioflow/internal/port"
)

// ProviderFactory is a function that creates a CompletionClient from a provider config.
type ProviderFactory func(cfg *config.ProviderConfig) (port.CompletionClient, error)

// registry of provider factories, populated by init() in each provider package
// or explicitly via RegisterProvider.
var providers = map[string]ProviderFactory{}

// RegisterProvider registers a provider factory by name.
func RegisterProvider(name string, factory ProviderFactory) {
	providers[name] = factory
}

// NewClient creates a CompletionClient from a provider config using the registered factory.
func NewClient(cfg *config.ProviderConfig) (port.CompletionClient, error) {
	factory, ok := providers[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown completion provider: %s", cfg.Provider)
	}
	return factory(cfg)
}

// NewFromConfig builds the client chain for every configured provider slot.
// A single provider is returned as-is; several are wrapped in a FallbackClient.
func NewFromConfig(cfg *config.LLMConfig, logger *zap.Logger) (port.CompletionClient, error) {
	slots := cfg.Providers()
	if len(slots) == 0 {
		return nil, domain.ErrProviderNotConfigured
	}

	clients := make([]port.CompletionClient, 0, len(slots))
	names := make([]string, 0, len(slots))
	for _, slot := range slots {
		c, err := NewClient(slot)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
		names = append(names, slot.Provider)
	}

	if len(clients) == 1 {
		return clients[0], nil
	}
	return NewFallbackClient(clients, names, logger), nil
}
