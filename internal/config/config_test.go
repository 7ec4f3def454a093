package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scenarioflow/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, int64(4<<20), cfg.Server.MaxBodyBytes)

	assert.Equal(t, 12, cfg.Extractor.ExpectedScenarios)
	assert.Equal(t, "scenarios", cfg.Extractor.ScenariosField)
	assert.Equal(t, "sources", cfg.Extractor.CitationsField)
	assert.Equal(t, "<<JSON_START>>", cfg.Extractor.StartMarker)
	assert.Equal(t, "<<JSON_END>>", cfg.Extractor.EndMarker)
	assert.Equal(t, 300, cfg.Extractor.SnippetLength)

	assert.Empty(t, cfg.LLM.Providers())
	assert.False(t, cfg.Archive.Enabled)
	assert.Equal(t, "rejected", cfg.Archive.Prefix)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SCENARIOFLOW_EXTRACTOR_EXPECTED_SCENARIOS", "8")
	t.Setenv("SCENARIOFLOW_EXTRACTOR_CITATIONS_FIELD", "citations")
	t.Setenv("SCENARIOFLOW_LLM_PRIMARY_PROVIDER", "claude")
	t.Setenv("SCENARIOFLOW_LLM_PRIMARY_API_KEY", "sk-primary")
	t.Setenv("SCENARIOFLOW_LLM_SECONDARY_PROVIDER", "openai")
	t.Setenv("SCENARIOFLOW_LLM_SECONDARY_MAX_TOKENS", "4096")
	t.Setenv("SCENARIOFLOW_ARCHIVE_ENABLED", "true")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Extractor.ExpectedScenarios)
	assert.Equal(t, "citations", cfg.Extractor.CitationsField)
	assert.Equal(t, "sk-primary", cfg.LLM.Primary.APIKey)
	assert.Equal(t, 4096, cfg.LLM.Secondary.MaxTokens)
	assert.Equal(t, 120, cfg.LLM.Secondary.TimeoutSecs)
	assert.True(t, cfg.Archive.Enabled)
}

func TestLoad_PlatformPort(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SCENARIOFLOW_SERVER_PORT", "")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Port)
}

func TestLLMConfig_Providers_SkipsEmptySlots(t *testing.T) {
	cfg := config.LLMConfig{
		Primary:  config.ProviderConfig{Provider: "gemini"},
		Tertiary: config.ProviderConfig{Provider: "openai"},
	}

	providers := cfg.Providers()

	require.Len(t, providers, 2)
	assert.Equal(t, "gemini", providers[0].Provider)
	assert.Equal(t, "openai", providers[1].Provider)
}

func TestLoad_AllowedOrigins(t *testing.T) {
	t.Setenv("SCENARIOFLOW_SERVER_ALLOWED_ORIGINS", "https://app.example.com, ,http://localhost:3001")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"https://app.example.com", "http://localhost:3001"}, cfg.Server.AllowedOrigins)
}
