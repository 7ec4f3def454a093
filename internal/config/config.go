package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Extractor ExtractorConfig
	LLM       LLMConfig
	Archive   ArchiveConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           string        `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	Environment    string        `mapstructure:"environment"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"` // browser origins permitted by CORS
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ExtractorConfig holds the response extraction contract.
type ExtractorConfig struct {
	ExpectedScenarios int    `mapstructure:"expected_scenarios"`
	ScenariosField    string `mapstructure:"scenarios_field"`
	CitationsField    string `mapstructure:"citations_field"`
	StartMarker       string `mapstructure:"start_marker"`
	EndMarker         string `mapstructure:"end_marker"`
	SnippetLength     int    `mapstructure:"snippet_length"`
}

// ProviderConfig holds settings for a single completion provider.
type ProviderConfig struct {
	Provider     string `mapstructure:"provider"`
	APIKey       string `mapstructure:"api_key"`
	DefaultModel string `mapstructure:"default_model"`
	MaxTokens    int    `mapstructure:"max_tokens"`
	TimeoutSecs  int    `mapstructure:"timeout_secs"`
}

// LLMConfig holds completion provider settings in fallback order.
type LLMConfig struct {
	Primary   ProviderConfig `mapstructure:"primary"`
	Secondary ProviderConfig `mapstructure:"secondary"`
	Tertiary  ProviderConfig `mapstructure:"tertiary"`
}

// Providers returns the configured providers in fallback order, skipping empty slots.
func (l *LLMConfig) Providers() []*ProviderConfig {
	var out []*ProviderConfig
	for _, p := range []*ProviderConfig{&l.Primary, &l.Secondary, &l.Tertiary} {
		if p.Provider != "" {
			out = append(out, p)
		}
	}
	return out
}

// ArchiveConfig holds settings for archiving rejected responses to S3.
type ArchiveConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// Load reads configuration from environment variables with the SCENARIOFLOW_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SCENARIOFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "180s")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", "http://localhost:3000")
	v.SetDefault("server.max_body_bytes", 4<<20)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Extractor defaults
	v.SetDefault("extractor.expected_scenarios", 12)
	v.SetDefault("extractor.scenarios_field", "scenarios")
	v.SetDefault("extractor.citations_field", "sources")
	v.SetDefault("extractor.start_marker", "<<JSON_START>>")
	v.SetDefault("extractor.end_marker", "<<JSON_END>>")
	v.SetDefault("extractor.snippet_length", 300)

	// Provider defaults
	for _, slot := range []string{"primary", "secondary", "tertiary"} {
		v.SetDefault("llm."+slot+".provider", "")
		v.SetDefault("llm."+slot+".api_key", "")
		v.SetDefault("llm."+slot+".default_model", "")
		v.SetDefault("llm."+slot+".max_tokens", 16384)
		v.SetDefault("llm."+slot+".timeout_secs", 120)
	}

	// Archive defaults
	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.region", "us-east-1")
	v.SetDefault("archive.bucket", "scenarioflow-rejects")
	v.SetDefault("archive.endpoint", "")
	v.SetDefault("archive.prefix", "rejected")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                  "SCENARIOFLOW_SERVER_PORT",
		"server.read_timeout":          "SCENARIOFLOW_SERVER_READ_TIMEOUT",
		"server.write_timeout":         "SCENARIOFLOW_SERVER_WRITE_TIMEOUT",
		"server.environment":           "SCENARIOFLOW_SERVER_ENVIRONMENT",
		"server.allowed_origins":       "SCENARIOFLOW_SERVER_ALLOWED_ORIGINS",
		"server.max_body_bytes":        "SCENARIOFLOW_SERVER_MAX_BODY_BYTES",
		"log.level":                    "SCENARIOFLOW_LOG_LEVEL",
		"log.format":                   "SCENARIOFLOW_LOG_FORMAT",
		"extractor.expected_scenarios": "SCENARIOFLOW_EXTRACTOR_EXPECTED_SCENARIOS",
		"extractor.scenarios_field":    "SCENARIOFLOW_EXTRACTOR_SCENARIOS_FIELD",
		"extractor.citations_field":    "SCENARIOFLOW_EXTRACTOR_CITATIONS_FIELD",
		"extractor.start_marker":       "SCENARIOFLOW_EXTRACTOR_START_MARKER",
		"extractor.end_marker":         "SCENARIOFLOW_EXTRACTOR_END_MARKER",
		"extractor.snippet_length":     "SCENARIOFLOW_EXTRACTOR_SNIPPET_LENGTH",
		"llm.primary.provider":         "SCENARIOFLOW_LLM_PRIMARY_PROVIDER",
		"llm.primary.api_key":          "SCENARIOFLOW_LLM_PRIMARY_API_KEY",
		"llm.primary.default_model":    "SCENARIOFLOW_LLM_PRIMARY_DEFAULT_MODEL",
		"llm.primary.max_tokens":       "SCENARIOFLOW_LLM_PRIMARY_MAX_TOKENS",
		"llm.primary.timeout_secs":     "SCENARIOFLOW_LLM_PRIMARY_TIMEOUT_SECS",
		"llm.secondary.provider":       "SCENARIOFLOW_LLM_SECONDARY_PROVIDER",
		"llm.secondary.api_key":        "SCENARIOFLOW_LLM_SECONDARY_API_KEY",
		"llm.secondary.default_model":  "SCENARIOFLOW_LLM_SECONDARY_DEFAULT_MODEL",
		"llm.secondary.max_tokens":     "SCENARIOFLOW_LLM_SECONDARY_MAX_TOKENS",
		"llm.secondary.timeout_secs":   "SCENARIOFLOW_LLM_SECONDARY_TIMEOUT_SECS",
		"llm.tertiary.provider":        "SCENARIOFLOW_LLM_TERTIARY_PROVIDER",
		"llm.tertiary.api_key":         "SCENARIOFLOW_LLM_TERTIARY_API_KEY",
		"llm.tertiary.default_model":   "SCENARIOFLOW_LLM_TERTIARY_DEFAULT_MODEL",
		"llm.tertiary.max_tokens":      "SCENARIOFLOW_LLM_TERTIARY_MAX_TOKENS",
		"llm.tertiary.timeout_secs":    "SCENARIOFLOW_LLM_TERTIARY_TIMEOUT_SECS",
		"archive.enabled":              "SCENARIOFLOW_ARCHIVE_ENABLED",
		"archive.region":               "SCENARIOFLOW_ARCHIVE_REGION",
		"archive.bucket":               "SCENARIOFLOW_ARCHIVE_BUCKET",
		"archive.endpoint":             "SCENARIOFLOW_ARCHIVE_ENDPOINT",
		"archive.access_key":           "SCENARIOFLOW_ARCHIVE_ACCESS_KEY",
		"archive.secret_key":           "SCENARIOFLOW_ARCHIVE_SECRET_KEY",
		"archive.prefix":               "SCENARIOFLOW_ARCHIVE_PREFIX",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if SCENARIOFLOW_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("SCENARIOFLOW_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:           serverPort,
		ReadTimeout:    v.GetDuration("server.read_timeout"),
		WriteTimeout:   v.GetDuration("server.write_timeout"),
		Environment:    v.GetString("server.environment"),
		AllowedOrigins: splitOrigins(v.GetString("server.allowed_origins")),
		MaxBodyBytes:   v.GetInt64("server.max_body_bytes"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	cfg.Extractor = ExtractorConfig{
		ExpectedScenarios: v.GetInt("extractor.expected_scenarios"),
		ScenariosField:    v.GetString("extractor.scenarios_field"),
		CitationsField:    v.GetString("extractor.citations_field"),
		StartMarker:       v.GetString("extractor.start_marker"),
		EndMarker:         v.GetString("extractor.end_marker"),
		SnippetLength:     v.GetInt("extractor.snippet_length"),
	}
	cfg.LLM = LLMConfig{
		Primary:   loadProvider(v, "primary"),
		Secondary: loadProvider(v, "secondary"),
		Tertiary:  loadProvider(v, "tertiary"),
	}
	cfg.Archive = ArchiveConfig{
		Enabled:   v.GetBool("archive.enabled"),
		Region:    v.GetString("archive.region"),
		Bucket:    v.GetString("archive.bucket"),
		Endpoint:  v.GetString("archive.endpoint"),
		AccessKey: v.GetString("archive.access_key"),
		SecretKey: v.GetString("archive.secret_key"),
		Prefix:    v.GetString("archive.prefix"),
	}

	return cfg, nil
}

func loadProvider(v *viper.Viper, slot string) ProviderConfig {
	return ProviderConfig{
		Provider:     v.GetString("llm." + slot + ".provider"),
		APIKey:       v.GetString("llm." + slot + ".api_key"),
		DefaultModel: v.GetString("llm." + slot + ".default_model"),
		MaxTokens:    v.GetInt("llm." + slot + ".max_tokens"),
		TimeoutSecs:  v.GetInt("llm." + slot + ".timeout_secs"),
	}
}

func splitOrigins(raw string) []string {
	var out []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
