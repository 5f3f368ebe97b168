package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service. The model
// backend credential is the only required value; it is read once at startup
// and immutable afterwards.
type Config struct {
	AppName         string
	AppEnv          string
	AppPort         string
	AIProvider      string
	DashScopeAPIKey string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	TextModel       string
	MultimodalModel string
	RequireTopic    bool
}

// Credential returns the API key for the selected provider.
func (c Config) Credential() string {
	if c.AIProvider == "openai" {
		return c.OpenAIAPIKey
	}
	return c.DashScopeAPIKey
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and an optional
// .env file. A missing backend credential is a hard configuration error
// surfaced here, before the server ever accepts a request.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("SHENLUN")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Shenlun Grader API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("ai.provider", "dashscope")
	v.SetDefault("grading.require_topic", false)

	// The provider keys keep their conventional unprefixed names as
	// fallbacks so existing deployments keep working.
	_ = v.BindEnv("dashscope_api_key", "SHENLUN_DASHSCOPE_API_KEY", "DASHSCOPE_API_KEY")
	_ = v.BindEnv("openai_api_key", "SHENLUN_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("openai_base_url", "SHENLUN_OPENAI_BASE_URL", "OPENAI_BASE_URL")

	cfg := Config{
		AppName:         v.GetString("app.name"),
		AppEnv:          v.GetString("app.env"),
		AppPort:         v.GetString("app.port"),
		AIProvider:      strings.ToLower(v.GetString("ai.provider")),
		DashScopeAPIKey: strings.TrimSpace(v.GetString("dashscope_api_key")),
		OpenAIAPIKey:    strings.TrimSpace(v.GetString("openai_api_key")),
		OpenAIBaseURL:   v.GetString("openai_base_url"),
		TextModel:       v.GetString("ai.text_model"),
		MultimodalModel: v.GetString("ai.multimodal_model"),
		RequireTopic:    v.GetBool("grading.require_topic"),
	}

	switch cfg.AIProvider {
	case "dashscope", "openai":
	default:
		return Config{}, fmt.Errorf("unknown ai provider %q", cfg.AIProvider)
	}

	if cfg.Credential() == "" {
		return Config{}, fmt.Errorf("%s api key must be provided", cfg.AIProvider)
	}

	return cfg, nil
}
