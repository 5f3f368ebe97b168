package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DASHSCOPE_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "Shenlun Grader API", cfg.AppName)
	require.Equal(t, "development", cfg.AppEnv)
	require.Equal(t, "8080", cfg.AppPort)
	require.Equal(t, "dashscope", cfg.AIProvider)
	require.Equal(t, "sk-test", cfg.Credential())
	require.False(t, cfg.RequireTopic)
}

func TestLoadMissingCredential(t *testing.T) {
	t.Setenv("DASHSCOPE_API_KEY", "")
	t.Setenv("SHENLUN_DASHSCOPE_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "api key")
}

func TestLoadPrefixedOverrides(t *testing.T) {
	t.Setenv("SHENLUN_APP_NAME", "Grader Staging")
	t.Setenv("SHENLUN_APP_ENV", "staging")
	t.Setenv("SHENLUN_DASHSCOPE_API_KEY", "sk-prefixed")
	t.Setenv("SHENLUN_GRADING_REQUIRE_TOPIC", "true")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "Grader Staging", cfg.AppName)
	require.Equal(t, "staging", cfg.AppEnv)
	require.Equal(t, "sk-prefixed", cfg.DashScopeAPIKey)
	require.True(t, cfg.RequireTopic)
}

func TestLoadOpenAIProvider(t *testing.T) {
	t.Setenv("SHENLUN_AI_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-openai")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "openai", cfg.AIProvider)
	require.Equal(t, "sk-openai", cfg.Credential())
}

func TestLoadUnknownProvider(t *testing.T) {
	t.Setenv("SHENLUN_AI_PROVIDER", "anthropic")
	t.Setenv("DASHSCOPE_API_KEY", "sk-test")

	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown ai provider")
}

func TestHTTPAddress(t *testing.T) {
	require.Equal(t, ":8080", Config{AppPort: "8080"}.HTTPAddress())
	require.Equal(t, ":9090", Config{AppPort: ":9090"}.HTTPAddress())
}
