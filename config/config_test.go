package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"GROQ_API_KEY", "PLANLOOM_LLM_API_KEY", "PLANLOOM_LLM_BASE_URL",
		"PLANLOOM_LLM_MODEL", "SERPER_API_KEY", "OPENWEATHER_API_KEY",
		"PLANLOOM_ADDR", "PLANLOOM_STORE_DRIVER", "PLANLOOM_DB_PATH",
		"PLANLOOM_POSTGRES_DSN", "PLANLOOM_MAX_ITERATIONS",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultBaseURL, cfg.LLM.BaseURL)
	assert.Equal(t, DefaultModel, cfg.LLM.Model)
	assert.Equal(t, DefaultAddr, cfg.Server.Addr)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, DefaultDBPath, cfg.Store.Path)
	assert.Empty(t, cfg.LLM.APIKey)
}

func TestLoadTOMLFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "planloom.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
max_iterations = 12

[llm]
api_key = "file-key"
model = "llama-3.3-70b-versatile"

[server]
addr = ":9090"

[store]
driver = "postgres"
dsn = "host=localhost dbname=planloom"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "file-key", cfg.LLM.APIKey)
	assert.Equal(t, "llama-3.3-70b-versatile", cfg.LLM.Model)
	assert.Equal(t, DefaultBaseURL, cfg.LLM.BaseURL)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "host=localhost dbname=planloom", cfg.Store.DSN)
	assert.Equal(t, 12, cfg.MaxIterations)
}

func TestLoadMissingTOMLFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "planloom.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[llm]
api_key = "file-key"
`), 0o644))

	t.Setenv("GROQ_API_KEY", "groq-key")
	t.Setenv("PLANLOOM_ADDR", ":7000")
	t.Setenv("PLANLOOM_MAX_ITERATIONS", "3")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "groq-key", cfg.LLM.APIKey)
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, 3, cfg.MaxIterations)
}

func TestExplicitLLMKeyWinsOverGroq(t *testing.T) {
	clearEnv(t)

	t.Setenv("GROQ_API_KEY", "groq-key")
	t.Setenv("PLANLOOM_LLM_API_KEY", "explicit-key")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "explicit-key", cfg.LLM.APIKey)
}

func validConfig() Config {
	cfg := Default()
	cfg.LLM.APIKey = "k1"
	cfg.Tools.SerperAPIKey = "k2"
	cfg.Tools.OpenWeatherAPIKey = "k3"
	return cfg
}

func TestValidate(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidateMissingKeys(t *testing.T) {
	cfg := validConfig()
	cfg.LLM.APIKey = ""
	cfg.Tools.OpenWeatherAPIKey = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GROQ_API_KEY")
	assert.Contains(t, err.Error(), "OPENWEATHER_API_KEY")
	assert.NotContains(t, err.Error(), "SERPER_API_KEY")
}

func TestValidateStoreDriver(t *testing.T) {
	cfg := validConfig()
	cfg.Store.Driver = "mysql"
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Store.Driver = "postgres"
	cfg.Store.DSN = ""
	assert.Error(t, cfg.Validate())

	cfg.Store.DSN = "host=localhost"
	assert.NoError(t, cfg.Validate())

	cfg = validConfig()
	cfg.Store.Path = ""
	assert.Error(t, cfg.Validate())
}
