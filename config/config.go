// Package config loads planloom configuration from an optional TOML file,
// a .env file, and environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Defaults match the original deployment: Groq as the completion provider
// and a local SQLite file next to the binary.
const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "qwen/qwen3-32b"
	DefaultAddr    = ":8080"
	DefaultDBPath  = "plans.db"
)

type LLMConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
}

type ToolsConfig struct {
	SerperAPIKey      string `toml:"serper_api_key"`
	OpenWeatherAPIKey string `toml:"openweather_api_key"`
}

type ServerConfig struct {
	Addr          string `toml:"addr"`
	RatePerMinute int    `toml:"rate_per_minute"`
	RateBurst     int    `toml:"rate_burst"`
}

type StoreConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `toml:"driver"`
	// Path is the SQLite database file.
	Path string `toml:"path"`
	// DSN is the Postgres connection string.
	DSN string `toml:"dsn"`
}

type Config struct {
	LLM           LLMConfig    `toml:"llm"`
	Tools         ToolsConfig  `toml:"tools"`
	Server        ServerConfig `toml:"server"`
	Store         StoreConfig  `toml:"store"`
	MaxIterations int          `toml:"max_iterations"`
}

// Default returns a Config with all defaults applied and no credentials.
func Default() Config {
	return Config{
		LLM: LLMConfig{
			BaseURL: DefaultBaseURL,
			Model:   DefaultModel,
		},
		Server: ServerConfig{
			Addr:          DefaultAddr,
			RatePerMinute: 30,
			RateBurst:     10,
		},
		Store: StoreConfig{
			Driver: "sqlite",
			Path:   DefaultDBPath,
		},
	}
}

// Load builds the configuration. tomlPath may be empty; a missing file at a
// non-empty path is an error. A .env file in the working directory is loaded
// first so environment overrides pick it up.
func Load(tomlPath string) (Config, error) {
	// Absent .env is fine; real environments set variables directly.
	_ = godotenv.Load()

	cfg := Default()

	if tomlPath != "" {
		if _, err := toml.DecodeFile(tomlPath, &cfg); err != nil {
			return Config{}, fmt.Errorf("reading config file %s: %w", tomlPath, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	// GROQ_API_KEY is the historical name; PLANLOOM_LLM_API_KEY wins when
	// both are set.
	if v := os.Getenv("GROQ_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("PLANLOOM_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("PLANLOOM_LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("PLANLOOM_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("SERPER_API_KEY"); v != "" {
		cfg.Tools.SerperAPIKey = v
	}
	if v := os.Getenv("OPENWEATHER_API_KEY"); v != "" {
		cfg.Tools.OpenWeatherAPIKey = v
	}
	if v := os.Getenv("PLANLOOM_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("PLANLOOM_STORE_DRIVER"); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv("PLANLOOM_DB_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("PLANLOOM_POSTGRES_DSN"); v != "" {
		cfg.Store.DSN = v
	}
	if v := os.Getenv("PLANLOOM_MAX_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxIterations = n
		}
	}
}

// Validate fails fast when required credentials are missing, before any
// server or agent is started.
func (c Config) Validate() error {
	var missing []string
	if c.LLM.APIKey == "" {
		missing = append(missing, "GROQ_API_KEY")
	}
	if c.Tools.SerperAPIKey == "" {
		missing = append(missing, "SERPER_API_KEY")
	}
	if c.Tools.OpenWeatherAPIKey == "" {
		missing = append(missing, "OPENWEATHER_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing API keys: %v", missing)
	}

	switch c.Store.Driver {
	case "sqlite":
		if c.Store.Path == "" {
			return errors.New("store.path is required for the sqlite driver")
		}
	case "postgres":
		if c.Store.DSN == "" {
			return errors.New("store.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	return nil
}
