// Package config loads nrpchat runtime configuration from the environment.
// A .env file in the working directory is honored when present; explicit
// environment variables win over .env entries.
package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultBaseURL is the NRP managed LLM endpoint (OpenAI-compatible).
const DefaultBaseURL = "https://ellm.nrp-nautilus.io/v1"

// DefaultLogDir is where sessions and the diagnostic log live, relative to
// the working directory unless overridden.
const DefaultLogDir = "logs"

// Config holds everything the client needs to talk to the platform and
// to place its on-disk state.
type Config struct {
	APIKey   string
	BaseURL  string
	LogDir   string
	LogLevel string
}

// RequireAPIKey reports a startup-fatal error when no API key is present.
// Commands that talk to the model endpoint call this before doing anything
// else; session-only commands work without a key.
func (c *Config) RequireAPIKey() error {
	if c.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is not set")
	}
	return nil
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	// Best effort: a missing .env file is not an error.
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("base_url", DefaultBaseURL)
	v.SetDefault("log_dir", DefaultLogDir)
	v.SetDefault("log_level", "")

	bindings := map[string]string{
		"api_key":   "OPENAI_API_KEY",
		"base_url":  "NRP_BASE_URL",
		"log_dir":   "NRP_LOG_DIR",
		"log_level": "NRP_LOG_LEVEL",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	return &Config{
		APIKey:   v.GetString("api_key"),
		BaseURL:  v.GetString("base_url"),
		LogDir:   v.GetString("log_dir"),
		LogLevel: v.GetString("log_level"),
	}, nil
}
