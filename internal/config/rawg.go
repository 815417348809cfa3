package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"
)

// RAWGConfig configures the RAWG API client.
type RAWGConfig struct {
	BaseURL   string          `mapstructure:"base_url"`
	APIKey    string          `mapstructure:"api_key"`     // API key (can be set directly or via env var)
	APIKeyEnv string          `mapstructure:"api_key_env"` // Environment variable name for API key
	Timeout   time.Duration   `mapstructure:"timeout"`
	PageSize  int             `mapstructure:"page_size"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig is a token bucket: RPS steady rate, Burst bucket size.
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// ResolveEnvVars loads the API key from APIKeyEnv when no key is set directly.
func (c *RAWGConfig) ResolveEnvVars() {
	if c.APIKeyEnv != "" && c.APIKey == "" {
		if val := os.Getenv(c.APIKeyEnv); val != "" {
			c.APIKey = val
		}
	}
}

// Validate checks the client settings. A missing key is reported because
// RAWG rejects keyless requests.
func (c *RAWGConfig) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("rawg.base_url %q is not an absolute URL", c.BaseURL)
	}
	if c.APIKey == "" {
		return errors.New("rawg.api_key is empty; set RAWG_API_KEY")
	}
	if c.Timeout <= 0 {
		return errors.New("rawg.timeout must be positive")
	}
	if c.PageSize <= 0 || c.PageSize > 40 {
		return fmt.Errorf("rawg.page_size %d out of range 1..40", c.PageSize)
	}
	if c.RateLimit.RPS < 0 || c.RateLimit.Burst < 0 {
		return errors.New("rawg.rate_limit values must not be negative")
	}
	return nil
}
