package config

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config holds the overall configuration for the application.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Chains    []string        `yaml:"chains"`
	Providers ProvidersConfig `yaml:"providers"`
	Pricing   PricingConfig   `yaml:"pricing"`
	Cache     CacheConfig     `yaml:"cache"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds the server-specific configuration.
type ServerConfig struct {
	Port         string `yaml:"port"`
	ReadTimeout  int    `yaml:"readTimeout"`
	WriteTimeout int    `yaml:"writeTimeout"`
	IdleTimeout  int    `yaml:"idleTimeout"`
}

// ProvidersConfig holds one entry per upstream data source. API keys are
// sourced from the environment, never from the YAML file.
type ProvidersConfig struct {
	Covalent ProviderConfig `yaml:"covalent"`
	Alchemy  ProviderConfig `yaml:"alchemy"`
}

// ProviderConfig holds the settings for one upstream provider.
type ProviderConfig struct {
	Enabled              bool   `yaml:"enabled"`
	BaseURL              string `yaml:"baseURL"`
	RequestTimeoutMillis int64  `yaml:"requestTimeoutMillis"`
	MaxConcurrentChains  int    `yaml:"maxConcurrentChains"`
	APIKey               string `yaml:"-"`
}

// PricingConfig holds the configuration for the price oracle client.
type PricingConfig struct {
	BaseURL                  string `yaml:"baseURL"`
	RequestTimeoutMillis     int64  `yaml:"requestTimeoutMillis"`
	MaxTokensPerBatchRequest int    `yaml:"maxTokensPerBatchRequest"`
	CacheTTLMinutes          int    `yaml:"cacheTTLMinutes"`
}

// CacheConfig holds configuration for the derived-payload cache.
type CacheConfig struct {
	TTLMinutes             int `yaml:"ttlMinutes"`
	CleanupIntervalMinutes int `yaml:"cleanupIntervalMinutes"`
}

// RateLimitConfig holds the per-address rate limit for the read endpoints.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requestsPerMinute"`
	Burst             int `yaml:"burst"`
}

// LoggingConfig holds the configuration for logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // e.g., "debug", "info", "warn", "error"
}

// MissingCredentialError reports a required provider credential that was
// absent from the environment. It is distinguishable from data errors so
// the boundary can return an actionable message instead of a generic
// failure.
type MissingCredentialError struct {
	Provider string
	EnvVar   string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("%s credentials missing: set %s", e.Provider, e.EnvVar)
}

// LoadConfig loads configuration from a YAML file and overlays provider
// credentials from the environment.
func LoadConfig(path string) (*Config, error) {
	logrus.Infof("Loading configuration from path: %s", path)
	data, err := os.ReadFile(path)
	if err != nil {
		logrus.Errorf("Failed to read config file %s: %v", path, err)
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		logrus.Errorf("Failed to unmarshal config data from %s: %v", path, err)
		return nil, fmt.Errorf("failed to unmarshal config data from %s: %w", path, err)
	}

	applyDefaults(&cfg)

	cfg.Providers.Covalent.APIKey = os.Getenv("COVALENT_API_KEY")
	cfg.Providers.Alchemy.APIKey = os.Getenv("ALCHEMY_API_KEY")

	logrus.Info("Configuration loaded successfully.")
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = ":8080"
	}
	if len(cfg.Chains) == 0 {
		cfg.Chains = []string{"ethereum", "polygon", "arbitrum", "base"}
		logrus.Infof("No chains configured, defaulting to %v", cfg.Chains)
	}

	if cfg.Providers.Covalent.BaseURL == "" {
		cfg.Providers.Covalent.BaseURL = "https://api.covalenthq.com"
	}
	if cfg.Providers.Covalent.RequestTimeoutMillis == 0 {
		cfg.Providers.Covalent.RequestTimeoutMillis = 10000
	}
	if cfg.Providers.Covalent.MaxConcurrentChains <= 0 {
		cfg.Providers.Covalent.MaxConcurrentChains = 4
	}
	if cfg.Providers.Alchemy.BaseURL == "" {
		cfg.Providers.Alchemy.BaseURL = "https://%s.g.alchemy.com/v2"
	}
	if cfg.Providers.Alchemy.RequestTimeoutMillis == 0 {
		cfg.Providers.Alchemy.RequestTimeoutMillis = 10000
	}
	if cfg.Providers.Alchemy.MaxConcurrentChains <= 0 {
		cfg.Providers.Alchemy.MaxConcurrentChains = 4
	}

	if cfg.Pricing.BaseURL == "" {
		cfg.Pricing.BaseURL = "https://api.dexscreener.com"
		logrus.Infof("Pricing.BaseURL not set, defaulting to %s", cfg.Pricing.BaseURL)
	}
	if cfg.Pricing.RequestTimeoutMillis == 0 {
		cfg.Pricing.RequestTimeoutMillis = 10000
	}
	if cfg.Pricing.MaxTokensPerBatchRequest == 0 {
		cfg.Pricing.MaxTokensPerBatchRequest = 30 // DEXScreener limit
		logrus.Infof("MaxTokensPerBatchRequest not set, defaulting to %d", cfg.Pricing.MaxTokensPerBatchRequest)
	}
	if cfg.Pricing.CacheTTLMinutes == 0 {
		cfg.Pricing.CacheTTLMinutes = 5
	}

	if cfg.Cache.TTLMinutes == 0 {
		cfg.Cache.TTLMinutes = 60 // responses cached for one hour
	}
	if cfg.Cache.CleanupIntervalMinutes == 0 {
		cfg.Cache.CleanupIntervalMinutes = 10
	}

	if cfg.RateLimit.RequestsPerMinute == 0 {
		cfg.RateLimit.RequestsPerMinute = 30
	}
	if cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = 5
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// CredentialFor returns the API key for a provider or a typed
// MissingCredentialError when it is absent.
func (p ProviderConfig) CredentialFor(provider, envVar string) (string, error) {
	if p.APIKey == "" {
		return "", &MissingCredentialError{Provider: provider, EnvVar: envVar}
	}
	return p.APIKey, nil
}
