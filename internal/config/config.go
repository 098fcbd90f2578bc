package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `json:"server"`
	Provider  ProviderConfig  `json:"provider"`
	Admin     AdminConfig     `json:"admin"`
	Site      SiteConfig      `json:"site"`
	Security  SecurityConfig  `json:"security"`
	RateLimit RateLimitConfig `json:"rate_limit"`
	Cooldown  CooldownConfig  `json:"cooldown"`
	Archive   ArchiveConfig   `json:"archive"`
	Redis     RedisConfig     `json:"redis"`
	Tracing   TracingConfig   `json:"tracing"`
	Events    EventsConfig    `json:"events"`
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port string `json:"port"`
	Host string `json:"host"`
}

// ProviderConfig holds upstream airtime API configuration.
type ProviderConfig struct {
	BaseURL string `json:"base_url"`
	// APIKey may be empty; claims then fail per-request with an internal
	// error instead of refusing to boot.
	APIKey string `json:"api_key"`
}

// AdminConfig holds the privileged-channel credentials.
type AdminConfig struct {
	// Phone is the designated bypass number, exempt from admission checks.
	Phone string `json:"phone"`
	// PIN is the shared secret re-checked on every admin call.
	PIN string `json:"pin"`
}

// SiteConfig holds the ledger's initial policy state.
type SiteConfig struct {
	Online     bool `json:"online"`
	ClaimLimit int  `json:"claim_limit"`
}

// SecurityConfig holds security-related configuration.
type SecurityConfig struct {
	MaxRequestBodySize int64  `json:"max_request_body_size"`
	AllowedOrigins     string `json:"allowed_origins"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	Enabled bool `json:"enabled"`
	Rate    int  `json:"rate"`
	Window  int  `json:"window"` // in seconds
}

// CooldownConfig holds the per-phone claim cooldown configuration.
type CooldownConfig struct {
	Enabled bool `json:"enabled"`
	Seconds int  `json:"seconds"`
}

// ArchiveConfig holds the sqlite audit sink configuration.
type ArchiveConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// RedisConfig holds the optional cooldown cache backend.
type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// TracingConfig holds tracing configuration.
type TracingConfig struct {
	Enabled     bool   `json:"enabled"`
	Endpoint    string `json:"endpoint"`
	Environment string `json:"environment"`
}

// EventsConfig holds event hook configuration.
type EventsConfig struct {
	Enabled bool `json:"enabled"`
}

// LoadConfig loads configuration from environment variables and/or config
// file. Environment variables take precedence over config file values.
func LoadConfig(configFile string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", ""),
		},
		Provider: ProviderConfig{
			BaseURL: getEnv("PROVIDER_BASE_URL", "https://api.airtimenigeria.com/v1"),
			APIKey:  getEnv("PROVIDER_API_KEY", ""),
		},
		Admin: AdminConfig{
			Phone: getEnv("ADMIN_PHONE", ""),
			PIN:   getEnv("ADMIN_PIN", ""),
		},
		Site: SiteConfig{
			Online:     getEnvBool("SITE_ONLINE", true),
			ClaimLimit: getEnvInt("CLAIM_LIMIT", 100),
		},
		Security: SecurityConfig{
			MaxRequestBodySize: getEnvInt64("MAX_REQUEST_BODY_SIZE", 1<<20), // 1MB default
			AllowedOrigins:     getEnv("ALLOWED_ORIGINS", "*"),
		},
		RateLimit: RateLimitConfig{
			Enabled: getEnvBool("RATE_LIMIT_ENABLED", true),
			Rate:    getEnvInt("RATE_LIMIT_RATE", 100),
			Window:  getEnvInt("RATE_LIMIT_WINDOW", 60),
		},
		Cooldown: CooldownConfig{
			Enabled: getEnvBool("COOLDOWN_ENABLED", false),
			Seconds: getEnvInt("COOLDOWN_SECONDS", 0),
		},
		Archive: ArchiveConfig{
			Enabled: getEnvBool("ARCHIVE_ENABLED", false),
			Path:    getEnv("ARCHIVE_PATH", "./transactions_archive.db"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvBool("TRACING_ENABLED", false),
			Endpoint:    getEnv("TRACING_ENDPOINT", "http://localhost:14268/api/traces"),
			Environment: getEnv("TRACING_ENVIRONMENT", "development"),
		},
		Events: EventsConfig{
			Enabled: getEnvBool("EVENT_HOOKS_ENABLED", true),
		},
	}

	// Load from config file if provided
	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
		// Environment variables take precedence
		overrideFromEnv(cfg)
	}

	return cfg, nil
}

// loadFromFile loads configuration from a JSON file.
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, cfg)
}

// overrideFromEnv overrides configuration with environment variables.
func overrideFromEnv(cfg *Config) {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Server.Port = port
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if url := os.Getenv("PROVIDER_BASE_URL"); url != "" {
		cfg.Provider.BaseURL = url
	}
	if key := os.Getenv("PROVIDER_API_KEY"); key != "" {
		cfg.Provider.APIKey = key
	}
	if phone := os.Getenv("ADMIN_PHONE"); phone != "" {
		cfg.Admin.Phone = phone
	}
	if pin := os.Getenv("ADMIN_PIN"); pin != "" {
		cfg.Admin.PIN = pin
	}
	if online := os.Getenv("SITE_ONLINE"); online != "" {
		cfg.Site.Online = online == "true" || online == "1"
	}
	if limit := os.Getenv("CLAIM_LIMIT"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			cfg.Site.ClaimLimit = n
		}
	}
	if maxBodySize := os.Getenv("MAX_REQUEST_BODY_SIZE"); maxBodySize != "" {
		if size, err := strconv.ParseInt(maxBodySize, 10, 64); err == nil {
			cfg.Security.MaxRequestBodySize = size
		}
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.Security.AllowedOrigins = origins
	}
	if enabled := os.Getenv("RATE_LIMIT_ENABLED"); enabled != "" {
		cfg.RateLimit.Enabled = enabled == "true" || enabled == "1"
	}
	if rate := os.Getenv("RATE_LIMIT_RATE"); rate != "" {
		if r, err := strconv.Atoi(rate); err == nil {
			cfg.RateLimit.Rate = r
		}
	}
	if window := os.Getenv("RATE_LIMIT_WINDOW"); window != "" {
		if w, err := strconv.Atoi(window); err == nil {
			cfg.RateLimit.Window = w
		}
	}
	if enabled := os.Getenv("COOLDOWN_ENABLED"); enabled != "" {
		cfg.Cooldown.Enabled = enabled == "true" || enabled == "1"
	}
	if secs := os.Getenv("COOLDOWN_SECONDS"); secs != "" {
		if s, err := strconv.Atoi(secs); err == nil {
			cfg.Cooldown.Seconds = s
		}
	}
	if enabled := os.Getenv("ARCHIVE_ENABLED"); enabled != "" {
		cfg.Archive.Enabled = enabled == "true" || enabled == "1"
	}
	if path := os.Getenv("ARCHIVE_PATH"); path != "" {
		cfg.Archive.Path = path
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if pw := os.Getenv("REDIS_PASSWORD"); pw != "" {
		cfg.Redis.Password = pw
	}
	if db := os.Getenv("REDIS_DB"); db != "" {
		if d, err := strconv.Atoi(db); err == nil {
			cfg.Redis.DB = d
		}
	}
	if enabled := os.Getenv("TRACING_ENABLED"); enabled != "" {
		cfg.Tracing.Enabled = enabled == "true" || enabled == "1"
	}
	if endpoint := os.Getenv("TRACING_ENDPOINT"); endpoint != "" {
		cfg.Tracing.Endpoint = endpoint
	}
	if env := os.Getenv("TRACING_ENVIRONMENT"); env != "" {
		cfg.Tracing.Environment = env
	}
	if enabled := os.Getenv("EVENT_HOOKS_ENABLED"); enabled != "" {
		cfg.Events.Enabled = enabled == "true" || enabled == "1"
	}
}

// getEnv gets an environment variable or returns the default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable or returns the default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable or returns the default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvInt64 gets an int64 environment variable or returns the default value.
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Provider.BaseURL == "" {
		return fmt.Errorf("provider base URL is required")
	}
	if c.Admin.PIN == "" {
		return fmt.Errorf("admin PIN is required")
	}
	if c.Site.ClaimLimit < 0 {
		return fmt.Errorf("claim limit must be non-negative")
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.Rate <= 0 {
			return fmt.Errorf("rate limit rate must be positive")
		}
		if c.RateLimit.Window <= 0 {
			return fmt.Errorf("rate limit window must be positive")
		}
	}
	if c.Cooldown.Enabled && c.Cooldown.Seconds <= 0 {
		return fmt.Errorf("cooldown seconds must be positive when cooldown is enabled")
	}
	if c.Archive.Enabled && c.Archive.Path == "" {
		return fmt.Errorf("archive path is required when the archive is enabled")
	}
	return nil
}
