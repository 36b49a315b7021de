package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds every runtime setting of the API. Values come from the
// optional YAML file named by CONFIG_FILE, then from the environment
// (environment wins).
type Config struct {
	Port         string   `yaml:"port"`
	DatabaseURL  string   `yaml:"database_url"`
	JWTSecret    string   `yaml:"jwt_secret"`
	FrontendURL  string   `yaml:"frontend_url"`
	ExtraOrigins []string `yaml:"extra_origins"`

	RateLimit       int           `yaml:"rate_limit"`
	RateLimitWindow time.Duration `yaml:"rate_limit_window"`

	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	AnthropicModel  string `yaml:"anthropic_model"`
	ResendAPIKey    string `yaml:"resend_api_key"`
	FromEmail       string `yaml:"from_email"`

	DataEncryptionKey string `yaml:"data_encryption_key"`

	ReportRetentionDays int    `yaml:"report_retention_days"`
	JobCleanupCron      string `yaml:"job_cleanup_cron"`
}

// Default returns the settings used when nothing is configured.
func Default() *Config {
	return &Config{
		Port:            "8080",
		FrontendURL:     "http://localhost:3000",
		RateLimit:       100,
		RateLimitWindow: time.Minute,
		AnthropicModel:  "claude-3-5-sonnet-latest",
		FromEmail:       "noreply@example.com",
		JobCleanupCron:  "0 3 * * *",
	}
}

// Load reads .env (if present), the optional YAML overlay and the
// environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Port, "PORT")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.JWTSecret, "JWT_SECRET")
	setString(&c.FrontendURL, "FRONTEND_URL")
	setString(&c.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	setString(&c.AnthropicModel, "ANTHROPIC_MODEL")
	setString(&c.ResendAPIKey, "RESEND_API_KEY")
	setString(&c.FromEmail, "FROM_EMAIL")
	setString(&c.DataEncryptionKey, "DATA_ENCRYPTION_KEY")
	setString(&c.JobCleanupCron, "JOB_CLEANUP_CRON")

	if v := os.Getenv("CORS_EXTRA_ORIGINS"); v != "" {
		c.ExtraOrigins = nil
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				c.ExtraOrigins = append(c.ExtraOrigins, origin)
			}
		}
	}

	if err := setInt(&c.RateLimit, "RATE_LIMIT"); err != nil {
		return err
	}
	if err := setInt(&c.ReportRetentionDays, "REPORT_RETENTION_DAYS"); err != nil {
		return err
	}
	if v := os.Getenv("RATE_LIMIT_WINDOW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_WINDOW: %w", err)
		}
		c.RateLimitWindow = d
	}
	return nil
}

// Validate reports settings the server cannot start without.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is required")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	if c.DataEncryptionKey != "" && len(c.DataEncryptionKey) != 32 {
		return fmt.Errorf("DATA_ENCRYPTION_KEY must be exactly 32 characters")
	}
	if c.RateLimit <= 0 || c.RateLimitWindow <= 0 {
		return fmt.Errorf("rate limit and window must be positive")
	}
	return nil
}

// AllowedOrigins is the CORS allow-list.
func (c *Config) AllowedOrigins() []string {
	origins := []string{c.FrontendURL}
	for _, o := range c.ExtraOrigins {
		if o != c.FrontendURL {
			origins = append(origins, o)
		}
	}
	return origins
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}
