// Package config loads service settings from environment variables and
// holds the community game-balance parameters injected into the engines.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config contains the runtime settings of the service (infrastructure only —
// game-balance parameters live in CommunityConfig below).
type Config struct {
	// --- HTTP ---
	ListenAddr     string `envconfig:"LISTEN_ADDR" default:":5300"`
	AllowedOrigins string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`

	// --- Gateway auth ---
	ServiceToken string `envconfig:"COMMUNITY_SERVICE_TOKEN" required:"true"`

	// --- Database ---
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`

	// --- Background jobs ---
	ResolveSweepInterval  time.Duration `envconfig:"RESOLVE_SWEEP_INTERVAL" default:"1m"`
	ArchiveExportInterval time.Duration `envconfig:"ARCHIVE_EXPORT_INTERVAL" default:"10m"`

	// --- R2 archive export (optional; export worker is skipped when unset) ---
	R2AccountID       string `envconfig:"CLOUDFLARE_ACCOUNT_ID"`
	R2AccessKeyID     string `envconfig:"R2_ACCESS_KEY_ID"`
	R2AccessKeySecret string `envconfig:"R2_ACCESS_KEY_SECRET"`
	R2Bucket          string `envconfig:"R2_BUCKET_NAME"`
}

func (c *Config) Validate() error {
	if c.ResolveSweepInterval <= 0 {
		return fmt.Errorf("RESOLVE_SWEEP_INTERVAL must be > 0")
	}
	if c.ArchiveExportInterval <= 0 {
		return fmt.Errorf("ARCHIVE_EXPORT_INTERVAL must be > 0")
	}
	return nil
}

// R2Enabled reports whether archive export to R2 is configured.
func (c *Config) R2Enabled() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2AccessKeySecret != "" && c.R2Bucket != ""
}

// Load reads environment variables into a Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
