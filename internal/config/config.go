// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config captures all service configuration, loaded from environment
// variables (prefix INDEXNOW) and an optional config file.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	DB        DBConfig        `mapstructure:"db"`
	Payment   PaymentConfig   `mapstructure:"payment"`
	Indexing  IndexingConfig  `mapstructure:"indexing"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port        int      `mapstructure:"port"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// AuthConfig holds JWT and admin bootstrap settings.
type AuthConfig struct {
	JWTSecret     string `mapstructure:"jwt_secret"`
	AdminEmail    string `mapstructure:"admin_email"`
	AdminPassword string `mapstructure:"admin_password"`
}

// DBConfig controls access to PostgreSQL.
type DBConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// PaymentConfig holds payment gateway credentials.
type PaymentConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	ServerKey     string `mapstructure:"server_key"`
	EncryptionKey string `mapstructure:"encryption_key"` // 32 bytes, card tokens at rest
}

// IndexingConfig configures the external URL-indexing API client.
type IndexingConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	BatchSize      int    `mapstructure:"batch_size"`
}

// SchedulerConfig holds cron expressions for the background jobs.
type SchedulerConfig struct {
	RenewalSchedule    string `mapstructure:"renewal_schedule"`
	QuotaResetSchedule string `mapstructure:"quota_reset_schedule"`
}

// LoggingConfig toggles zap development features and dev-mode error detail.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("INDEXNOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Empty defaults register the keys so AutomaticEnv can fill them.
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.admin_password", "")
	v.SetDefault("db.url", "")
	v.SetDefault("payment.server_key", "")
	v.SetDefault("payment.encryption_key", "")
	v.SetDefault("indexing.api_key", "")

	v.SetDefault("server.port", 4001)
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("db.max_conns", 10)
	v.SetDefault("db.min_conns", 2)
	v.SetDefault("payment.base_url", "https://api.sandbox.midtrans.com")
	v.SetDefault("indexing.endpoint", "https://indexing.googleapis.com/v3/urlNotifications:publish")
	v.SetDefault("indexing.timeout_seconds", 30)
	v.SetDefault("indexing.batch_size", 100)
	v.SetDefault("scheduler.renewal_schedule", "0 * * * *")     // hourly
	v.SetDefault("scheduler.quota_reset_schedule", "5 0 * * *") // daily at 00:05
	v.SetDefault("logging.development", false)
	v.SetDefault("auth.admin_email", "admin@indexnow.studio")
}

// Validate checks that required settings are present and consistent.
func (c Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.DB.URL == "" {
		return fmt.Errorf("db.url is required")
	}
	if c.Payment.ServerKey == "" {
		return fmt.Errorf("payment.server_key is required")
	}
	if len(c.Payment.EncryptionKey) != 32 {
		return fmt.Errorf("payment.encryption_key must be exactly 32 bytes, got %d", len(c.Payment.EncryptionKey))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	return nil
}
