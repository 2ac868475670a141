package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

type Config struct {
	Port               string        `mapstructure:"PORT"`
	Env                string        `mapstructure:"ENV"`
	AuthMode           string        `mapstructure:"AUTH_MODE"`
	DatabaseURL        string        `mapstructure:"DATABASE_URL"`
	DBMaxConns         int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns         int32         `mapstructure:"DB_MIN_CONNS"`
	RedisURL           string        `mapstructure:"REDIS_URL"`
	AuthIssuer         string        `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL        string        `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience       string        `mapstructure:"AUTH_AUDIENCE"`
	AuthSigningKey     string        `mapstructure:"AUTH_SIGNING_KEY"`
	CORSOrigins        []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS       float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst     int           `mapstructure:"RATE_LIMIT_BURST"`
	RateLimitWindow    time.Duration `mapstructure:"RATE_LIMIT_WINDOW"`
	RequestTimeout     time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	DefaultClinicID    string        `mapstructure:"DEFAULT_CLINIC_ID"`
	DefaultClinicName  string        `mapstructure:"DEFAULT_CLINIC_NAME"`
	ClinicOpensAt      string        `mapstructure:"CLINIC_OPENS_AT"`
	ClinicClosesAt     string        `mapstructure:"CLINIC_CLOSES_AT"`
	SlotMinutes        int           `mapstructure:"SLOT_MINUTES"`
	KafkaBrokers       string        `mapstructure:"KAFKA_BROKERS"`
	OutboxPollInterval time.Duration `mapstructure:"OUTBOX_POLL_INTERVAL"`
	OutboxBatchSize    int           `mapstructure:"OUTBOX_BATCH_SIZE"`
	OTelEnabled        bool          `mapstructure:"OTEL_ENABLED"`
	OTelEndpoint       string        `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelSampleRatio    float64       `mapstructure:"OTEL_SAMPLING_RATIO"`
	TLSEnabled         bool          `mapstructure:"TLS_ENABLED"`
	TLSCertFile        string        `mapstructure:"TLS_CERT_FILE"`
	TLSKeyFile         string        `mapstructure:"TLS_KEY_FILE"`
}

var keys = []string{
	"PORT", "ENV", "AUTH_MODE", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"REDIS_URL", "AUTH_ISSUER", "AUTH_JWKS_URL", "AUTH_AUDIENCE", "AUTH_SIGNING_KEY",
	"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "RATE_LIMIT_WINDOW",
	"REQUEST_TIMEOUT", "DEFAULT_CLINIC_ID", "DEFAULT_CLINIC_NAME",
	"CLINIC_OPENS_AT", "CLINIC_CLOSES_AT", "SLOT_MINUTES",
	"KAFKA_BROKERS", "OUTBOX_POLL_INTERVAL", "OUTBOX_BATCH_SIZE",
	"OTEL_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_SAMPLING_RATIO",
	"TLS_ENABLED", "TLS_CERT_FILE", "TLS_KEY_FILE",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("AUTH_MODE", "") // "" -> inferred from ENV
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("RATE_LIMIT_WINDOW", "1m")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("DEFAULT_CLINIC_NAME", "OPD")
	v.SetDefault("CLINIC_OPENS_AT", "08:00")
	v.SetDefault("CLINIC_CLOSES_AT", "17:00")
	v.SetDefault("SLOT_MINUTES", 60)
	v.SetDefault("OUTBOX_POLL_INTERVAL", "2s")
	v.SetDefault("OUTBOX_BATCH_SIZE", 50)
	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	v.SetDefault("OTEL_SAMPLING_RATIO", 1.0)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if origins := v.GetString("CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = splitList(origins)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ResolvedAuthMode returns AUTH_MODE when set. Otherwise development
// environments run without token checks and everything else requires JWTs.
func (c *Config) ResolvedAuthMode() string {
	if c.AuthMode != "" {
		return c.AuthMode
	}
	if c.IsDev() {
		return "development"
	}
	return "jwt"
}

// Brokers returns the configured Kafka brokers. Empty disables event
// publishing.
func (c *Config) Brokers() []string {
	return splitList(c.KafkaBrokers)
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	switch mode := c.ResolvedAuthMode(); mode {
	case "development":
		if c.IsProduction() {
			return fmt.Errorf("AUTH_MODE \"development\" is not allowed when ENV=production")
		}
	case "jwt":
		if c.AuthSigningKey == "" && c.AuthJWKSURL == "" {
			return fmt.Errorf("AUTH_SIGNING_KEY or AUTH_JWKS_URL must be set when AUTH_MODE is \"jwt\" (current ENV=%q)", c.Env)
		}
	default:
		return fmt.Errorf("AUTH_MODE must be \"development\" or \"jwt\", got %q", mode)
	}

	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}

	if c.DefaultClinicID != "" {
		if _, err := uuid.Parse(c.DefaultClinicID); err != nil {
			return fmt.Errorf("DEFAULT_CLINIC_ID is not a valid UUID: %w", err)
		}
	}

	opens, err := time.Parse("15:04", c.ClinicOpensAt)
	if err != nil {
		return fmt.Errorf("CLINIC_OPENS_AT must be HH:MM: %w", err)
	}
	closes, err := time.Parse("15:04", c.ClinicClosesAt)
	if err != nil {
		return fmt.Errorf("CLINIC_CLOSES_AT must be HH:MM: %w", err)
	}
	if !opens.Before(closes) {
		return fmt.Errorf("CLINIC_OPENS_AT (%s) must be before CLINIC_CLOSES_AT (%s)", c.ClinicOpensAt, c.ClinicClosesAt)
	}
	if c.SlotMinutes <= 0 || c.SlotMinutes > int(closes.Sub(opens).Minutes()) {
		return fmt.Errorf("SLOT_MINUTES must be between 1 and the length of the operating window, got %d", c.SlotMinutes)
	}

	if c.OTelSampleRatio < 0 || c.OTelSampleRatio > 1 {
		return fmt.Errorf("OTEL_SAMPLING_RATIO must be within [0, 1], got %v", c.OTelSampleRatio)
	}

	// TLS validation: when TLS is enabled, cert and key files must be specified.
	if c.TLSEnabled {
		if c.TLSCertFile == "" {
			return fmt.Errorf("TLS_CERT_FILE is required when TLS_ENABLED is true")
		}
		if c.TLSKeyFile == "" {
			return fmt.Errorf("TLS_KEY_FILE is required when TLS_ENABLED is true")
		}
	}

	return nil
}
