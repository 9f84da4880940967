package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/domain"
	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/service"
	"github.com/trungleviet-agilityio/backend-training-sub002/internal/notify"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/jwtx"
)

type Config struct {
	Issuer         string        // Optional: issuer claim for tokens (default: postauth)
	Audience       []string      // Optional: comma separated audience values
	Algorithm      string        // Optional: JWT signing algorithm (EdDSA, ES256) (default: EdDSA)
	SigningKeyFile string        // Optional: PKCS8 PEM signing key, created if missing; empty means ephemeral
	AccessTTL      time.Duration // Optional: access token lifetime (default: 15m)
	RefreshTTL     time.Duration // Optional: session / refresh token lifetime (default: 7d)
	ResetTTL       time.Duration // Optional: password reset token lifetime (default: 30m)
	ReuseGrace     time.Duration // Optional: window in which a replayed refresh token is a lost race (default: 10s)
	ClockSkew      time.Duration // Optional: leeway on access token exp/nbf checks (default: 0)
	DatabaseFile   string        // Optional: path to SQLite database file (default: ./postauth.db)
	PepperFile     string        // Optional: path to file containing pepper for password hashing (default: ./pepper)

	// Optional: admin principal created on startup when the username is free.
	BootstrapUsername string
	BootstrapEmail    string
	BootstrapPassword string

	NotifyProvider string        // Optional: console or smtp (default: console)
	NotifyFrom     string        // Optional: sender address (default: no-reply@localhost)
	NotifyWorkers  int           // Optional: concurrent deliveries (default: 4)
	NotifyTimeout  time.Duration // Optional: bounded wait per delivery (default: 5s)
	SMTPHost       string
	SMTPPort       int
	SMTPUsername   string
	SMTPPassword   string
	SMTPTLSMode    string // auto, starttls, ssl, none (default: auto)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
	SessionRetention     time.Duration // How long expired sessions stay before soft delete (default: 30d)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:         getEnvOrDefault("AUTH_ISSUER", "postauth"),
		Audience:       splitList(os.Getenv("AUTH_AUDIENCE")),
		Algorithm:      getEnvOrDefault("AUTH_ALGORITHM", string(jwtx.AlgorithmEdDSA)),
		SigningKeyFile: os.Getenv("AUTH_SIGNING_KEY_FILE"),
		AccessTTL:      getEnvDurationOrDefault("AUTH_ACCESS_TTL", jwtx.DefaultAccessTokenTTL),
		RefreshTTL:     getEnvDurationOrDefault("AUTH_REFRESH_TTL", jwtx.DefaultRefreshTokenTTL),
		ResetTTL:       getEnvDurationOrDefault("AUTH_RESET_TTL", service.DefaultResetTTL),
		ReuseGrace:     getEnvDurationOrDefault("AUTH_REUSE_GRACE", service.DefaultReuseGrace),
		ClockSkew:      getEnvDurationOrDefault("AUTH_CLOCK_SKEW", 0),
		DatabaseFile:   getEnvOrDefault("AUTH_DATABASE_FILE", "postauth.db"),
		PepperFile:     getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),

		BootstrapUsername: os.Getenv("AUTH_BOOTSTRAP_USERNAME"),
		BootstrapEmail:    os.Getenv("AUTH_BOOTSTRAP_EMAIL"),
		BootstrapPassword: os.Getenv("AUTH_BOOTSTRAP_PASSWORD"),

		NotifyProvider: getEnvOrDefault("NOTIFY_PROVIDER", notify.KindConsole.String()),
		NotifyFrom:     getEnvOrDefault("NOTIFY_FROM", "no-reply@localhost"),
		NotifyWorkers:  getEnvIntOrDefault("NOTIFY_WORKERS", 4),
		NotifyTimeout:  getEnvDurationOrDefault("NOTIFY_TIMEOUT", 5*time.Second),
		SMTPHost:       os.Getenv("SMTP_HOST"),
		SMTPPort:       getEnvIntOrDefault("SMTP_PORT", 587),
		SMTPUsername:   os.Getenv("SMTP_USERNAME"),
		SMTPPassword:   os.Getenv("SMTP_PASSWORD"),
		SMTPTLSMode:    getEnvOrDefault("SMTP_TLS_MODE", notify.TLSModeAuto),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
		SessionRetention:     getEnvDurationOrDefault("SESSION_RETENTION", service.DefaultSessionRetention),
	}

	return cfg
}

// Validate fails fast on settings the service cannot start with.
func (c Config) Validate() error {
	var errs []error

	if _, err := jwtx.ParseAlgorithm(c.Algorithm); err != nil {
		errs = append(errs, err)
	}

	kind, err := notify.ParseKind(c.NotifyProvider)
	if err != nil {
		errs = append(errs, err)
	} else if kind == notify.KindSMTP {
		if err := c.smtpConfig().Validate(); err != nil {
			errs = append(errs, err)
		}
	}

	for name, d := range map[string]time.Duration{
		"AUTH_ACCESS_TTL":       c.AccessTTL,
		"AUTH_REFRESH_TTL":      c.RefreshTTL,
		"AUTH_RESET_TTL":        c.ResetTTL,
		"NOTIFY_TIMEOUT":        c.NotifyTimeout,
		"HOUSEKEEPING_INTERVAL": c.HousekeepingInterval,
		"SESSION_RETENTION":     c.SessionRetention,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}
	if c.AccessTTL >= c.RefreshTTL {
		errs = append(errs, fmt.Errorf("AUTH_ACCESS_TTL (%s) must be shorter than AUTH_REFRESH_TTL (%s)", c.AccessTTL, c.RefreshTTL))
	}
	if c.ReuseGrace < 0 {
		errs = append(errs, fmt.Errorf("AUTH_REUSE_GRACE must not be negative, got %s", c.ReuseGrace))
	}
	if c.ClockSkew < 0 || c.ClockSkew >= c.AccessTTL {
		errs = append(errs, fmt.Errorf("AUTH_CLOCK_SKEW must be in [0, AUTH_ACCESS_TTL), got %s", c.ClockSkew))
	}
	if c.NotifyWorkers <= 0 {
		errs = append(errs, fmt.Errorf("NOTIFY_WORKERS must be positive, got %d", c.NotifyWorkers))
	}
	if c.BootstrapUsername != "" || c.BootstrapEmail != "" || c.BootstrapPassword != "" {
		if err := c.bootstrapAdmin().Normalize().Validate(); err != nil {
			errs = append(errs, fmt.Errorf("AUTH_BOOTSTRAP_*: %w", err))
		}
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}

	return errors.Join(errs...)
}

// bootstrapAdmin is the principal requested by AUTH_BOOTSTRAP_*, if any.
func (c Config) bootstrapAdmin() service.Registration {
	return service.Registration{
		Username: c.BootstrapUsername,
		Email:    c.BootstrapEmail,
		Password: c.BootstrapPassword,
		Role:     domain.RoleAdmin,
	}
}

func (c Config) notifyOptions() notify.Options {
	return notify.Options{From: c.NotifyFrom, SMTP: c.smtpConfig()}
}

func (c Config) smtpConfig() notify.SMTPConfig {
	return notify.SMTPConfig{
		Host:     c.SMTPHost,
		Port:     c.SMTPPort,
		Username: c.SMTPUsername,
		Password: c.SMTPPassword,
		From:     c.NotifyFrom,
		TLSMode:  c.SMTPTLSMode,
		Timeout:  c.NotifyTimeout,
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
