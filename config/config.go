package config

import (
	"fmt"
	"strings"

	"github.com/n1207n/blog-post-api/internal/apperr"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	AppEnv             string
	AppPort            int
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string
	MigrationsPath     string
	MigrateOnStart     bool
	OIDCIssuerURL      string
	OIDCClientID       string
}

// LoadConfig loads configuration from environment variables.
// DatabaseURL is not validated here: a bad value must not keep the process
// from starting, see ValidateDatabaseURL.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("app_env", "development")
	v.SetDefault("app_port", 8080)
	v.SetDefault("database_url", "")
	v.SetDefault("redis_url", "")
	v.SetDefault("cors_allowed_origins", "http://localhost:3000,http://localhost:5173")
	v.SetDefault("migrations_path", "file://db/migration")
	v.SetDefault("migrate_on_start", false)
	v.SetDefault("oidc_issuer_url", "")
	v.SetDefault("oidc_client_id", "")

	cfg := &Config{
		AppEnv:             v.GetString("app_env"),
		AppPort:            v.GetInt("app_port"),
		DatabaseURL:        strings.TrimSpace(v.GetString("database_url")),
		RedisURL:           strings.TrimSpace(v.GetString("redis_url")),
		CORSAllowedOrigins: splitList(v.GetString("cors_allowed_origins")),
		MigrationsPath:     v.GetString("migrations_path"),
		MigrateOnStart:     v.GetBool("migrate_on_start"),
		OIDCIssuerURL:      strings.TrimSpace(v.GetString("oidc_issuer_url")),
		OIDCClientID:       strings.TrimSpace(v.GetString("oidc_client_id")),
	}

	if cfg.AppPort <= 0 || cfg.AppPort > 65535 {
		return nil, fmt.Errorf("invalid APP_PORT: %q", v.GetString("app_port"))
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		return nil, fmt.Errorf("CORS_ALLOWED_ORIGINS must list at least one origin")
	}
	for _, origin := range cfg.CORSAllowedOrigins {
		if !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return nil, fmt.Errorf("invalid CORS origin %q: must start with http:// or https://", origin)
		}
	}
	if cfg.OIDCIssuerURL != "" && cfg.OIDCClientID == "" {
		return nil, fmt.Errorf("OIDC_CLIENT_ID is required when OIDC_ISSUER_URL is set")
	}

	return cfg, nil
}

// ValidateDatabaseURL reports whether the configured connection string is usable.
func (c *Config) ValidateDatabaseURL() error {
	return ValidateDatabaseURL(c.DatabaseURL)
}

// ValidateDatabaseURL checks presence and the postgres scheme prefix.
func ValidateDatabaseURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return apperr.ErrMissingDatabaseURL
	}
	if !strings.HasPrefix(raw, "postgres://") && !strings.HasPrefix(raw, "postgresql://") {
		return fmt.Errorf("%w: expected a postgres:// or postgresql:// url", apperr.ErrInvalidDatabaseURL)
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
