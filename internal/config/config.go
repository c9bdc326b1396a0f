package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const devSessionKey = "super-secret-default-key"

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

type Config struct {
	Env           string
	Port          string
	DBDriver      string
	DatabaseURL   string
	SessionKey    string
	SecureCookies bool
	CorsOrigin    string
	StaticDir     string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	SendgridAPIKey string
	MailFrom       string
	MailFromName   string

	// Warnings collects non-fatal problems found while loading, logged by main
	// once the logger exists.
	Warnings []string
}

// Load reads an optional .env file and then the process environment.
func Load(envFiles ...string) (*Config, error) {
	var warnings []string
	if err := godotenv.Load(envFiles...); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file: %w", err)
		}
		warnings = append(warnings, "no .env file found, using process environment")
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("DATABASE_DRIVER", "sqlite")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("SESSION_KEY", "")
	v.SetDefault("SECURE_COOKIES", false)
	v.SetDefault("CORS_ORIGIN", "*")
	v.SetDefault("STATIC_DIR", "./static")
	v.SetDefault("MAIL_FROM", "hello@peripatos.example")
	v.SetDefault("MAIL_FROM_NAME", "Peripatos")

	cfg := &Config{
		Env:                strings.ToLower(v.GetString("APP_ENV")),
		Port:               v.GetString("PORT"),
		DBDriver:           strings.ToLower(v.GetString("DATABASE_DRIVER")),
		DatabaseURL:        v.GetString("DATABASE_URL"),
		SessionKey:         v.GetString("SESSION_KEY"),
		SecureCookies:      v.GetBool("SECURE_COOKIES"),
		CorsOrigin:         v.GetString("CORS_ORIGIN"),
		StaticDir:          v.GetString("STATIC_DIR"),
		GoogleClientID:     v.GetString("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: v.GetString("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  v.GetString("GOOGLE_REDIRECT_URL"),
		SendgridAPIKey:     v.GetString("SENDGRID_API_KEY"),
		MailFrom:           v.GetString("MAIL_FROM"),
		MailFromName:       v.GetString("MAIL_FROM_NAME"),
		Warnings:           warnings,
	}

	switch cfg.DBDriver {
	case DriverPostgres, DriverSQLite, DriverMemory:
	default:
		return nil, fmt.Errorf("unsupported DATABASE_DRIVER %q", cfg.DBDriver)
	}
	if cfg.DBDriver == DriverSQLite && cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "peripatos.db"
	}
	if cfg.DBDriver == DriverPostgres && cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "host=db user=postgres password=1234 dbname=peripatos port=5432 sslmode=disable"
	}

	if cfg.SessionKey == "" {
		if cfg.IsProduction() {
			return nil, errors.New("SESSION_KEY must be set in production")
		}
		cfg.SessionKey = devSessionKey
		cfg.Warnings = append(cfg.Warnings, "SESSION_KEY not set, using development default")
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "prod" || c.Env == "production"
}

// GoogleEnabled reports whether all three OAuth settings are present.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURL != ""
}
