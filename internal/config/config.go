package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"

	pkgcfg "github.com/Skotchmaster/accounts/pkg/config"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
	EnvTest        = "test"
)

type JWT struct {
	Secret           []byte
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	ResetPasswordTTL time.Duration
	VerifyEmailTTL   time.Duration
}

type SMTP struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type Kafka struct {
	Brokers []string
	Topic   string
}

type Search struct {
	URL      string
	Username string
	Password string
	Index    string
}

type RateLimit struct {
	Rate  float64
	Burst int
}

// Config is built once by Load and only read afterwards.
type Config struct {
	Env           string
	Port          string
	DBDriver      string
	DatabaseURL   string
	AppURL        string
	LogLevel      string
	PurgeInterval time.Duration

	JWT       JWT
	SMTP      SMTP
	Kafka     Kafka
	Search    Search
	RateLimit RateLimit
}

func (c *Config) IsProduction() bool { return c.Env == EnvProduction }

func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		slog.Debug("no .env file, using process environment", "error", err)
	}

	cfg := &Config{
		Env:           pkgcfg.EnvDefault("APP_ENV", EnvDevelopment),
		Port:          pkgcfg.EnvDefault("SERVER_PORT", "8080"),
		DBDriver:      pkgcfg.EnvDefault("DB_DRIVER", "postgres"),
		DatabaseURL:   pkgcfg.EnvDefault("DATABASE_URL", ""),
		AppURL:        pkgcfg.EnvDefault("APP_URL", "http://localhost:8080"),
		LogLevel:      pkgcfg.EnvDefault("LOG_LEVEL", "info"),
		PurgeInterval: pkgcfg.EnvDurationDefault("TOKEN_PURGE_INTERVAL", 0, time.Minute),
		JWT: JWT{
			Secret:           []byte(pkgcfg.EnvDefault("JWT_SECRET", "")),
			AccessTTL:        pkgcfg.EnvDurationDefault("JWT_ACCESS_EXPIRATION_MINUTES", 30, time.Minute),
			RefreshTTL:       pkgcfg.EnvDurationDefault("JWT_REFRESH_EXPIRATION_DAYS", 30, 24*time.Hour),
			ResetPasswordTTL: pkgcfg.EnvDurationDefault("JWT_RESET_PASSWORD_EXPIRATION_MINUTES", 10, time.Minute),
			VerifyEmailTTL:   pkgcfg.EnvDurationDefault("JWT_VERIFY_EMAIL_EXPIRATION_MINUTES", 10, time.Minute),
		},
		SMTP: SMTP{
			Host:     pkgcfg.EnvDefault("SMTP_HOST", ""),
			Port:     pkgcfg.EnvIntDefault("SMTP_PORT", 587),
			Username: pkgcfg.EnvDefault("SMTP_USERNAME", ""),
			Password: pkgcfg.EnvDefault("SMTP_PASSWORD", ""),
			From:     pkgcfg.EnvDefault("EMAIL_FROM", "noreply@example.com"),
		},
		Kafka: Kafka{
			Brokers: pkgcfg.CSV(pkgcfg.EnvDefault("KAFKA_BROKERS", "")),
			Topic:   pkgcfg.EnvDefault("KAFKA_TOPIC", "user_events"),
		},
		Search: Search{
			URL:      pkgcfg.EnvDefault("ES_URL", ""),
			Username: pkgcfg.EnvDefault("ES_USERNAME", ""),
			Password: pkgcfg.EnvDefault("ES_PASSWORD", ""),
			Index:    pkgcfg.EnvDefault("ES_INDEX", "users"),
		},
		RateLimit: RateLimit{
			Rate:  pkgcfg.EnvFloatDefault("AUTH_RATE_LIMIT", 5),
			Burst: pkgcfg.EnvIntDefault("AUTH_RATE_BURST", 20),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var m pkgcfg.Missing
	m.NonEmpty(c.DatabaseURL, "DATABASE_URL")
	m.NonEmptyBytes(c.JWT.Secret, "JWT_SECRET")
	if err := m.Err(); err != nil {
		return err
	}

	switch c.Env {
	case EnvProduction, EnvDevelopment, EnvTest:
	default:
		return fmt.Errorf("APP_ENV must be one of production, development, test, got %q", c.Env)
	}
	// Without SMTP the links, tokens included, only reach the log.
	if c.IsProduction() && c.SMTP.Host == "" {
		return fmt.Errorf("SMTP_HOST is required when APP_ENV=production")
	}
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.DBDriver)
	}
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 || c.JWT.ResetPasswordTTL <= 0 || c.JWT.VerifyEmailTTL <= 0 {
		return fmt.Errorf("token expirations must be positive")
	}
	return nil
}
