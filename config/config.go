// config/config.go
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config is the full runtime configuration of the CozzyHub service.
type Config struct {
	Port           string
	DatabaseURL    string
	SiteURL        string
	AllowedOrigins []string

	JWTSecret string
	JWTTTL    time.Duration

	SMTP SMTPConfig
	R2   R2Config

	RedisURL  string
	RateLimit string

	// ImportAPIKey gates POST /api/products/import when set. Empty keeps the
	// endpoint open, which is the current deployed behavior.
	ImportAPIKey string

	LowStockThreshold int

	Log LogConfig
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Enabled reports whether outbound mail can be sent at all.
func (s SMTPConfig) Enabled() bool {
	return s.Host != "" && s.From != ""
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	CDNBaseURL      string
}

func (r R2Config) Enabled() bool {
	return r.AccountID != "" && r.Bucket != ""
}

// LogConfig configures logging behavior
type LogConfig struct {
	Level  string
	Format string
}

// ConfigureZerolog configures the global zerolog logger.
func (c LogConfig) ConfigureZerolog() {
	level := zerolog.InfoLevel
	switch strings.ToLower(c.Level) {
	case "trace":
		level = zerolog.TraceLevel
	case "debug":
		level = zerolog.DebugLevel
	case "warn", "warning":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}
	zerolog.SetGlobalLevel(level)

	if strings.ToLower(c.Format) == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, reading environment variables directly")
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("PORT", "5200")
	v.SetDefault("SITE_URL", "http://localhost:3000")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("RATE_LIMIT", "20-M")
	v.SetDefault("LOW_STOCK_THRESHOLD", 5)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	cfg := &Config{
		Port:           v.GetString("PORT"),
		DatabaseURL:    v.GetString("DATABASE_URL"),
		SiteURL:        strings.TrimRight(v.GetString("SITE_URL"), "/"),
		AllowedOrigins: splitList(v.GetString("ALLOWED_ORIGINS")),
		JWTSecret:      v.GetString("JWT_SECRET"),
		JWTTTL:         v.GetDuration("JWT_TTL"),
		SMTP: SMTPConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetInt("SMTP_PORT"),
			Username: v.GetString("SMTP_USERNAME"),
			Password: v.GetString("SMTP_PASSWORD"),
			From:     v.GetString("SMTP_FROM"),
		},
		R2: R2Config{
			AccountID:       v.GetString("CLOUDFLARE_ACCOUNT_ID"),
			AccessKeyID:     v.GetString("R2_ACCESS_KEY_ID"),
			AccessKeySecret: v.GetString("R2_ACCESS_KEY_SECRET"),
			Bucket:          v.GetString("R2_BUCKET_NAME"),
			CDNBaseURL:      strings.TrimRight(v.GetString("CDN_BASE_URL"), "/"),
		},
		RedisURL:          v.GetString("REDIS_URL"),
		RateLimit:         v.GetString("RATE_LIMIT"),
		ImportAPIKey:      v.GetString("IMPORT_API_KEY"),
		LowStockThreshold: v.GetInt("LOW_STOCK_THRESHOLD"),
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
	}

	if cfg.JWTTTL <= 0 {
		return nil, fmt.Errorf("JWT_TTL must be positive, got %s", v.GetString("JWT_TTL"))
	}
	for _, origin := range cfg.AllowedOrigins {
		if origin == "*" {
			// Credentialed CORS cannot use a wildcard origin.
			return nil, fmt.Errorf("ALLOWED_ORIGINS must list explicit origins, \"*\" is not allowed")
		}
	}
	if cfg.LowStockThreshold < 1 {
		cfg.LowStockThreshold = 5
	}
	return cfg, nil
}

// Validate checks the settings required to run against a real database.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable not set")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable not set")
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
