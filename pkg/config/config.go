package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the back-office service
// ⭐ SSOT: every environment variable is read here and nowhere else
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database (hosted Postgres behind the auth service)
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// External services
	Auth     AuthConfig
	WhatsApp WhatsAppConfig
	Leads    LeadsConfig

	// Report delivery
	Storage StorageConfig
	Mail    MailConfig

	// Cartera report
	Report ReportConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// AuthConfig holds the hosted auth backend settings
type AuthConfig struct {
	URL       string
	AnonKey   string
	JWTSecret string
}

// WhatsAppConfig holds the number verification endpoint settings
type WhatsAppConfig struct {
	BaseURL    string
	APIKey     string
	Instance   string
	RatePerSec float64
	CacheTTL   time.Duration
}

// LeadsConfig holds the lead capture webhook settings
type LeadsConfig struct {
	WebhookURL string
}

// StorageConfig holds S3-compatible archive settings
type StorageConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// MailConfig holds SMTP settings for report delivery
type MailConfig struct {
	Host       string
	Port       string
	Username   string
	Password   string
	Sender     string
	Recipients []string
}

// ReportConfig holds cartera report generation settings
type ReportConfig struct {
	SystemName    string
	Timezone      string
	LogoURL       string
	PageTimeout   time.Duration
	RenderWorkers int
	RenderScale   float64
	Schedule      string
	ScoringFile   string // YAML scoring profile; empty uses built-in weights
}

// Load reads configuration from environment variables
// ⭐ SSOT: the only function that calls os.Getenv()
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Auth: AuthConfig{
			URL:       strings.TrimRight(getEnv("SUPABASE_URL", "https://lpsupabase.luispinta.com"), "/"),
			AnonKey:   getEnv("SUPABASE_ANON_KEY", ""),
			JWTSecret: getEnv("SUPABASE_JWT_SECRET", ""),
		},

		WhatsApp: WhatsAppConfig{
			BaseURL:    strings.TrimRight(getEnv("WHATSAPP_API_URL", "https://api.luispinta.com"), "/"),
			APIKey:     getEnv("WHATSAPP_API_KEY", ""),
			Instance:   getEnv("WHATSAPP_INSTANCE", "CajaGerencia"),
			RatePerSec: getEnvAsFloat("WHATSAPP_RATE_PER_SEC", 2),
			CacheTTL:   getEnvAsDuration("WHATSAPP_CACHE_TTL", "24h"),
		},

		Leads: LeadsConfig{
			WebhookURL: getEnv("LEAD_WEBHOOK_URL", ""),
		},

		Storage: StorageConfig{
			Enabled:   getEnvAsBool("S3_ENABLED", false),
			Endpoint:  getEnv("S3_ENDPOINT", ""),
			AccessKey: getEnv("S3_ACCESS_KEY", ""),
			SecretKey: getEnv("S3_SECRET_KEY", ""),
			Bucket:    getEnv("S3_BUCKET", "reportes-cartera"),
			Region:    getEnv("S3_REGION", ""),
			UseSSL:    getEnvAsBool("S3_USE_SSL", true),
		},

		Mail: MailConfig{
			Host:       getEnv("SMTP_HOST", ""),
			Port:       getEnv("SMTP_PORT", "587"),
			Username:   getEnv("SMTP_USERNAME", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			Sender:     getEnv("SMTP_SENDER", ""),
			Recipients: getEnvAsList("REPORT_RECIPIENTS"),
		},

		Report: ReportConfig{
			SystemName:    getEnv("REPORT_SYSTEM_NAME", "TupakRantina"),
			Timezone:      getEnv("REPORT_TIMEZONE", "Local"),
			LogoURL:       getEnv("REPORT_LOGO_URL", "https://lh3.googleusercontent.com/d/1idgiPohtekZVIYJ-pmza9PSQqEamUvfH=w2048"),
			PageTimeout:   getEnvAsDuration("REPORT_PAGE_TIMEOUT", "30s"),
			RenderWorkers: getEnvAsInt("REPORT_RENDER_WORKERS", 1),
			RenderScale:   getEnvAsFloat("REPORT_RENDER_SCALE", 2),
			Schedule:      getEnv("REPORT_SCHEDULE", "0 0 7 1 * *"),
			ScoringFile:   getEnv("REPORT_SCORING_FILE", ""),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks configuration values that every command depends on.
// Component specific settings (DATABASE_URL, SMTP, S3) are checked where they are used.
func (c *Config) Validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Report.RenderScale < 1 {
		return fmt.Errorf("REPORT_RENDER_SCALE must be >= 1")
	}

	if c.Report.RenderWorkers < 1 {
		return fmt.Errorf("REPORT_RENDER_WORKERS must be >= 1")
	}

	if _, err := c.Location(); err != nil {
		return fmt.Errorf("REPORT_TIMEZONE: %w", err)
	}

	return nil
}

// LoadWithEnvFile loads path into the environment before Load.
// Variables already set in the environment win.
func LoadWithEnvFile(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", path, err)
		}
	}
	return Load()
}

// Location resolves the report timezone
func (c *Config) Location() (*time.Location, error) {
	if c.Report.Timezone == "" || c.Report.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Report.Timezone)
}

// MailEnabled reports whether report e-mail delivery is configured
func (c *Config) MailEnabled() bool {
	return c.Mail.Host != "" && c.Mail.Sender != "" && len(c.Mail.Recipients) > 0
}

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

// getEnvAsList splits a comma separated variable, dropping blanks
func getEnvAsList(key string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
