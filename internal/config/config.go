package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/lorrc/service-desk-pki/internal/core/domain"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// JWT configuration
	JWT JWTConfig

	// Rate limiting configuration
	RateLimit RateLimitConfig

	// WebSocket configuration
	WebSocket WebSocketConfig

	// CORS configuration
	CORS CORSConfig

	// Logging configuration
	Logging LoggingConfig

	// PKI scoring configuration
	PKI PKIConfig

	// Resolution windows per service type
	SLA SLAConfig

	// Application metadata
	App AppConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	AutoMigrate     bool
	MigrationsPath  string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	BurstSize         int
	AuthRPS           float64 // Stricter limit for auth endpoints
	AuthBurst         int
}

// WebSocketConfig holds WebSocket configuration
type WebSocketConfig struct {
	AllowedOrigins  []string
	ReadBufferSize  int
	WriteBufferSize int
	PingInterval    time.Duration
	PongWait        time.Duration
}

// CORSConfig holds cross-origin settings for the dashboard frontend
type CORSConfig struct {
	AllowedOrigins []string
	MaxAge         int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string // debug, info, warn, error
	Format     string // json, text
	File       string // rotated log file, stdout when empty
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// PKIConfig holds the GlobalPKI weights and the service threshold
type PKIConfig struct {
	WeightResolution float64
	WeightDeadline   float64
	WeightStability  float64
	ServiceThreshold float64
	RollupYears      int
}

// SLAConfig holds the resolution window of each service type
type SLAConfig struct {
	Fibre      time.Duration
	ADSL       time.Duration
	Degroupage time.Duration
	Fixe       time.Duration
	Default    time.Duration
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string
	Version     string
	Environment string
	DefaultRole string
	Timezone    string // IANA zone for naive spreadsheet timestamps
	DispatchTo  string // mailbox receiving technician notifications
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", ":8080"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getDurationOrDefault("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    getIntOrDefault("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getIntOrDefault("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDurationOrDefault("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: getDurationOrDefault("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			AutoMigrate:     getBoolOrDefault("DB_AUTO_MIGRATE", false),
			MigrationsPath:  getEnvOrDefault("DB_MIGRATIONS_PATH", "file://migrations"),
		},
		JWT: JWTConfig{
			Secret:          os.Getenv("JWT_SECRET"),
			AccessTokenTTL:  getDurationOrDefault("JWT_ACCESS_TOKEN_TTL", 1*time.Hour),
			RefreshTokenTTL: getDurationOrDefault("JWT_REFRESH_TOKEN_TTL", 7*24*time.Hour),
		},
		RateLimit: RateLimitConfig{
			Enabled:           getBoolOrDefault("RATE_LIMIT_ENABLED", true),
			RequestsPerSecond: getFloatOrDefault("RATE_LIMIT_RPS", 10),
			BurstSize:         getIntOrDefault("RATE_LIMIT_BURST", 20),
			AuthRPS:           getFloatOrDefault("RATE_LIMIT_AUTH_RPS", 1),
			AuthBurst:         getIntOrDefault("RATE_LIMIT_AUTH_BURST", 5),
		},
		WebSocket: WebSocketConfig{
			AllowedOrigins:  getStringSliceOrDefault("WS_ALLOWED_ORIGINS", []string{}),
			ReadBufferSize:  getIntOrDefault("WS_READ_BUFFER_SIZE", 1024),
			WriteBufferSize: getIntOrDefault("WS_WRITE_BUFFER_SIZE", 1024),
			PingInterval:    getDurationOrDefault("WS_PING_INTERVAL", 54*time.Second),
			PongWait:        getDurationOrDefault("WS_PONG_WAIT", 60*time.Second),
		},
		CORS: CORSConfig{
			AllowedOrigins: getStringSliceOrDefault("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			MaxAge:         getIntOrDefault("CORS_MAX_AGE", 300),
		},
		Logging: LoggingConfig{
			Level:      getEnvOrDefault("LOG_LEVEL", "info"),
			Format:     getEnvOrDefault("LOG_FORMAT", "json"),
			File:       os.Getenv("LOG_FILE"),
			MaxSizeMB:  getIntOrDefault("LOG_MAX_SIZE_MB", 100),
			MaxBackups: getIntOrDefault("LOG_MAX_BACKUPS", 5),
			MaxAgeDays: getIntOrDefault("LOG_MAX_AGE_DAYS", 28),
		},
		PKI: loadPKIConfig(),
		SLA: SLAConfig{
			Fibre:      getDurationOrDefault("SLA_WINDOW_FIBRE", 24*time.Hour),
			ADSL:       getDurationOrDefault("SLA_WINDOW_ADSL", 48*time.Hour),
			Degroupage: getDurationOrDefault("SLA_WINDOW_DEGROUPAGE", 72*time.Hour),
			Fixe:       getDurationOrDefault("SLA_WINDOW_FIXE", 48*time.Hour),
			Default:    getDurationOrDefault("SLA_WINDOW_DEFAULT", 48*time.Hour),
		},
		App: AppConfig{
			Name:        getEnvOrDefault("APP_NAME", "service-desk-pki"),
			Version:     getEnvOrDefault("APP_VERSION", "dev"),
			Environment: getEnvOrDefault("APP_ENV", "development"),
			DefaultRole: getEnvOrDefault("DEFAULT_USER_ROLE", string(domain.RoleAgent)),
			Timezone:    getEnvOrDefault("APP_TIMEZONE", "UTC"),
			DispatchTo:  getEnvOrDefault("NOTIFY_DISPATCH_EMAIL", "dispatch@localhost"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []string

	// Required fields
	if c.Database.URL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}

	if c.JWT.Secret == "" {
		errs = append(errs, "JWT_SECRET is required")
	}

	// Security validations
	if c.App.Environment == "production" {
		if len(c.JWT.Secret) < 32 {
			errs = append(errs, "JWT_SECRET must be at least 32 characters in production")
		}

		if len(c.WebSocket.AllowedOrigins) == 0 {
			errs = append(errs, "WS_ALLOWED_ORIGINS must be set in production")
		}
	}

	// Logical validations
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		errs = append(errs, "DB_MAX_IDLE_CONNS cannot be greater than DB_MAX_OPEN_CONNS")
	}

	errs = append(errs, c.PKI.problems()...)
	for name, window := range map[string]time.Duration{
		"SLA_WINDOW_FIBRE":      c.SLA.Fibre,
		"SLA_WINDOW_ADSL":       c.SLA.ADSL,
		"SLA_WINDOW_DEGROUPAGE": c.SLA.Degroupage,
		"SLA_WINDOW_FIXE":       c.SLA.Fixe,
		"SLA_WINDOW_DEFAULT":    c.SLA.Default,
	} {
		if window <= 0 {
			errs = append(errs, name+" must be positive")
		}
	}
	if _, err := domain.ParseRole(c.App.DefaultRole); err != nil {
		errs = append(errs, "DEFAULT_USER_ROLE must be one of admin, supervisor, agent")
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		errs = append(errs, "APP_TIMEZONE must be a valid IANA time zone")
	}

	if len(errs) > 0 {
		sort.Strings(errs)
		return errors.New("configuration errors:\n  - " + strings.Join(errs, "\n  - "))
	}

	return nil
}

// Scorecard builds the PKI scoring constants from the configuration
func (c *Config) Scorecard() domain.Scorecard {
	return c.PKI.Scorecard()
}

// LoadPKI reads only the PKI_* settings. Tools that score spreadsheets
// offline use it so they agree with the API without needing database or
// JWT settings.
func LoadPKI() (domain.Scorecard, error) {
	_ = godotenv.Load()

	pki := loadPKIConfig()
	if errs := pki.problems(); len(errs) > 0 {
		sort.Strings(errs)
		return domain.Scorecard{}, errors.New("configuration errors:\n  - " + strings.Join(errs, "\n  - "))
	}
	return pki.Scorecard(), nil
}

func loadPKIConfig() PKIConfig {
	return PKIConfig{
		WeightResolution: getFloatOrDefault("PKI_WEIGHT_RESOLUTION", 0.4),
		WeightDeadline:   getFloatOrDefault("PKI_WEIGHT_DEADLINE", 0.4),
		WeightStability:  getFloatOrDefault("PKI_WEIGHT_STABILITY", 0.2),
		ServiceThreshold: getFloatOrDefault("PKI_SERVICE_THRESHOLD", domain.ServicePKIThreshold),
		RollupYears:      getIntOrDefault("PKI_ROLLUP_YEARS", domain.DefaultRollupYears),
	}
}

// Scorecard converts the settings into domain scoring constants
func (p PKIConfig) Scorecard() domain.Scorecard {
	return domain.Scorecard{
		Weights: domain.PKIWeights{
			Resolution:         p.WeightResolution,
			DeadlineCompliance: p.WeightDeadline,
			Stability:          p.WeightStability,
		},
		ServiceThreshold: p.ServiceThreshold,
		RollupYears:      p.RollupYears,
	}
}

func (p PKIConfig) problems() []string {
	var errs []string
	if err := p.Scorecard().Weights.Validate(); err != nil {
		errs = append(errs, "PKI_WEIGHT_*: "+err.Error())
	}
	if p.ServiceThreshold < 0 || p.ServiceThreshold > 100 {
		errs = append(errs, "PKI_SERVICE_THRESHOLD must be between 0 and 100")
	}
	if p.RollupYears < 1 {
		errs = append(errs, "PKI_ROLLUP_YEARS must be at least 1")
	}
	return errs
}

// DeadlinePolicy builds the per-service resolution windows
func (c *Config) DeadlinePolicy() domain.DeadlinePolicy {
	return domain.DeadlinePolicy{
		Windows: map[domain.ServiceType]time.Duration{
			domain.ServiceFibre:      c.SLA.Fibre,
			domain.ServiceADSL:       c.SLA.ADSL,
			domain.ServiceDegroupage: c.SLA.Degroupage,
			domain.ServiceFixe:       c.SLA.Fixe,
		},
		DefaultWindow: c.SLA.Default,
	}
}

// DefaultRole is the role given to self-registered users
func (c *Config) DefaultRole() domain.Role {
	role, err := domain.ParseRole(c.App.DefaultRole)
	if err != nil {
		return domain.RoleAgent
	}
	return role
}

// Location is the zone used to read spreadsheet timestamps without an offset
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// Helper functions

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

// String returns a redacted string representation of the config (safe for logging)
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Server: %s, DB: %s, JWT: [REDACTED], RateLimit: %v, Environment: %s}",
		c.Server.Port,
		redactURL(c.Database.URL),
		c.RateLimit.Enabled,
		c.App.Environment,
	)
}

// redactURL redacts sensitive parts of a database URL
func redactURL(url string) string {
	if url == "" {
		return ""
	}
	// Very basic redaction - in production you'd want something more robust
	if idx := strings.Index(url, "@"); idx > 0 {
		return "[REDACTED]" + url[idx:]
	}
	return "[REDACTED]"
}
