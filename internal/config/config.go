package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the service
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	SMTP      SMTPConfig      `mapstructure:"smtp"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Business  BusinessConfig  `mapstructure:"business"`
	Audit     AuditConfig     `mapstructure:"audit"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"SERVER_PORT"`
	Host         string        `mapstructure:"SERVER_HOST"`
	Env          string        `mapstructure:"ENV"`
	ReadTimeout  time.Duration `mapstructure:"SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `mapstructure:"SERVER_WRITE_TIMEOUT"`
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"DATABASE_URL"`
	MaxOpenConns    int           `mapstructure:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `mapstructure:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `mapstructure:"DATABASE_CONN_MAX_LIFETIME"`
}

type RedisConfig struct {
	Host     string `mapstructure:"REDIS_HOST"`
	Port     string `mapstructure:"REDIS_PORT"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"SMTP_HOST"`
	Port     int    `mapstructure:"SMTP_PORT"`
	User     string `mapstructure:"SMTP_USER"`
	Password string `mapstructure:"SMTP_PASS"`
	FromName string `mapstructure:"FROM_NAME"`
	From     string `mapstructure:"FROM_EMAIL"`
}

type SchedulerConfig struct {
	StatusRefreshSpec string `mapstructure:"SCHEDULER_STATUS_REFRESH_SPEC"`
	ReminderSpec      string `mapstructure:"SCHEDULER_REMINDER_SPEC"`
	ReminderDaysAhead int    `mapstructure:"SCHEDULER_REMINDER_DAYS_AHEAD"`
}

type BusinessConfig struct {
	// RecomputeInterestOnPrepayment rewrites planned interest of open auto
	// installments after a principal prepayment.
	RecomputeInterestOnPrepayment bool `mapstructure:"RECOMPUTE_INTEREST_ON_PREPAYMENT"`
	EmailOnLoanCreated            bool `mapstructure:"EMAIL_ON_LOAN_CREATED"`
}

type AuditConfig struct {
	PrepaymentLogPath string `mapstructure:"AUDIT_PREPAYMENT_LOG"`
}

// Load reads configuration from environment variables and files
func Load() (*Config, error) {
	// Load a local .env into the process environment so AutomaticEnv sees it.
	// Variables already set in the environment win.
	_ = godotenv.Load()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("SERVER_READ_TIMEOUT", "15s")
	viper.SetDefault("SERVER_WRITE_TIMEOUT", "15s")
	viper.SetDefault("DATABASE_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DATABASE_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DATABASE_CONN_MAX_LIFETIME", "5m")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("SMTP_HOST", "localhost")
	viper.SetDefault("SMTP_PORT", 25)
	viper.SetDefault("FROM_NAME", "Soporte")
	viper.SetDefault("FROM_EMAIL", "no-reply@example.local")
	viper.SetDefault("SCHEDULER_STATUS_REFRESH_SPEC", "0 0 0 * * *")
	viper.SetDefault("SCHEDULER_REMINDER_SPEC", "0 0 9 * * *")
	viper.SetDefault("SCHEDULER_REMINDER_DAYS_AHEAD", 3)
	viper.SetDefault("RECOMPUTE_INTEREST_ON_PREPAYMENT", false)
	viper.SetDefault("EMAIL_ON_LOAN_CREATED", true)
	viper.SetDefault("AUDIT_PREPAYMENT_LOG", "abonos_capital_log.csv")

	// Read from environment variables
	viper.AutomaticEnv()

	// Try to read from .env file (optional)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./deployments")

	// Don't fail if .env file doesn't exist
	_ = viper.ReadInConfig()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Scheduler.ReminderDaysAhead < 0 {
		return fmt.Errorf("SCHEDULER_REMINDER_DAYS_AHEAD must not be negative")
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}

// Addr returns the host:port the HTTP server binds to.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

// RedisAddr returns the host:port of the redis cache.
func (c *Config) RedisAddr() string {
	return c.Redis.Host + ":" + c.Redis.Port
}
