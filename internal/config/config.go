// Package config provides configuration management for the Turf Ledger settlement engine.
package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	App           AppConfig           `mapstructure:"app" validate:"required"`
	Database      DatabaseConfig      `mapstructure:"database" validate:"required"`
	RacingAPI     RacingAPIConfig     `mapstructure:"racing_api" validate:"required"`
	Courses       CoursesConfig       `mapstructure:"courses"`
	Matching      MatchingConfig      `mapstructure:"matching"`
	Settlement    SettlementConfig    `mapstructure:"settlement" validate:"required"`
	Events        EventsConfig        `mapstructure:"events"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Metrics       MetricsConfig       `mapstructure:"metrics"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host               string `mapstructure:"host" validate:"required"`
	Port               int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Name               string `mapstructure:"name" validate:"required"`
	User               string `mapstructure:"user" validate:"required"`
	Password           string `mapstructure:"password" validate:"required"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"required,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"required,gt=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"gte=0"`
}

// RacingAPIConfig represents the results API configuration
type RacingAPIConfig struct {
	BaseURL           string  `mapstructure:"base_url" validate:"required,url"`
	Username          string  `mapstructure:"username" validate:"required"`
	Password          string  `mapstructure:"password" validate:"required"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	MaxRetries        int     `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	RetryWaitMs       int     `mapstructure:"retry_wait_ms" validate:"gte=0"`
	RateLimit         float64 `mapstructure:"rate_limit" validate:"gte=0"`
	CircuitBreakerMax int     `mapstructure:"circuit_breaker_max" validate:"gte=0"`
	PageSize          int     `mapstructure:"page_size" validate:"required,gt=0,lte=100"`
	MaxPages          int     `mapstructure:"max_pages" validate:"required,gt=0"`
	PageDelayMs       int     `mapstructure:"page_delay_ms" validate:"gte=0"`
}

// CoursesConfig represents the course reference data configuration
type CoursesConfig struct {
	File             string            `mapstructure:"file"`
	MinSimilarity    float64           `mapstructure:"min_similarity" validate:"gte=0,lte=1"`
	Aliases          map[string]string `mapstructure:"aliases"`
	IgnoreAllWeather bool              `mapstructure:"ignore_all_weather"`
}

// MatchingConfig represents horse name matching configuration
type MatchingConfig struct {
	MinConfidence float64 `mapstructure:"min_confidence" validate:"gte=0,lte=1"`
}

// SettlementConfig represents settlement pass configuration
type SettlementConfig struct {
	Schedule         string           `mapstructure:"schedule" validate:"required,cron"`
	GroupDelayMs     int              `mapstructure:"group_delay_ms" validate:"gte=0"`
	FailureBackoffMs int              `mapstructure:"failure_backoff_ms" validate:"gte=0"`
	VoidCodes        []string         `mapstructure:"void_codes" validate:"required,min=1,dive,required"`
	PlaceTerms       PlaceTermsConfig `mapstructure:"place_terms" validate:"required"`
}

// PlaceTermsConfig represents the each-way place terms table
type PlaceTermsConfig struct {
	Places    []PlaceTierConfig    `mapstructure:"places" validate:"required,min=1,dive"`
	Fractions []FractionTierConfig `mapstructure:"fractions" validate:"required,min=1,dive"`
}

// PlaceTierConfig gives the paying places from a minimum field size
type PlaceTierConfig struct {
	MinRunners int `mapstructure:"min_runners" validate:"gte=0"`
	Places     int `mapstructure:"places" validate:"gte=0"`
}

// FractionTierConfig gives the place fraction from a minimum field size
type FractionTierConfig struct {
	MinRunners int     `mapstructure:"min_runners" validate:"gte=0"`
	Fraction   float64 `mapstructure:"fraction" validate:"gt=0,lte=1"`
}

// EventsConfig represents the settlement event publisher configuration
type EventsConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// NotificationsConfig represents pass summary notification configuration
type NotificationsConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig represents Telegram notifier configuration
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

// MetricsConfig represents metrics and health server configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return c.Database.DSN()
}

// DSN returns a PostgreSQL DSN string
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User,
		d.Password,
		d.Host,
		d.Port,
		d.Name,
		d.SSLMode,
	)
}

// Timeout returns the per-request timeout
func (r *RacingAPIConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// PageDelay returns the delay between result pages
func (r *RacingAPIConfig) PageDelay() time.Duration {
	return time.Duration(r.PageDelayMs) * time.Millisecond
}

// RetryWait returns the linear retry backoff step
func (r *RacingAPIConfig) RetryWait() time.Duration {
	return time.Duration(r.RetryWaitMs) * time.Millisecond
}

// GroupDelay returns the delay between result groups
func (s *SettlementConfig) GroupDelay() time.Duration {
	return time.Duration(s.GroupDelayMs) * time.Millisecond
}

// FailureBackoff returns the extra delay after a failed fetch
func (s *SettlementConfig) FailureBackoff() time.Duration {
	return time.Duration(s.FailureBackoffMs) * time.Millisecond
}
