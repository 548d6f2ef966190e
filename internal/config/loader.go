package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultConfigPath = "config/config.yaml"
	envPrefix         = "TURF_LEDGER"
)

// Load reads and parses the configuration from file and environment variables
// It expands environment variable placeholders in the YAML file (${VAR_NAME})
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}
	loadDotEnv()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v := newViper()
	if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// LoadWithDefaults loads configuration with default values for optional fields.
// A missing file is not an error: defaults and environment variables apply.
func LoadWithDefaults(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}
	loadDotEnv()

	v := newViper()
	setDefaults(v)

	if data, err := os.ReadFile(configPath); err == nil {
		if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// loadDotEnv loads a .env file from the working directory when one exists.
// Variables already set in the environment win.
func loadDotEnv() {
	_ = godotenv.Load()
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "turf-ledger")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "turf_ledger")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 5)
	v.SetDefault("database.max_idle_connections", 1)

	v.SetDefault("racing_api.base_url", "https://api.theracingapi.com/v1")
	v.SetDefault("racing_api.username", "")
	v.SetDefault("racing_api.password", "")
	v.SetDefault("racing_api.timeout_seconds", 45)
	v.SetDefault("racing_api.max_retries", 3)
	v.SetDefault("racing_api.retry_wait_ms", 2000)
	v.SetDefault("racing_api.rate_limit", 2.0)
	v.SetDefault("racing_api.circuit_breaker_max", 5)
	v.SetDefault("racing_api.page_size", 50)
	v.SetDefault("racing_api.max_pages", 40)
	v.SetDefault("racing_api.page_delay_ms", 500)

	v.SetDefault("courses.file", "config/courses.json")
	v.SetDefault("courses.min_similarity", 0.8)
	v.SetDefault("courses.ignore_all_weather", false)

	v.SetDefault("matching.min_confidence", 0.8)

	v.SetDefault("settlement.schedule", "*/30 * * * *")
	v.SetDefault("settlement.group_delay_ms", 1000)
	v.SetDefault("settlement.failure_backoff_ms", 2000)
	v.SetDefault("settlement.void_codes", []string{"nr", "ns", "rr", "void"})
	v.SetDefault("settlement.place_terms.places", []map[string]interface{}{
		{"min_runners": 16, "places": 4},
		{"min_runners": 8, "places": 3},
		{"min_runners": 5, "places": 2},
		{"min_runners": 0, "places": 0},
	})
	v.SetDefault("settlement.place_terms.fractions", []map[string]interface{}{
		{"min_runners": 16, "fraction": 0.25},
		{"min_runners": 5, "fraction": 0.20},
		{"min_runners": 0, "fraction": 0.25},
	})

	v.SetDefault("events.enabled", false)
	v.SetDefault("events.brokers", []string{"localhost:9092"})
	v.SetDefault("events.topic", "bet-settlements")

	v.SetDefault("notifications.telegram.enabled", false)
	v.SetDefault("notifications.telegram.bot_token", "")
	v.SetDefault("notifications.telegram.chat_id", "")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")
}
