package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)
	_ = v.RegisterValidation("cron", validateCron)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	return NewValidator().Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	err := cv.validator.Struct(cfg)
	if err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	return validateCrossField(cfg)
}

// validateEnvironment validates the environment field
func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

// validateLogLevel validates the log level field
func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// validateCron validates a standard five-field cron expression
func validateCron(fl validator.FieldLevel) bool {
	_, err := cron.ParseStandard(fl.Field().String())
	return err == nil
}

// validateCrossField performs cross-field validations
func validateCrossField(cfg *Config) error {
	if cfg.IsProduction() && cfg.Database.SSLMode == "disable" {
		return fmt.Errorf("production environment requires SSL mode to be 'require' or 'verify-full'")
	}

	if cfg.Database.MaxIdleConnections > cfg.Database.MaxConnections {
		return fmt.Errorf("max_idle_connections cannot exceed max_connections")
	}

	if err := validateTiers(cfg.Settlement.PlaceTerms); err != nil {
		return err
	}

	if cfg.Events.Enabled {
		if len(cfg.Events.Brokers) == 0 {
			return fmt.Errorf("events.brokers is required when events are enabled")
		}
		if strings.TrimSpace(cfg.Events.Topic) == "" {
			return fmt.Errorf("events.topic is required when events are enabled")
		}
	}

	if tg := cfg.Notifications.Telegram; tg.Enabled {
		if tg.BotToken == "" {
			return fmt.Errorf("notifications.telegram.bot_token is required when telegram is enabled")
		}
		if _, err := strconv.ParseInt(tg.ChatID, 10, 64); err != nil {
			return fmt.Errorf("notifications.telegram.chat_id must be a numeric chat id")
		}
	}

	return nil
}

// validateTiers rejects duplicate thresholds and tables without a zero-runner floor
func validateTiers(terms PlaceTermsConfig) error {
	seen := make(map[int]bool)
	floor := false
	for _, t := range terms.Places {
		if seen[t.MinRunners] {
			return fmt.Errorf("place_terms.places has duplicate min_runners %d", t.MinRunners)
		}
		seen[t.MinRunners] = true
		floor = floor || t.MinRunners == 0
	}
	if !floor {
		return fmt.Errorf("place_terms.places needs a tier with min_runners 0")
	}

	seen = make(map[int]bool)
	floor = false
	for _, t := range terms.Fractions {
		if seen[t.MinRunners] {
			return fmt.Errorf("place_terms.fractions has duplicate min_runners %d", t.MinRunners)
		}
		seen[t.MinRunners] = true
		floor = floor || t.MinRunners == 0
	}
	if !floor {
		return fmt.Errorf("place_terms.fractions needs a tier with min_runners 0")
	}
	return nil
}

// formatValidationErrors formats validation errors into a readable string
func formatValidationErrors(validationErrors validator.ValidationErrors) error {
	var errMsg strings.Builder
	for _, fieldError := range validationErrors {
		field := fieldError.Namespace()
		tag := fieldError.Tag()
		value := fieldError.Value()

		switch tag {
		case "required":
			fmt.Fprintf(&errMsg, "- Field '%s' is required\n", field)
		case "url":
			fmt.Fprintf(&errMsg, "- Field '%s' must be a valid URL, got '%v'\n", field, value)
		case "min", "max":
			fmt.Fprintf(&errMsg, "- Field '%s' validation failed: %s constraint violated\n", field, tag)
		case "gt", "gte", "lt", "lte":
			fmt.Fprintf(&errMsg, "- Field '%s' validation failed: numeric constraint %s violated\n", field, tag)
		case "environment":
			fmt.Fprintf(&errMsg, "- Field '%s' must be one of: development, staging, production\n", field)
		case "loglevel":
			fmt.Fprintf(&errMsg, "- Field '%s' must be one of: debug, info, warn, error\n", field)
		case "cron":
			fmt.Fprintf(&errMsg, "- Field '%s' must be a five-field cron expression, got '%v'\n", field, value)
		case "oneof":
			fmt.Fprintf(&errMsg, "- Field '%s' has invalid value '%v'\n", field, value)
		default:
			fmt.Fprintf(&errMsg, "- Field '%s' failed validation: %s\n", field, tag)
		}
	}
	return fmt.Errorf("configuration validation failed:\n%s", errMsg.String())
}
