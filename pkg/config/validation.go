package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// This function uses go-playground/validator for declarative validation
// via struct tags, with additional custom validation for rules that cannot
// be expressed in tags.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
//
// Returns an error describing validation failures.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	if !cfg.Adapters.HTTP.Enabled {
		return fmt.Errorf("adapters: at least one adapter must be enabled")
	}

	if cfg.Adapters.HTTP.Workers < 1 {
		return fmt.Errorf("adapters.http.workers: must be at least 1, got %d", cfg.Adapters.HTTP.Workers)
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Port == cfg.Adapters.HTTP.Port {
		return fmt.Errorf("metrics.port: %d conflicts with adapters.http.port", cfg.Metrics.Port)
	}

	if cfg.Adapters.HTTP.AcceptBurst > 0 && cfg.Adapters.HTTP.AcceptRate == 0 {
		return fmt.Errorf("adapters.http.accept_burst: requires accept_rate to be set")
	}

	if cfg.Content.Cache.Enabled && cfg.Content.Cache.MaxBytes <= 0 {
		return fmt.Errorf("content.cache.max_bytes: must be positive when the cache is enabled")
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		// Return the first validation error with context
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
