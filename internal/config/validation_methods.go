package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s (value: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}

	return fmt.Sprintf("configuration validation failed: %s", strings.Join(messages, "; "))
}

// Has checks if ValidationErrors contains any errors
func (ve ValidationErrors) Has() bool {
	return len(ve) > 0
}

var (
	validEnvironments = []string{"development", "production", "test", "staging"}
	validFilters      = []string{FilterLanczos, FilterCatmullRom, FilterLinear, FilterBox, FilterNearest}
	validCropPolicies = []string{CropClamp, CropStrict}
	validLogLevels    = []string{"debug", "info", "warn", "error"}
	validLogFormats   = []string{"json", "console", "text"}
	validLogOutputs   = []string{"stdout", "stderr"}
)

// Validate validates the entire configuration
func (c *Config) Validate() error {
	var validationErrors ValidationErrors

	if c.Environment != "" && !slices.Contains(validEnvironments, c.Environment) {
		validationErrors = append(validationErrors, ValidationError{
			Field:   "environment",
			Value:   c.Environment,
			Message: "environment must be one of: " + strings.Join(validEnvironments, ", "),
		})
	}

	validationErrors = append(validationErrors, c.validateImaging()...)

	// Validate logging configuration (if present)
	if c.Logging != nil {
		validationErrors = append(validationErrors, c.validateLogging()...)
	}

	if validationErrors.Has() {
		return validationErrors
	}

	return nil
}

func (c *Config) validateImaging() ValidationErrors {
	var errors ValidationErrors

	if c.Imaging.JPEGQuality < 1 || c.Imaging.JPEGQuality > 100 {
		errors = append(errors, ValidationError{
			Field:   "imaging.jpeg_quality",
			Value:   c.Imaging.JPEGQuality,
			Message: "JPEG quality must be between 1 and 100",
		})
	}

	if c.Imaging.StripJPEGQuality < 1 || c.Imaging.StripJPEGQuality > 100 {
		errors = append(errors, ValidationError{
			Field:   "imaging.strip_jpeg_quality",
			Value:   c.Imaging.StripJPEGQuality,
			Message: "strip JPEG quality must be between 1 and 100",
		})
	}

	if !slices.Contains(validFilters, c.Imaging.ResampleFilter) {
		errors = append(errors, ValidationError{
			Field:   "imaging.resample_filter",
			Value:   c.Imaging.ResampleFilter,
			Message: "resample filter must be one of: " + strings.Join(validFilters, ", "),
		})
	}

	if !slices.Contains(validCropPolicies, c.Imaging.CropPolicy) {
		errors = append(errors, ValidationError{
			Field:   "imaging.crop_policy",
			Value:   c.Imaging.CropPolicy,
			Message: "crop policy must be either 'clamp' or 'strict'",
		})
	}

	if c.Imaging.MaxPixels <= 0 {
		errors = append(errors, ValidationError{
			Field:   "imaging.max_pixels",
			Value:   c.Imaging.MaxPixels,
			Message: "max pixels must be a positive integer",
		})
	}

	return errors
}

func (c *Config) validateLogging() ValidationErrors {
	var errors ValidationErrors

	if !containsFold(validLogLevels, c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: "logging level must be one of: debug, info, warn, error",
		})
	}

	if !containsFold(validLogFormats, c.Logging.Format) {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Value:   c.Logging.Format,
			Message: "logging format must be one of: json, console, text",
		})
	}

	if !containsFold(validLogOutputs, c.Logging.Output) {
		errors = append(errors, ValidationError{
			Field:   "logging.output",
			Value:   c.Logging.Output,
			Message: "logging output must be either 'stdout' or 'stderr'",
		})
	}

	return errors
}

func containsFold(values []string, s string) bool {
	for _, v := range values {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// MustValidate validates the configuration and panics on error
// Useful for startup scenarios where invalid config should crash the application
func (c *Config) MustValidate() {
	if err := c.Validate(); err != nil {
		panic(fmt.Sprintf("configuration validation failed: %v", err))
	}
}
