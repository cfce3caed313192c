// Package config provides application configuration management
// with validation and environment parsing
package config

import (
	"os"
	"strconv"
	"strings"
)

// Resample filters accepted by RESAMPLE_FILTER
const (
	FilterLanczos    = "lanczos"
	FilterCatmullRom = "catmullrom"
	FilterLinear     = "linear"
	FilterBox        = "box"
	FilterNearest    = "nearest"
)

// Crop policies accepted by CROP_POLICY
const (
	// CropClamp computes the box first and clamps each bound afterwards
	CropClamp = "clamp"
	// CropStrict rejects center crops larger than the source
	CropStrict = "strict"
)

// Config represents the application configuration
type Config struct {
	Environment string
	Imaging     ImagingConfig
	Logging     *LoggingConfig
}

// ImagingConfig holds decode, encode and write settings
type ImagingConfig struct {
	JPEGQuality      int
	StripJPEGQuality int
	ResampleFilter   string
	CropPolicy       string
	AtomicWrites     bool
	MaxPixels        int64
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
	Output string
}

// Load creates a new configuration from environment variables with validation
func Load() (*Config, error) {
	atomicWrites, _ := strconv.ParseBool(getEnv("ATOMIC_WRITES", "true"))

	config := &Config{
		Environment: getEnv("GO_ENV", "development"),
		Imaging: ImagingConfig{
			JPEGQuality:      parseInt(getEnv("JPEG_QUALITY", "75"), 0),
			StripJPEGQuality: parseInt(getEnv("STRIP_JPEG_QUALITY", "95"), 0),
			ResampleFilter:   strings.ToLower(getEnv("RESAMPLE_FILTER", FilterLanczos)),
			CropPolicy:       strings.ToLower(getEnv("CROP_POLICY", CropClamp)),
			AtomicWrites:     atomicWrites,
			MaxPixels:        parseCount(getEnv("MAX_PIXELS", "100000000")),
		},
		Logging: &LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
			Output: getEnv("LOG_OUTPUT", "stderr"),
		},
	}

	// Validate configuration before returning
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseInt returns fallback when s is not an integer; validation then reports it
func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return n
}

// parseCount parses pixel counts like "100000000", "100_000_000" or "24M"
func parseCount(s string) int64 {
	s = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "_", ""))

	multiplier := int64(1)
	switch {
	case strings.HasSuffix(s, "M"):
		multiplier = 1_000_000
		s = strings.TrimSuffix(s, "M")
	case strings.HasSuffix(s, "K"):
		multiplier = 1_000
		s = strings.TrimSuffix(s, "K")
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n * multiplier
}
