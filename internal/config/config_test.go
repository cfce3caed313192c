package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnvVars = []string{
	"GO_ENV", "JPEG_QUALITY", "STRIP_JPEG_QUALITY", "RESAMPLE_FILTER",
	"CROP_POLICY", "ATOMIC_WRITES", "MAX_PIXELS",
	"LOG_LEVEL", "LOG_FORMAT", "LOG_OUTPUT",
}

// clearEnv blanks every key Load reads so defaults apply
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnvVars {
		t.Setenv(key, "")
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		expected *Config
	}{
		{
			name:    "defaults",
			envVars: map[string]string{},
			expected: &Config{
				Environment: "development",
				Imaging: ImagingConfig{
					JPEGQuality:      75,
					StripJPEGQuality: 95,
					ResampleFilter:   FilterLanczos,
					CropPolicy:       CropClamp,
					AtomicWrites:     true,
					MaxPixels:        100_000_000,
				},
				Logging: &LoggingConfig{
					Level:  "info",
					Format: "console",
					Output: "stderr",
				},
			},
		},
		{
			name: "fully configured",
			envVars: map[string]string{
				"GO_ENV":             "production",
				"JPEG_QUALITY":       "88",
				"STRIP_JPEG_QUALITY": "90",
				"RESAMPLE_FILTER":    "CatmullRom",
				"CROP_POLICY":        "strict",
				"ATOMIC_WRITES":      "false",
				"MAX_PIXELS":         "24M",
				"LOG_LEVEL":          "debug",
				"LOG_FORMAT":         "json",
				"LOG_OUTPUT":         "stdout",
			},
			expected: &Config{
				Environment: "production",
				Imaging: ImagingConfig{
					JPEGQuality:      88,
					StripJPEGQuality: 90,
					ResampleFilter:   FilterCatmullRom,
					CropPolicy:       CropStrict,
					AtomicWrites:     false,
					MaxPixels:        24_000_000,
				},
				Logging: &LoggingConfig{
					Level:  "debug",
					Format: "json",
					Output: "stdout",
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			config, err := Load()
			require.NoError(t, err, "Load() should not return error")
			require.NotNil(t, config, "Config should not be nil")

			assert.Equal(t, tt.expected.Environment, config.Environment)
			assert.Equal(t, tt.expected.Imaging, config.Imaging)

			require.NotNil(t, config.Logging)
			assert.Equal(t, *tt.expected.Logging, *config.Logging)
		})
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		field   string
	}{
		{"quality not a number", map[string]string{"JPEG_QUALITY": "high"}, "imaging.jpeg_quality"},
		{"quality out of range", map[string]string{"JPEG_QUALITY": "101"}, "imaging.jpeg_quality"},
		{"strip quality zero", map[string]string{"STRIP_JPEG_QUALITY": "0"}, "imaging.strip_jpeg_quality"},
		{"unknown filter", map[string]string{"RESAMPLE_FILTER": "bicubic"}, "imaging.resample_filter"},
		{"unknown crop policy", map[string]string{"CROP_POLICY": "shrink"}, "imaging.crop_policy"},
		{"bad pixel count", map[string]string{"MAX_PIXELS": "lots"}, "imaging.max_pixels"},
		{"bad environment", map[string]string{"GO_ENV": "qa"}, "environment"},
		{"bad log output", map[string]string{"LOG_OUTPUT": "file"}, "logging.output"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			config, err := Load()
			require.Error(t, err)
			assert.Nil(t, config)

			var ve ValidationErrors
			require.ErrorAs(t, err, &ve)
			require.Len(t, ve, 1)
			assert.Equal(t, tt.field, ve[0].Field)
		})
	}
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"100000000", 100_000_000},
		{"100_000_000", 100_000_000},
		{"24M", 24_000_000},
		{"500k", 500_000},
		{" 42 ", 42},
		{"", 0},
		{"12MB", 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseCount(tt.in))
		})
	}
}
