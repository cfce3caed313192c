package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LazySeaHorse/Just-De-Pic/internal/config"
	"github.com/LazySeaHorse/Just-De-Pic/internal/domain/picture"
	"github.com/LazySeaHorse/Just-De-Pic/internal/testutils"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		Imaging: config.ImagingConfig{
			JPEGQuality:      80,
			StripJPEGQuality: 95,
			ResampleFilter:   config.FilterLanczos,
			CropPolicy:       config.CropClamp,
			AtomicWrites:     true,
			MaxPixels:        1_000_000,
		},
		Logging: &config.LoggingConfig{Level: "error", Format: "json", Output: "stderr"},
	}
}

func TestNewContainer(t *testing.T) {
	c, err := NewContainer(testConfig(), nil, nil)
	require.NoError(t, err)

	assert.NotNil(t, c.Config())
	assert.NotNil(t, c.Logger())
	assert.NotNil(t, c.Files())
	assert.NotNil(t, c.Transformer())
	assert.NotNil(t, c.Metadata())
	assert.Equal(t, 80, c.Processor().Quality())
}

func TestNewContainer_Errors(t *testing.T) {
	_, err := NewContainer(nil, nil, nil)
	assert.Error(t, err)

	cfg := testConfig()
	cfg.Imaging.ResampleFilter = "bicubic"
	_, err = NewContainer(cfg, nil, nil)
	assert.Error(t, err)
}

func TestContainer_WiresPixelLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Imaging.MaxPixels = 100
	c, err := NewContainer(cfg, nil, nil)
	require.NoError(t, err)

	path := testutils.WriteImage(t, "a.png", 20, 20, picture.FormatPNG)
	_, err = c.Transformer().Resize(context.Background(), path, picture.ResizeSpec{MaxWidth: 5, MaxHeight: 5})
	assert.ErrorIs(t, err, picture.ErrDecode)
}
