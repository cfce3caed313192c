package services

import (
	"fmt"

	"github.com/LazySeaHorse/Just-De-Pic/internal/config"
	"github.com/LazySeaHorse/Just-De-Pic/internal/domain/picture"
	"github.com/LazySeaHorse/Just-De-Pic/internal/observability"
	"github.com/LazySeaHorse/Just-De-Pic/internal/platform/storage"
	"github.com/LazySeaHorse/Just-De-Pic/internal/services/geometry"
	"github.com/LazySeaHorse/Just-De-Pic/internal/services/metadata"
)

// Container holds all the application dependencies
type Container struct {
	config  *config.Config
	logger  *observability.Logger
	metrics *observability.OperationMetrics

	// Platform
	processor *storage.Processor
	files     *storage.FileStore

	// Services
	transformer *geometry.Transformer
	store       *metadata.Store
}

// NewContainer creates a new dependency injection container. logger and
// metrics may be nil.
func NewContainer(cfg *config.Config, logger *observability.Logger, metrics *observability.OperationMetrics) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = observability.Nop()
	}

	container := &Container{
		config:  cfg,
		logger:  logger,
		metrics: metrics,
	}

	if err := container.initializeServices(); err != nil {
		return nil, err
	}

	return container, nil
}

// initializeServices initializes all services in the correct dependency order
func (c *Container) initializeServices() error {
	imaging := c.config.Imaging

	c.processor = storage.NewProcessor(imaging.JPEGQuality, imaging.MaxPixels)
	c.files = storage.NewFileStore(imaging.AtomicWrites)

	transformer, err := geometry.NewTransformer(c.processor, c.files, geometry.Options{
		Filter:     imaging.ResampleFilter,
		CropPolicy: imaging.CropPolicy,
	}, c.logger, c.metrics)
	if err != nil {
		return fmt.Errorf("failed to create transformer: %w", err)
	}
	c.transformer = transformer

	c.store = metadata.NewStore(c.processor, c.files, metadata.Options{
		StripQuality: imaging.StripJPEGQuality,
	}, c.logger, c.metrics)

	c.logger.GetZerolog().Debug().
		Int("jpeg_quality", c.processor.Quality()).
		Str("filter", imaging.ResampleFilter).
		Str("crop_policy", imaging.CropPolicy).
		Bool("atomic_writes", imaging.AtomicWrites).
		Msg("service container initialized")
	return nil
}

// Getters for accessing services

func (c *Container) Config() *config.Config {
	return c.config
}

func (c *Container) Logger() *observability.Logger {
	return c.logger
}

func (c *Container) Processor() *storage.Processor {
	return c.processor
}

func (c *Container) Files() *storage.FileStore {
	return c.files
}

func (c *Container) Transformer() picture.Transformer {
	return c.transformer
}

func (c *Container) Metadata() picture.MetadataStore {
	return c.store
}
