package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/arx-deidentifier/gta-benchmark/internal/storage/implementations/file"
	"github.com/arx-deidentifier/gta-benchmark/internal/storage/implementations/redis"
	"github.com/arx-deidentifier/gta-benchmark/internal/storage/implementations/s3"
	"github.com/arx-deidentifier/gta-benchmark/pkg/constants"
	"github.com/arx-deidentifier/gta-benchmark/pkg/errors"
	"github.com/arx-deidentifier/gta-benchmark/pkg/interfaces"
)

// SourceConfig selects and configures the backend holding the reference tables
type SourceConfig struct {
	Type  string                `json:"type" mapstructure:"type"`
	File  file.FileSourceConfig `json:"file" mapstructure:"file"`
	S3    s3.S3Config           `json:"s3" mapstructure:"s3"`
	Redis redis.RedisConfig     `json:"redis" mapstructure:"redis"`
}

// CreateFunc creates a connected reference source
type CreateFunc func(ctx context.Context, config *SourceConfig) (interfaces.ReferenceSource, error)

// Factory creates reference sources by type
type Factory struct {
	creators map[string]CreateFunc
	mu       sync.RWMutex
	logger   *logrus.Logger
}

// NewFactory creates a new source factory with the file, s3 and redis backends
func NewFactory(logger *logrus.Logger) *Factory {
	if logger == nil {
		logger = logrus.New()
	}

	factory := &Factory{
		creators: make(map[string]CreateFunc),
		logger:   logger,
	}

	factory.registerDefaults()

	return factory
}

// CreateSource creates and connects the source named by config.Type
func (f *Factory) CreateSource(ctx context.Context, config *SourceConfig) (interfaces.ReferenceSource, error) {
	if config == nil {
		return nil, errors.NewConfigurationError(errors.CodeInvalidSource, "source config cannot be nil")
	}

	f.mu.RLock()
	createFunc, exists := f.creators[config.Type]
	f.mu.RUnlock()

	if !exists {
		return nil, errors.NewConfigurationError(errors.CodeInvalidSource,
			fmt.Sprintf("Source type '%s' is not supported", config.Type))
	}

	source, err := createFunc(ctx, config)
	if err != nil {
		return nil, err
	}

	f.logger.WithFields(logrus.Fields{
		"source_type": config.Type,
	}).Info("Created reference source")

	return source, nil
}

// GetSupportedTypes returns all supported source types
func (f *Factory) GetSupportedTypes() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	types := make([]string, 0, len(f.creators))
	for sourceType := range f.creators {
		types = append(types, sourceType)
	}
	sort.Strings(types)

	return types
}

// RegisterSource registers a new source type
func (f *Factory) RegisterSource(sourceType string, createFunc CreateFunc) error {
	if sourceType == "" {
		return errors.NewConfigurationError(errors.CodeInvalidSource, "Source type cannot be empty")
	}

	if createFunc == nil {
		return errors.NewConfigurationError(errors.CodeInvalidSource, "Source create function cannot be nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.creators[sourceType] = createFunc

	f.logger.WithFields(logrus.Fields{
		"source_type": sourceType,
	}).Debug("Registered source type")

	return nil
}

// IsSupported checks if a source type is supported
func (f *Factory) IsSupported(sourceType string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	_, exists := f.creators[sourceType]
	return exists
}

func (f *Factory) registerDefaults() {
	f.RegisterSource(constants.SourceTypeFile, func(ctx context.Context, config *SourceConfig) (interfaces.ReferenceSource, error) {
		fileConfig := config.File
		return file.NewFileSource(&fileConfig, f.logger)
	})

	f.RegisterSource(constants.SourceTypeS3, func(ctx context.Context, config *SourceConfig) (interfaces.ReferenceSource, error) {
		s3Config := config.S3
		store, err := s3.NewReferenceStore(&s3Config, f.logger)
		if err != nil {
			return nil, err
		}
		if err := store.Connect(ctx); err != nil {
			return nil, err
		}
		return store, nil
	})

	f.RegisterSource(constants.SourceTypeRedis, func(ctx context.Context, config *SourceConfig) (interfaces.ReferenceSource, error) {
		redisConfig := config.Redis
		store, err := redis.NewReferenceStore(&redisConfig, f.logger)
		if err != nil {
			return nil, err
		}
		if err := store.Connect(ctx); err != nil {
			return nil, err
		}
		return store, nil
	})
}
