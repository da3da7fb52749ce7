package redis

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/arx-deidentifier/gta-benchmark/internal/utils/encoding"
	"github.com/arx-deidentifier/gta-benchmark/pkg/errors"
	"github.com/arx-deidentifier/gta-benchmark/pkg/interfaces"
)

// RedisConfig holds configuration for reference tables kept as Redis blobs
type RedisConfig struct {
	Addr          string        `json:"addr" mapstructure:"addr"`
	Password      string        `json:"password" mapstructure:"password"`
	DB            int           `json:"db" mapstructure:"db"`
	DialTimeout   time.Duration `json:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout   time.Duration `json:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `json:"write_timeout" mapstructure:"write_timeout"`
	PoolSize      int           `json:"pool_size" mapstructure:"pool_size"`
	MaxRetries    int           `json:"max_retries" mapstructure:"max_retries"`
	TTL           time.Duration `json:"ttl" mapstructure:"ttl"`
	KeyPrefix     string        `json:"key_prefix" mapstructure:"key_prefix"`
	UseClustering bool          `json:"use_clustering" mapstructure:"use_clustering"`
	ClusterAddrs  []string      `json:"cluster_addrs" mapstructure:"cluster_addrs"`
}

// ReferenceStore reads and publishes reference tables in Redis
type ReferenceStore struct {
	config *RedisConfig
	client redis.UniversalClient
	logger *logrus.Logger
	mu     sync.RWMutex
	closed bool
}

var _ interfaces.ReferencePublisher = (*ReferenceStore)(nil)

// NewReferenceStore creates a new Redis reference store. Connect must be
// called before use.
func NewReferenceStore(config *RedisConfig, logger *logrus.Logger) (*ReferenceStore, error) {
	if config == nil {
		return nil, errors.NewConfigurationError(errors.CodeInvalidSource, "Redis config cannot be nil")
	}

	if config.Addr == "" && len(config.ClusterAddrs) == 0 {
		return nil, errors.NewConfigurationError(errors.CodeInvalidSource, "Redis address or cluster addresses are required")
	}

	if logger == nil {
		logger = logrus.New()
	}

	return &ReferenceStore{
		config: config,
		logger: logger,
	}, nil
}

// Connect establishes connection to Redis
func (r *ReferenceStore) Connect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client != nil {
		return nil // Already connected
	}

	var client redis.UniversalClient

	if r.config.UseClustering && len(r.config.ClusterAddrs) > 0 {
		client = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:        r.config.ClusterAddrs,
			Password:     r.config.Password,
			DialTimeout:  r.config.DialTimeout,
			ReadTimeout:  r.config.ReadTimeout,
			WriteTimeout: r.config.WriteTimeout,
			PoolSize:     r.config.PoolSize,
			MaxRetries:   r.config.MaxRetries,
		})
	} else {
		client = redis.NewClient(&redis.Options{
			Addr:         r.config.Addr,
			Password:     r.config.Password,
			DB:           r.config.DB,
			DialTimeout:  r.config.DialTimeout,
			ReadTimeout:  r.config.ReadTimeout,
			WriteTimeout: r.config.WriteTimeout,
			PoolSize:     r.config.PoolSize,
			MaxRetries:   r.config.MaxRetries,
		})
	}

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return errors.WrapStorageError(err, errors.CodeConnectionFailed, "Failed to connect to Redis")
	}

	r.client = client
	r.closed = false

	r.logger.WithFields(logrus.Fields{
		"addr":       r.config.Addr,
		"db":         r.config.DB,
		"clustering": r.config.UseClustering,
	}).Info("Connected to Redis")

	return nil
}

// Open reads a table blob. Names ending in .gz are decompressed.
func (r *ReferenceStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed || r.client == nil {
		return nil, errors.NewStorageError(errors.CodeNotConnected, "Redis not connected")
	}

	key := r.generateKey(name)
	data, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, errors.WrapStorageError(errors.ErrSourceNotFound, errors.CodeObjectNotFound,
			fmt.Sprintf("Table '%s' not found", name)).WithContext("key", key)
	}
	if err != nil {
		return nil, errors.WrapStorageError(err, errors.CodeReadFailed, "Failed to read from Redis")
	}

	r.logger.WithFields(logrus.Fields{
		"key":  key,
		"size": len(data),
	}).Debug("Opened reference table")

	rc, err := encoding.DecompressReader(name, io.NopCloser(bytes.NewReader(data)))
	if err != nil {
		return nil, errors.WrapStorageError(err, errors.CodeReadFailed, "Failed to decompress data")
	}
	return rc, nil
}

// Put stores a table blob, expiring after the configured TTL if any
func (r *ReferenceStore) Put(ctx context.Context, name string, body io.Reader) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed || r.client == nil {
		return errors.NewStorageError(errors.CodeNotConnected, "Redis not connected")
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return errors.WrapStorageError(err, errors.CodeReadFailed, "Failed to read table")
	}

	key := r.generateKey(name)
	if err := r.client.Set(ctx, key, data, r.config.TTL).Err(); err != nil {
		return errors.WrapStorageError(err, errors.CodeConnectionFailed, "Failed to write to Redis")
	}

	r.logger.WithFields(logrus.Fields{
		"key":  key,
		"size": len(data),
	}).Info("Published reference table")
	return nil
}

// Close closes the Redis connection
func (r *ReferenceStore) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	if r.client != nil {
		err := r.client.Close()
		r.client = nil
		if err != nil {
			return errors.WrapStorageError(err, errors.CodeConnectionFailed, "Failed to close Redis connection")
		}
	}

	r.logger.Info("Redis connection closed")
	return nil
}

func (r *ReferenceStore) generateKey(name string) string {
	if r.config.KeyPrefix != "" {
		return fmt.Sprintf("%s:population:%s", r.config.KeyPrefix, name)
	}
	return fmt.Sprintf("population:%s", name)
}
