package redis

import (
	"context"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arx-deidentifier/gta-benchmark/pkg/errors"
)

func TestNewReferenceStore(t *testing.T) {
	config := &RedisConfig{
		Addr: "localhost:6379",
		DB:   0,
	}

	logger := logrus.New()
	store, err := NewReferenceStore(config, logger)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, config, store.config)
	assert.Equal(t, logger, store.logger)
}

func TestNewReferenceStoreInvalidConfig(t *testing.T) {
	_, err := NewReferenceStore(nil, logrus.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Redis config cannot be nil")

	_, err = NewReferenceStore(&RedisConfig{}, logrus.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Redis address or cluster addresses are required")
	assert.True(t, errors.IsConfigurationError(err))

	store, err := NewReferenceStore(&RedisConfig{UseClustering: true, ClusterAddrs: []string{"localhost:7000"}}, nil)
	require.NoError(t, err)
	assert.NotNil(t, store.logger)
}

func TestReferenceStoreGenerateKey(t *testing.T) {
	store, err := NewReferenceStore(&RedisConfig{Addr: "localhost:6379", KeyPrefix: "gta"}, logrus.New())
	require.NoError(t, err)
	assert.Equal(t, "gta:population:vocabulary.csv", store.generateKey("vocabulary.csv"))

	store, err = NewReferenceStore(&RedisConfig{Addr: "localhost:6379"}, logrus.New())
	require.NoError(t, err)
	assert.Equal(t, "population:frequencies.csv", store.generateKey("frequencies.csv"))
}

func TestReferenceStoreNotConnected(t *testing.T) {
	store, err := NewReferenceStore(&RedisConfig{Addr: "localhost:6379"}, logrus.New())
	require.NoError(t, err)

	_, err = store.Open(context.Background(), "vocabulary.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOT_CONNECTED")

	err = store.Put(context.Background(), "vocabulary.csv", strings.NewReader("0;0;white\n"))
	require.Error(t, err)

	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}
