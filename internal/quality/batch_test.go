package quality

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arx-deidentifier/gta-benchmark/internal/observability/metrics"
	"github.com/arx-deidentifier/gta-benchmark/pkg/errors"
	"github.com/arx-deidentifier/gta-benchmark/pkg/models"
)

func testPartitions(levels ...int) []Partition {
	partitions := make([]Partition, 0, len(levels))
	for _, level := range levels {
		partitions = append(partitions, Partition{
			ID:             fmt.Sprintf("level-%d", level),
			Transformation: models.NewTransformation(level),
			Classes:        testClasses(),
		})
	}
	return partitions
}

func TestBatchEvaluate(t *testing.T) {
	pm, err := metrics.NewPrometheusMetrics(nil, logrus.New())
	require.NoError(t, err)

	m := newMetric(t, 0.5, 105, levelLoss{})
	evaluator := NewBatchEvaluator(m, 2, pm, logrus.New())

	result, err := evaluator.Evaluate(context.Background(), testPartitions(3, 1, 6, 2))
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, result.RunID)
	require.Len(t, result.Results, 4)

	// results keep the order of the partitions
	for i, id := range []string{"level-3", "level-1", "level-6", "level-2"} {
		assert.Equal(t, id, result.Results[i].PartitionID)
		assert.Equal(t, 4, result.Results[i].Classes)
		assert.Equal(t, 3, result.Results[i].SuppressedRecords)
	}

	level1 := result.Results[1]
	assert.Equal(t, 2, level1.AnonymousClasses)
	assert.Equal(t, 102, level1.AnonymousRecords)
	assert.InDelta(t, 16140.0, level1.Loss.Real, 1e-6)

	best, ok := result.Best()
	require.True(t, ok)
	assert.Equal(t, "level-1", best.PartitionID)

	count, err := testutil.GatherAndCount(pm.Registry(), "gta_partitions_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestBatchEvaluateEmpty(t *testing.T) {
	evaluator := NewBatchEvaluator(newMetric(t, 0.5, 0, levelLoss{}), 0, nil, nil)

	result, err := evaluator.Evaluate(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, result.Results)

	_, ok := result.Best()
	assert.False(t, ok)
}

// failingCriterion reports corrupted reference data for every class
type failingCriterion struct{}

func (failingCriterion) AttackerModel() models.AttackerModel { return models.Journalist }

func (failingCriterion) SuccessProbability(models.Transformation, *models.EquivalenceClass) (float64, error) {
	return 0, errors.NewInvariantViolation(errors.CodeCensusRiskExceeded, "census risk exceeds sample risk")
}

func (f failingCriterion) IsAnonymous(t models.Transformation, class *models.EquivalenceClass) (bool, error) {
	_, err := f.SuccessProbability(t, class)
	return false, err
}

func (failingCriterion) LocalRecodingSupported() bool { return true }

func (failingCriterion) Subset() *models.DataSubset { return nil }

func (failingCriterion) String() string { return "failing" }

func TestBatchEvaluateAbortsOnInvariantViolation(t *testing.T) {
	m, err := NewPublisherPayoutMetric(PublisherPayoutConfig{
		Game:       models.DefaultCostBenefitConfig(),
		GSFactor:   0.5,
		NumRecords: 105,
	}, failingCriterion{}, levelLoss{}, nil, logrus.New())
	require.NoError(t, err)

	evaluator := NewBatchEvaluator(m, 4, nil, logrus.New())
	result, err := evaluator.Evaluate(context.Background(), testPartitions(0, 1, 2, 3, 4, 5))
	assert.Nil(t, result)
	assert.True(t, errors.IsInvariantViolation(err))
}

func TestBatchEvaluateHonorsCancellation(t *testing.T) {
	evaluator := NewBatchEvaluator(newMetric(t, 0.5, 105, levelLoss{}), 1, nil, logrus.New())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := evaluator.Evaluate(ctx, testPartitions(0, 1, 2))
	assert.ErrorIs(t, err, context.Canceled)
}
