package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordDecision(t *testing.T) {
	pm, err := NewPrometheusMetrics(nil, logrus.New())
	require.NoError(t, err)

	pm.RecordDecision("prosecutor", OutcomeSafe)
	pm.RecordDecision("prosecutor", OutcomeSafe)
	pm.RecordDecision("journalist", OutcomeUnsafe)

	assert.Equal(t, 2.0, testutil.ToFloat64(pm.decisionsTotal.WithLabelValues("prosecutor", OutcomeSafe)))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.decisionsTotal.WithLabelValues("journalist", OutcomeUnsafe)))
}

func TestObserveEvaluation(t *testing.T) {
	pm, err := NewPrometheusMetrics(&PrometheusConfig{Namespace: "test"}, logrus.New())
	require.NoError(t, err)

	pm.ObserveEvaluation("journalist", 12, 3*time.Millisecond)
	pm.RecordInvariantViolation("CENSUS_RISK_EXCEEDED")
	pm.RecordPartition("ok")

	assert.Equal(t, 12.0, testutil.ToFloat64(pm.classesEvaluatedTotal.WithLabelValues("journalist")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.invariantViolationsTotal.WithLabelValues("CENSUS_RISK_EXCEEDED")))
	assert.Equal(t, 1, testutil.CollectAndCount(pm.evaluationDuration))

	count, err := testutil.GatherAndCount(pm.Registry(), "test_partitions_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSeparateInstancesDoNotConflict(t *testing.T) {
	first, err := NewPrometheusMetrics(nil, nil)
	require.NoError(t, err)
	second, err := NewPrometheusMetrics(nil, nil)
	require.NoError(t, err)

	first.RecordDecision("prosecutor", OutcomeSafe)
	assert.Equal(t, 0.0, testutil.ToFloat64(second.decisionsTotal.WithLabelValues("prosecutor", OutcomeSafe)))
}

func TestNilMetrics(t *testing.T) {
	var pm *PrometheusMetrics

	assert.NotPanics(t, func() {
		pm.RecordDecision("prosecutor", OutcomeSafe)
		pm.RecordInvariantViolation("code")
		pm.ObserveEvaluation("prosecutor", 1, time.Second)
		pm.RecordPartition("ok")
	})
	assert.NoError(t, pm.Stop(context.Background()))
}

func TestStartDisabled(t *testing.T) {
	pm, err := NewPrometheusMetrics(DefaultPrometheusConfig(), logrus.New())
	require.NoError(t, err)

	require.NoError(t, pm.Start(context.Background()))
	assert.NoError(t, pm.Stop(context.Background()))
}
