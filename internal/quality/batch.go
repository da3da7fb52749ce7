package quality

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/arx-deidentifier/gta-benchmark/internal/observability/metrics"
	"github.com/arx-deidentifier/gta-benchmark/pkg/constants"
	"github.com/arx-deidentifier/gta-benchmark/pkg/models"
)

// Partition is the grouping of the input table under one transformation
type Partition struct {
	ID             string                     `json:"id"`
	Transformation models.Transformation      `json:"transformation"`
	Classes        []*models.EquivalenceClass `json:"classes"`
}

// PartitionResult holds the decisions and the score of one partition
type PartitionResult struct {
	PartitionID       string                `json:"partition_id"`
	Transformation    models.Transformation `json:"transformation"`
	Loss              *InformationLoss      `json:"loss"`
	Classes           int                   `json:"classes"`
	AnonymousClasses  int                   `json:"anonymous_classes"`
	AnonymousRecords  int                   `json:"anonymous_records"`
	SuppressedRecords int                   `json:"suppressed_records"`
}

// BatchResult holds the results of a batch in the order the partitions were given
type BatchResult struct {
	RunID    uuid.UUID          `json:"run_id"`
	Results  []*PartitionResult `json:"results"`
	Duration time.Duration      `json:"duration"`
}

// Best returns the result with the lowest real loss
func (r *BatchResult) Best() (*PartitionResult, bool) {
	if len(r.Results) == 0 {
		return nil, false
	}
	losses := make([]float64, len(r.Results))
	for i, res := range r.Results {
		losses[i] = res.Loss.Real
	}
	return r.Results[floats.MinIdx(losses)], true
}

// BatchEvaluator scores many partitions concurrently with one metric
type BatchEvaluator struct {
	metric  *PublisherPayoutMetric
	workers int
	metrics *metrics.PrometheusMetrics
	logger  *logrus.Logger
}

// NewBatchEvaluator creates an evaluator running at most workers partitions at once
func NewBatchEvaluator(metric *PublisherPayoutMetric, workers int, pm *metrics.PrometheusMetrics, logger *logrus.Logger) *BatchEvaluator {
	if logger == nil {
		logger = logrus.New()
	}
	if workers <= 0 {
		workers = constants.DefaultWorkerConcurrency
	}
	return &BatchEvaluator{
		metric:  metric,
		workers: workers,
		metrics: pm,
		logger:  logger,
	}
}

// Evaluate scores every partition. The first error, such as an invariant
// violation, cancels the remaining work and is returned.
func (b *BatchEvaluator) Evaluate(ctx context.Context, partitions []Partition) (*BatchResult, error) {
	start := time.Now()
	runID := uuid.New()

	logger := b.logger.WithFields(logrus.Fields{
		"run_id":     runID.String(),
		"partitions": len(partitions),
		"workers":    b.workers,
	})
	logger.Info("Starting batch evaluation")

	results := make([]*PartitionResult, len(partitions))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)

	for i := range partitions {
		partition := &partitions[i]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := b.evaluate(partition)
			if err != nil {
				b.metrics.RecordPartition("failed")
				logger.WithFields(logrus.Fields{
					"partition_id": partition.ID,
					"error":        err,
				}).Error("Partition evaluation failed")
				return err
			}
			b.metrics.RecordPartition("ok")
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &BatchResult{
		RunID:    runID,
		Results:  results,
		Duration: time.Since(start),
	}
	logger.WithField("duration", result.Duration).Info("Batch evaluation completed")
	return result, nil
}

func (b *BatchEvaluator) evaluate(p *Partition) (*PartitionResult, error) {
	criterion := b.metric.Criterion()
	res := &PartitionResult{
		PartitionID:    p.ID,
		Transformation: p.Transformation,
		Classes:        len(p.Classes),
	}

	for _, class := range p.Classes {
		if class.Outlier {
			res.SuppressedRecords += class.Count
			continue
		}
		ok, err := criterion.IsAnonymous(p.Transformation, class)
		if err != nil {
			return nil, err
		}
		if ok {
			res.AnonymousClasses++
			res.AnonymousRecords += class.Count
		}
	}

	loss, err := b.metric.InformationLoss(p.Transformation, p.Classes)
	if err != nil {
		return nil, err
	}
	res.Loss = loss
	return res, nil
}
