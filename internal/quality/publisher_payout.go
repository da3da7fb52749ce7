// Package quality scores whole partitions by the payout a publisher forgoes
// when releasing them: suppressed records lose their full benefit, published
// records lose the difference between the benefit and their expected payout.
package quality

import (
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/arx-deidentifier/gta-benchmark/internal/observability/metrics"
	"github.com/arx-deidentifier/gta-benchmark/internal/risk"
	"github.com/arx-deidentifier/gta-benchmark/pkg/errors"
	"github.com/arx-deidentifier/gta-benchmark/pkg/interfaces"
	"github.com/arx-deidentifier/gta-benchmark/pkg/models"
)

// PublisherPayoutConfig configures the payout metric
type PublisherPayoutConfig struct {
	Game models.CostBenefitConfig `json:"game"`

	// GSFactor weighs suppression (towards 0) against generalization (towards 1)
	GSFactor float64 `json:"gs_factor"`

	// NumRecords is the number of records of the input table
	NumRecords int `json:"num_records"`
}

// InformationLoss is the score of a partition. Real and Bound are compared by
// the search; the metadata is for reporting only.
type InformationLoss struct {
	Real     float64        `json:"real"`
	Bound    float64        `json:"bound"`
	Metadata PayoutMetadata `json:"metadata"`
}

// PayoutMetadata reports the payout achieved and the payout achievable
type PayoutMetadata struct {
	TotalPayout float64 `json:"total_payout"`
	MaxPayout   float64 `json:"max_payout"`
}

// PublisherPayoutMetric is immutable and safe for concurrent use.
type PublisherPayoutMetric struct {
	config    PublisherPayoutConfig
	criterion interfaces.Criterion
	game      *risk.CostBenefitModel
	loss      interfaces.InformationLossModel
	sFactor   float64
	gFactor   float64
	maxPayout float64
	metrics   *metrics.PrometheusMetrics
	logger    *logrus.Logger
}

// NewPublisherPayoutMetric creates the metric. Success probabilities come from
// the criterion, so census correction applies to the metric as well.
func NewPublisherPayoutMetric(config PublisherPayoutConfig, criterion interfaces.Criterion,
	lossModel interfaces.InformationLossModel, pm *metrics.PrometheusMetrics, logger *logrus.Logger) (*PublisherPayoutMetric, error) {
	if logger == nil {
		logger = logrus.New()
	}

	ve := errors.NewValidationErrors()
	config.Game.AddValidationErrors(ve)
	if math.IsNaN(config.GSFactor) || config.GSFactor < 0 || config.GSFactor > 1 {
		ve.Add("gs_factor", errors.CodeInvalidGSFactor, "a number in [0,1]", config.GSFactor)
	}
	if config.NumRecords < 0 {
		ve.Add("num_records", errors.CodeInvalidDomain, ">= 0", config.NumRecords)
	}
	if err := ve.Err(); err != nil {
		return nil, err
	}
	if criterion == nil || lossModel == nil {
		return nil, errors.NewConfigurationError(errors.CodeInvalidDomain, "criterion and information loss model are required")
	}

	game, err := risk.NewCostBenefitModel(config.Game)
	if err != nil {
		return nil, err
	}

	sFactor, gFactor := splitGSFactor(config.GSFactor)
	m := &PublisherPayoutMetric{
		config:    config,
		criterion: criterion,
		game:      game,
		loss:      lossModel,
		sFactor:   sFactor,
		gFactor:   gFactor,
		maxPayout: float64(config.NumRecords) * config.Game.PublisherBenefit,
		metrics:   pm,
		logger:    logger,
	}

	logger.WithFields(logrus.Fields{
		"attacker_model":        criterion.AttackerModel(),
		"gs_factor":             config.GSFactor,
		"suppression_factor":    sFactor,
		"generalization_factor": gFactor,
		"num_records":           config.NumRecords,
	}).Debug("Created publisher payout metric")

	return m, nil
}

// splitGSFactor maps the gs-factor to the weights of suppressed and generalized
// records. At 0.5 both are weighted fully.
func splitGSFactor(gs float64) (sFactor, gFactor float64) {
	if gs <= 0.5 {
		return 2 * gs, 1
	}
	return 1, 1 - 2*(gs-0.5)
}

// Criterion returns the criterion the metric takes its probabilities from
func (m *PublisherPayoutMetric) Criterion() interfaces.Criterion {
	return m.criterion
}

// InformationLoss scores all classes of a partition. Classes without sample
// records do not contribute. An error is an invariant violation of the
// criterion and aborts the evaluation.
func (m *PublisherPayoutMetric) InformationLoss(t models.Transformation, classes []*models.EquivalenceClass) (*InformationLoss, error) {
	start := time.Now()

	result := &InformationLoss{Metadata: PayoutMetadata{MaxPayout: m.maxPayout}}
	for _, class := range classes {
		if class.Count == 0 {
			continue
		}
		if err := m.add(result, t, class); err != nil {
			return nil, err
		}
	}

	m.metrics.ObserveEvaluation(string(m.criterion.AttackerModel()), len(classes), time.Since(start))
	if m.logger.IsLevelEnabled(logrus.DebugLevel) {
		m.logger.WithFields(logrus.Fields{
			"transformation": t.String(),
			"classes":        len(classes),
			"real":           result.Real,
			"bound":          result.Bound,
			"total_payout":   result.Metadata.TotalPayout,
		}).Debug("Scored partition")
	}
	return result, nil
}

// ClassInformationLoss scores a single class
func (m *PublisherPayoutMetric) ClassInformationLoss(t models.Transformation, class *models.EquivalenceClass) (*InformationLoss, error) {
	result := &InformationLoss{Metadata: PayoutMetadata{MaxPayout: m.maxPayout}}
	if class.Count == 0 {
		return result, nil
	}
	if err := m.add(result, t, class); err != nil {
		return nil, err
	}
	return result, nil
}

func (m *PublisherPayoutMetric) add(result *InformationLoss, t models.Transformation, class *models.EquivalenceClass) error {
	benefit := m.config.Game.PublisherBenefit
	count := float64(class.Count)
	il := m.loss.InformationLoss(t, class)

	result.Bound += m.gFactor * count * (benefit - m.game.ExpectedPublisherPayout(il, 0))

	if class.Outlier {
		result.Real += m.sFactor * count * benefit
		return nil
	}

	p, err := m.criterion.SuccessProbability(t, class)
	if err != nil {
		return err
	}
	payout := m.game.ExpectedPublisherPayout(il, p)
	result.Real += m.gFactor * count * (benefit - payout)
	result.Metadata.TotalPayout += count * payout
	return nil
}

// LowerBound is not available without the classes of a partition
func (m *PublisherPayoutMetric) LowerBound(t models.Transformation) (float64, bool) {
	return 0, false
}

// LowerBoundForPartition returns the loss of the partition if no class were at
// risk. It never exceeds the real loss of the partition or of any finer one.
func (m *PublisherPayoutMetric) LowerBoundForPartition(t models.Transformation, classes []*models.EquivalenceClass) float64 {
	benefit := m.config.Game.PublisherBenefit
	var bound float64
	for _, class := range classes {
		if class.Count == 0 {
			continue
		}
		il := m.loss.InformationLoss(t, class)
		bound += m.gFactor * float64(class.Count) * (benefit - m.game.ExpectedPublisherPayout(il, 0))
	}
	return bound
}

// MaxInformationLoss returns the loss when every record is either suppressed,
// or fully generalized and certainly re-identified. This is larger than
// MaxPayout, which only reports numRecords * publisherBenefit.
func (m *PublisherPayoutMetric) MaxInformationLoss() float64 {
	n := float64(m.config.NumRecords)
	g := m.config.Game
	return n * math.Max(m.sFactor*g.PublisherBenefit, m.gFactor*(g.PublisherBenefit+g.PublisherLoss))
}

// MinInformationLoss returns 0: every record published without loss or risk
func (m *PublisherPayoutMetric) MinInformationLoss() float64 {
	return 0
}

// MaxPayout returns numRecords * publisherBenefit
func (m *PublisherPayoutMetric) MaxPayout() float64 {
	return m.maxPayout
}

func (m *PublisherPayoutMetric) String() string {
	return fmt.Sprintf("publisher payout (%s, gs=%g)", m.criterion.AttackerModel(), m.config.GSFactor)
}
