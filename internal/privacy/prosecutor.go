package privacy

import (
	"github.com/sirupsen/logrus"

	"github.com/arx-deidentifier/gta-benchmark/internal/observability/metrics"
	"github.com/arx-deidentifier/gta-benchmark/internal/risk"
	"github.com/arx-deidentifier/gta-benchmark/pkg/errors"
	"github.com/arx-deidentifier/gta-benchmark/pkg/interfaces"
	"github.com/arx-deidentifier/gta-benchmark/pkg/models"
)

// Prosecutor publishes a class when the publisher profits from it against an
// adversary who knows the target is in the sample.
type Prosecutor struct {
	decision
}

var _ interfaces.Criterion = (*Prosecutor)(nil)

// NewProsecutor creates the prosecutor criterion. Census correction and local
// recoding thresholds only apply to the journalist model.
func NewProsecutor(config ProfitabilityConfig, lossModel interfaces.InformationLossModel,
	pm *metrics.PrometheusMetrics, logger *logrus.Logger) (*Prosecutor, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.UseCensus || config.Optimize {
		return nil, errors.NewConfigurationError(errors.CodeInvalidAttackerModel,
			"census data and local recoding require the journalist model")
	}
	if lossModel == nil {
		return nil, errors.NewConfigurationError(errors.CodeInvalidDomain, "information loss model is required")
	}

	game, err := risk.NewCostBenefitModel(config.Game)
	if err != nil {
		return nil, err
	}

	p := &Prosecutor{decision{
		model:   models.Prosecutor,
		config:  config,
		game:    game,
		loss:    lossModel,
		metrics: pm,
		logger:  logger,
	}}

	logger.WithFields(logrus.Fields{
		"attacker_model":  models.Prosecutor,
		"game":            config.Game.String(),
		"naive_no_attack": config.NaiveNoAttack,
	}).Debug("Created profitability criterion")

	return p, nil
}

func (p *Prosecutor) AttackerModel() models.AttackerModel {
	return models.Prosecutor
}

func (p *Prosecutor) SuccessProbability(_ models.Transformation, class *models.EquivalenceClass) (float64, error) {
	return ProsecutorProbability(class), nil
}

// IsAnonymous never fails for the prosecutor model
func (p *Prosecutor) IsAnonymous(t models.Transformation, class *models.EquivalenceClass) (bool, error) {
	if class.Count == 0 {
		return p.populationOnly(), nil
	}
	return p.publishable(t, class, ProsecutorProbability(class)), nil
}

func (p *Prosecutor) LocalRecodingSupported() bool {
	return true
}

func (p *Prosecutor) Subset() *models.DataSubset {
	return nil
}

// Game returns the cost-benefit model of the criterion
func (p *Prosecutor) Game() *risk.CostBenefitModel {
	return p.game
}
