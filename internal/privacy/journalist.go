package privacy

import (
	"github.com/sirupsen/logrus"

	"github.com/arx-deidentifier/gta-benchmark/internal/observability/metrics"
	"github.com/arx-deidentifier/gta-benchmark/internal/risk"
	"github.com/arx-deidentifier/gta-benchmark/pkg/errors"
	"github.com/arx-deidentifier/gta-benchmark/pkg/interfaces"
	"github.com/arx-deidentifier/gta-benchmark/pkg/models"
)

// Journalist publishes a class when the publisher profits from it against an
// adversary who only knows the target belongs to a population subset.
type Journalist struct {
	decision
	subset *models.DataSubset
	census *CensusModel
}

var _ interfaces.Criterion = (*Journalist)(nil)

// NewJournalist creates the journalist criterion. A census model is required
// when the configuration asks for census correction.
func NewJournalist(config ProfitabilityConfig, lossModel interfaces.InformationLossModel, subset *models.DataSubset,
	census *CensusModel, pm *metrics.PrometheusMetrics, logger *logrus.Logger) (*Journalist, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if subset.Size() == 0 {
		return nil, errors.NewConfigurationError(errors.CodeMissingSubset,
			"the journalist model requires a non-empty population subset")
	}
	if config.UseCensus && census == nil {
		return nil, errors.NewConfigurationError(errors.CodeMissingCensus,
			"census correction requires a population table")
	}
	if lossModel == nil {
		return nil, errors.NewConfigurationError(errors.CodeInvalidDomain, "information loss model is required")
	}

	game, err := risk.NewCostBenefitModel(config.Game)
	if err != nil {
		return nil, err
	}

	j := &Journalist{
		decision: decision{
			model:   models.Journalist,
			config:  config,
			game:    game,
			loss:    lossModel,
			metrics: pm,
			logger:  logger,
		},
		subset: subset,
	}
	if config.UseCensus {
		j.census = census
	}

	logger.WithFields(logrus.Fields{
		"attacker_model":  models.Journalist,
		"game":            config.Game.String(),
		"subset":          subset.Name,
		"subset_size":     subset.Size(),
		"use_census":      config.UseCensus,
		"optimize":        config.Optimize,
		"gs_factor":       config.GSFactor,
		"naive_no_attack": config.NaiveNoAttack,
	}).Debug("Created profitability criterion")

	return j, nil
}

func (j *Journalist) AttackerModel() models.AttackerModel {
	return models.Journalist
}

// SuccessProbability returns the subset based probability, corrected by the
// population size of the class when census data is used. An error means the
// population table contradicts the sample and the evaluation must stop.
func (j *Journalist) SuccessProbability(t models.Transformation, class *models.EquivalenceClass) (float64, error) {
	p := JournalistProbability(class)
	if j.census == nil {
		return p, nil
	}
	return j.census.SuccessProbability(t, class.Key, p)
}

func (j *Journalist) IsAnonymous(t models.Transformation, class *models.EquivalenceClass) (bool, error) {
	if class.Count == 0 {
		return j.populationOnly(), nil
	}
	p, err := j.SuccessProbability(t, class)
	if err != nil {
		return false, err
	}
	return j.publishable(t, class, p), nil
}

func (j *Journalist) LocalRecodingSupported() bool {
	return true
}

func (j *Journalist) Subset() *models.DataSubset {
	return j.subset
}

// Game returns the cost-benefit model of the criterion
func (j *Journalist) Game() *risk.CostBenefitModel {
	return j.game
}
