package privacy

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/arx-deidentifier/gta-benchmark/internal/observability/metrics"
	"github.com/arx-deidentifier/gta-benchmark/internal/risk"
	"github.com/arx-deidentifier/gta-benchmark/pkg/interfaces"
	"github.com/arx-deidentifier/gta-benchmark/pkg/models"
)

// ProsecutorProbability returns 1/count, the chance of re-identifying a target
// known to be in the sample. Classes with no sample records yield 1.
func ProsecutorProbability(class *models.EquivalenceClass) float64 {
	if class.Count <= 0 {
		return 1
	}
	return 1 / float64(class.Count)
}

// JournalistProbability returns 1/subsetCount, falling back to 1/count when the
// subset count of the class is unknown
func JournalistProbability(class *models.EquivalenceClass) float64 {
	if class.SubsetCount > 0 {
		return 1 / float64(class.SubsetCount)
	}
	return ProsecutorProbability(class)
}

// decision holds what the criteria share. It is immutable after construction.
type decision struct {
	model   models.AttackerModel
	config  ProfitabilityConfig
	game    *risk.CostBenefitModel
	loss    interfaces.InformationLossModel
	metrics *metrics.PrometheusMetrics
	logger  *logrus.Logger
}

// threshold is the payout a class must exceed to be published
func (d *decision) threshold() float64 {
	if d.config.Optimize {
		return (1 - d.config.GSFactor) * d.config.Game.PublisherBenefit
	}
	return 0
}

// publishable plays the game for a class with success probability p
func (d *decision) publishable(t models.Transformation, class *models.EquivalenceClass, p float64) bool {
	if d.config.NaiveNoAttack && d.game.Deterred(p) {
		d.metrics.RecordDecision(string(d.model), metrics.OutcomeNoAttack)
		return true
	}

	il := d.loss.InformationLoss(t, class)
	payout := d.game.ExpectedPublisherPayout(il, p)
	safe := payout > d.threshold()

	if d.logger.IsLevelEnabled(logrus.TraceLevel) {
		d.logger.WithFields(logrus.Fields{
			"attacker_model":      d.model,
			"transformation":      t.String(),
			"count":               class.Count,
			"success_probability": p,
			"information_loss":    il,
			"payout":              payout,
			"safe":                safe,
		}).Trace("Evaluated equivalence class")
	}

	if safe {
		d.metrics.RecordDecision(string(d.model), metrics.OutcomeSafe)
	} else {
		d.metrics.RecordDecision(string(d.model), metrics.OutcomeUnsafe)
	}
	return safe
}

func (d *decision) populationOnly() bool {
	d.metrics.RecordDecision(string(d.model), metrics.OutcomePopulationOnly)
	return false
}

func (d *decision) String() string {
	return fmt.Sprintf("profitability (%s)%s %s", d.model, d.config.modes(), d.config.Game.String())
}
