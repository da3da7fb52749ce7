// Package risk models publication as a game between a data publisher and a
// rational adversary who attacks a record only when the expected gain of a
// re-identification exceeds the cost of the attempt.
package risk

import (
	"github.com/arx-deidentifier/gta-benchmark/pkg/models"
)

// CostBenefitModel evaluates adversary and publisher payoffs for a fixed set of
// game parameters. It is immutable and safe for concurrent use.
type CostBenefitModel struct {
	config models.CostBenefitConfig
}

// NewCostBenefitModel validates the game parameters and creates the model
func NewCostBenefitModel(config models.CostBenefitConfig) (*CostBenefitModel, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &CostBenefitModel{config: config}, nil
}

// Config returns the game parameters
func (m *CostBenefitModel) Config() models.CostBenefitConfig {
	return m.config
}

// AdversaryPayoff returns gain*p - cost, the expected payoff of attacking a
// record re-identified with probability p
func (m *CostBenefitModel) AdversaryPayoff(successProbability float64) float64 {
	return m.config.AdversaryGain*successProbability - m.config.AdversaryCost
}

// Deterred reports whether a rational adversary refrains from attacking
func (m *CostBenefitModel) Deterred(successProbability float64) bool {
	return m.AdversaryPayoff(successProbability) <= 0
}

// ExpectedPublisherPayout returns the publisher's payout for one record with
// information loss il. The benefit shrinks with the loss; an attacked record
// additionally costs the expected loss of a re-identification.
func (m *CostBenefitModel) ExpectedPublisherPayout(informationLoss, successProbability float64) float64 {
	payout := m.config.PublisherBenefit * (1 - informationLoss)
	if m.Deterred(successProbability) {
		return payout
	}
	return payout - m.config.PublisherLoss*successProbability
}

func (m *CostBenefitModel) String() string {
	return m.config.String()
}
