package models

import (
	"fmt"
	"math"

	"github.com/arx-deidentifier/gta-benchmark/pkg/constants"
	"github.com/arx-deidentifier/gta-benchmark/pkg/errors"
)

// CostBenefitConfig parameterizes the Stackelberg game between the publisher
// and a rational adversary. It is immutable for a run.
type CostBenefitConfig struct {
	AdversaryCost    float64 `json:"adversary_cost" mapstructure:"adversary_cost"`
	AdversaryGain    float64 `json:"adversary_gain" mapstructure:"adversary_gain"`
	PublisherLoss    float64 `json:"publisher_loss" mapstructure:"publisher_loss"`
	PublisherBenefit float64 `json:"publisher_benefit" mapstructure:"publisher_benefit"`
}

// DefaultCostBenefitConfig returns the default game parameters
func DefaultCostBenefitConfig() CostBenefitConfig {
	return CostBenefitConfig{
		AdversaryCost:    constants.DefaultAdversaryCost,
		AdversaryGain:    constants.DefaultAdversaryGain,
		PublisherLoss:    constants.DefaultPublisherLoss,
		PublisherBenefit: constants.DefaultPublisherBenefit,
	}
}

// Validate checks adversaryCost>0, adversaryGain>=0, publisherLoss>=0 and
// publisherBenefit>0, all finite.
func (c CostBenefitConfig) Validate() error {
	ve := errors.NewValidationErrors()
	c.AddValidationErrors(ve)
	return ve.Err()
}

// AddValidationErrors records every invalid parameter into ve
func (c CostBenefitConfig) AddValidationErrors(ve *errors.ValidationErrors) {
	check := func(field string, value float64, positive bool) {
		switch {
		case math.IsNaN(value) || math.IsInf(value, 0):
			ve.Add(field, errors.CodeInvalidGameParameter, "a finite number", value)
		case positive && value <= 0:
			ve.Add(field, errors.CodeInvalidGameParameter, "> 0", value)
		case !positive && value < 0:
			ve.Add(field, errors.CodeInvalidGameParameter, ">= 0", value)
		}
	}
	check("adversary_cost", c.AdversaryCost, true)
	check("adversary_gain", c.AdversaryGain, false)
	check("publisher_loss", c.PublisherLoss, false)
	check("publisher_benefit", c.PublisherBenefit, true)
}

func (c CostBenefitConfig) String() string {
	return fmt.Sprintf("{cost=%g gain=%g loss=%g benefit=%g}",
		c.AdversaryCost, c.AdversaryGain, c.PublisherLoss, c.PublisherBenefit)
}

// AttackerModel names the adversary's background knowledge
type AttackerModel string

const (
	// Prosecutor: the adversary knows the target is in the released sample
	Prosecutor AttackerModel = constants.AttackerModelProsecutor
	// Journalist: the adversary only knows the target is in a larger population
	Journalist AttackerModel = constants.AttackerModelJournalist
)

// ParseAttackerModel parses an attacker model name
func ParseAttackerModel(s string) (AttackerModel, error) {
	switch AttackerModel(s) {
	case Prosecutor, Journalist:
		return AttackerModel(s), nil
	}
	return "", errors.NewConfigurationError(errors.CodeInvalidAttackerModel,
		fmt.Sprintf("unknown attacker model %q", s))
}
