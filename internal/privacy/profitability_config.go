package privacy

import (
	"fmt"
	"math"

	"github.com/arx-deidentifier/gta-benchmark/pkg/constants"
	"github.com/arx-deidentifier/gta-benchmark/pkg/errors"
	"github.com/arx-deidentifier/gta-benchmark/pkg/models"
)

// ProfitabilityConfig fixes the game and the decision modes of a criterion for
// a whole run
type ProfitabilityConfig struct {
	Game models.CostBenefitConfig `json:"game" mapstructure:"game"`

	// NaiveNoAttack treats every class a rational adversary would not attack
	// as safe without computing its information loss
	NaiveNoAttack bool `json:"naive_no_attack" mapstructure:"naive_no_attack"`

	// UseCensus corrects the journalist success probability with the
	// population frequency table
	UseCensus bool `json:"use_census" mapstructure:"use_census"`

	// Optimize accepts classes whose payout exceeds (1-GSFactor)*benefit
	// so that marginal classes are left to local recoding
	Optimize bool `json:"optimize" mapstructure:"optimize"`

	// GSFactor balances generalization against suppression, in [0,1]
	GSFactor float64 `json:"gs_factor" mapstructure:"gs_factor"`
}

// DefaultProfitabilityConfig returns the exact decision rule with the default game
func DefaultProfitabilityConfig() ProfitabilityConfig {
	return ProfitabilityConfig{
		Game:     models.DefaultCostBenefitConfig(),
		GSFactor: constants.DefaultGSFactor,
	}
}

// Validate checks the game parameters and the gs-factor
func (c ProfitabilityConfig) Validate() error {
	ve := errors.NewValidationErrors()
	c.AddValidationErrors(ve)
	return ve.Err()
}

// AddValidationErrors records every invalid field into ve
func (c ProfitabilityConfig) AddValidationErrors(ve *errors.ValidationErrors) {
	c.Game.AddValidationErrors(ve)
	if math.IsNaN(c.GSFactor) || c.GSFactor < 0 || c.GSFactor > 1 {
		ve.Add("gs_factor", errors.CodeInvalidGSFactor, "a number in [0,1]", c.GSFactor)
	}
}

func (c ProfitabilityConfig) modes() string {
	s := ""
	if c.UseCensus {
		s += " census"
	}
	if c.Optimize {
		s += fmt.Sprintf(" optimize(gs=%g)", c.GSFactor)
	}
	if c.NaiveNoAttack {
		s += " naive"
	}
	return s
}
