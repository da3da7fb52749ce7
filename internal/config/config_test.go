package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arx-deidentifier/gta-benchmark/pkg/constants"
	"github.com/arx-deidentifier/gta-benchmark/pkg/errors"
	"github.com/arx-deidentifier/gta-benchmark/pkg/models"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gta.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, models.DefaultCostBenefitConfig(), cfg.Game)
	assert.Equal(t, models.Journalist, cfg.AttackerModel())
	assert.Equal(t, constants.DefaultGSFactor, cfg.Criterion.GSFactor)
	assert.Equal(t, constants.CensusFieldOrder, cfg.Population.FieldOrder)
	assert.True(t, cfg.Population.Header)
	assert.True(t, cfg.PopulationOptions().Header)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
game:
  adversary_cost: 8
  adversary_gain: 500
criterion:
  attacker_model: journalist
  use_census: true
  optimize: true
  gs_factor: 0.25
population:
  source:
    type: file
    file:
      base_path: /srv/census
  delimiter: ","
  header: false
  field_order: [0, 1, 2, 3]
workers: 2
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8.0, cfg.Game.AdversaryCost)
	assert.Equal(t, 500.0, cfg.Game.AdversaryGain)
	assert.Equal(t, constants.DefaultPublisherLoss, cfg.Game.PublisherLoss)
	assert.Equal(t, constants.DefaultPublisherBenefit, cfg.Game.PublisherBenefit)
	assert.True(t, cfg.Criterion.UseCensus)
	assert.Equal(t, 0.25, cfg.Criterion.GSFactor)
	assert.Equal(t, "/srv/census", cfg.Population.Source.File.BasePath)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, "debug", cfg.Logging.Level)

	pc := cfg.ProfitabilityConfig()
	assert.True(t, pc.UseCensus)
	assert.True(t, pc.Optimize)
	assert.Equal(t, cfg.Game, pc.Game)

	opts := cfg.PopulationOptions()
	assert.Equal(t, 4, opts.Dimensions)
	assert.Equal(t, ',', opts.Delimiter)
	assert.False(t, opts.Header)
	assert.Equal(t, constants.DefaultVocabularyName, opts.VocabularyName)
}

func TestLoadEnvironmentOverride(t *testing.T) {
	path := writeConfig(t, "game:\n  adversary_cost: 8\n")
	t.Setenv("GTA_GAME_ADVERSARY_COST", "12")
	t.Setenv("GTA_CRITERION_ATTACKER_MODEL", "prosecutor")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 12.0, cfg.Game.AdversaryCost)
	assert.Equal(t, models.Prosecutor, cfg.AttackerModel())
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsConfigurationError(err))
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := writeConfig(t, `
game:
  adversary_cost: 0
criterion:
  gs_factor: 1.5
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.IsConfigurationError(err))

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Context, "adversary_cost")
	assert.Contains(t, appErr.Context, "gs_factor")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"negative gain", func(c *Config) { c.Game.AdversaryGain = -1 }, "adversary_gain"},
		{"zero benefit", func(c *Config) { c.Game.PublisherBenefit = 0 }, "publisher_benefit"},
		{"unknown attacker model", func(c *Config) { c.Criterion.AttackerModel = "marketer" }, "criterion.attacker_model"},
		{"census with prosecutor", func(c *Config) {
			c.Criterion.AttackerModel = constants.AttackerModelProsecutor
			c.Criterion.UseCensus = true
		}, "criterion.use_census"},
		{"optimize with prosecutor", func(c *Config) {
			c.Criterion.AttackerModel = constants.AttackerModelProsecutor
			c.Criterion.Optimize = true
		}, "criterion.optimize"},
		{"field order not a permutation", func(c *Config) {
			c.Criterion.UseCensus = true
			c.Population.FieldOrder = []int{0, 0, 2, 1}
		}, "population.field_order"},
		{"unknown source", func(c *Config) {
			c.Criterion.UseCensus = true
			c.Population.Source.Type = "ftp"
		}, "population.source.type"},
		{"long delimiter", func(c *Config) {
			c.Criterion.UseCensus = true
			c.Population.Delimiter = ";;"
		}, "population.delimiter"},
		{"no workers", func(c *Config) { c.Workers = 0 }, "workers"},
		{"bad log level", func(c *Config) { c.Logging.Level = "chatty" }, "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsConfigurationError(err))

			var appErr *errors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Contains(t, appErr.Context, tt.field)
		})
	}
}

func TestPopulationIgnoredWithoutCensus(t *testing.T) {
	cfg := Default()
	cfg.Population.Source.Type = "ftp"
	assert.NoError(t, cfg.Validate())
}
