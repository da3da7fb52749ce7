// Package config loads the run configuration from an optional YAML file and
// GTA_* environment variables.
package config

import (
	"strings"
	"unicode/utf8"

	"github.com/spf13/viper"

	"github.com/arx-deidentifier/gta-benchmark/internal/observability/logging"
	"github.com/arx-deidentifier/gta-benchmark/internal/observability/metrics"
	"github.com/arx-deidentifier/gta-benchmark/internal/population"
	"github.com/arx-deidentifier/gta-benchmark/internal/privacy"
	"github.com/arx-deidentifier/gta-benchmark/internal/storage"
	"github.com/arx-deidentifier/gta-benchmark/internal/storage/implementations/file"
	"github.com/arx-deidentifier/gta-benchmark/internal/storage/implementations/redis"
	"github.com/arx-deidentifier/gta-benchmark/pkg/constants"
	"github.com/arx-deidentifier/gta-benchmark/pkg/errors"
	"github.com/arx-deidentifier/gta-benchmark/pkg/models"
)

// Config is the configuration of one run
type Config struct {
	Game       models.CostBenefitConfig `json:"game" mapstructure:"game"`
	Criterion  CriterionConfig          `json:"criterion" mapstructure:"criterion"`
	Population PopulationConfig         `json:"population" mapstructure:"population"`
	Metrics    metrics.PrometheusConfig `json:"metrics" mapstructure:"metrics"`
	Logging    logging.LoggingConfig    `json:"logging" mapstructure:"logging"`
	Workers    int                      `json:"workers" mapstructure:"workers"`
}

// CriterionConfig selects the attacker model and the decision modes
type CriterionConfig struct {
	AttackerModel string  `json:"attacker_model" mapstructure:"attacker_model"`
	NaiveNoAttack bool    `json:"naive_no_attack" mapstructure:"naive_no_attack"`
	UseCensus     bool    `json:"use_census" mapstructure:"use_census"`
	Optimize      bool    `json:"optimize" mapstructure:"optimize"`
	GSFactor      float64 `json:"gs_factor" mapstructure:"gs_factor"`
}

// PopulationConfig locates the population frequency table. It is only read
// when the census correction is enabled.
type PopulationConfig struct {
	Source          storage.SourceConfig `json:"source" mapstructure:"source"`
	VocabularyName  string               `json:"vocabulary" mapstructure:"vocabulary"`
	FrequenciesName string               `json:"frequencies" mapstructure:"frequencies"`
	Delimiter       string               `json:"delimiter" mapstructure:"delimiter"`
	Header          bool                 `json:"header" mapstructure:"header"`
	FieldOrder      []int                `json:"field_order" mapstructure:"field_order"`
}

// Default returns the configuration used when neither a file nor the
// environment override anything
func Default() *Config {
	return &Config{
		Game: models.DefaultCostBenefitConfig(),
		Criterion: CriterionConfig{
			AttackerModel: constants.AttackerModelJournalist,
			GSFactor:      constants.DefaultGSFactor,
		},
		Population: PopulationConfig{
			Source: storage.SourceConfig{
				Type:  constants.SourceTypeFile,
				File:  file.FileSourceConfig{BasePath: constants.DefaultPopulationBasePath},
				Redis: redis.RedisConfig{Addr: "localhost:6379"},
			},
			VocabularyName:  constants.DefaultVocabularyName,
			FrequenciesName: constants.DefaultFrequenciesName,
			Delimiter:       constants.DefaultDelimiter,
			Header:          true,
			FieldOrder:      append([]int(nil), constants.CensusFieldOrder...),
		},
		Metrics: *metrics.DefaultPrometheusConfig(),
		Logging: logging.DefaultLoggingConfig(),
		Workers: constants.DefaultWorkerConcurrency,
	}
}

// Load reads cfgFile, or gta.yaml from the working directory when cfgFile is
// empty, and applies GTA_* environment overrides such as GTA_GAME_ADVERSARY_COST.
// A missing default file is not an error. The result is validated.
func Load(cfgFile string) (*Config, error) {
	config := Default()

	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("gta")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, config)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.WrapError(err, errors.ErrorTypeConfiguration,
				errors.CodeInvalidSource, "error reading config file").
				WithContext("config_file", cfgFile)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeConfiguration,
			errors.CodeInvalidSource, "error unmarshaling config")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// setDefaults registers every scalar key so that AutomaticEnv can override it
func setDefaults(v *viper.Viper, c *Config) {
	v.SetDefault("game.adversary_cost", c.Game.AdversaryCost)
	v.SetDefault("game.adversary_gain", c.Game.AdversaryGain)
	v.SetDefault("game.publisher_loss", c.Game.PublisherLoss)
	v.SetDefault("game.publisher_benefit", c.Game.PublisherBenefit)

	v.SetDefault("criterion.attacker_model", c.Criterion.AttackerModel)
	v.SetDefault("criterion.naive_no_attack", c.Criterion.NaiveNoAttack)
	v.SetDefault("criterion.use_census", c.Criterion.UseCensus)
	v.SetDefault("criterion.optimize", c.Criterion.Optimize)
	v.SetDefault("criterion.gs_factor", c.Criterion.GSFactor)

	v.SetDefault("population.source.type", c.Population.Source.Type)
	v.SetDefault("population.source.file.base_path", c.Population.Source.File.BasePath)
	v.SetDefault("population.source.s3.region", "")
	v.SetDefault("population.source.s3.bucket", "")
	v.SetDefault("population.source.s3.endpoint", "")
	v.SetDefault("population.source.s3.prefix", "")
	v.SetDefault("population.source.s3.access_key_id", "")
	v.SetDefault("population.source.s3.secret_access_key", "")
	v.SetDefault("population.source.redis.addr", c.Population.Source.Redis.Addr)
	v.SetDefault("population.source.redis.password", "")
	v.SetDefault("population.source.redis.db", 0)
	v.SetDefault("population.source.redis.key_prefix", "")
	v.SetDefault("population.vocabulary", c.Population.VocabularyName)
	v.SetDefault("population.frequencies", c.Population.FrequenciesName)
	v.SetDefault("population.delimiter", c.Population.Delimiter)
	v.SetDefault("population.header", c.Population.Header)
	v.SetDefault("population.field_order", c.Population.FieldOrder)

	v.SetDefault("metrics.enabled", c.Metrics.Enabled)
	v.SetDefault("metrics.port", c.Metrics.Port)
	v.SetDefault("metrics.path", c.Metrics.Path)
	v.SetDefault("metrics.namespace", c.Metrics.Namespace)

	v.SetDefault("logging.level", c.Logging.Level)
	v.SetDefault("logging.format", c.Logging.Format)

	v.SetDefault("workers", c.Workers)
}

// Validate reports every invalid field at once as a single configuration error
func (c *Config) Validate() error {
	ve := errors.NewValidationErrors()

	c.ProfitabilityConfig().AddValidationErrors(ve)

	model, err := models.ParseAttackerModel(c.Criterion.AttackerModel)
	if err != nil {
		ve.Add("criterion.attacker_model", errors.CodeInvalidAttackerModel,
			"prosecutor or journalist", c.Criterion.AttackerModel)
	}
	if model == models.Prosecutor {
		if c.Criterion.UseCensus {
			ve.Add("criterion.use_census", errors.CodeInvalidAttackerModel,
				"false with the prosecutor model", true)
		}
		if c.Criterion.Optimize {
			ve.Add("criterion.optimize", errors.CodeInvalidAttackerModel,
				"false with the prosecutor model", true)
		}
	}

	if c.Criterion.UseCensus {
		c.Population.addValidationErrors(ve)
	}

	if c.Metrics.Enabled && (c.Metrics.Port < 1 || c.Metrics.Port > 65535) {
		ve.Add("metrics.port", errors.CodeInvalidDomain, "a port in [1,65535]", c.Metrics.Port)
	}

	c.Logging.AddValidationErrors(ve)

	if c.Workers <= 0 {
		ve.Add("workers", errors.CodeInvalidDomain, "> 0", c.Workers)
	}

	return ve.Err()
}

func (p PopulationConfig) addValidationErrors(ve *errors.ValidationErrors) {
	switch p.Source.Type {
	case constants.SourceTypeFile, constants.SourceTypeS3, constants.SourceTypeRedis:
	default:
		ve.Add("population.source.type", errors.CodeInvalidSource, "file, s3 or redis", p.Source.Type)
	}
	if utf8.RuneCountInString(p.Delimiter) != 1 {
		ve.Add("population.delimiter", errors.CodeInvalidDomain, "a single character", p.Delimiter)
	}
	if len(p.FieldOrder) > population.MaxDimensions {
		ve.Add("population.field_order", errors.CodeInvalidFieldOrder,
			"at most 8 dimensions", p.FieldOrder)
	} else if err := population.FieldOrder(p.FieldOrder).Validate(len(p.FieldOrder)); err != nil || len(p.FieldOrder) == 0 {
		ve.Add("population.field_order", errors.CodeInvalidFieldOrder,
			"a permutation of the record fields", p.FieldOrder)
	}
}

// AttackerModel returns the parsed attacker model. Call Validate first.
func (c *Config) AttackerModel() models.AttackerModel {
	model, _ := models.ParseAttackerModel(c.Criterion.AttackerModel)
	return model
}

// ProfitabilityConfig assembles the criterion configuration
func (c *Config) ProfitabilityConfig() privacy.ProfitabilityConfig {
	return privacy.ProfitabilityConfig{
		Game:          c.Game,
		NaiveNoAttack: c.Criterion.NaiveNoAttack,
		UseCensus:     c.Criterion.UseCensus,
		Optimize:      c.Criterion.Optimize,
		GSFactor:      c.Criterion.GSFactor,
	}
}

// PopulationOptions returns the parse options of the population tables
func (c *Config) PopulationOptions() population.Options {
	opts := population.Options{
		Dimensions:      len(c.Population.FieldOrder),
		FieldOrder:      append(population.FieldOrder(nil), c.Population.FieldOrder...),
		Header:          c.Population.Header,
		VocabularyName:  c.Population.VocabularyName,
		FrequenciesName: c.Population.FrequenciesName,
	}
	if r, _ := utf8.DecodeRuneInString(c.Population.Delimiter); r != utf8.RuneError {
		opts.Delimiter = r
	}
	return opts
}
