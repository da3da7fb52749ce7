package privacy

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/arx-deidentifier/gta-benchmark/internal/observability/metrics"
	"github.com/arx-deidentifier/gta-benchmark/internal/population"
	"github.com/arx-deidentifier/gta-benchmark/pkg/errors"
	"github.com/arx-deidentifier/gta-benchmark/pkg/interfaces"
	"github.com/arx-deidentifier/gta-benchmark/pkg/models"
)

// CensusModel estimates how many individuals of the population a generalized
// key stands for. The reverse mapping of every hierarchy is materialized at
// construction, so the model is read-only afterwards.
type CensusModel struct {
	table   *population.Table
	leaves  [][]map[int][]string
	metrics *metrics.PrometheusMetrics
	logger  *logrus.Logger
}

// NewCensusModel binds a population table to the hierarchies of its dimensions.
// Hierarchies are given in record field order.
func NewCensusModel(table *population.Table, hierarchies []interfaces.CensusHierarchy,
	pm *metrics.PrometheusMetrics, logger *logrus.Logger) (*CensusModel, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if table == nil {
		return nil, errors.NewConfigurationError(errors.CodeMissingCensus, "population table is required")
	}
	if len(hierarchies) != table.Dimensions() {
		return nil, errors.NewConfigurationError(errors.CodeInvalidDomain,
			fmt.Sprintf("population table has %d dimensions, %d hierarchies given", table.Dimensions(), len(hierarchies)))
	}

	leaves := make([][]map[int][]string, len(hierarchies))
	for d, h := range hierarchies {
		if h == nil {
			return nil, errors.NewConfigurationError(errors.CodeInvalidDomain,
				fmt.Sprintf("hierarchy of dimension %d is missing", d))
		}
		leaves[d] = make([]map[int][]string, h.Height())
		for level := range leaves[d] {
			leaves[d][level] = make(map[int][]string)
			for id := 0; id < h.DictionarySize(); id++ {
				if labels := h.Leaves(id, level); len(labels) > 0 {
					leaves[d][level][id] = append([]string(nil), labels...)
				}
			}
		}
	}

	logger.WithFields(logrus.Fields{
		"dimensions": table.Dimensions(),
		"rows":       table.Len(),
	}).Info("Created census model")

	return &CensusModel{
		table:   table,
		leaves:  leaves,
		metrics: pm,
		logger:  logger,
	}, nil
}

// PopulationSize sums the group sizes of every leaf combination the key
// generalizes under t. Combinations absent from the table count as 0.
func (c *CensusModel) PopulationSize(t models.Transformation, key models.GeneralizedKey) (float64, error) {
	if len(key) != len(c.leaves) || t.Dimensions() != len(c.leaves) {
		return 0, c.violation(errors.CodeKeyOutOfDomain,
			fmt.Sprintf("key has %d dimensions and transformation %d, population table has %d",
				len(key), t.Dimensions(), len(c.leaves)))
	}

	sets := make([][]string, len(key))
	for d, id := range key {
		level := t.Level(d)
		if level < 0 || level >= len(c.leaves[d]) || len(c.leaves[d][level][id]) == 0 {
			return 0, c.violation(errors.CodeKeyOutOfDomain,
				fmt.Sprintf("value %d of dimension %d has no leaves at level %d", id, d, level))
		}
		sets[d] = c.leaves[d][level][id]
	}

	labels := make([]string, len(sets))
	index := make([]int, len(sets))
	for d := range sets {
		labels[d] = sets[d][0]
	}

	var total float64
	for {
		total += c.table.LookupGroupSize(labels)

		d := len(index) - 1
		for ; d >= 0; d-- {
			index[d]++
			if index[d] < len(sets[d]) {
				labels[d] = sets[d][index[d]]
				break
			}
			index[d] = 0
			labels[d] = sets[d][0]
		}
		if d < 0 {
			return total, nil
		}
	}
}

// SuccessProbability returns min(1, 1/populationSize). The result must not
// exceed the sample based probability; if it does, or the key is absent from
// the population, the reference data is inconsistent and an invariant
// violation is returned.
func (c *CensusModel) SuccessProbability(t models.Transformation, key models.GeneralizedKey, sampleProbability float64) (float64, error) {
	total, err := c.PopulationSize(t, key)
	if err != nil {
		return 0, err
	}
	if total <= 0 {
		return 0, c.violation(errors.CodeAbsentPopulation, "class does not exist in the population").
			WithContext("key", []int(key))
	}

	p := math.Min(1, 1/total)
	if p > sampleProbability {
		return 0, c.violation(errors.CodeCensusRiskExceeded, "census risk exceeds sample risk").
			WithContext("key", []int(key)).
			WithContext("census_risk", p).
			WithContext("sample_risk", sampleProbability)
	}
	return p, nil
}

func (c *CensusModel) violation(code, message string) *errors.AppError {
	c.metrics.RecordInvariantViolation(code)
	err := errors.NewInvariantViolation(code, message)
	c.logger.WithFields(logrus.Fields{
		"code": code,
	}).Error(message)
	return err
}
