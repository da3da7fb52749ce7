package privacy

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/arx-deidentifier/gta-benchmark/internal/hierarchy"
	"github.com/arx-deidentifier/gta-benchmark/pkg/errors"
	"github.com/arx-deidentifier/gta-benchmark/pkg/interfaces"
	"github.com/arx-deidentifier/gta-benchmark/pkg/models"
)

// Dataset is the input table of an anonymization run. Quasi-identifiers are
// generalized through hierarchies; microaggregated attributes are kept as
// value ids.
type Dataset struct {
	// QuasiIdentifiers holds one row of leaf labels per record, in hierarchy order
	QuasiIdentifiers [][]string

	// Microaggregated holds one row of value ids per record
	Microaggregated [][]int

	// InSubset marks the records released as the research sample. The other
	// records only count towards the population of their class. Nil means
	// every record is released.
	InSubset []bool
}

// Len returns the number of records
func (d *Dataset) Len() int {
	return len(d.QuasiIdentifiers)
}

// Subset returns the rows of the released sample
func (d *Dataset) Subset(name string) *models.DataSubset {
	subset := &models.DataSubset{Name: name}
	for i := 0; i < d.Len(); i++ {
		if d.InSubset == nil || (i < len(d.InSubset) && d.InSubset[i]) {
			subset.Rows = append(subset.Rows, i)
		}
	}
	return subset
}

// Partitioner groups the records of a dataset into equivalence classes under a
// transformation
type Partitioner struct {
	hierarchies []*hierarchy.Hierarchy
	logger      *logrus.Logger
}

// NewPartitioner creates a partitioner for the given hierarchies
func NewPartitioner(hierarchies []*hierarchy.Hierarchy, logger *logrus.Logger) (*Partitioner, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if len(hierarchies) == 0 {
		return nil, errors.NewConfigurationError(errors.CodeInvalidDomain, "at least one hierarchy is required")
	}
	return &Partitioner{
		hierarchies: hierarchies,
		logger:      logger,
	}, nil
}

// Transformations enumerates every combination of generalization levels,
// from the bottom of the lattice upwards
func (p *Partitioner) Transformations() []models.Transformation {
	heights := make([]int, len(p.hierarchies))
	total := 1
	for i, h := range p.hierarchies {
		heights[i] = h.Height()
		total *= heights[i]
	}

	result := make([]models.Transformation, 0, total)
	levels := make([]int, len(heights))
	for {
		result = append(result, models.NewTransformation(append([]int(nil), levels...)...))
		d := len(levels) - 1
		for ; d >= 0; d-- {
			levels[d]++
			if levels[d] < heights[d] {
				break
			}
			levels[d] = 0
		}
		if d < 0 {
			break
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return sum(result[i].Generalization) < sum(result[j].Generalization)
	})
	return result
}

// Group builds the equivalence classes of the dataset under t. Count holds the
// released records of a class and SubsetCount all of its records. Classes are
// returned largest first.
func (p *Partitioner) Group(t models.Transformation, data *Dataset) ([]*models.EquivalenceClass, error) {
	if t.Dimensions() != len(p.hierarchies) {
		return nil, errors.NewConfigurationError(errors.CodeInvalidDomain,
			fmt.Sprintf("transformation %s has %d levels, %d hierarchies given", t, t.Dimensions(), len(p.hierarchies)))
	}
	for d, h := range p.hierarchies {
		if t.Level(d) >= h.Height() {
			return nil, errors.NewConfigurationError(errors.CodeInvalidDomain,
				fmt.Sprintf("level %d exceeds the height %d of hierarchy %q", t.Level(d), h.Height(), h.Name()))
		}
	}

	if data.InSubset != nil && len(data.InSubset) != data.Len() {
		return nil, errors.NewConfigurationError(errors.CodeMissingSubset,
			fmt.Sprintf("sample marks %d records, dataset has %d", len(data.InSubset), data.Len()))
	}

	classMap := make(map[string]*models.EquivalenceClass)
	var order []string

	for r, labels := range data.QuasiIdentifiers {
		if len(labels) != len(p.hierarchies) {
			return nil, errors.NewRowError("records", r+1, errors.CodeMalformedRow,
				fmt.Sprintf("expected %d quasi-identifiers, found %d", len(p.hierarchies), len(labels)))
		}

		key := make(models.GeneralizedKey, len(labels))
		for d, label := range labels {
			id, err := p.hierarchies[d].Generalize(label, t.Level(d))
			if err != nil {
				return nil, errors.WrapLoadError(err, "records", r+1, errors.CodeUnknownDimension,
					"value is not covered by its hierarchy")
			}
			key[d] = id
		}

		classID := keyString(key)
		class, exists := classMap[classID]
		if !exists {
			class = &models.EquivalenceClass{Key: key}
			classMap[classID] = class
			order = append(order, classID)
		}
		class.SubsetCount++
		if data.InSubset != nil && !data.InSubset[r] {
			continue
		}
		class.Count++
		if r < len(data.Microaggregated) {
			addMicroaggregated(class, data.Microaggregated[r])
		}
	}

	classes := make([]*models.EquivalenceClass, 0, len(order))
	for _, classID := range order {
		classes = append(classes, classMap[classID])
	}
	sort.SliceStable(classes, func(i, j int) bool {
		return classes[i].Count > classes[j].Count
	})

	p.logger.WithFields(logrus.Fields{
		"transformation": t.String(),
		"records":        data.Len(),
		"classes":        len(classes),
	}).Debug("Grouped records")

	return classes, nil
}

// Suppress marks every class the criterion rejects as an outlier and returns
// the number of suppressed records
func (p *Partitioner) Suppress(t models.Transformation, classes []*models.EquivalenceClass, criterion interfaces.Criterion) (int, error) {
	suppressed := 0
	for _, class := range classes {
		if class.Outlier {
			suppressed += class.Count
			continue
		}
		ok, err := criterion.IsAnonymous(t, class)
		if err != nil {
			return 0, err
		}
		if !ok {
			class.Outlier = true
			suppressed += class.Count
		}
	}

	p.logger.WithFields(logrus.Fields{
		"transformation": t.String(),
		"suppressed":     suppressed,
	}).Debug("Suppressed unsafe classes")

	return suppressed, nil
}

func addMicroaggregated(class *models.EquivalenceClass, values []int) {
	if class.Distributions == nil {
		class.Distributions = make([]models.Distribution, len(values))
		for i := range class.Distributions {
			class.Distributions[i] = make(models.Distribution)
		}
	}
	for i, v := range values {
		if i < len(class.Distributions) {
			class.Distributions[i][v]++
		}
	}
}

func keyString(key models.GeneralizedKey) string {
	var b strings.Builder
	for i, id := range key {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(id))
	}
	return b.String()
}

func sum(levels []int) int {
	s := 0
	for _, l := range levels {
		s += l
	}
	return s
}
