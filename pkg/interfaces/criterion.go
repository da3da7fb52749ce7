package interfaces

import (
	"github.com/arx-deidentifier/gta-benchmark/pkg/models"
)

// Criterion decides whether an equivalence class may be published under a
// transformation. Implementations are immutable after construction and safe for
// concurrent use by many search workers.
type Criterion interface {
	// AttackerModel returns the adversary model the criterion assumes
	AttackerModel() models.AttackerModel

	// SuccessProbability returns the adversary's re-identification probability
	// for a record of the class under the transformation
	SuccessProbability(transformation models.Transformation, class *models.EquivalenceClass) (float64, error)

	// IsAnonymous reports whether the class is safe to publish. An error is
	// only returned for internal-consistency violations, which must abort
	// the evaluation.
	IsAnonymous(transformation models.Transformation, class *models.EquivalenceClass) (bool, error)

	// LocalRecodingSupported reports whether the criterion may be used with
	// local recoding
	LocalRecodingSupported() bool

	// Subset returns the population subset the criterion needs, or nil
	Subset() *models.DataSubset

	String() string
}

// DomainShare exposes, for every value of one dimension and generalization
// level, the fraction of the attribute domain it represents.
type DomainShare interface {
	// Share returns the fraction of the domain covered by value at level,
	// in [1/DomainSize, 1]
	Share(value, level int) float64

	// DomainSize returns the number of distinct leaf values of the domain
	DomainSize() float64
}

// MicroaggregationFunction estimates the share of an attribute domain that a
// class spans when its values are replaced by an aggregate.
type MicroaggregationFunction interface {
	// Share returns a value in [1/DomainSize, 1]; wider groups yield larger shares
	Share(distribution models.Distribution) float64

	// DomainSize returns the number of distinct values of the attribute
	DomainSize() int
}

// CensusHierarchy gives the reverse mapping of a generalization hierarchy:
// the concrete leaf labels a generalized value stands for.
type CensusHierarchy interface {
	// Height returns the number of generalization levels including the leaves
	Height() int

	// DictionarySize returns the number of value ids across all levels
	DictionarySize() int

	// Leaves returns the leaf labels id stands for at level
	Leaves(id, level int) []string
}

// InformationLossModel scores the utility lost by publishing a class under a
// transformation, in [0,1]
type InformationLossModel interface {
	InformationLoss(transformation models.Transformation, class *models.EquivalenceClass) float64
}
