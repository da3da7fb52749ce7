// Package loss measures the information loss of publishing an equivalence class
// under a transformation. Loss is entropy based: each dimension contributes the
// log of the domain share its generalized value covers, normalized by the loss
// of generalizing every dimension to the full domain.
package loss

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/arx-deidentifier/gta-benchmark/pkg/errors"
	"github.com/arx-deidentifier/gta-benchmark/pkg/interfaces"
	"github.com/arx-deidentifier/gta-benchmark/pkg/models"
)

// Model binds the domain shares of the hierarchy-based dimensions and the
// functions of the microaggregated dimensions. Dimensions [0, microStart) are
// hierarchy based; the class distributions describe the rest.
type Model struct {
	shares     []interfaces.DomainShare
	micro      []interfaces.MicroaggregationFunction
	microStart int
	weights    []float64
	maxIL      float64
}

// NewModel creates a loss model. Weights, if given, hold one non-negative factor
// per dimension, hierarchy-based dimensions first.
func NewModel(shares []interfaces.DomainShare, micro []interfaces.MicroaggregationFunction, microStart int, weights []float64) (*Model, error) {
	if microStart != len(shares) {
		return nil, errors.NewConfigurationError(errors.CodeInvalidDomain,
			fmt.Sprintf("microaggregation starts at %d but %d hierarchies are given", microStart, len(shares)))
	}
	for i, s := range shares {
		if s == nil || s.DomainSize() < 1 {
			return nil, errors.NewConfigurationError(errors.CodeInvalidDomain,
				fmt.Sprintf("dimension %d has an empty domain", i))
		}
	}
	for i, f := range micro {
		if f == nil || f.DomainSize() < 1 {
			return nil, errors.NewConfigurationError(errors.CodeInvalidDomain,
				fmt.Sprintf("microaggregated dimension %d has an empty domain", i))
		}
	}

	dims := len(shares) + len(micro)
	if weights == nil {
		weights = make([]float64, dims)
		floats.AddConst(1, weights)
	}
	if len(weights) != dims {
		return nil, errors.NewConfigurationError(errors.CodeInvalidDomain,
			fmt.Sprintf("expected %d weights, got %d", dims, len(weights)))
	}
	for i, w := range weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, errors.NewConfigurationError(errors.CodeInvalidDomain,
				fmt.Sprintf("weight of dimension %d must be finite and non-negative", i))
		}
	}

	m := &Model{
		shares:     shares,
		micro:      micro,
		microStart: microStart,
		weights:    append([]float64(nil), weights...),
	}
	m.maxIL = maximal(shares, microDomainSizes(micro), m.weights)
	return m, nil
}

// Dimensions returns the number of hierarchy-based dimensions
func (m *Model) Dimensions() int {
	return m.microStart
}

// MaxInformationLoss returns the normalization constant of the model
func (m *Model) MaxInformationLoss() float64 {
	return m.maxIL
}

// InformationLoss returns the loss of a class in [0,1]
func (m *Model) InformationLoss(t models.Transformation, class *models.EquivalenceClass) float64 {
	return entropy(t, class, m.shares, m.micro, m.microStart, m.weights, m.maxIL)
}

// MaximalEntropyInformationLoss returns the loss of generalizing every dimension
// to its full domain: the sum of log10 of the domain sizes.
func MaximalEntropyInformationLoss(shares []interfaces.DomainShare, microDomainSizes []int) float64 {
	return maximal(shares, microDomainSizes, nil)
}

// EntropyInformationLoss returns 1 + sum(log10(share)) / maxIL, clamped to
// [0,1]. A zero maxIL yields 0.
func EntropyInformationLoss(t models.Transformation, class *models.EquivalenceClass, shares []interfaces.DomainShare,
	micro []interfaces.MicroaggregationFunction, microStart int, maxIL float64) float64 {
	return entropy(t, class, shares, micro, microStart, nil, maxIL)
}

func microDomainSizes(micro []interfaces.MicroaggregationFunction) []int {
	sizes := make([]int, len(micro))
	for i, f := range micro {
		sizes[i] = f.DomainSize()
	}
	return sizes
}

func maximal(shares []interfaces.DomainShare, microDomainSizes []int, weights []float64) float64 {
	logs := make([]float64, 0, len(shares)+len(microDomainSizes))
	for _, s := range shares {
		logs = append(logs, math.Log10(s.DomainSize()))
	}
	for _, size := range microDomainSizes {
		logs = append(logs, math.Log10(float64(size)))
	}
	if weights == nil {
		return floats.Sum(logs)
	}
	return floats.Dot(weights, logs)
}

func weight(weights []float64, dimension int) float64 {
	if weights == nil {
		return 1
	}
	return weights[dimension]
}

func entropy(t models.Transformation, class *models.EquivalenceClass, shares []interfaces.DomainShare,
	micro []interfaces.MicroaggregationFunction, microStart int, weights []float64, maxIL float64) float64 {
	if maxIL <= 0 {
		return 0
	}

	var sum float64
	for d := 0; d < microStart && d < len(shares); d++ {
		share := 1.0
		if d < len(class.Key) && d < t.Dimensions() {
			share = shares[d].Share(class.Key[d], t.Level(d))
		}
		sum += weight(weights, d) * math.Log10(share)
	}
	for j, f := range micro {
		share := 1.0
		if j < len(class.Distributions) {
			share = f.Share(class.Distributions[j])
		}
		sum += weight(weights, microStart+j) * math.Log10(share)
	}

	il := 1 + sum/maxIL
	return math.Max(0, math.Min(1, il))
}
