package loss

import (
	"fmt"
	"math"

	"github.com/arx-deidentifier/gta-benchmark/pkg/errors"
	"github.com/arx-deidentifier/gta-benchmark/pkg/models"
)

// RangeShare measures a class by the range of value ids it spans. It suits
// ordered attributes whose ids follow the natural order of the values.
type RangeShare struct {
	domainSize int
}

// NewRangeShare creates a range based microaggregation function
func NewRangeShare(domainSize int) (*RangeShare, error) {
	if domainSize < 1 {
		return nil, errors.NewConfigurationError(errors.CodeInvalidDomain,
			fmt.Sprintf("domain size must be positive, got %d", domainSize))
	}
	return &RangeShare{domainSize: domainSize}, nil
}

func (r *RangeShare) Share(distribution models.Distribution) float64 {
	lo, hi := math.MaxInt, math.MinInt
	for id, n := range distribution {
		if n <= 0 {
			continue
		}
		if id < lo {
			lo = id
		}
		if id > hi {
			hi = id
		}
	}
	if hi < lo {
		return 1 / float64(r.domainSize)
	}
	return clampShare(float64(hi-lo+1), r.domainSize)
}

func (r *RangeShare) DomainSize() int {
	return r.domainSize
}

// CardinalityShare measures a class by the number of distinct values it contains
type CardinalityShare struct {
	domainSize int
}

// NewCardinalityShare creates a cardinality based microaggregation function
func NewCardinalityShare(domainSize int) (*CardinalityShare, error) {
	if domainSize < 1 {
		return nil, errors.NewConfigurationError(errors.CodeInvalidDomain,
			fmt.Sprintf("domain size must be positive, got %d", domainSize))
	}
	return &CardinalityShare{domainSize: domainSize}, nil
}

func (c *CardinalityShare) Share(distribution models.Distribution) float64 {
	distinct := 0
	for _, n := range distribution {
		if n > 0 {
			distinct++
		}
	}
	return clampShare(float64(distinct), c.domainSize)
}

func (c *CardinalityShare) DomainSize() int {
	return c.domainSize
}

func clampShare(width float64, domainSize int) float64 {
	size := float64(domainSize)
	return math.Max(1/size, math.Min(1, width/size))
}
