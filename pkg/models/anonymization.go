package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Transformation holds the generalization level chosen for each quasi-identifier
// dimension that is anonymized through a hierarchy.
type Transformation struct {
	Generalization []int `json:"generalization"`
}

// NewTransformation creates a transformation from per-dimension levels
func NewTransformation(levels ...int) Transformation {
	return Transformation{Generalization: levels}
}

// ParseTransformation parses a comma separated list of levels such as "1,0,2,1"
func ParseTransformation(s string) (Transformation, error) {
	fields := strings.Split(s, ",")
	levels := make([]int, 0, len(fields))
	for _, f := range fields {
		level, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return Transformation{}, fmt.Errorf("invalid generalization level %q: %w", f, err)
		}
		if level < 0 {
			return Transformation{}, fmt.Errorf("negative generalization level %d", level)
		}
		levels = append(levels, level)
	}
	return NewTransformation(levels...), nil
}

// Dimensions returns the number of generalized dimensions
func (t Transformation) Dimensions() int {
	return len(t.Generalization)
}

// Level returns the generalization level of a dimension
func (t Transformation) Level(dimension int) int {
	return t.Generalization[dimension]
}

func (t Transformation) String() string {
	parts := make([]string, len(t.Generalization))
	for i, level := range t.Generalization {
		parts[i] = strconv.Itoa(level)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// GeneralizedKey identifies an equivalence class under a transformation: one
// domain value id per quasi-identifier dimension.
type GeneralizedKey []int

// Distribution is the frequency of each value id of a microaggregated attribute
// within one equivalence class.
type Distribution map[int]int

// EquivalenceClass carries the read-only statistics of one class of a partition.
// It is owned by the grouping structure and never mutated here.
type EquivalenceClass struct {
	// Key holds the generalized value ids of the hierarchy-based dimensions
	Key GeneralizedKey `json:"key"`

	// Count is the number of sample records in the class
	Count int `json:"count"`

	// SubsetCount is the number of records of the designated population subset
	// in the class; 0 means unknown
	SubsetCount int `json:"subset_count"`

	// Outlier is set when the class is suppressed under the transformation
	Outlier bool `json:"outlier"`

	// Distributions holds one distribution per microaggregated attribute
	Distributions []Distribution `json:"distributions,omitempty"`
}

// DataSubset describes the population subset a journalist adversary knows the
// target to belong to. Per-class subset counts are computed by the grouping
// structure; the subset itself only needs to be present and non-empty.
type DataSubset struct {
	Name string `json:"name"`
	Rows []int  `json:"rows"`
}

// Size returns the number of records in the subset
func (s *DataSubset) Size() int {
	if s == nil {
		return 0
	}
	return len(s.Rows)
}
