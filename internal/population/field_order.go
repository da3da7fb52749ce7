package population

import (
	"fmt"

	"github.com/arx-deidentifier/gta-benchmark/pkg/errors"
)

// FieldOrder maps table dimensions to record fields: FieldOrder[d] is the index
// of the record field whose label is looked up in dimension d of the table.
type FieldOrder []int

// IdentityOrder returns the order where table and record fields coincide
func IdentityOrder(dimensions int) FieldOrder {
	order := make(FieldOrder, dimensions)
	for i := range order {
		order[i] = i
	}
	return order
}

// Validate checks that the order is a permutation of 0..dimensions-1
func (o FieldOrder) Validate(dimensions int) error {
	if len(o) != dimensions {
		return errors.NewConfigurationError(errors.CodeInvalidFieldOrder,
			fmt.Sprintf("field order has %d entries, table has %d dimensions", len(o), dimensions))
	}
	seen := make([]bool, dimensions)
	for d, field := range o {
		if field < 0 || field >= dimensions || seen[field] {
			return errors.NewConfigurationError(errors.CodeInvalidFieldOrder,
				fmt.Sprintf("field order %v is not a permutation", []int(o))).
				WithContext("dimension", d)
		}
		seen[field] = true
	}
	return nil
}
