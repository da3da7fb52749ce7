// Package population holds the frequency table of a reference population: for
// every combination of quasi-identifier labels, the number of individuals in the
// population sharing it.
package population

import (
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/arx-deidentifier/gta-benchmark/pkg/constants"
	"github.com/arx-deidentifier/gta-benchmark/pkg/errors"
)

// MaxDimensions bounds the number of table dimensions
const MaxDimensions = 8

type groupKey [MaxDimensions]int32

// Options controls how the reference tables are parsed
type Options struct {
	// Dimensions is the number of quasi-identifiers of the table
	Dimensions int

	// FieldOrder maps table dimensions to record fields; nil means identity
	FieldOrder FieldOrder

	// Delimiter separates the columns of both tables
	Delimiter rune

	// Header is set when the first line of each table names its columns
	Header bool

	// VocabularyName and FrequenciesName name the tables in a reference source
	VocabularyName  string
	FrequenciesName string
}

// DefaultOptions returns the layout of the census reference tables
func DefaultOptions() Options {
	return Options{
		Dimensions:      len(constants.CensusFieldOrder),
		FieldOrder:      append(FieldOrder(nil), constants.CensusFieldOrder...),
		Delimiter:       []rune(constants.DefaultDelimiter)[0],
		Header:          true,
		VocabularyName:  constants.DefaultVocabularyName,
		FrequenciesName: constants.DefaultFrequenciesName,
	}
}

func (o *Options) normalize() error {
	if o.Dimensions <= 0 || o.Dimensions > MaxDimensions {
		return errors.NewConfigurationError(errors.CodeInvalidDomain,
			fmt.Sprintf("dimensions must be in [1,%d], got %d", MaxDimensions, o.Dimensions))
	}
	if o.FieldOrder == nil {
		o.FieldOrder = IdentityOrder(o.Dimensions)
	}
	if o.Delimiter == 0 {
		o.Delimiter = ';'
	}
	return o.FieldOrder.Validate(o.Dimensions)
}

// Table is immutable once built and safe for concurrent lookups.
type Table struct {
	vocabulary []map[string]int
	sizes      map[groupKey]float64
	order      FieldOrder
	total      float64
}

// Build parses a vocabulary table of (dimension, id, label) rows and a frequency
// table of (id_0, ..., id_k-1, size) rows, each optionally preceded by a header
// line. Any malformed data row fails the build.
func Build(vocabulary, frequencies io.Reader, opts Options) (*Table, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}

	t := &Table{
		vocabulary: make([]map[string]int, opts.Dimensions),
		sizes:      make(map[groupKey]float64),
		order:      opts.FieldOrder,
	}
	for d := range t.vocabulary {
		t.vocabulary[d] = make(map[string]int)
	}

	if err := t.readVocabulary(vocabulary, opts); err != nil {
		return nil, err
	}
	if err := t.readFrequencies(frequencies, opts); err != nil {
		return nil, err
	}
	return t, nil
}

func newReader(r io.Reader, delimiter rune) *csv.Reader {
	reader := csv.NewReader(r)
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true
	return reader
}

// skipHeader consumes the column names of a table. An empty table has none.
func skipHeader(reader *csv.Reader, source string, header bool) error {
	if !header {
		return nil
	}
	if _, err := reader.Read(); err != nil && err != io.EOF {
		return errors.WrapLoadError(err, source, parseErrorLine(err), errors.CodeReadFailed, "failed to read header")
	}
	return nil
}

func parseErrorLine(err error) int {
	var pe *csv.ParseError
	if stderrors.As(err, &pe) {
		return pe.Line
	}
	return 0
}

func (t *Table) readVocabulary(r io.Reader, opts Options) error {
	const source = "vocabulary"
	reader := newReader(r, opts.Delimiter)
	if err := skipHeader(reader, source, opts.Header); err != nil {
		return err
	}

	// ids seen per dimension, to reject one id carrying two labels
	ids := make([]map[int]string, opts.Dimensions)
	for d := range ids {
		ids[d] = make(map[int]string)
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.WrapLoadError(err, source, parseErrorLine(err), errors.CodeReadFailed, "failed to read row")
		}
		line, _ := reader.FieldPos(0)
		if len(record) != 3 {
			return errors.NewRowError(source, line, errors.CodeMalformedRow,
				fmt.Sprintf("expected 3 columns, found %d", len(record)))
		}

		dim, err := strconv.Atoi(strings.TrimSpace(record[0]))
		if err != nil {
			return errors.WrapLoadError(err, source, line, errors.CodeMalformedRow, "dimension is not an integer")
		}
		if dim < 0 || dim >= opts.Dimensions {
			return errors.NewRowError(source, line, errors.CodeUnknownDimension,
				fmt.Sprintf("dimension %d out of range [0,%d)", dim, opts.Dimensions))
		}
		id, err := strconv.Atoi(strings.TrimSpace(record[1]))
		if err != nil || id < 0 || id > math.MaxInt32 {
			return errors.NewRowError(source, line, errors.CodeMalformedRow,
				fmt.Sprintf("invalid id %q", record[1]))
		}
		label := strings.TrimSpace(record[2])

		if _, ok := t.vocabulary[dim][label]; ok {
			return errors.NewRowError(source, line, errors.CodeDuplicateEntry,
				fmt.Sprintf("label %q defined twice in dimension %d", label, dim))
		}
		if other, ok := ids[dim][id]; ok {
			return errors.NewRowError(source, line, errors.CodeDuplicateEntry,
				fmt.Sprintf("id %d already labels %q in dimension %d", id, other, dim))
		}
		t.vocabulary[dim][label] = id
		ids[dim][id] = label
	}
}

func (t *Table) readFrequencies(r io.Reader, opts Options) error {
	const source = "frequencies"
	reader := newReader(r, opts.Delimiter)
	if err := skipHeader(reader, source, opts.Header); err != nil {
		return err
	}

	known := make([]map[int]bool, opts.Dimensions)
	for d, labels := range t.vocabulary {
		known[d] = make(map[int]bool, len(labels))
		for _, id := range labels {
			known[d][id] = true
		}
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.WrapLoadError(err, source, parseErrorLine(err), errors.CodeReadFailed, "failed to read row")
		}
		line, _ := reader.FieldPos(0)
		if len(record) != opts.Dimensions+1 {
			return errors.NewRowError(source, line, errors.CodeMalformedRow,
				fmt.Sprintf("expected %d columns, found %d", opts.Dimensions+1, len(record)))
		}

		var key groupKey
		for d := 0; d < opts.Dimensions; d++ {
			id, err := strconv.Atoi(strings.TrimSpace(record[d]))
			if err != nil {
				return errors.WrapLoadError(err, source, line, errors.CodeMalformedRow,
					fmt.Sprintf("id of dimension %d is not an integer", d))
			}
			if !known[d][id] {
				return errors.NewRowError(source, line, errors.CodeUnknownID,
					fmt.Sprintf("id %d is not in the vocabulary of dimension %d", id, d))
			}
			key[d] = int32(id)
		}

		size, err := strconv.ParseFloat(strings.TrimSpace(record[opts.Dimensions]), 64)
		if err != nil {
			return errors.WrapLoadError(err, source, line, errors.CodeMalformedRow, "size is not a number")
		}
		if size < 0 || math.IsNaN(size) || math.IsInf(size, 0) {
			return errors.NewRowError(source, line, errors.CodeMalformedRow,
				fmt.Sprintf("size %v must be finite and non-negative", size))
		}
		if _, ok := t.sizes[key]; ok {
			return errors.NewRowError(source, line, errors.CodeDuplicateEntry, "combination listed twice")
		}
		t.sizes[key] = size
		t.total += size
	}
}

// LookupGroupSize returns the number of individuals of the population sharing
// the given labels. Labels are in record field order. Any label missing from
// the vocabulary, or a combination missing from the table, yields 0.
func (t *Table) LookupGroupSize(labels []string) float64 {
	if len(labels) != len(t.order) {
		return 0
	}
	var key groupKey
	for d, field := range t.order {
		id, ok := t.vocabulary[d][labels[field]]
		if !ok {
			return 0
		}
		key[d] = int32(id)
	}
	return t.sizes[key]
}

// LookupIDs returns the group size of a combination of vocabulary ids given in
// table dimension order
func (t *Table) LookupIDs(ids []int) float64 {
	if len(ids) != len(t.order) {
		return 0
	}
	var key groupKey
	for d, id := range ids {
		if id < 0 || id > math.MaxInt32 {
			return 0
		}
		key[d] = int32(id)
	}
	return t.sizes[key]
}

// Dimensions returns the number of quasi-identifiers of the table
func (t *Table) Dimensions() int {
	return len(t.order)
}

// Len returns the number of combinations in the table
func (t *Table) Len() int {
	return len(t.sizes)
}

// Total returns the sum of all group sizes
func (t *Table) Total() float64 {
	return t.total
}

// FieldOrder returns a copy of the field order of the table
func (t *Table) FieldOrder() FieldOrder {
	return append(FieldOrder(nil), t.order...)
}
