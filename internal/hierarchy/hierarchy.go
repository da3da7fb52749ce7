// Package hierarchy holds generalization hierarchies in materialized form: one
// row per leaf value, one column per generalization level. Values of all levels
// share a single dictionary; the reverse mapping to leaf labels is kept per level
// because the same label may appear at more than one level.
package hierarchy

import (
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"github.com/arx-deidentifier/gta-benchmark/pkg/errors"
)

// Hierarchy is immutable after construction and safe for concurrent reads.
type Hierarchy struct {
	name       string
	rows       [][]int
	dictionary []string
	ids        map[string]int
	leaves     []map[int][]string
	leafRows   map[int]int
	shares     *MaterializedShare
}

// New builds a hierarchy from label rows. Every row must have the same number
// of levels, leaves must be unique, and each value must generalize to exactly
// one value at the next level.
func New(name string, rows [][]string) (*Hierarchy, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, errors.NewLoadError(errors.CodeEmptyHierarchy,
			fmt.Sprintf("hierarchy %q has no values", name))
	}
	height := len(rows[0])

	h := &Hierarchy{
		name:     name,
		rows:     make([][]int, len(rows)),
		ids:      make(map[string]int),
		leafRows: make(map[int]int, len(rows)),
	}

	parents := make([]map[int]int, height)
	for level := range parents {
		parents[level] = make(map[int]int)
	}
	seenLeaves := make(map[string]bool, len(rows))

	for r, labels := range rows {
		if len(labels) != height {
			return nil, errors.NewRowError(name, r+1, errors.CodeMalformedRow,
				fmt.Sprintf("expected %d levels, found %d", height, len(labels)))
		}
		leaf := strings.TrimSpace(labels[0])
		if seenLeaves[leaf] {
			return nil, errors.NewRowError(name, r+1, errors.CodeDuplicateEntry,
				fmt.Sprintf("duplicate leaf %q", leaf))
		}
		seenLeaves[leaf] = true

		row := make([]int, height)
		for level, label := range labels {
			row[level] = h.intern(strings.TrimSpace(label))
		}
		for level := 0; level < height-1; level++ {
			parent, ok := parents[level][row[level]]
			if ok && parent != row[level+1] {
				return nil, errors.NewRowError(name, r+1, errors.CodeMalformedRow,
					fmt.Sprintf("value %q has more than one parent at level %d",
						h.dictionary[row[level]], level+1))
			}
			parents[level][row[level]] = row[level+1]
		}
		h.rows[r] = row
		h.leafRows[row[0]] = r
	}

	h.leaves = make([]map[int][]string, height)
	for level := range h.leaves {
		h.leaves[level] = make(map[int][]string)
		for _, row := range h.rows {
			id := row[level]
			h.leaves[level][id] = append(h.leaves[level][id], h.dictionary[row[0]])
		}
	}
	h.shares = newMaterializedShare(h)
	return h, nil
}

// Load reads a hierarchy from delimited text, one leaf per line
func Load(name string, r io.Reader, delimiter rune) (*Hierarchy, error) {
	reader := csv.NewReader(r)
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			line := 0
			var pe *csv.ParseError
			if stderrors.As(err, &pe) {
				line = pe.Line
			}
			return nil, errors.WrapLoadError(err, name, line, errors.CodeReadFailed, "failed to read hierarchy")
		}
		rows = append(rows, record)
	}
	return New(name, rows)
}

func (h *Hierarchy) intern(label string) int {
	if id, ok := h.ids[label]; ok {
		return id
	}
	id := len(h.dictionary)
	h.ids[label] = id
	h.dictionary = append(h.dictionary, label)
	return id
}

// Name returns the attribute name of the hierarchy
func (h *Hierarchy) Name() string {
	return h.name
}

// Height returns the number of generalization levels including the leaves
func (h *Hierarchy) Height() int {
	return len(h.rows[0])
}

// Size returns the number of leaf values
func (h *Hierarchy) Size() int {
	return len(h.rows)
}

// DictionarySize returns the number of distinct labels across all levels
func (h *Hierarchy) DictionarySize() int {
	return len(h.dictionary)
}

// ID returns the value id of a label
func (h *Hierarchy) ID(label string) (int, bool) {
	id, ok := h.ids[label]
	return id, ok
}

// Label returns the label of a value id
func (h *Hierarchy) Label(id int) string {
	if id < 0 || id >= len(h.dictionary) {
		return ""
	}
	return h.dictionary[id]
}

// Leaves returns the leaf labels that id stands for at the given level. The
// result must not be modified.
func (h *Hierarchy) Leaves(id, level int) []string {
	if level < 0 || level >= len(h.leaves) {
		return nil
	}
	return h.leaves[level][id]
}

// Generalize returns the id a leaf maps to at the given level
func (h *Hierarchy) Generalize(leaf string, level int) (int, error) {
	if level < 0 || level >= h.Height() {
		return 0, fmt.Errorf("level %d out of range [0,%d)", level, h.Height())
	}
	id, ok := h.ids[leaf]
	if !ok {
		return 0, fmt.Errorf("unknown value %q in hierarchy %q", leaf, h.name)
	}
	r, ok := h.leafRows[id]
	if !ok {
		return 0, fmt.Errorf("%q is not a leaf of hierarchy %q", leaf, h.name)
	}
	return h.rows[r][level], nil
}

// Shares returns the domain shares of the hierarchy
func (h *Hierarchy) Shares() *MaterializedShare {
	return h.shares
}
