package hierarchy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arx-deidentifier/gta-benchmark/pkg/errors"
)

const ageHierarchy = `20;20-29;*
25;20-29;*
31;30-39;*
38;30-39;*
`

func TestLoad(t *testing.T) {
	h, err := Load("age", strings.NewReader(ageHierarchy), ';')
	require.NoError(t, err)

	assert.Equal(t, "age", h.Name())
	assert.Equal(t, 3, h.Height())
	assert.Equal(t, 4, h.Size())
	assert.Equal(t, 7, h.DictionarySize())

	id, ok := h.ID("20-29")
	require.True(t, ok)
	assert.Equal(t, "20-29", h.Label(id))

	_, ok = h.ID("40-49")
	assert.False(t, ok)
}

func TestGeneralize(t *testing.T) {
	h, err := Load("age", strings.NewReader(ageHierarchy), ';')
	require.NoError(t, err)

	id, err := h.Generalize("31", 1)
	require.NoError(t, err)
	assert.Equal(t, "30-39", h.Label(id))

	id, err = h.Generalize("31", 2)
	require.NoError(t, err)
	assert.Equal(t, "*", h.Label(id))

	_, err = h.Generalize("31", 3)
	assert.Error(t, err)

	_, err = h.Generalize("20-29", 1)
	assert.Error(t, err)
}

func TestLeaves(t *testing.T) {
	h, err := Load("age", strings.NewReader(ageHierarchy), ';')
	require.NoError(t, err)

	id, _ := h.ID("30-39")
	assert.ElementsMatch(t, []string{"31", "38"}, h.Leaves(id, 1))
	assert.Nil(t, h.Leaves(id, 0))

	id, _ = h.ID("*")
	assert.ElementsMatch(t, []string{"20", "25", "31", "38"}, h.Leaves(id, 2))

	id, _ = h.ID("25")
	assert.Equal(t, []string{"25"}, h.Leaves(id, 0))

	assert.Nil(t, h.Leaves(-1, 0))
	assert.Nil(t, h.Leaves(h.DictionarySize(), 0))
	assert.Nil(t, h.Leaves(id, 3))
}

func TestLeavesOfALabelRepeatedAcrossLevels(t *testing.T) {
	h, err := New("race", [][]string{
		{"white", "white"},
		{"black", "other"},
		{"other", "other"},
	})
	require.NoError(t, err)

	other, ok := h.ID("other")
	require.True(t, ok)
	assert.Equal(t, []string{"other"}, h.Leaves(other, 0))
	assert.ElementsMatch(t, []string{"black", "other"}, h.Leaves(other, 1))

	id, err := h.Generalize("other", 0)
	require.NoError(t, err)
	assert.Equal(t, other, id)
}

func TestShares(t *testing.T) {
	h, err := Load("age", strings.NewReader(ageHierarchy), ';')
	require.NoError(t, err)
	shares := h.Shares()

	assert.Equal(t, 4.0, shares.DomainSize())

	leaf, _ := h.ID("25")
	decade, _ := h.ID("20-29")
	root, _ := h.ID("*")

	assert.InDelta(t, 0.25, shares.Share(leaf, 0), 1e-12)
	assert.InDelta(t, 0.5, shares.Share(decade, 1), 1e-12)
	assert.InDelta(t, 1.0, shares.Share(root, 2), 1e-12)

	// unknown value at a level covers the whole domain
	assert.Equal(t, 1.0, shares.Share(leaf, 2))
	assert.Equal(t, 1.0, shares.Share(leaf, 7))
}

func TestSharesAreMonotone(t *testing.T) {
	h, err := Load("age", strings.NewReader(ageHierarchy), ';')
	require.NoError(t, err)
	shares := h.Shares()

	for _, row := range h.rows {
		for level := 1; level < len(row); level++ {
			assert.GreaterOrEqual(t, shares.Share(row[level], level), shares.Share(row[level-1], level-1))
		}
	}
}

func TestNewRejectsInvalidHierarchies(t *testing.T) {
	tests := []struct {
		name string
		rows [][]string
		code string
	}{
		{
			name: "empty",
			rows: nil,
			code: errors.CodeEmptyHierarchy,
		},
		{
			name: "ragged",
			rows: [][]string{{"a", "*"}, {"b"}},
			code: errors.CodeMalformedRow,
		},
		{
			name: "duplicate leaf",
			rows: [][]string{{"a", "*"}, {"a", "*"}},
			code: errors.CodeDuplicateEntry,
		},
		{
			name: "two parents",
			rows: [][]string{{"a", "x", "*"}, {"b", "x", "*"}, {"c", "y", "*"}, {"d", "y", "z"}},
			code: errors.CodeMalformedRow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New("test", tt.rows)
			require.Error(t, err)
			assert.True(t, errors.IsLoadError(err))

			var le *errors.LoadError
			require.ErrorAs(t, err, &le)
			assert.Equal(t, tt.code, le.Code)
		})
	}
}
