package loss

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arx-deidentifier/gta-benchmark/internal/hierarchy"
	"github.com/arx-deidentifier/gta-benchmark/pkg/errors"
	"github.com/arx-deidentifier/gta-benchmark/pkg/interfaces"
	"github.com/arx-deidentifier/gta-benchmark/pkg/models"
)

func loadHierarchy(t *testing.T, name, content string) *hierarchy.Hierarchy {
	t.Helper()
	h, err := hierarchy.Load(name, strings.NewReader(content), ';')
	require.NoError(t, err)
	return h
}

func testHierarchies(t *testing.T) (*hierarchy.Hierarchy, *hierarchy.Hierarchy) {
	age := loadHierarchy(t, "age", "20;20-29;*\n25;20-29;*\n31;30-39;*\n38;30-39;*\n")
	sex := loadHierarchy(t, "sex", "male;*\nfemale;*\n")
	return age, sex
}

func classAt(t *testing.T, hs []*hierarchy.Hierarchy, leaves []string, tr models.Transformation) *models.EquivalenceClass {
	t.Helper()
	key := make(models.GeneralizedKey, len(hs))
	for d, h := range hs {
		id, err := h.Generalize(leaves[d], tr.Level(d))
		require.NoError(t, err)
		key[d] = id
	}
	return &models.EquivalenceClass{Key: key, Count: 1}
}

func TestMaximalEntropyInformationLoss(t *testing.T) {
	age, sex := testHierarchies(t)
	shares := []interfaces.DomainShare{age.Shares(), sex.Shares()}

	assert.InDelta(t, math.Log10(8), MaximalEntropyInformationLoss(shares, nil), 1e-12)
	assert.InDelta(t, math.Log10(80), MaximalEntropyInformationLoss(shares, []int{10}), 1e-12)
	assert.Equal(t, 0.0, MaximalEntropyInformationLoss(nil, nil))
}

func TestEntropyInformationLoss(t *testing.T) {
	age, _ := testHierarchies(t)
	hs := []*hierarchy.Hierarchy{age}
	shares := []interfaces.DomainShare{age.Shares()}
	maxIL := MaximalEntropyInformationLoss(shares, nil)

	tests := []struct {
		level    int
		expected float64
	}{
		{0, 0},
		{1, 0.5},
		{2, 1},
	}

	for _, tt := range tests {
		tr := models.NewTransformation(tt.level)
		class := classAt(t, hs, []string{"20"}, tr)
		assert.InDelta(t, tt.expected, EntropyInformationLoss(tr, class, shares, nil, 1, maxIL), 1e-12)
	}
}

func TestEntropyInformationLossZeroMaximum(t *testing.T) {
	single := loadHierarchy(t, "constant", "x;*\n")
	shares := []interfaces.DomainShare{single.Shares()}
	class := &models.EquivalenceClass{Key: models.GeneralizedKey{0}, Count: 3}

	maxIL := MaximalEntropyInformationLoss(shares, nil)
	assert.Equal(t, 0.0, maxIL)
	assert.Equal(t, 0.0, EntropyInformationLoss(models.NewTransformation(0), class, shares, nil, 1, maxIL))
}

func TestModelTwoDimensions(t *testing.T) {
	age, sex := testHierarchies(t)
	hs := []*hierarchy.Hierarchy{age, sex}

	m, err := NewModel([]interfaces.DomainShare{age.Shares(), sex.Shares()}, nil, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Dimensions())
	assert.InDelta(t, math.Log10(8), m.MaxInformationLoss(), 1e-12)

	tr := models.NewTransformation(1, 0)
	il := m.InformationLoss(tr, classAt(t, hs, []string{"20", "male"}, tr))
	assert.InDelta(t, 1.0/3.0, il, 1e-12)
}

func TestModelWeights(t *testing.T) {
	age, sex := testHierarchies(t)
	hs := []*hierarchy.Hierarchy{age, sex}

	m, err := NewModel([]interfaces.DomainShare{age.Shares(), sex.Shares()}, nil, 2, []float64{2, 0})
	require.NoError(t, err)

	tr := models.NewTransformation(1, 0)
	assert.InDelta(t, 0.5, m.InformationLoss(tr, classAt(t, hs, []string{"20", "male"}, tr)), 1e-12)

	tr = models.NewTransformation(1, 1)
	assert.InDelta(t, 0.5, m.InformationLoss(tr, classAt(t, hs, []string{"20", "male"}, tr)), 1e-12)
}

func TestModelMicroaggregation(t *testing.T) {
	age, _ := testHierarchies(t)
	hs := []*hierarchy.Hierarchy{age}
	rangeShare, err := NewRangeShare(10)
	require.NoError(t, err)

	m, err := NewModel([]interfaces.DomainShare{age.Shares()}, []interfaces.MicroaggregationFunction{rangeShare}, 1, nil)
	require.NoError(t, err)
	assert.InDelta(t, math.Log10(40), m.MaxInformationLoss(), 1e-12)

	tr := models.NewTransformation(2)
	class := classAt(t, hs, []string{"20"}, tr)

	class.Distributions = []models.Distribution{{0: 1, 9: 1}}
	assert.InDelta(t, 1.0, m.InformationLoss(tr, class), 1e-12)

	class.Distributions = []models.Distribution{{3: 2}}
	assert.InDelta(t, 1-1/math.Log10(40), m.InformationLoss(tr, class), 1e-12)

	// a class without distributions is charged the full domain
	class.Distributions = nil
	assert.InDelta(t, 1.0, m.InformationLoss(tr, class), 1e-12)
}

func TestInformationLossIsMonotoneAndDeterministic(t *testing.T) {
	age, sex := testHierarchies(t)
	hs := []*hierarchy.Hierarchy{age, sex}
	m, err := NewModel([]interfaces.DomainShare{age.Shares(), sex.Shares()}, nil, 2, nil)
	require.NoError(t, err)

	for _, ageLeaf := range []string{"20", "25", "31", "38"} {
		for _, sexLeaf := range []string{"male", "female"} {
			leaves := []string{ageLeaf, sexLeaf}
			for a := 0; a < age.Height(); a++ {
				for s := 0; s < sex.Height(); s++ {
					tr := models.NewTransformation(a, s)
					il := m.InformationLoss(tr, classAt(t, hs, leaves, tr))

					assert.GreaterOrEqual(t, il, 0.0)
					assert.LessOrEqual(t, il, 1.0)
					assert.Equal(t, il, m.InformationLoss(tr, classAt(t, hs, leaves, tr)))

					if a+1 < age.Height() {
						up := models.NewTransformation(a+1, s)
						assert.GreaterOrEqual(t, m.InformationLoss(up, classAt(t, hs, leaves, up)), il)
					}
					if s+1 < sex.Height() {
						up := models.NewTransformation(a, s+1)
						assert.GreaterOrEqual(t, m.InformationLoss(up, classAt(t, hs, leaves, up)), il)
					}
				}
			}
		}
	}
}

func TestNewModelRejectsInvalidInput(t *testing.T) {
	age, sex := testHierarchies(t)
	shares := []interfaces.DomainShare{age.Shares(), sex.Shares()}

	_, err := NewModel(shares, nil, 1, nil)
	assert.True(t, errors.IsConfigurationError(err))

	_, err = NewModel(shares, nil, 2, []float64{1})
	assert.True(t, errors.IsConfigurationError(err))

	_, err = NewModel(shares, nil, 2, []float64{1, -1})
	assert.True(t, errors.IsConfigurationError(err))

	_, err = NewModel(shares, nil, 2, []float64{1, math.NaN()})
	assert.True(t, errors.IsConfigurationError(err))
}
