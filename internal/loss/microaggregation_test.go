package loss

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arx-deidentifier/gta-benchmark/pkg/models"
)

func TestRangeShare(t *testing.T) {
	f, err := NewRangeShare(10)
	require.NoError(t, err)
	assert.Equal(t, 10, f.DomainSize())

	assert.InDelta(t, 0.4, f.Share(models.Distribution{2: 1, 5: 3}), 1e-12)
	assert.InDelta(t, 0.1, f.Share(models.Distribution{7: 4}), 1e-12)
	assert.InDelta(t, 1.0, f.Share(models.Distribution{0: 1, 9: 1}), 1e-12)
	assert.InDelta(t, 0.1, f.Share(models.Distribution{}), 1e-12)
	assert.InDelta(t, 0.1, f.Share(models.Distribution{1: 0, 4: 2}), 1e-12)
	assert.InDelta(t, 1.0, f.Share(models.Distribution{-5: 1, 20: 1}), 1e-12)

	_, err = NewRangeShare(0)
	assert.Error(t, err)
}

func TestCardinalityShare(t *testing.T) {
	f, err := NewCardinalityShare(10)
	require.NoError(t, err)
	assert.Equal(t, 10, f.DomainSize())

	assert.InDelta(t, 0.2, f.Share(models.Distribution{2: 1, 5: 3}), 1e-12)
	assert.InDelta(t, 0.1, f.Share(models.Distribution{}), 1e-12)
	assert.InDelta(t, 0.1, f.Share(models.Distribution{1: 0, 4: 2}), 1e-12)

	_, err = NewCardinalityShare(-1)
	assert.Error(t, err)
}
