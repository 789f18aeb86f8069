package optimization

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_NormalizesSliceCounts(t *testing.T) {
	result := &SolverResult{Assignment: EncodeSliceCounts([]int{3, 0, 7}, 4)}

	d, err := Decode(result, 4, []string{"A", "B", "C"})
	require.NoError(t, err)

	assert.False(t, d.Degenerate)
	assert.Equal(t, 10, d.TotalSlices)
	assert.Equal(t, map[string]int{"A": 3, "B": 0, "C": 7}, d.SliceCounts)
	assert.InDelta(t, 0.3, d.Weights["A"], 1e-12)
	assert.Equal(t, 0.0, d.Weights["B"])
	assert.InDelta(t, 0.7, d.Weights["C"], 1e-12)
	assert.InDelta(t, 1.0, d.Weights.Sum(), 1e-12)
}

func TestDecode_OverBudgetStillSumsToOne(t *testing.T) {
	result := &SolverResult{Assignment: EncodeSliceCounts([]int{15, 15}, 4)}

	d, err := Decode(result, 4, []string{"A", "B"})
	require.NoError(t, err)
	assert.Equal(t, 30, d.TotalSlices)
	assert.InDelta(t, 1.0, d.Weights.Sum(), 1e-12)
}

func TestDecode_Degenerate(t *testing.T) {
	result := &SolverResult{Assignment: make(BitAssignment, 9)}

	d, err := Decode(result, 3, []string{"A", "B", "C"})
	require.NoError(t, err)

	assert.True(t, d.Degenerate)
	assert.Equal(t, 0, d.TotalSlices)
	for _, w := range d.Weights {
		assert.InDelta(t, 1.0/3, w, 1e-12)
	}
	assert.InDelta(t, 1.0, d.Weights.Sum(), 1e-12)
}

func TestDecode_InvalidInput(t *testing.T) {
	result := &SolverResult{Assignment: make(BitAssignment, 8)}

	_, err := Decode(result, 3, []string{"A", "B"})
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = Decode(result, 4, nil)
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = Decode(nil, 4, []string{"A"})
	assert.True(t, errors.Is(err, ErrInvalidInput))
}
