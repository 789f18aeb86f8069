package optimization

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestModel(t *testing.T, slices int, lambda float64) (*QuboModel, *ReturnStatistics) {
	t.Helper()
	order, columns := riskReturnColumns()
	stats := mustStats(t, order, columns)
	model, err := BuildObjective(stats, slices, lambda, ObjectiveOptions{})
	require.NoError(t, err)
	return model, stats
}

func TestSolve_SingleChainReproducible(t *testing.T) {
	model, stats := buildTestModel(t, 10, 1)
	opts := SolveOptions{Reads: 1, Sweeps: 200, Seed: seed(7), Workers: 1}

	first, err := Solve(context.Background(), model, model.NumBits(), stats.NumAssets(), opts)
	require.NoError(t, err)
	second, err := Solve(context.Background(), model, model.NumBits(), stats.NumAssets(), opts)
	require.NoError(t, err)

	assert.Equal(t, first.Assignment, second.Assignment)
	assert.Equal(t, first.Energy, second.Energy)
	assert.Equal(t, uint64(7), first.Seed)
}

func TestSolve_ParallelChainsIndependentOfWorkerCount(t *testing.T) {
	model, stats := buildTestModel(t, 10, 1)

	var results []*SolverResult
	for _, workers := range []int{1, 3, 8} {
		res, err := Solve(context.Background(), model, model.NumBits(), stats.NumAssets(), SolveOptions{
			Reads:   12,
			Sweeps:  100,
			Seed:    seed(99),
			Workers: workers,
		})
		require.NoError(t, err)
		results = append(results, res)
	}

	for _, res := range results[1:] {
		assert.Equal(t, results[0].Assignment, res.Assignment)
		assert.Equal(t, results[0].Energy, res.Energy)
		assert.Equal(t, results[0].ChainEnergies, res.ChainEnergies)
	}
}

func TestSolve_FindsFeasibleMinimum(t *testing.T) {
	model, stats := buildTestModel(t, 10, 0.5)

	res, err := Solve(context.Background(), model, model.NumBits(), stats.NumAssets(), SolveOptions{
		Reads:  30,
		Sweeps: 500,
		Seed:   seed(3),
	})
	require.NoError(t, err)

	assert.True(t, res.ConstraintSatisfied)
	assert.Positive(t, res.FeasibleReads)
	assert.Len(t, res.ChainEnergies, 30)
	for _, e := range res.ChainEnergies {
		assert.GreaterOrEqual(t, e, res.Energy)
	}

	// Exhaustive check over all 2^8 states.
	bits := model.NumBits()
	best := res.Energy
	for k0 := 0; k0 < 1<<bits; k0++ {
		for k1 := 0; k1 < 1<<bits; k1++ {
			e := model.Energy(EncodeSliceCounts([]int{k0, k1}, bits))
			assert.GreaterOrEqual(t, e, best-1e-9)
		}
	}
	assert.InDelta(t, model.Energy(res.Assignment), res.Energy, 1e-12)
}

func TestSolve_RandomSeedIsReported(t *testing.T) {
	model, stats := buildTestModel(t, 4, 1)

	res, err := Solve(context.Background(), model, model.NumBits(), stats.NumAssets(), SolveOptions{Reads: 2, Sweeps: 50})
	require.NoError(t, err)

	replay, err := Solve(context.Background(), model, model.NumBits(), stats.NumAssets(), SolveOptions{
		Reads: 2, Sweeps: 50, Seed: seed(res.Seed),
	})
	require.NoError(t, err)
	assert.Equal(t, res.Assignment, replay.Assignment)
	assert.Equal(t, res.ChainEnergies, replay.ChainEnergies)
}

func TestSolve_FlipCap(t *testing.T) {
	model, stats := buildTestModel(t, 10, 1)

	capped, err := Solve(context.Background(), model, model.NumBits(), stats.NumAssets(), SolveOptions{
		Reads: 2, Sweeps: 1000, MaxFlipsPerRead: 5, Seed: seed(1),
	})
	require.NoError(t, err)
	assert.True(t, capped.Truncated)

	full, err := Solve(context.Background(), model, model.NumBits(), stats.NumAssets(), SolveOptions{
		Reads: 2, Sweeps: 10, Seed: seed(1),
	})
	require.NoError(t, err)
	assert.False(t, full.Truncated)
}

func TestSolve_CancelledContext(t *testing.T) {
	model, stats := buildTestModel(t, 10, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Solve(ctx, model, model.NumBits(), stats.NumAssets(), SolveOptions{Reads: 4, Sweeps: 10})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSolve_CancelledMidChain(t *testing.T) {
	model, stats := buildTestModel(t, 10, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := Solve(ctx, model, model.NumBits(), stats.NumAssets(), SolveOptions{
		Reads: 1, Sweeps: 1 << 30, Workers: 1, Seed: seed(2),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSelectBest(t *testing.T) {
	tests := []struct {
		name   string
		chains []chainResult
		want   int
	}{
		{"lowest energy", []chainResult{{energy: 3}, {energy: 1}, {energy: 2}}, 1},
		{"exact tie keeps lowest index", []chainResult{{energy: 1, feasible: true}, {energy: 1, feasible: true}}, 0},
		{"tie prefers feasible", []chainResult{{energy: 1}, {energy: 1, feasible: true}}, 1},
		{"lower infeasible beats higher feasible", []chainResult{{energy: 2, feasible: true}, {energy: 1}}, 1},
		// each neighbour is within tolerance of the next, but only the first
		// two are within tolerance of the minimum
		{"non-transitive chain of near ties", []chainResult{
			{energy: 1000},
			{energy: 1000 + 0.9e-6, feasible: true},
			{energy: 1000 + 1.8e-6, feasible: true},
		}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, selectBest(tt.chains))
		})
	}
}

func TestSelectBest_IndependentOfOrder(t *testing.T) {
	a := chainResult{energy: 1000}
	b := chainResult{energy: 1000 + 0.9e-6, feasible: true}
	c := chainResult{energy: 1000 + 1.8e-6, feasible: true}

	forward := []chainResult{a, b, c}
	reversed := []chainResult{c, b, a}

	assert.Equal(t, b, forward[selectBest(forward)])
	assert.Equal(t, b, reversed[selectBest(reversed)])
}

func TestScheduleFlips_Saturates(t *testing.T) {
	assert.Equal(t, 300, scheduleFlips(10, 30))
	assert.Equal(t, 0, scheduleFlips(10, 0))
	assert.Equal(t, math.MaxInt, scheduleFlips(1<<40, 1<<40))
	assert.Equal(t, math.MaxInt, scheduleFlips(math.MaxInt, 2))
}

func TestSolve_InvalidOptions(t *testing.T) {
	model, stats := buildTestModel(t, 10, 1)

	tests := []struct {
		name      string
		numBits   int
		numAssets int
		opts      SolveOptions
	}{
		{"shape mismatch", model.NumBits() + 1, stats.NumAssets(), SolveOptions{}},
		{"negative reads", model.NumBits(), stats.NumAssets(), SolveOptions{Reads: -1}},
		{"negative sweeps", model.NumBits(), stats.NumAssets(), SolveOptions{Sweeps: -1}},
		{"negative flip cap", model.NumBits(), stats.NumAssets(), SolveOptions{MaxFlipsPerRead: -1}},
		{"inverted temperatures", model.NumBits(), stats.NumAssets(), SolveOptions{InitialTemperature: 1, FinalTemperature: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Solve(context.Background(), model, tt.numBits, tt.numAssets, tt.opts)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput))
		})
	}
}

func TestSchedule_Geometric(t *testing.T) {
	s := newSchedule(10, 0.1, 3)
	assert.InDelta(t, 10, s.at(0), 1e-12)
	assert.InDelta(t, 1, s.at(1), 1e-12)
	assert.InDelta(t, 0.1, s.at(2), 1e-12)

	assert.Equal(t, 5.0, newSchedule(5, 1, 1).at(0))
}

func TestTemperatureRange(t *testing.T) {
	model, _ := buildTestModel(t, 10, 1)

	hot, cold := temperatureRange(model)
	assert.Greater(t, hot, cold)
	assert.Positive(t, cold)
}

func TestChainSeed_Distinct(t *testing.T) {
	seen := make(map[uint64]bool)
	for i := 0; i < 1000; i++ {
		s := chainSeed(42, i)
		assert.False(t, seen[s], "chain %d reuses a seed", i)
		seen[s] = true
	}
	assert.NotEqual(t, chainSeed(1, 0), chainSeed(2, 0))
}
