package rebalancing

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/qdr/internal/modules/marketdata"
	"github.com/aristath/qdr/internal/modules/optimization"
)

func TestRiskAversionFor(t *testing.T) {
	tests := []struct {
		profile RiskProfile
		want    float64
	}{
		{ProfileConservative, 2.0},
		{ProfileModerate, 1.0},
		{ProfileAggressive, 0.1},
		{"Aggressive", 0.1},
	}

	for _, tt := range tests {
		t.Run(string(tt.profile), func(t *testing.T) {
			got, err := RiskAversionFor(tt.profile)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := RiskAversionFor("yolo")
	assert.ErrorIs(t, err, optimization.ErrInvalidInput)
}

func TestBuildActionPlan(t *testing.T) {
	current := optimization.PortfolioWeights{"A": 0.5, "B": 0.3, "C": 0.2}
	target := optimization.PortfolioWeights{"A": 0.6, "B": 0.29, "D": 0.11}

	trades := BuildActionPlan(current, target, DefaultThreshold)
	require.Len(t, trades, 4)

	byAsset := make(map[string]Trade)
	for _, tr := range trades {
		byAsset[tr.Asset] = tr
	}

	assert.Equal(t, []string{"A", "B", "C", "D"}, []string{trades[0].Asset, trades[1].Asset, trades[2].Asset, trades[3].Asset})
	assert.Equal(t, ActionBuy, byAsset["A"].Action)
	assert.InDelta(t, 0.1, byAsset["A"].Diff, 1e-12)
	assert.Equal(t, ActionHold, byAsset["B"].Action)
	assert.Equal(t, ActionSell, byAsset["C"].Action)
	assert.Equal(t, 0.0, byAsset["C"].TargetWeight)
	assert.Equal(t, ActionBuy, byAsset["D"].Action)
	assert.Equal(t, 0.0, byAsset["D"].CurrentWeight)
}

func TestBuildActionPlan_ThresholdIsExclusive(t *testing.T) {
	trades := BuildActionPlan(
		optimization.PortfolioWeights{"A": 0.5},
		optimization.PortfolioWeights{"A": 0.75},
		0.25,
	)
	assert.Equal(t, ActionHold, trades[0].Action)
}

func TestCompare(t *testing.T) {
	opt := optimization.PortfolioMetrics{Volatility: 0.1, ExpectedReturn: 0.12, SharpeRatio: 1.2}
	bench := optimization.PortfolioMetrics{Volatility: 0.2, ExpectedReturn: -0.04, SharpeRatio: -0.2}

	c := Compare(opt, bench)
	assert.InDelta(t, -50.0, c.VolatilityChangePct, 1e-9)
	assert.InDelta(t, 400.0, c.ReturnChangePct, 1e-9)
	assert.InDelta(t, 1.4, c.SharpeDelta, 1e-12)
}

func TestCompare_ZeroBenchmark(t *testing.T) {
	c := Compare(optimization.PortfolioMetrics{Volatility: 0.1, ExpectedReturn: 0.1}, optimization.PortfolioMetrics{})
	assert.Equal(t, 0.0, c.VolatilityChangePct)
	assert.Equal(t, 0.0, c.ReturnChangePct)
}

type fakeLoader struct {
	dataset *marketdata.Dataset
	err     error
}

func (f *fakeLoader) LoadSeries(ctx context.Context, symbols []string, period string) (*marketdata.Dataset, error) {
	return f.dataset, f.err
}

// volatileAndSteady has a noisy high-return asset and a smooth low-return one.
func volatileAndSteady(t *testing.T) optimization.PriceSeries {
	t.Helper()

	high, low := 100.0, 100.0
	rows := [][]float64{{high, low}}
	for i := 0; i < 40; i++ {
		if i%2 == 0 {
			high *= 1.05
		} else {
			high *= 0.97
		}
		low *= 1 + []float64{0.003, 0.001, 0.002}[i%3]
		rows = append(rows, []float64{high, low})
	}

	series, err := optimization.NewPriceSeries([]string{"HIGH", "LOW"}, nil, rows)
	require.NoError(t, err)
	return series
}

func newTestService(t *testing.T, loader SeriesLoader) *Service {
	t.Helper()
	settings := optimization.DefaultSettings()
	settings.Workers = 2
	log := zerolog.New(nil).Level(zerolog.Disabled)
	return NewService(loader, optimization.NewOptimizer(settings, log), log)
}

func TestPlan(t *testing.T) {
	loader := &fakeLoader{dataset: &marketdata.Dataset{
		Series:  volatileAndSteady(t),
		Period:  "1y",
		Missing: []string{"NOPE"},
	}}
	svc := newTestService(t, loader)

	seed := uint64(7)
	plan, err := svc.Plan(context.Background(), Request{
		Tickers:     []string{"HIGH", "LOW", "NOPE"},
		RiskProfile: ProfileConservative,
		NumSlices:   10,
		NumReads:    20,
		NumSweeps:   200,
		Seed:        &seed,
	})
	require.NoError(t, err)

	assert.Equal(t, 2.0, plan.RiskAversion)
	assert.Equal(t, DefaultThreshold, plan.Threshold)
	assert.Equal(t, []string{"NOPE"}, plan.Missing)
	assert.Equal(t, optimization.PortfolioWeights{"HIGH": 0.5, "LOW": 0.5}, plan.CurrentWeights)
	assert.InDelta(t, 1.0, plan.Result.Weights.Sum(), 1e-9)
	require.Len(t, plan.Trades, 2)

	for _, tr := range plan.Trades {
		assert.InDelta(t, plan.Result.Weights[tr.Asset]-0.5, tr.Diff, 1e-12)
	}
	assert.Equal(t, plan.Result.Metrics, plan.Comparison.Optimized)
}

func TestPlan_ExplicitRiskAversionWins(t *testing.T) {
	loader := &fakeLoader{dataset: &marketdata.Dataset{Series: volatileAndSteady(t), Period: "1y"}}
	svc := newTestService(t, loader)

	lambda := 0.0
	seed := uint64(1)
	plan, err := svc.Plan(context.Background(), Request{
		RiskAversion:   &lambda,
		RiskProfile:    ProfileConservative,
		NumSlices:      4,
		NumReads:       10,
		NumSweeps:      200,
		Seed:           &seed,
		CurrentWeights: optimization.PortfolioWeights{"HIGH": 1, "OTHER": 1},
	})
	require.NoError(t, err)

	assert.Equal(t, 0.0, plan.RiskAversion)
	// OTHER is not in the universe and is sold off
	var other *Trade
	for i := range plan.Trades {
		if plan.Trades[i].Asset == "OTHER" {
			other = &plan.Trades[i]
		}
	}
	require.NotNil(t, other)
	assert.Equal(t, ActionSell, other.Action)
	// Benchmark is the loaded part of the current weights: all HIGH
	assert.Greater(t, plan.Comparison.Benchmark.Volatility, 0.0)
}

func TestPlan_InvalidInput(t *testing.T) {
	svc := newTestService(t, &fakeLoader{})

	_, err := svc.Plan(context.Background(), Request{RiskProfile: "yolo"})
	assert.ErrorIs(t, err, optimization.ErrInvalidInput)

	bad := 1.5
	_, err = svc.Plan(context.Background(), Request{Threshold: &bad})
	assert.ErrorIs(t, err, optimization.ErrInvalidInput)

	_, err = svc.Plan(context.Background(), Request{CurrentWeights: optimization.PortfolioWeights{"A": -1}})
	assert.ErrorIs(t, err, optimization.ErrInvalidInput)
}

func TestPlan_LoaderError(t *testing.T) {
	svc := newTestService(t, &fakeLoader{err: marketdata.ErrNoData})

	_, err := svc.Plan(context.Background(), Request{Tickers: []string{"X"}})
	assert.True(t, errors.Is(err, marketdata.ErrNoData))
}

func TestBenchmarkWeights(t *testing.T) {
	got := benchmarkWeights(optimization.PortfolioWeights{"A": 3, "B": 1, "Z": 4}, []string{"A", "B"})
	assert.InDelta(t, 0.75, got["A"], 1e-12)
	assert.InDelta(t, 0.25, got["B"], 1e-12)
	assert.NotContains(t, got, "Z")

	got = benchmarkWeights(optimization.PortfolioWeights{"Z": 1}, []string{"A", "B"})
	assert.Equal(t, optimization.PortfolioWeights{"A": 0.5, "B": 0.5}, got)
}
