// Package rebalancing turns an optimized allocation into a comparison and an action plan.
package rebalancing

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/qdr/internal/modules/marketdata"
	"github.com/aristath/qdr/internal/modules/optimization"
)

// SeriesLoader loads aligned price history. *marketdata.Service satisfies it.
type SeriesLoader interface {
	LoadSeries(ctx context.Context, symbols []string, period string) (*marketdata.Dataset, error)
}

// Request describes one rebalance.
type Request struct {
	Tickers []string
	Period  string
	// RiskAversion wins over RiskProfile when both are set.
	RiskAversion *float64
	RiskProfile  RiskProfile
	NumSlices    int
	NumReads     int
	NumSweeps    int
	Seed         *uint64
	// CurrentWeights defaults to an equal split of the loaded assets.
	CurrentWeights optimization.PortfolioWeights
	// Threshold defaults to DefaultThreshold.
	Threshold *float64
}

// Plan is the outcome of a rebalance.
type Plan struct {
	Result         *optimization.Result
	RiskAversion   float64
	Period         string
	Missing        []string
	CurrentWeights optimization.PortfolioWeights
	Comparison     Comparison
	Trades         []Trade
	Threshold      float64
}

// Service computes rebalance plans.
type Service struct {
	loader    SeriesLoader
	optimizer *optimization.Optimizer
	log       zerolog.Logger
}

// NewService creates a new rebalancing service
func NewService(loader SeriesLoader, optimizer *optimization.Optimizer, log zerolog.Logger) *Service {
	return &Service{
		loader:    loader,
		optimizer: optimizer,
		log:       log.With().Str("service", "rebalancing").Logger(),
	}
}

// Plan loads history, optimizes, benchmarks against the current weights and
// lists the trades needed to move from current to target.
func (s *Service) Plan(ctx context.Context, req Request) (*Plan, error) {
	lambda, err := riskAversion(req)
	if err != nil {
		return nil, err
	}
	threshold := DefaultThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	if math.IsNaN(threshold) || threshold < 0 || threshold >= 1 {
		return nil, &optimization.InvalidInputError{Field: "threshold", Reason: fmt.Sprintf("must be in [0, 1), got %v", threshold)}
	}
	if err := validateWeights(req.CurrentWeights); err != nil {
		return nil, err
	}

	start := time.Now()
	dataset, err := s.loader.LoadSeries(ctx, req.Tickers, req.Period)
	if err != nil {
		return nil, err
	}

	result, err := s.optimizer.OptimizePortfolio(ctx, dataset.Series, optimization.Request{
		RiskAversion: lambda,
		NumSlices:    req.NumSlices,
		NumReads:     req.NumReads,
		NumSweeps:    req.NumSweeps,
		Seed:         req.Seed,
	})
	if err != nil {
		return nil, err
	}

	current := req.CurrentWeights
	if len(current) == 0 {
		current = optimization.EqualWeights(result.Assets)
	}

	benchmark := benchmarkWeights(current, result.Assets)
	benchMetrics, err := s.optimizer.Score(dataset.Series, benchmark, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to score benchmark: %w", err)
	}

	plan := &Plan{
		Result:         result,
		RiskAversion:   lambda,
		Period:         dataset.Period,
		Missing:        dataset.Missing,
		CurrentWeights: current,
		Comparison:     Compare(result.Metrics, benchMetrics),
		Trades:         BuildActionPlan(current, result.Weights, threshold),
		Threshold:      threshold,
	}

	s.log.Info().
		Strs("assets", result.Assets).
		Float64("risk_aversion", lambda).
		Str("status", string(result.Status)).
		Float64("sharpe_delta", plan.Comparison.SharpeDelta).
		Dur("duration", time.Since(start)).
		Msg("Rebalance plan computed")

	return plan, nil
}

func riskAversion(req Request) (float64, error) {
	if req.RiskAversion != nil {
		return *req.RiskAversion, nil
	}
	if req.RiskProfile != "" {
		return RiskAversionFor(req.RiskProfile)
	}
	return presets[ProfileModerate], nil
}

func validateWeights(w optimization.PortfolioWeights) error {
	for asset, v := range w {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return &optimization.InvalidInputError{
				Field:  "current_weights",
				Reason: fmt.Sprintf("weight of %s must be finite and >= 0, got %v", asset, v),
			}
		}
	}
	return nil
}

// benchmarkWeights restricts current to the loaded assets and renormalizes.
// When nothing overlaps the benchmark is an equal split.
func benchmarkWeights(current optimization.PortfolioWeights, assets []string) optimization.PortfolioWeights {
	out := make(optimization.PortfolioWeights, len(assets))
	var total float64
	for _, a := range assets {
		out[a] = current[a]
		total += current[a]
	}
	if total <= 0 {
		return optimization.EqualWeights(assets)
	}
	for a := range out {
		out[a] /= total
	}
	return out
}
