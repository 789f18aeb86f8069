package optimization

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/rs/zerolog"
)

// Status qualifies an optimization result without failing the call.
type Status string

const (
	// StatusOptimal means the best state satisfies the budget exactly.
	StatusOptimal Status = "optimal"
	// StatusApproximate means no chain ended on a budget-feasible state;
	// the weights are renormalized from the best state found.
	StatusApproximate Status = "approximate"
	// StatusDegenerate means the best state allocated nothing and the weights
	// are an equal split.
	StatusDegenerate Status = "degenerate"
)

// Settings holds the process-wide defaults a Request falls back to.
type Settings struct {
	NumSlices           int
	NumReads            int
	NumSweeps           int
	AnnualizationFactor float64
	PenaltyMultiplier   float64
	Workers             int
	MaxFlipsPerRead     int
	RejectZeroVariance  bool

	// MaxReads and MaxSweeps bound what a single Request may ask for.
	MaxReads  int
	MaxSweeps int
}

// DefaultSettings returns the built-in defaults.
func DefaultSettings() Settings {
	return Settings{
		NumSlices:           20,
		NumReads:            DefaultReads,
		NumSweeps:           DefaultSweeps,
		AnnualizationFactor: DefaultAnnualizationFactor,
		PenaltyMultiplier:   DefaultPenaltyMultiplier,
		Workers:             runtime.NumCPU(),
		MaxFlipsPerRead:     DefaultMaxFlipsPerRead,
		MaxReads:            DefaultMaxReads,
		MaxSweeps:           DefaultMaxSweeps,
	}
}

// Request is one optimization call. Zero-valued numeric fields use Settings.
type Request struct {
	RiskAversion        float64
	NumSlices           int
	NumReads            int
	NumSweeps           int
	Seed                *uint64
	AnnualizationFactor float64
	Weighting           Weighting
	Penalty             float64
	MaxFlipsPerRead     int
}

// Result is everything that leaves the optimizer for one call.
type Result struct {
	Assets       []string
	Weights      PortfolioWeights
	Metrics      PortfolioMetrics
	Status       Status
	SliceCounts  map[string]int
	TotalSlices  int
	NumSlices    int
	NumBits      int
	ZeroVariance []string

	Energy        float64
	Objective     float64
	Penalty       float64
	Seed          uint64
	Reads         int
	Sweeps        int
	FeasibleReads int
	Truncated     bool
	Duration      time.Duration
}

// Optimizer runs the discrete portfolio pipeline:
// statistics, discretization, objective, annealing, decoding, scoring.
type Optimizer struct {
	settings Settings
	log      zerolog.Logger
}

// NewOptimizer creates an optimizer with the given defaults.
func NewOptimizer(settings Settings, log zerolog.Logger) *Optimizer {
	def := DefaultSettings()
	if settings.NumSlices <= 0 {
		settings.NumSlices = def.NumSlices
	}
	if settings.NumReads <= 0 {
		settings.NumReads = def.NumReads
	}
	if settings.NumSweeps <= 0 {
		settings.NumSweeps = def.NumSweeps
	}
	if settings.AnnualizationFactor <= 0 {
		settings.AnnualizationFactor = def.AnnualizationFactor
	}
	if settings.PenaltyMultiplier <= 0 {
		settings.PenaltyMultiplier = def.PenaltyMultiplier
	}
	if settings.Workers <= 0 {
		settings.Workers = def.Workers
	}
	if settings.MaxFlipsPerRead <= 0 {
		settings.MaxFlipsPerRead = def.MaxFlipsPerRead
	}
	if settings.MaxReads <= 0 {
		settings.MaxReads = def.MaxReads
	}
	if settings.MaxSweeps <= 0 {
		settings.MaxSweeps = def.MaxSweeps
	}
	return &Optimizer{
		settings: settings,
		log:      log.With().Str("component", "qubo_optimizer").Logger(),
	}
}

// Settings returns the effective defaults.
func (o *Optimizer) Settings() Settings {
	return o.settings
}

// Statistics computes return statistics with the configured zero-variance policy.
func (o *Optimizer) Statistics(series PriceSeries) (*ReturnStatistics, error) {
	return Estimator{RejectZeroVariance: o.settings.RejectZeroVariance}.Compute(series)
}

// Score computes metrics of arbitrary weights over a price series.
func (o *Optimizer) Score(series PriceSeries, weights PortfolioWeights, annualizationFactor float64) (PortfolioMetrics, error) {
	if annualizationFactor == 0 {
		annualizationFactor = o.settings.AnnualizationFactor
	}
	stats, err := o.Statistics(series)
	if err != nil {
		return PortfolioMetrics{}, err
	}
	return ScorePortfolio(weights, stats, annualizationFactor)
}

// OptimizePortfolio runs the whole pipeline on an aligned price series.
//
// Input problems return *InvalidInputError or *InsufficientDataError before
// any search happens. Budget violation and empty allocations are reported
// through Result.Status.
func OptimizePortfolio(ctx context.Context, series PriceSeries, req Request) (*Result, error) {
	return NewOptimizer(DefaultSettings(), zerolog.Nop()).OptimizePortfolio(ctx, series, req)
}

// OptimizePortfolio runs the whole pipeline on an aligned price series.
func (o *Optimizer) OptimizePortfolio(ctx context.Context, series PriceSeries, req Request) (*Result, error) {
	start := time.Now()

	req, err := o.resolve(req)
	if err != nil {
		return nil, err
	}
	if series.NumAssets() == 0 {
		return nil, invalidInput("assets", "asset list is empty")
	}

	stats, err := o.Statistics(series)
	if err != nil {
		return nil, err
	}

	disc, err := NewDiscretization(req.NumSlices)
	if err != nil {
		return nil, err
	}

	model, err := BuildObjective(stats, disc.NumSlices, req.RiskAversion, ObjectiveOptions{
		Weighting:         req.Weighting,
		Penalty:           req.Penalty,
		PenaltyMultiplier: o.settings.PenaltyMultiplier,
	})
	if err != nil {
		return nil, err
	}

	o.log.Debug().
		Int("assets", stats.NumAssets()).
		Int("observations", stats.Observations).
		Int("variables", model.NumVariables()).
		Float64("penalty", model.Penalty()).
		Float64("risk_aversion", req.RiskAversion).
		Msg("Objective built")

	solved, err := Solve(ctx, model, disc.NumBits, stats.NumAssets(), SolveOptions{
		Reads:           req.NumReads,
		Sweeps:          req.NumSweeps,
		Seed:            req.Seed,
		MaxFlipsPerRead: req.MaxFlipsPerRead,
		Workers:         o.settings.Workers,
	})
	if err != nil {
		return nil, err
	}

	decoded, err := Decode(solved, disc.NumBits, stats.Assets)
	if err != nil {
		return nil, fmt.Errorf("failed to decode assignment: %w", err)
	}

	metrics, err := ScorePortfolio(decoded.Weights, stats, req.AnnualizationFactor)
	if err != nil {
		return nil, fmt.Errorf("failed to score portfolio: %w", err)
	}

	status := StatusOptimal
	switch {
	case decoded.Degenerate:
		status = StatusDegenerate
	case !solved.ConstraintSatisfied:
		status = StatusApproximate
	}

	res := &Result{
		Assets:        stats.Assets,
		Weights:       decoded.Weights,
		Metrics:       metrics,
		Status:        status,
		SliceCounts:   decoded.SliceCounts,
		TotalSlices:   decoded.TotalSlices,
		NumSlices:     disc.NumSlices,
		NumBits:       disc.NumBits,
		ZeroVariance:  stats.ZeroVariance,
		Energy:        solved.Energy,
		Objective:     solved.Energy + model.Offset(),
		Penalty:       model.Penalty(),
		Seed:          solved.Seed,
		Reads:         solved.Reads,
		Sweeps:        solved.Sweeps,
		FeasibleReads: solved.FeasibleReads,
		Truncated:     solved.Truncated,
		Duration:      time.Since(start),
	}

	o.log.Info().
		Str("status", string(status)).
		Int("assets", len(res.Assets)).
		Int("total_slices", res.TotalSlices).
		Int("feasible_reads", res.FeasibleReads).
		Float64("energy", res.Energy).
		Uint64("seed", res.Seed).
		Dur("duration", res.Duration).
		Msg("Portfolio optimized")

	return res, nil
}

// resolve validates req and fills defaults from settings.
func (o *Optimizer) resolve(req Request) (Request, error) {
	if math.IsNaN(req.RiskAversion) || math.IsInf(req.RiskAversion, 0) || req.RiskAversion < 0 {
		return req, invalidInput("risk_aversion", "must be a finite value >= 0, got %v", req.RiskAversion)
	}
	if req.NumSlices < 0 {
		return req, invalidInput("num_slices", "must be >= 1, got %d", req.NumSlices)
	}
	if req.NumReads < 0 {
		return req, invalidInput("num_reads", "must be >= 1, got %d", req.NumReads)
	}
	if req.NumSweeps < 0 {
		return req, invalidInput("num_sweeps", "must be >= 1, got %d", req.NumSweeps)
	}
	if req.NumReads > o.settings.MaxReads {
		return req, invalidInput("num_reads", "must be <= %d, got %d", o.settings.MaxReads, req.NumReads)
	}
	if req.NumSweeps > o.settings.MaxSweeps {
		return req, invalidInput("num_sweeps", "must be <= %d, got %d", o.settings.MaxSweeps, req.NumSweeps)
	}
	if req.MaxFlipsPerRead < 0 {
		return req, invalidInput("max_flips_per_read", "must be >= 0, got %d", req.MaxFlipsPerRead)
	}
	if req.AnnualizationFactor < 0 {
		return req, invalidInput("annualization_factor", "must be > 0, got %v", req.AnnualizationFactor)
	}

	if req.NumSlices == 0 {
		req.NumSlices = o.settings.NumSlices
	}
	if req.NumReads == 0 {
		req.NumReads = o.settings.NumReads
	}
	if req.NumSweeps == 0 {
		req.NumSweeps = o.settings.NumSweeps
	}
	if req.AnnualizationFactor == 0 {
		req.AnnualizationFactor = o.settings.AnnualizationFactor
	}
	if req.MaxFlipsPerRead == 0 || req.MaxFlipsPerRead > o.settings.MaxFlipsPerRead {
		req.MaxFlipsPerRead = o.settings.MaxFlipsPerRead
	}
	return req, nil
}
