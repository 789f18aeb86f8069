package rebalancing

import (
	"math"
	"sort"

	"github.com/aristath/qdr/internal/modules/optimization"
)

// DefaultThreshold is the weight change below which a position is held.
const DefaultThreshold = 0.02

// Action is the instruction for one position.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Trade is one row of an action plan.
type Trade struct {
	Asset         string  `json:"asset"`
	CurrentWeight float64 `json:"current_weight"`
	TargetWeight  float64 `json:"target_weight"`
	Diff          float64 `json:"diff"`
	Action        Action  `json:"action"`
}

// BuildActionPlan compares current and target weights asset by asset.
// A diff strictly above threshold is a BUY, strictly below -threshold a SELL.
// Assets present on only one side count as weight 0 on the other. Rows are sorted by asset.
func BuildActionPlan(current, target optimization.PortfolioWeights, threshold float64) []Trade {
	if threshold < 0 {
		threshold = 0
	}

	assets := make(map[string]struct{}, len(current)+len(target))
	for a := range current {
		assets[a] = struct{}{}
	}
	for a := range target {
		assets[a] = struct{}{}
	}

	trades := make([]Trade, 0, len(assets))
	for a := range assets {
		diff := target[a] - current[a]
		action := ActionHold
		switch {
		case diff > threshold:
			action = ActionBuy
		case diff < -threshold:
			action = ActionSell
		}
		trades = append(trades, Trade{
			Asset:         a,
			CurrentWeight: current[a],
			TargetWeight:  target[a],
			Diff:          diff,
			Action:        action,
		})
	}

	sort.Slice(trades, func(i, j int) bool { return trades[i].Asset < trades[j].Asset })
	return trades
}

// Comparison sets the optimized portfolio against a benchmark.
type Comparison struct {
	Optimized optimization.PortfolioMetrics `json:"optimized"`
	Benchmark optimization.PortfolioMetrics `json:"benchmark"`
	// VolatilityChangePct is the relative change in volatility, in percent.
	VolatilityChangePct float64 `json:"volatility_change_pct"`
	// ReturnChangePct is the change in return relative to |benchmark return|, in percent.
	ReturnChangePct float64 `json:"return_change_pct"`
	SharpeDelta     float64 `json:"sharpe_delta"`
}

// Compare computes the deltas. A zero benchmark denominator yields a 0 relative change.
func Compare(optimized, benchmark optimization.PortfolioMetrics) Comparison {
	return Comparison{
		Optimized:           optimized,
		Benchmark:           benchmark,
		VolatilityChangePct: relativeChange(optimized.Volatility, benchmark.Volatility),
		ReturnChangePct:     relativeChange(optimized.ExpectedReturn, benchmark.ExpectedReturn),
		SharpeDelta:         optimized.SharpeRatio - benchmark.SharpeRatio,
	}
}

func relativeChange(value, base float64) float64 {
	if base == 0 {
		return 0
	}
	return (value - base) / math.Abs(base) * 100
}
