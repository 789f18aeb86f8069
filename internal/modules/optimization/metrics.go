package optimization

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// DefaultAnnualizationFactor is the number of daily trading periods per year.
const DefaultAnnualizationFactor = 252.0

// PortfolioWeights maps asset identifiers to allocation fractions.
type PortfolioWeights map[string]float64

// Sum returns the total allocation.
func (w PortfolioWeights) Sum() float64 {
	var s float64
	for _, v := range w {
		s += v
	}
	return s
}

// Assets returns the identifiers in lexical order.
func (w PortfolioWeights) Assets() []string {
	ids := make([]string, 0, len(w))
	for id := range w {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// EqualWeights allocates 1/N to every asset.
func EqualWeights(assets []string) PortfolioWeights {
	w := make(PortfolioWeights, len(assets))
	for _, a := range assets {
		w[a] = 1 / float64(len(assets))
	}
	return w
}

// PortfolioMetrics are annualized performance figures of a weight vector.
type PortfolioMetrics struct {
	Volatility     float64 `json:"volatility"`
	ExpectedReturn float64 `json:"expected_return"`
	SharpeRatio    float64 `json:"sharpe_ratio"`
}

// ScorePortfolio computes annualized volatility, expected return and Sharpe
// ratio of any weight mapping against stats. Assets present in stats but
// absent from weights count as 0. It has no side effects.
func ScorePortfolio(weights PortfolioWeights, stats *ReturnStatistics, annualizationFactor float64) (PortfolioMetrics, error) {
	if stats == nil || stats.NumAssets() == 0 {
		return PortfolioMetrics{}, invalidInput("stats", "no assets")
	}
	if math.IsNaN(annualizationFactor) || math.IsInf(annualizationFactor, 0) || annualizationFactor <= 0 {
		return PortfolioMetrics{}, invalidInput("annualization_factor", "must be a finite value > 0, got %v", annualizationFactor)
	}

	w := make([]float64, stats.NumAssets())
	for id, v := range weights {
		i := stats.Index(id)
		if i < 0 {
			return PortfolioMetrics{}, invalidInput("weights", "unknown asset %q", id)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return PortfolioMetrics{}, invalidInput("weights", "weight of %s is not finite", id)
		}
		w[i] = v
	}

	wv := mat.NewVecDense(len(w), w)
	variance := mat.Inner(wv, stats.Sigma, wv)
	// Rounding can push a PSD quadratic form a hair below zero.
	variance = math.Max(variance, 0)

	m := PortfolioMetrics{
		Volatility:     math.Sqrt(variance) * math.Sqrt(annualizationFactor),
		ExpectedReturn: floats.Dot(w, stats.Mu) * annualizationFactor,
	}
	if m.Volatility > 0 {
		m.SharpeRatio = m.ExpectedReturn / m.Volatility
	}
	return m, nil
}
