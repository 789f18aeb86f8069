package optimization

// DefaultFrontierSamples is the size of the random portfolio cloud.
const DefaultFrontierSamples = 200

// FrontierPoint is one sampled long-only portfolio.
type FrontierPoint struct {
	Weights PortfolioWeights `json:"weights"`
	PortfolioMetrics
}

// Frontier is a cloud of random portfolios used to place an optimized
// portfolio in risk/return space.
type Frontier struct {
	Points        []FrontierPoint `json:"points"`
	MaxSharpe     int             `json:"max_sharpe_index"`
	MinVolatility int             `json:"min_volatility_index"`
	Seed          uint64          `json:"seed"`
}

// RandomFrontier scores samples portfolios drawn uniformly from the weight
// simplex. A nil seed draws one and records it in the result.
func RandomFrontier(stats *ReturnStatistics, samples int, seed *uint64, annualizationFactor float64) (*Frontier, error) {
	if stats == nil || stats.NumAssets() == 0 {
		return nil, invalidInput("stats", "no assets")
	}
	if samples < 0 {
		return nil, invalidInput("samples", "must be >= 1, got %d", samples)
	}
	if samples == 0 {
		samples = DefaultFrontierSamples
	}

	master := drawMasterSeed()
	if seed != nil {
		master = *seed
	}
	rng := newChainRand(master)

	f := &Frontier{Points: make([]FrontierPoint, 0, samples), Seed: master}
	n := stats.NumAssets()
	draw := make([]float64, n)

	for s := 0; s < samples; s++ {
		// Normalized unit exponentials are a flat Dirichlet sample.
		var total float64
		for i := range draw {
			draw[i] = rng.ExpFloat64()
			total += draw[i]
		}
		w := make(PortfolioWeights, n)
		for i, id := range stats.Assets {
			w[id] = draw[i] / total
		}

		m, err := ScorePortfolio(w, stats, annualizationFactor)
		if err != nil {
			return nil, err
		}
		f.Points = append(f.Points, FrontierPoint{Weights: w, PortfolioMetrics: m})

		if m.SharpeRatio > f.Points[f.MaxSharpe].SharpeRatio {
			f.MaxSharpe = s
		}
		if m.Volatility < f.Points[f.MinVolatility].Volatility {
			f.MinVolatility = s
		}
	}
	return f, nil
}
