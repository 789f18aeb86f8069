package optimization

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ReturnStatistics holds per-period return moments indexed like the source PriceSeries.
type ReturnStatistics struct {
	Assets       []string
	Mu           []float64      // mean simple return per period
	Sigma        *mat.SymDense  // sample covariance of simple returns
	Observations int            // number of return rows used
	ZeroVariance []string       // assets whose returns never moved
}

// NumAssets returns the number of assets covered by the statistics.
func (s *ReturnStatistics) NumAssets() int {
	return len(s.Assets)
}

// Index returns the column of an asset, or -1.
func (s *ReturnStatistics) Index(asset string) int {
	for i, a := range s.Assets {
		if a == asset {
			return i
		}
	}
	return -1
}

// Estimator derives ReturnStatistics from a PriceSeries.
//
// Covariance uses the sample convention (divisor n-1 over the return rows),
// so at least two return rows, i.e. three price rows, are required.
type Estimator struct {
	// RejectZeroVariance makes any asset with constant returns an InsufficientDataError.
	RejectZeroVariance bool
}

// ComputeStatistics runs the default (permissive) estimator.
func ComputeStatistics(series PriceSeries) (*ReturnStatistics, error) {
	return Estimator{}.Compute(series)
}

// Compute calculates mean returns and the covariance matrix.
func (e Estimator) Compute(series PriceSeries) (*ReturnStatistics, error) {
	n := series.NumAssets()
	if n == 0 {
		return nil, invalidInput("assets", "asset list is empty")
	}

	rows := series.Len()
	if rows < 2 {
		return nil, &InsufficientDataError{Reason: "at least 2 aligned price rows are required to compute a return"}
	}
	if rows < 3 {
		return nil, &InsufficientDataError{Reason: fmt.Sprintf(
			"got %d aligned price rows; covariance uses the sample (n-1) convention, so at least 3 rows (2 returns) are required", rows)}
	}

	returns := simpleReturns(series)

	mu := make([]float64, n)
	for i := 0; i < n; i++ {
		mu[i] = stat.Mean(mat.Col(nil, i, returns), nil)
	}

	var sigma mat.SymDense
	stat.CovarianceMatrix(&sigma, returns, nil)

	assets := series.Assets()
	var zeroVariance []string
	for i := 0; i < n; i++ {
		if math.IsNaN(mu[i]) || math.IsInf(mu[i], 0) {
			return nil, &InsufficientDataError{Asset: assets[i], Reason: "mean return is not finite"}
		}
		for j := i; j < n; j++ {
			v := sigma.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, &InsufficientDataError{Asset: assets[i], Reason: "covariance is not finite"}
			}
		}

		// Two-pass centering can leave -1e-20 style residue on a flat column.
		if sigma.At(i, i) <= varianceEpsilon(mu[i]) {
			sigma.SetSym(i, i, 0)
			for j := 0; j < n; j++ {
				if j != i {
					sigma.SetSym(i, j, 0)
				}
			}
			zeroVariance = append(zeroVariance, assets[i])
		}
	}

	if e.RejectZeroVariance && len(zeroVariance) > 0 {
		return nil, &InsufficientDataError{Asset: zeroVariance[0], Reason: "returns have zero variance"}
	}

	return &ReturnStatistics{
		Assets:       assets,
		Mu:           mu,
		Sigma:        &sigma,
		Observations: rows - 1,
		ZeroVariance: zeroVariance,
	}, nil
}

// simpleReturns builds the (T-1)xN matrix of r[t][i] = p[t][i]/p[t-1][i] - 1.
func simpleReturns(series PriceSeries) *mat.Dense {
	rows, n := series.Len(), series.NumAssets()
	returns := mat.NewDense(rows-1, n, nil)
	for t := 1; t < rows; t++ {
		for i := 0; i < n; i++ {
			returns.Set(t-1, i, series.At(t, i)/series.At(t-1, i)-1)
		}
	}
	return returns
}

// varianceEpsilon is the threshold below which a variance is treated as rounding noise.
func varianceEpsilon(mean float64) float64 {
	scale := math.Max(math.Abs(mean), 1e-12)
	return 1e-24 * scale * scale
}
