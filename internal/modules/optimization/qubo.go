package optimization

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// DefaultPenaltyMultiplier scales the budget penalty above the largest single-move gain.
const DefaultPenaltyMultiplier = 2.0

// Weighting selects which objective term the risk-aversion scalar multiplies.
type Weighting string

const (
	// WeightRisk minimizes λ·risk - S·return: λ = 0 is return-only, larger λ
	// trades return for lower variance.
	WeightRisk Weighting = "risk"
	// WeightReturn minimizes risk - λ·S·return. Larger λ there means more
	// return seeking.
	WeightReturn Weighting = "return"
)

// ObjectiveOptions tunes the objective terms and the budget penalty.
type ObjectiveOptions struct {
	// Weighting defaults to WeightRisk.
	Weighting Weighting
	// Penalty, when > 0, is used verbatim instead of the derived value.
	Penalty float64
	// PenaltyMultiplier scales the derived bound. Defaults to DefaultPenaltyMultiplier.
	PenaltyMultiplier float64
}

// QuboModel is the quadratic binary objective energy(x) = xᵀQx + Lᵀx.
// Q is symmetric and stored densely; the model is read-only once built.
type QuboModel struct {
	n       int
	q       []float64 // n*n, row-major, symmetric
	l       []float64
	offset  float64
	penalty float64
	// resolution is the smallest non-zero per-slice change of any single
	// term, used to place the cold end of the annealing schedule.
	resolution float64

	numAssets int
	numBits   int
	numSlices int
}

// NumVariables returns the length of a BitAssignment for this model.
func (m *QuboModel) NumVariables() int { return m.n }

// NumAssets returns the number of assets encoded.
func (m *QuboModel) NumAssets() int { return m.numAssets }

// NumBits returns the bits per asset.
func (m *QuboModel) NumBits() int { return m.numBits }

// NumSlices returns the budget the penalty enforces.
func (m *QuboModel) NumSlices() int { return m.numSlices }

// Penalty returns the budget penalty weight P.
func (m *QuboModel) Penalty() float64 { return m.penalty }

// Offset is the constant P·numSlices² dropped from Energy.
func (m *QuboModel) Offset() float64 { return m.offset }

// Linear returns a copy of L.
func (m *QuboModel) Linear() []float64 {
	return append([]float64(nil), m.l...)
}

// Quadratic returns a copy of Q as a gonum symmetric matrix.
func (m *QuboModel) Quadratic() *mat.SymDense {
	q := mat.NewSymDense(m.n, nil)
	for a := 0; a < m.n; a++ {
		for b := a; b < m.n; b++ {
			q.SetSym(a, b, m.q[a*m.n+b])
		}
	}
	return q
}

// Energy evaluates xᵀQx + Lᵀx.
func (m *QuboModel) Energy(x BitAssignment) float64 {
	var e float64
	for a := 0; a < m.n; a++ {
		if !x[a] {
			continue
		}
		e += m.l[a]
		row := m.q[a*m.n : (a+1)*m.n]
		for b := 0; b < m.n; b++ {
			if x[b] {
				e += row[b]
			}
		}
	}
	return e
}

// Objective is Energy plus the constant offset, i.e. the value of
// risk - return + penalty for the decoded slice counts.
func (m *QuboModel) Objective(x BitAssignment) float64 {
	return m.Energy(x) + m.offset
}

// FlipDelta is the energy change from flipping bit a in x.
// Only row a of Q is read, so the cost is O(n).
func (m *QuboModel) FlipDelta(x BitAssignment, a int) float64 {
	row := m.q[a*m.n : (a+1)*m.n]
	field := 0.0
	for b, on := range x {
		if on && b != a {
			field += row[b]
		}
	}
	delta := m.l[a] + row[a] + 2*field
	if x[a] {
		return -delta
	}
	return delta
}

// BuildObjective assembles risk, return and budget-penalty terms directly into Q and L.
//
// With k_i = Σ_b 2^b x_{i,b} and S = numSlices:
//
//	risk    ρ·Σ_ij σ_ij k_i k_j
//	return  -γ·S·Σ_i μ_i k_i
//	budget  P·(Σ_i k_i - S)²
//
// WeightRisk uses ρ = λ, γ = 1; WeightReturn uses ρ = 1, γ = λ.
// k_i·k_j expands to Σ_b Σ_c 2^(b+c) x_{i,b} x_{j,c}, so every (asset, bit)
// pair receives its own Q entry.
func BuildObjective(stats *ReturnStatistics, numSlices int, riskAversion float64, opts ObjectiveOptions) (*QuboModel, error) {
	if stats == nil || stats.NumAssets() == 0 {
		return nil, invalidInput("stats", "no assets")
	}
	if math.IsNaN(riskAversion) || math.IsInf(riskAversion, 0) || riskAversion < 0 {
		return nil, invalidInput("risk_aversion", "must be a finite value >= 0, got %v", riskAversion)
	}
	numBits, err := NumBits(numSlices)
	if err != nil {
		return nil, err
	}

	riskCoef, returnCoef := 1.0, riskAversion
	switch opts.Weighting {
	case "", WeightRisk:
		riskCoef, returnCoef = riskAversion, 1
	case WeightReturn:
	default:
		return nil, invalidInput("weighting", "unknown weighting %q", opts.Weighting)
	}

	numAssets := stats.NumAssets()
	n := numAssets * numBits
	slices := float64(numSlices)

	penalty := opts.Penalty
	if penalty <= 0 {
		maxCount := float64(uint(1)<<numBits - 1)
		penalty = derivePenalty(stats, slices, maxCount, riskCoef, returnCoef, opts.PenaltyMultiplier)
	}

	weights := make([]float64, numBits)
	for b := range weights {
		weights[b] = float64(uint(1) << b)
	}

	m := &QuboModel{
		n:         n,
		q:         make([]float64, n*n),
		l:         make([]float64, n),
		offset:    penalty * slices * slices,
		penalty:   penalty,
		numAssets: numAssets,
		numBits:   numBits,
		numSlices: numSlices,
	}

	for i := 0; i < numAssets; i++ {
		for b := 0; b < numBits; b++ {
			ib := BitIndex(i, b, numBits)
			m.l[ib] = -returnCoef*slices*stats.Mu[i]*weights[b] - 2*penalty*slices*weights[b]

			for j := 0; j < numAssets; j++ {
				coef := riskCoef*stats.Sigma.At(i, j) + penalty
				for c := 0; c < numBits; c++ {
					m.q[ib*n+BitIndex(j, c, numBits)] += coef * weights[b] * weights[c]
				}
			}
		}
	}

	m.resolution = resolution(stats, slices, riskCoef, returnCoef, penalty)
	return m, nil
}

func resolution(stats *ReturnStatistics, slices, riskCoef, returnCoef, penalty float64) float64 {
	res := penalty
	for i := 0; i < stats.NumAssets(); i++ {
		for _, v := range []float64{returnCoef * slices * math.Abs(stats.Mu[i]), riskCoef * stats.Sigma.At(i, i)} {
			if v > 0 && v < res {
				res = v
			}
		}
	}
	return res
}

// derivePenalty bounds the largest change in risk and return a single ±1 slice
// move can cause, with every count at most maxCount, and multiplies it. A move
// toward the budget lowers the penalty by at least P, more than it can cost
// elsewhere, so every infeasible point scores worse than some feasible one.
func derivePenalty(stats *ReturnStatistics, slices, maxCount, riskCoef, returnCoef, multiplier float64) float64 {
	if multiplier <= 0 {
		multiplier = DefaultPenaltyMultiplier
	}

	n := stats.NumAssets()
	var bound float64
	for i := 0; i < n; i++ {
		var rowAbs float64
		for j := 0; j < n; j++ {
			rowAbs += math.Abs(stats.Sigma.At(i, j))
		}
		gain := riskCoef*(2*maxCount+1)*rowAbs + returnCoef*slices*math.Abs(stats.Mu[i])
		bound = math.Max(bound, gain)
	}

	if bound == 0 {
		return 1
	}
	return multiplier * bound
}
