package optimization

import (
	"context"
	"fmt"
	"math"
	"runtime"
)

// Solver defaults.
const (
	DefaultReads  = 100
	DefaultSweeps = 1000

	// Upper bounds on a single run's work.
	DefaultMaxReads        = 10000
	DefaultMaxSweeps       = 100000
	DefaultMaxFlipsPerRead = 20_000_000

	maxTemperatureRatio = 1e6
)

// SolveOptions configures the annealing run. Zero values select defaults.
type SolveOptions struct {
	Reads  int // independent chains
	Sweeps int // temperature steps per chain; one sweep is one flip attempt per bit

	// Seed makes the run reproducible. When nil a master seed is drawn and
	// reported in SolverResult.Seed.
	Seed *uint64

	// InitialTemperature and FinalTemperature bound the geometric schedule.
	// Either one left at 0 is derived from the model's coefficients.
	InitialTemperature float64
	FinalTemperature   float64

	// MaxFlipsPerRead caps flip attempts per chain (0 = Sweeps x bits).
	MaxFlipsPerRead int

	// Workers is the number of goroutines running chains. Defaults to runtime.NumCPU().
	Workers int
}

// SolverResult is the best assignment found across all chains.
type SolverResult struct {
	Assignment          BitAssignment
	Energy              float64
	ConstraintSatisfied bool

	Seed               uint64
	Reads              int
	Sweeps             int
	FeasibleReads      int
	ChainEnergies      []float64
	InitialTemperature float64
	FinalTemperature   float64
	Truncated          bool // MaxFlipsPerRead stopped chains before the schedule ended
}

type chainResult struct {
	assignment BitAssignment
	energy     float64
	feasible   bool
	truncated  bool
}

// Solve approximately minimizes model.Energy with simulated annealing.
//
// Each chain starts from a uniformly random assignment, proposes single random
// bit flips scored with QuboModel.FlipDelta, and accepts them with the
// Metropolis rule under a geometric cooling schedule. The final states of all
// chains are compared: lowest energy wins, a budget-feasible state wins ties,
// then the lowest chain index.
//
// Chains only share the read-only model, and each one draws from its own
// stream seeded by (master seed, chain index), so a seeded run returns the
// same result for any worker count. ctx is consulted between chains.
func Solve(ctx context.Context, model *QuboModel, numBits, numAssets int, opts SolveOptions) (*SolverResult, error) {
	if model == nil {
		return nil, invalidInput("model", "model is nil")
	}
	if numBits < 1 || numAssets < 1 || numBits*numAssets != model.NumVariables() {
		return nil, invalidInput("model", "%d assets x %d bits does not match %d model variables",
			numAssets, numBits, model.NumVariables())
	}

	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	hot, cold := opts.InitialTemperature, opts.FinalTemperature
	if hot > 0 && cold > 0 && cold > hot {
		return nil, invalidInput("temperature", "final temperature %v exceeds initial temperature %v", cold, hot)
	}
	if hot <= 0 || cold <= 0 {
		autoHot, autoCold := temperatureRange(model)
		switch {
		case hot <= 0 && cold <= 0:
			hot, cold = autoHot, autoCold
		case hot <= 0:
			hot = math.Max(autoHot, cold)
		default:
			cold = math.Min(autoCold, hot)
		}
	}

	master := drawMasterSeed()
	if opts.Seed != nil {
		master = *opts.Seed
	}

	sched := newSchedule(hot, cold, opts.Sweeps)
	flipCap := scheduleFlips(opts.Sweeps, model.NumVariables())
	if opts.MaxFlipsPerRead > 0 && opts.MaxFlipsPerRead < flipCap {
		flipCap = opts.MaxFlipsPerRead
	}

	pool := newChainPool(opts.Workers)
	chains, err := pool.run(ctx, opts.Reads, func(i int) chainResult {
		return anneal(ctx, model, numBits, numAssets, sched, flipCap, chainSeed(master, i))
	})
	if err != nil {
		return nil, fmt.Errorf("annealing interrupted: %w", err)
	}

	res := &SolverResult{
		Seed:               master,
		Reads:              opts.Reads,
		Sweeps:             opts.Sweeps,
		ChainEnergies:      make([]float64, len(chains)),
		InitialTemperature: hot,
		FinalTemperature:   cold,
	}

	for i, c := range chains {
		res.ChainEnergies[i] = c.energy
		if c.feasible {
			res.FeasibleReads++
		}
		if c.truncated {
			res.Truncated = true
		}
	}

	best := selectBest(chains)

	res.Assignment = chains[best].assignment
	res.Energy = chains[best].energy
	res.ConstraintSatisfied = chains[best].feasible
	return res, nil
}

func (o SolveOptions) withDefaults() (SolveOptions, error) {
	if o.Reads < 0 {
		return o, invalidInput("num_reads", "must be >= 1, got %d", o.Reads)
	}
	if o.Sweeps < 0 {
		return o, invalidInput("num_sweeps", "must be >= 1, got %d", o.Sweeps)
	}
	if o.MaxFlipsPerRead < 0 {
		return o, invalidInput("max_flips_per_read", "must be >= 0, got %d", o.MaxFlipsPerRead)
	}
	for _, t := range []float64{o.InitialTemperature, o.FinalTemperature} {
		if math.IsNaN(t) || math.IsInf(t, 0) || t < 0 {
			return o, invalidInput("temperature", "must be a finite value >= 0, got %v", t)
		}
	}
	if o.Reads == 0 {
		o.Reads = DefaultReads
	}
	if o.Sweeps == 0 {
		o.Sweeps = DefaultSweeps
	}
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	return o, nil
}

// scheduleFlips is sweeps x variables, saturating at math.MaxInt.
func scheduleFlips(sweeps, variables int) int {
	if variables > 0 && sweeps > math.MaxInt/variables {
		return math.MaxInt
	}
	return sweeps * variables
}

// selectBest returns the index of the winning chain. Every chain within the
// tie tolerance of the minimum energy is a candidate; among candidates a
// feasible one wins, then the lowest index. Comparing against the minimum
// rather than a running incumbent keeps the choice independent of chain order.
func selectBest(chains []chainResult) int {
	minEnergy := math.Inf(1)
	for _, c := range chains {
		if c.energy < minEnergy {
			minEnergy = c.energy
		}
	}

	best := -1
	for i, c := range chains {
		if !energiesEqual(c.energy, minEnergy) {
			continue
		}
		if best < 0 || (c.feasible && !chains[best].feasible) {
			best = i
		}
	}
	return best
}

func energiesEqual(a, b float64) bool {
	scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
	return math.Abs(a-b) <= 1e-9*scale
}

// anneal runs one chain to the end of the schedule or the flip cap. ctx is
// checked once per sweep; a cancelled chain stops early and its result is
// discarded by the pool.
func anneal(ctx context.Context, model *QuboModel, numBits, numAssets int, sched schedule, flipCap int, seed uint64) chainResult {
	rng := newChainRand(seed)
	n := model.NumVariables()

	x := make(BitAssignment, n)
	for i := range x {
		x[i] = rng.Uint64()&1 == 1
	}

	flips := 0
	truncated := false
sweeps:
	for s := 0; s < sched.sweeps; s++ {
		if ctx.Err() != nil {
			break
		}
		t := sched.at(s)
		for k := 0; k < n; k++ {
			if flips >= flipCap {
				truncated = true
				break sweeps
			}
			flips++

			a := rng.IntN(n)
			delta := model.FlipDelta(x, a)
			if delta <= 0 || rng.Float64() < math.Exp(-delta/t) {
				x[a] = !x[a]
			}
		}
	}

	// Recomputed once so the reported energy carries no accumulated drift.
	energy := model.Energy(x)
	total := 0
	for _, k := range x.SliceCounts(numAssets, numBits) {
		total += k
	}

	return chainResult{
		assignment: x,
		energy:     energy,
		feasible:   total == model.NumSlices(),
		truncated:  truncated,
	}
}

// schedule is a geometric temperature ladder from hot to cold.
type schedule struct {
	hot, cold float64
	sweeps    int
}

func newSchedule(hot, cold float64, sweeps int) schedule {
	return schedule{hot: hot, cold: cold, sweeps: sweeps}
}

// at returns T_s = hot·(cold/hot)^(s/(sweeps-1)).
func (s schedule) at(step int) float64 {
	if s.sweeps <= 1 {
		return s.hot
	}
	return s.hot * math.Pow(s.cold/s.hot, float64(step)/float64(s.sweeps-1))
}

// temperatureRange picks a schedule from the model: at the hot end the
// largest possible single-flip change is accepted with probability 1/2, at the
// cold end a change of one unit of objective resolution with probability 1/100.
// The ratio between the two is capped at maxTemperatureRatio.
func temperatureRange(m *QuboModel) (hot, cold float64) {
	n := m.NumVariables()
	maxDelta := 0.0
	minDelta := m.resolution

	for a := 0; a < n; a++ {
		row := m.q[a*n : (a+1)*n]
		field := math.Abs(m.l[a] + row[a])
		for b := 0; b < n; b++ {
			if b != a {
				field += 2 * math.Abs(row[b])
			}
		}
		maxDelta = math.Max(maxDelta, field)
	}

	if maxDelta == 0 {
		return 1, 1e-3
	}
	hot = maxDelta / math.Ln2
	if minDelta <= 0 {
		minDelta = maxDelta
	}
	cold = minDelta / math.Log(100)
	if cold*maxTemperatureRatio < hot {
		cold = hot / maxTemperatureRatio
	}
	if cold >= hot {
		cold = hot * 1e-3
	}
	return hot, cold
}
