package optimization

import "math/rand/v2"

const golden = 0x9e3779b97f4a7c15

// mix64 is the splitmix64 finalizer.
func mix64(z uint64) uint64 {
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// chainSeed derives the seed of one annealing chain from the run's master seed.
// The value depends only on (master, chain), never on which worker runs the chain.
func chainSeed(master uint64, chain int) uint64 {
	return mix64(master + uint64(chain+1)*golden)
}

// newChainRand returns a PCG stream owned by a single chain.
func newChainRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, mix64(seed^golden)))
}

// drawMasterSeed picks a seed for callers that did not supply one.
func drawMasterSeed() uint64 {
	return rand.Uint64()
}
