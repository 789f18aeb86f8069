package optimization

import "math/bits"

// MaxSlices bounds the budget granularity so the bit vector stays small.
const MaxSlices = 4096

// Discretization describes the integer allocation grid shared by every asset in a run.
type Discretization struct {
	NumSlices int // indivisible budget units, e.g. 20 => 5% steps
	NumBits   int // bits per asset, enough to encode any integer in [0, NumSlices]
}

// NewDiscretization validates numSlices and derives the bit width.
func NewDiscretization(numSlices int) (Discretization, error) {
	numBits, err := NumBits(numSlices)
	if err != nil {
		return Discretization{}, err
	}
	return Discretization{NumSlices: numSlices, NumBits: numBits}, nil
}

// NumBits returns floor(log2(numSlices)) + 1.
func NumBits(numSlices int) (int, error) {
	if numSlices < 1 {
		return 0, invalidInput("num_slices", "must be >= 1, got %d", numSlices)
	}
	if numSlices > MaxSlices {
		return 0, invalidInput("num_slices", "must be <= %d, got %d", MaxSlices, numSlices)
	}
	return bits.Len(uint(numSlices)), nil
}

// Granularity is the weight represented by one slice.
func (d Discretization) Granularity() float64 {
	return 1 / float64(d.NumSlices)
}

// BitIndex maps (asset, bit position) to the flat BitAssignment index.
func BitIndex(asset, bit, numBits int) int {
	return asset*numBits + bit
}

// BitAssignment is the flat binary state of every asset's bits.
type BitAssignment []bool

// SliceCount reconstructs k_i = sum_b 2^b * x_{i,b} for one asset.
func (a BitAssignment) SliceCount(asset, numBits int) int {
	k := 0
	for b := 0; b < numBits; b++ {
		if a[BitIndex(asset, b, numBits)] {
			k += 1 << b
		}
	}
	return k
}

// SliceCounts reconstructs every asset's slice count.
func (a BitAssignment) SliceCounts(numAssets, numBits int) []int {
	counts := make([]int, numAssets)
	for i := range counts {
		counts[i] = a.SliceCount(i, numBits)
	}
	return counts
}

// Clone returns an independent copy.
func (a BitAssignment) Clone() BitAssignment {
	return append(BitAssignment(nil), a...)
}

// EncodeSliceCounts is the inverse of SliceCounts. Counts must fit in numBits.
func EncodeSliceCounts(counts []int, numBits int) BitAssignment {
	a := make(BitAssignment, len(counts)*numBits)
	for i, k := range counts {
		for b := 0; b < numBits; b++ {
			a[BitIndex(i, b, numBits)] = k&(1<<b) != 0
		}
	}
	return a
}
