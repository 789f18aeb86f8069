package optimization

// Decoded is a solver assignment translated back into allocations.
type Decoded struct {
	SliceCounts map[string]int
	TotalSlices int
	Weights     PortfolioWeights
	// Degenerate is set when no slice was allocated at all. Weights then fall
	// back to an equal split so they still sum to 1.
	Degenerate bool
}

// Decode reconstructs each asset's slice count from its bits and normalizes
// the counts into weights. assetIDs must be in model order.
func Decode(result *SolverResult, numBits int, assetIDs []string) (*Decoded, error) {
	if result == nil {
		return nil, invalidInput("result", "result is nil")
	}
	if len(assetIDs) == 0 {
		return nil, invalidInput("assets", "asset list is empty")
	}
	if numBits < 1 {
		return nil, invalidInput("num_bits", "must be >= 1, got %d", numBits)
	}
	if len(result.Assignment) != len(assetIDs)*numBits {
		return nil, invalidInput("assignment", "has %d bits, expected %d assets x %d bits",
			len(result.Assignment), len(assetIDs), numBits)
	}

	counts := result.Assignment.SliceCounts(len(assetIDs), numBits)

	d := &Decoded{
		SliceCounts: make(map[string]int, len(assetIDs)),
		Weights:     make(PortfolioWeights, len(assetIDs)),
	}
	for i, id := range assetIDs {
		d.SliceCounts[id] = counts[i]
		d.TotalSlices += counts[i]
	}

	if d.TotalSlices == 0 {
		d.Degenerate = true
		equal := 1 / float64(len(assetIDs))
		for _, id := range assetIDs {
			d.Weights[id] = equal
		}
		return d, nil
	}

	total := float64(d.TotalSlices)
	for i, id := range assetIDs {
		d.Weights[id] = float64(counts[i]) / total
	}
	return d, nil
}
