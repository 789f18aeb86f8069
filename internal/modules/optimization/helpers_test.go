package optimization

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// geometricSeries returns length prices starting at start and growing by rate per row.
func geometricSeries(start, rate float64, length int) []float64 {
	out := make([]float64, length)
	for t := range out {
		out[t] = start * math.Pow(1+rate, float64(t))
	}
	return out
}

// seriesFromReturns compounds a repeating return pattern from a base of 100.
func seriesFromReturns(pattern []float64, length int) []float64 {
	out := make([]float64, length)
	out[0] = 100
	for t := 1; t < length; t++ {
		out[t] = out[t-1] * (1 + pattern[(t-1)%len(pattern)])
	}
	return out
}

func mustSeries(t *testing.T, order []string, columns map[string][]float64) PriceSeries {
	t.Helper()
	s, err := NewPriceSeriesFromColumns(order, columns)
	require.NoError(t, err)
	return s
}

func mustStats(t *testing.T, order []string, columns map[string][]float64) *ReturnStatistics {
	t.Helper()
	stats, err := ComputeStatistics(mustSeries(t, order, columns))
	require.NoError(t, err)
	return stats
}

// riskReturnColumns is a volatile high-return asset next to a calm low-return one.
func riskReturnColumns() ([]string, map[string][]float64) {
	return []string{"HIGH", "LOW"}, map[string][]float64{
		"HIGH": seriesFromReturns([]float64{0.05, -0.03}, 41),
		"LOW":  seriesFromReturns([]float64{0.003, 0.001, 0.002}, 41),
	}
}

func seed(v uint64) *uint64 { return &v }
