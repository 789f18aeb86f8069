package testing

import (
	"math"
	"time"

	"github.com/aristath/qdr/internal/modules/marketdata"
	"github.com/aristath/qdr/internal/modules/optimization"
)

// FixtureStart is the first trading day of every generated history.
var FixtureStart = time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC)

// NewPriceHistoryFixtures generates deterministic daily histories.
// Asset i drifts by 0.05%·(i+1) per day with a sine wobble of its own
// frequency, so every asset has distinct, non-zero variance.
func NewPriceHistoryFixtures(assets []string, days int) map[string][]marketdata.PricePoint {
	out := make(map[string][]marketdata.PricePoint, len(assets))
	for i, asset := range assets {
		points := make([]marketdata.PricePoint, days)
		price := 100.0 * float64(i+1)
		for d := 0; d < days; d++ {
			drift := 0.0005 * float64(i+1)
			wobble := 0.01 * math.Sin(float64(d)/float64(i+2))
			price *= 1 + drift + wobble
			points[d] = marketdata.PricePoint{
				Time:  FixtureStart.AddDate(0, 0, d),
				Price: price,
			}
		}
		out[asset] = points
	}
	return out
}

// NewPriceSeriesFixture is the aligned series of NewPriceHistoryFixtures.
func NewPriceSeriesFixture(assets []string, days int) optimization.PriceSeries {
	series, _, err := marketdata.Align(assets, NewPriceHistoryFixtures(assets, days))
	if err != nil {
		panic(err)
	}
	return series
}

// NewQuoteFixtures returns a flat price per asset.
func NewQuoteFixtures(assets []string) map[string]float64 {
	out := make(map[string]float64, len(assets))
	for i, asset := range assets {
		out[asset] = 100.0 * float64(i+1)
	}
	return out
}
