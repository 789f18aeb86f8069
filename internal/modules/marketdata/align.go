package marketdata

import (
	"sort"
	"time"

	"github.com/aristath/qdr/internal/modules/optimization"
)

// day truncates to the UTC calendar date so exchanges closing at different
// hours still share a row.
func day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Align builds a PriceSeries over the dates every symbol has a positive price for.
// Symbols absent from histories are returned as missing. The last point wins
// when a symbol reports the same date twice.
func Align(symbols []string, histories map[string][]PricePoint) (optimization.PriceSeries, []string, error) {
	var present, missing []string
	byDay := make(map[string]map[time.Time]float64, len(symbols))

	for _, sym := range symbols {
		points := histories[sym]
		prices := make(map[time.Time]float64, len(points))
		for _, p := range points {
			if p.Price > 0 {
				prices[day(p.Time)] = p.Price
			}
		}
		if len(prices) == 0 {
			missing = append(missing, sym)
			continue
		}
		present = append(present, sym)
		byDay[sym] = prices
	}

	if len(present) == 0 {
		return optimization.PriceSeries{}, missing, ErrNoData
	}

	var dates []time.Time
	for d := range byDay[present[0]] {
		shared := true
		for _, sym := range present[1:] {
			if _, ok := byDay[sym][d]; !ok {
				shared = false
				break
			}
		}
		if shared {
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	rows := make([][]float64, len(dates))
	for t, d := range dates {
		row := make([]float64, len(present))
		for i, sym := range present {
			row[i] = byDay[sym][d]
		}
		rows[t] = row
	}

	series, err := optimization.NewPriceSeries(present, dates, rows)
	if err != nil {
		return optimization.PriceSeries{}, missing, err
	}
	return series, missing, nil
}
