package optimization

import (
	"math"
	"time"
)

// PriceSeries is an immutable, date-aligned price table.
// Row t holds one price per asset, in the order of Assets().
type PriceSeries struct {
	assets []string
	dates  []time.Time
	prices [][]float64
}

// NewPriceSeries validates and copies the inputs.
// dates may be nil; when present it must have one entry per row, strictly increasing.
// Gaps must already be resolved by the caller: every row needs a positive, finite price for every asset.
func NewPriceSeries(assets []string, dates []time.Time, prices [][]float64) (PriceSeries, error) {
	if len(assets) == 0 {
		return PriceSeries{}, invalidInput("assets", "asset list is empty")
	}

	seen := make(map[string]bool, len(assets))
	for _, a := range assets {
		if a == "" {
			return PriceSeries{}, invalidInput("assets", "empty asset identifier")
		}
		if seen[a] {
			return PriceSeries{}, invalidInput("assets", "duplicate asset identifier %q", a)
		}
		seen[a] = true
	}

	if dates != nil && len(dates) != len(prices) {
		return PriceSeries{}, invalidInput("dates", "got %d dates for %d price rows", len(dates), len(prices))
	}
	for t := 1; t < len(dates); t++ {
		if !dates[t].After(dates[t-1]) {
			return PriceSeries{}, invalidInput("dates", "dates must be strictly increasing (row %d)", t)
		}
	}

	rows := make([][]float64, len(prices))
	for t, row := range prices {
		if len(row) != len(assets) {
			return PriceSeries{}, invalidInput("prices", "row %d has %d columns, expected %d", t, len(row), len(assets))
		}
		for i, p := range row {
			if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
				return PriceSeries{}, invalidInput("prices", "row %d asset %s: price must be positive and finite, got %v", t, assets[i], p)
			}
		}
		rows[t] = append([]float64(nil), row...)
	}

	var datesCopy []time.Time
	if dates != nil {
		datesCopy = append([]time.Time(nil), dates...)
	}

	return PriceSeries{
		assets: append([]string(nil), assets...),
		dates:  datesCopy,
		prices: rows,
	}, nil
}

// NewPriceSeriesFromColumns builds a series from per-asset columns of equal length.
// Asset order follows the order slice.
func NewPriceSeriesFromColumns(order []string, columns map[string][]float64) (PriceSeries, error) {
	if len(order) == 0 {
		return PriceSeries{}, invalidInput("assets", "asset list is empty")
	}

	length := -1
	for _, a := range order {
		col, ok := columns[a]
		if !ok || len(col) == 0 {
			return PriceSeries{}, &InsufficientDataError{Asset: a, Reason: "price column is missing"}
		}
		if length == -1 {
			length = len(col)
		} else if len(col) != length {
			return PriceSeries{}, invalidInput("prices", "column %s has %d rows, expected %d", a, len(col), length)
		}
	}

	prices := make([][]float64, length)
	for t := range prices {
		row := make([]float64, len(order))
		for i, a := range order {
			row[i] = columns[a][t]
		}
		prices[t] = row
	}

	return NewPriceSeries(order, nil, prices)
}

// Assets returns a copy of the asset identifiers.
func (s PriceSeries) Assets() []string {
	return append([]string(nil), s.assets...)
}

// NumAssets returns the number of asset columns.
func (s PriceSeries) NumAssets() int {
	return len(s.assets)
}

// Len returns the number of aligned rows.
func (s PriceSeries) Len() int {
	return len(s.prices)
}

// Dates returns a copy of the row dates (nil when the series is undated).
func (s PriceSeries) Dates() []time.Time {
	if s.dates == nil {
		return nil
	}
	return append([]time.Time(nil), s.dates...)
}

// At returns the price of asset i at row t.
func (s PriceSeries) At(t, i int) float64 {
	return s.prices[t][i]
}

// Column returns a copy of one asset's prices.
func (s PriceSeries) Column(i int) []float64 {
	col := make([]float64, len(s.prices))
	for t := range s.prices {
		col[t] = s.prices[t][i]
	}
	return col
}
