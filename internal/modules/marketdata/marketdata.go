// Package marketdata loads aligned price histories and live quotes for the optimizer.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/qdr/internal/modules/optimization"
)

// DefaultPeriod is the lookback used when a request names none.
const DefaultPeriod = "1y"

// Periods accepted by LoadSeries, in increasing length.
var Periods = []string{"1mo", "3mo", "6mo", "1y", "2y", "5y"}

var (
	// ErrNoData means none of the requested symbols produced a usable history.
	ErrNoData = errors.New("no market data")
	// ErrUnsupportedSymbol is returned by a QuoteProvider that cannot price a symbol.
	ErrUnsupportedSymbol = errors.New("unsupported symbol")
)

// PricePoint is one dated close.
type PricePoint struct {
	Time  time.Time `msgpack:"t" json:"time"`
	Price float64   `msgpack:"p" json:"price"`
}

// HistoryProvider fetches daily prices for many symbols.
// Symbols that fail are left out of the map; an error means the whole call failed.
type HistoryProvider interface {
	GetHistory(ctx context.Context, symbols []string, period string) (map[string][]PricePoint, error)
}

// QuoteProvider returns the last traded price of one symbol.
type QuoteProvider interface {
	GetPrice(ctx context.Context, symbol string) (float64, error)
}

// Cache is the persistent store behind the service. *clientdata.Repository satisfies it.
type Cache interface {
	Store(table, key string, data interface{}, ttl time.Duration) error
	GetIfFresh(table, key string, out interface{}) (bool, error)
	Get(table, key string, out interface{}) (bool, error)
}

// Dataset is an aligned price table plus the symbols that could not be loaded.
type Dataset struct {
	Series  optimization.PriceSeries
	Period  string
	Missing []string
}

// ValidatePeriod rejects lookbacks outside Periods.
func ValidatePeriod(period string) error {
	for _, p := range Periods {
		if p == period {
			return nil
		}
	}
	return &optimization.InvalidInputError{
		Field:  "period",
		Reason: fmt.Sprintf("unsupported period %q, expected one of %s", period, strings.Join(Periods, ", ")),
	}
}

// NormalizeSymbols trims, upper-cases and de-duplicates symbols, keeping first-seen order.
func NormalizeSymbols(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
