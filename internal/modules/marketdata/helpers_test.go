package marketdata

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/aristath/qdr/internal/clientdata"
)

const cacheSchema = `
CREATE TABLE price_history (series_key TEXT PRIMARY KEY, data BLOB NOT NULL, expires_at INTEGER NOT NULL);
CREATE TABLE current_prices (symbol TEXT PRIMARY KEY, data BLOB NOT NULL, expires_at INTEGER NOT NULL);
`

func setupCache(t *testing.T) *clientdata.Repository {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// Every connection to :memory: is a new database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(cacheSchema)
	require.NoError(t, err)
	return clientdata.NewRepository(db)
}

func days(start time.Time, prices ...float64) []PricePoint {
	points := make([]PricePoint, len(prices))
	for i, p := range prices {
		points[i] = PricePoint{Time: start.AddDate(0, 0, i), Price: p}
	}
	return points
}

var epoch = time.Date(2024, 1, 1, 21, 0, 0, 0, time.UTC)

type fakeHistory struct {
	mu    sync.Mutex
	data  map[string][]PricePoint
	err   error
	calls int
}

func (f *fakeHistory) GetHistory(ctx context.Context, symbols []string, period string) (map[string][]PricePoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string][]PricePoint)
	for _, s := range symbols {
		if p, ok := f.data[s]; ok {
			out[s] = p
		}
	}
	return out, nil
}

func (f *fakeHistory) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeQuotes struct {
	mu     sync.Mutex
	prices map[string]float64
	calls  []string
}

func (f *fakeQuotes) GetPrice(ctx context.Context, symbol string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, symbol)
	if p, ok := f.prices[symbol]; ok {
		return p, nil
	}
	return 0, errors.New("upstream failure")
}

func (f *fakeQuotes) called(symbol string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == symbol {
			return true
		}
	}
	return false
}

type cryptoOnly struct{ fakeQuotes }

func (f *cryptoOnly) GetPrice(ctx context.Context, symbol string) (float64, error) {
	if len(symbol) < 4 || symbol[len(symbol)-4:] != "-USD" {
		return 0, ErrUnsupportedSymbol
	}
	return f.fakeQuotes.GetPrice(ctx, symbol)
}
