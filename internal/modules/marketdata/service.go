package marketdata

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/aristath/qdr/internal/clientdata"
	"github.com/aristath/qdr/internal/modules/optimization"
)

// Service serves cached price histories and quotes.
// Fresh cache entries are returned directly, misses go upstream, and stale
// entries are served when the upstream call fails.
type Service struct {
	history HistoryProvider
	quotes  []QuoteProvider // tried in order
	cache   Cache           // optional
	group   singleflight.Group
	log     zerolog.Logger
}

// NewService creates a market-data service. cache may be nil.
func NewService(history HistoryProvider, quotes []QuoteProvider, cache Cache, log zerolog.Logger) *Service {
	return &Service{
		history: history,
		quotes:  quotes,
		cache:   cache,
		log:     log.With().Str("service", "marketdata").Logger(),
	}
}

func historyKey(symbol, period string) string {
	return clientdata.HistoryKey(symbol, period)
}

// LoadSeries returns the aligned history of symbols over period.
// Symbols without data are reported in Dataset.Missing; ErrNoData is returned
// only when nothing at all could be loaded.
func (s *Service) LoadSeries(ctx context.Context, symbols []string, period string) (*Dataset, error) {
	if period == "" {
		period = DefaultPeriod
	}
	if err := ValidatePeriod(period); err != nil {
		return nil, err
	}
	symbols = NormalizeSymbols(symbols)
	if len(symbols) == 0 {
		return nil, &optimization.InvalidInputError{Field: "tickers", Reason: "no symbols provided"}
	}

	histories, err := s.histories(ctx, symbols, period)
	if err != nil {
		return nil, err
	}

	series, missing, err := Align(symbols, histories)
	if err != nil {
		if errors.Is(err, ErrNoData) {
			return nil, fmt.Errorf("%w for %s", ErrNoData, strings.Join(symbols, ", "))
		}
		return nil, err
	}

	s.log.Debug().
		Strs("symbols", series.Assets()).
		Strs("missing", missing).
		Int("rows", series.Len()).
		Str("period", period).
		Msg("Loaded price series")

	return &Dataset{Series: series, Period: period, Missing: missing}, nil
}

func (s *Service) histories(ctx context.Context, symbols []string, period string) (map[string][]PricePoint, error) {
	out := make(map[string][]PricePoint, len(symbols))
	var misses []string

	for _, sym := range symbols {
		var points []PricePoint
		if s.cacheGet(clientdata.TablePriceHistory, historyKey(sym, period), &points, true) {
			out[sym] = points
			continue
		}
		misses = append(misses, sym)
	}

	if len(misses) == 0 {
		return out, nil
	}

	fetched, err := s.fetchHistories(ctx, misses, period)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("history fetch cancelled: %w", ctx.Err())
		}
		s.log.Warn().Err(err).Strs("symbols", misses).Msg("History provider failed, falling back to stale cache")
		fetched = nil
	}

	for _, sym := range misses {
		if points, ok := fetched[sym]; ok && len(points) > 0 {
			out[sym] = points
			s.cacheStore(clientdata.TablePriceHistory, historyKey(sym, period), points, clientdata.TTLPriceHistory)
			continue
		}
		var stale []PricePoint
		if s.cacheGet(clientdata.TablePriceHistory, historyKey(sym, period), &stale, false) {
			s.log.Info().Str("symbol", sym).Msg("Serving stale price history")
			out[sym] = stale
		}
	}

	return out, nil
}

// fetchHistories coalesces identical concurrent requests.
func (s *Service) fetchHistories(ctx context.Context, symbols []string, period string) (map[string][]PricePoint, error) {
	sorted := append([]string(nil), symbols...)
	sort.Strings(sorted)
	key := period + ":" + strings.Join(sorted, ",")

	result, err, shared := s.group.Do(key, func() (interface{}, error) {
		return s.history.GetHistory(ctx, symbols, period)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.log.Debug().Str("key", key).Msg("Shared in-flight history fetch")
	}
	return result.(map[string][]PricePoint), nil
}

// Quotes returns the latest price per symbol. Symbols no provider could price are omitted.
func (s *Service) Quotes(ctx context.Context, symbols []string) (map[string]float64, error) {
	symbols = NormalizeSymbols(symbols)

	var mu sync.Mutex
	out := make(map[string]float64, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)

	for _, sym := range symbols {
		g.Go(func() error {
			price, ok := s.quote(gctx, sym)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if ok {
				mu.Lock()
				out[sym] = price
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("quotes cancelled: %w", err)
	}
	return out, nil
}

func (s *Service) quote(ctx context.Context, symbol string) (float64, bool) {
	var price float64
	if s.cacheGet(clientdata.TableCurrentPrices, symbol, &price, true) {
		return price, true
	}

	for _, provider := range s.quotes {
		p, err := provider.GetPrice(ctx, symbol)
		if err == nil && p > 0 {
			s.cacheStore(clientdata.TableCurrentPrices, symbol, p, clientdata.TTLCurrentPrice)
			return p, true
		}
		if err != nil && !errors.Is(err, ErrUnsupportedSymbol) {
			s.log.Debug().Err(err).Str("symbol", symbol).Msg("Quote provider failed")
		}
		if ctx.Err() != nil {
			return 0, false
		}
	}

	if s.cacheGet(clientdata.TableCurrentPrices, symbol, &price, false) {
		s.log.Info().Str("symbol", symbol).Msg("Serving stale quote")
		return price, true
	}

	s.log.Warn().Str("symbol", symbol).Msg("No quote available")
	return 0, false
}

func (s *Service) cacheGet(table, key string, out interface{}, freshOnly bool) bool {
	if s.cache == nil {
		return false
	}

	var found bool
	var err error
	if freshOnly {
		found, err = s.cache.GetIfFresh(table, key, out)
	} else {
		found, err = s.cache.Get(table, key, out)
	}
	if err != nil {
		s.log.Warn().Err(err).Str("table", table).Str("key", key).Msg("Cache read failed")
		return false
	}
	return found
}

func (s *Service) cacheStore(table, key string, data interface{}, ttl time.Duration) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Store(table, key, data, ttl); err != nil {
		s.log.Warn().Err(err).Str("table", table).Str("key", key).Msg("Cache write failed")
	}
}
