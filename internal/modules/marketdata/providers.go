package marketdata

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aristath/qdr/internal/clients/binance"
	"github.com/aristath/qdr/internal/clients/yahoo"
)

// maxConcurrentFetches bounds parallel upstream calls per request.
const maxConcurrentFetches = 4

// YahooHistory adapts the Yahoo chart client to HistoryProvider.
type YahooHistory struct {
	client *yahoo.Client
	log    zerolog.Logger
}

// NewYahooHistory creates a Yahoo-backed history provider.
func NewYahooHistory(client *yahoo.Client, log zerolog.Logger) *YahooHistory {
	return &YahooHistory{
		client: client,
		log:    log.With().Str("provider", "yahoo_history").Logger(),
	}
}

// GetHistory fetches every symbol concurrently. Per-symbol failures are logged and skipped.
func (p *YahooHistory) GetHistory(ctx context.Context, symbols []string, period string) (map[string][]PricePoint, error) {
	var mu sync.Mutex
	out := make(map[string][]PricePoint, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)

	for _, sym := range symbols {
		g.Go(func() error {
			bars, err := p.client.GetHistory(gctx, sym, period)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				p.log.Warn().Err(err).Str("symbol", sym).Msg("History fetch failed")
				return nil
			}

			points := make([]PricePoint, len(bars))
			for i, b := range bars {
				points[i] = PricePoint{Time: b.Time, Price: b.Price()}
			}

			mu.Lock()
			out[sym] = points
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// YahooQuotes adapts the Yahoo chart client to QuoteProvider.
type YahooQuotes struct {
	client *yahoo.Client
}

// NewYahooQuotes creates a Yahoo-backed quote provider.
func NewYahooQuotes(client *yahoo.Client) *YahooQuotes {
	return &YahooQuotes{client: client}
}

// GetPrice returns Yahoo's regular market price.
func (p *YahooQuotes) GetPrice(ctx context.Context, symbol string) (float64, error) {
	price, err := p.client.GetQuote(ctx, symbol)
	if errors.Is(err, yahoo.ErrNoData) {
		return 0, errors.Join(ErrNoData, err)
	}
	return price, err
}

// BinanceQuotes prices "XXX-USD" crypto tickers from the XXXUSDT pair.
type BinanceQuotes struct {
	client *binance.Client
}

// NewBinanceQuotes creates a Binance-backed quote provider.
func NewBinanceQuotes(client *binance.Client) *BinanceQuotes {
	return &BinanceQuotes{client: client}
}

// GetPrice returns ErrUnsupportedSymbol for anything that is not a USD crypto ticker.
func (p *BinanceQuotes) GetPrice(ctx context.Context, symbol string) (float64, error) {
	pair, ok := binance.PairForTicker(symbol)
	if !ok {
		return 0, ErrUnsupportedSymbol
	}
	return p.client.GetPrice(ctx, pair)
}
