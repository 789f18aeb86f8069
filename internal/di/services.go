package di

import (
	"github.com/rs/zerolog"

	"github.com/aristath/qdr/internal/clientdata"
	"github.com/aristath/qdr/internal/clients/binance"
	"github.com/aristath/qdr/internal/clients/yahoo"
	"github.com/aristath/qdr/internal/config"
	"github.com/aristath/qdr/internal/modules/marketdata"
	"github.com/aristath/qdr/internal/modules/optimization"
	"github.com/aristath/qdr/internal/modules/rebalancing"
	"github.com/aristath/qdr/internal/scheduler"
)

// InitializeServices creates repositories, clients and services in dependency order
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	// Repositories
	container.ClientDataRepo = clientdata.NewRepository(container.CacheDB.Conn())

	// Clients
	container.YahooClient = yahoo.NewClient(yahoo.Config{
		BaseURL:           cfg.YahooBaseURL,
		RequestsPerSecond: cfg.YahooRateLimit,
	}, log)
	container.BinanceClient = binance.NewClient(cfg.BinanceBaseURL, log)

	// Market data: crypto pairs try Binance first, Yahoo prices everything else
	quotes := []marketdata.QuoteProvider{
		marketdata.NewBinanceQuotes(container.BinanceClient),
		marketdata.NewYahooQuotes(container.YahooClient),
	}
	container.MarketDataService = marketdata.NewService(
		marketdata.NewYahooHistory(container.YahooClient, log),
		quotes,
		container.ClientDataRepo,
		log,
	)

	// Optimization
	container.Optimizer = optimization.NewOptimizer(cfg.Optimizer, log)
	container.RebalancingService = rebalancing.NewService(container.MarketDataService, container.Optimizer, log)

	container.Scheduler = scheduler.New(log)

	settings := container.Optimizer.Settings()
	log.Info().
		Int("workers", settings.Workers).
		Int("default_slices", settings.NumSlices).
		Int("default_reads", settings.NumReads).
		Int("default_sweeps", settings.NumSweeps).
		Msg("Services initialized")

	return nil
}
