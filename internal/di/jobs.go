package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/qdr/internal/clientdata"
	"github.com/aristath/qdr/internal/config"
	"github.com/aristath/qdr/internal/modules/marketdata"
)

// RegisterJobs creates the background jobs and adds them to the scheduler.
// The watchlist refresh is only scheduled when a watchlist is configured,
// but it is always available for manual triggering.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	jobs := &JobInstances{
		ClientDataCleanup: clientdata.NewCleanupJob(container.ClientDataRepo, cfg.Watchlist, log),
		WatchlistRefresh:  marketdata.NewWatchlistRefreshJob(container.MarketDataService, cfg.Watchlist, cfg.DefaultPeriod, log),
	}

	if err := container.Scheduler.AddJob(cfg.CleanupSchedule, jobs.ClientDataCleanup); err != nil {
		return nil, fmt.Errorf("failed to schedule %s: %w", jobs.ClientDataCleanup.Name(), err)
	}

	if len(cfg.Watchlist) > 0 {
		if err := container.Scheduler.AddJob(cfg.RefreshSchedule, jobs.WatchlistRefresh); err != nil {
			return nil, fmt.Errorf("failed to schedule %s: %w", jobs.WatchlistRefresh.Name(), err)
		}
	}

	log.Info().Int("scheduled", container.Scheduler.Entries()).Msg("Jobs registered")

	return jobs, nil
}
