package marketdata

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// refreshTimeout bounds one warm-up run.
const refreshTimeout = 2 * time.Minute

// WatchlistRefreshJob pre-loads the history of a fixed symbol list into the cache.
type WatchlistRefreshJob struct {
	service *Service
	symbols []string
	period  string
	log     zerolog.Logger
}

// NewWatchlistRefreshJob creates the cache warmer. An empty period uses DefaultPeriod.
func NewWatchlistRefreshJob(service *Service, symbols []string, period string, log zerolog.Logger) *WatchlistRefreshJob {
	if period == "" {
		period = DefaultPeriod
	}
	return &WatchlistRefreshJob{
		service: service,
		symbols: NormalizeSymbols(symbols),
		period:  period,
		log:     log.With().Str("job", "watchlist_refresh").Logger(),
	}
}

// Run loads the watchlist once. An empty watchlist is a no-op.
func (j *WatchlistRefreshJob) Run() error {
	if len(j.symbols) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	start := time.Now()
	dataset, err := j.service.LoadSeries(ctx, j.symbols, j.period)
	if err != nil {
		j.log.Error().Err(err).Strs("symbols", j.symbols).Msg("Watchlist refresh failed")
		return err
	}

	j.log.Info().
		Int("symbols", dataset.Series.NumAssets()).
		Strs("missing", dataset.Missing).
		Int("rows", dataset.Series.Len()).
		Dur("duration", time.Since(start)).
		Msg("Watchlist refreshed")
	return nil
}

// Name returns the job name for scheduling and logging.
func (j *WatchlistRefreshJob) Name() string {
	return "watchlist_refresh"
}
