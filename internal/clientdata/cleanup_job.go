package clientdata

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// CleanupReport summarizes one cleanup pass over the cache.
type CleanupReport struct {
	Deleted   map[string]int64 `json:"deleted"`
	Remaining map[string]int64 `json:"remaining"`
	// Retained counts expired history rows kept for watchlist symbols.
	Retained  int64            `json:"retained"`
	RanAt     time.Time        `json:"ran_at"`
}

// TotalDeleted sums Deleted over all tables.
func (r CleanupReport) TotalDeleted() int64 {
	var n int64
	for _, c := range r.Deleted {
		n += c
	}
	return n
}

// CleanupJob drops expired market-data entries. Expired price history of
// watchlist symbols is retained: the watchlist refresh overwrites those rows,
// and until it does they serve as the stale fallback when the upstream fails.
type CleanupJob struct {
	repo      *Repository
	watchlist []string
	log       zerolog.Logger

	mu   sync.Mutex
	last *CleanupReport
}

// NewCleanupJob creates the cache cleanup job for the given watchlist.
func NewCleanupJob(repo *Repository, watchlist []string, log zerolog.Logger) *CleanupJob {
	return &CleanupJob{
		repo:      repo,
		watchlist: watchlist,
		log:       log.With().Str("job", "client_data_cleanup").Logger(),
	}
}

// Run executes one cleanup pass.
func (j *CleanupJob) Run() error {
	report, err := j.Cleanup()
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to delete expired client data")
		return err
	}

	for _, table := range AllTables {
		if n := report.Deleted[table]; n > 0 {
			j.log.Info().
				Str("table", table).
				Int64("deleted", n).
				Int64("remaining", report.Remaining[table]).
				Msg("Cleaned up expired cache entries")
		}
	}

	if total := report.TotalDeleted(); total > 0 || report.Retained > 0 {
		j.log.Info().
			Int64("total_deleted", total).
			Int64("retained", report.Retained).
			Msg("Client data cleanup completed")
	}

	return nil
}

// Cleanup deletes expired rows and returns per-table counts.
func (j *CleanupJob) Cleanup() (*CleanupReport, error) {
	report := &CleanupReport{
		Deleted:   make(map[string]int64, len(AllTables)),
		Remaining: make(map[string]int64, len(AllTables)),
		RanAt:     time.Now(),
	}

	prefixes := make([]string, len(j.watchlist))
	for i, sym := range j.watchlist {
		prefixes[i] = historyKeyPrefix(sym)
	}

	expiredHistory, err := j.repo.CountExpired(TablePriceHistory)
	if err != nil {
		return nil, err
	}

	deleted, err := j.repo.DeleteExpiredExcept(TablePriceHistory, prefixes)
	if err != nil {
		return nil, err
	}
	report.Deleted[TablePriceHistory] = deleted
	report.Retained = expiredHistory - deleted

	deleted, err = j.repo.DeleteExpired(TableCurrentPrices)
	if err != nil {
		return nil, err
	}
	report.Deleted[TableCurrentPrices] = deleted

	for _, table := range AllTables {
		n, err := j.repo.Count(table)
		if err != nil {
			return nil, err
		}
		report.Remaining[table] = n
	}

	j.mu.Lock()
	j.last = report
	j.mu.Unlock()

	return report, nil
}

// LastReport returns the most recent cleanup result, or nil before the first run.
func (j *CleanupJob) LastReport() *CleanupReport {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.last
}

// Name returns the job name for scheduling and logging.
func (j *CleanupJob) Name() string {
	return "client_data_cleanup"
}
