package clientdata

import (
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCleanupJob(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	job := NewCleanupJob(repo, nil, zerolog.Nop())

	assert.NotNil(t, job)
}

func TestCleanupJobName(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	job := NewCleanupJob(NewRepository(db), nil, zerolog.Nop())
	assert.Equal(t, "client_data_cleanup", job.Name())
}

func TestCleanupJobRun(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	job := NewCleanupJob(repo, nil, zerolog.Nop())

	expiredAt := time.Now().Add(-time.Hour).Unix()
	freshAt := time.Now().Add(time.Hour).Unix()
	for _, table := range AllTables {
		insertExpiredAndFresh(t, db, table, getKeyColumn(table), expiredAt, freshAt)
	}

	assert.Nil(t, job.LastReport())
	require.NoError(t, job.Run())

	for _, table := range AllTables {
		count, err := repo.Count(table)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count, table)
	}

	report := job.LastReport()
	require.NotNil(t, report)
	assert.Equal(t, int64(2), report.TotalDeleted())
	assert.Equal(t, int64(0), report.Retained)
	for _, table := range AllTables {
		assert.Equal(t, int64(1), report.Deleted[table], table)
		assert.Equal(t, int64(1), report.Remaining[table], table)
	}
}

func TestCleanupJobRetainsWatchlistHistory(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	job := NewCleanupJob(repo, []string{"AAPL", "BTC-USD"}, zerolog.Nop())

	require.NoError(t, repo.Store(TablePriceHistory, HistoryKey("AAPL", "1y"), 1.0, -time.Minute))
	require.NoError(t, repo.Store(TablePriceHistory, HistoryKey("BTC-USD", "6mo"), 1.0, -time.Minute))
	require.NoError(t, repo.Store(TablePriceHistory, HistoryKey("MSFT", "1y"), 1.0, -time.Minute))
	require.NoError(t, repo.Store(TableCurrentPrices, "AAPL", 190.0, -time.Minute))

	report, err := job.Cleanup()
	require.NoError(t, err)

	assert.Equal(t, int64(1), report.Deleted[TablePriceHistory])
	assert.Equal(t, int64(2), report.Retained)
	assert.Equal(t, int64(2), report.Remaining[TablePriceHistory])
	// quotes are never retained
	assert.Equal(t, int64(1), report.Deleted[TableCurrentPrices])
	assert.Equal(t, int64(0), report.Remaining[TableCurrentPrices])

	var out float64
	found, err := repo.Get(TablePriceHistory, HistoryKey("AAPL", "1y"), &out)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestCleanupJobRunAllFresh(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	job := NewCleanupJob(repo, nil, zerolog.Nop())

	require.NoError(t, repo.Store(TableCurrentPrices, "AAPL", 190.0, time.Hour))
	require.NoError(t, repo.Store(TableCurrentPrices, "MSFT", 310.0, time.Hour))

	require.NoError(t, job.Run())

	count, err := repo.Count(TableCurrentPrices)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestCleanupJobRunMissingTable(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	_, err := db.Exec("DROP TABLE current_prices")
	require.NoError(t, err)

	job := NewCleanupJob(NewRepository(db), nil, zerolog.Nop())
	assert.Error(t, job.Run())
}
