/**
 * Package di provides dependency injection wiring for the optimizer service.
 *
 * Wire builds every database, client, service and background job in
 * dependency order and hands back a Container the server and CLI share.
 */
package di

import (
	"github.com/aristath/qdr/internal/clientdata"
	"github.com/aristath/qdr/internal/clients/binance"
	"github.com/aristath/qdr/internal/clients/yahoo"
	"github.com/aristath/qdr/internal/database"
	"github.com/aristath/qdr/internal/modules/marketdata"
	"github.com/aristath/qdr/internal/modules/optimization"
	"github.com/aristath/qdr/internal/modules/rebalancing"
	"github.com/aristath/qdr/internal/scheduler"
)

// Container holds all application dependencies
// This is the single source of truth for all service instances
type Container struct {
	// Databases
	CacheDB *database.DB

	// Repositories
	ClientDataRepo *clientdata.Repository

	// Clients
	YahooClient   *yahoo.Client
	BinanceClient *binance.Client

	// Services
	MarketDataService  *marketdata.Service
	Optimizer          *optimization.Optimizer
	RebalancingService *rebalancing.Service

	Scheduler *scheduler.Scheduler
}

// JobInstances holds references to all registered jobs for manual triggering
type JobInstances struct {
	ClientDataCleanup *clientdata.CleanupJob
	WatchlistRefresh  *marketdata.WatchlistRefreshJob
}

// ByName indexes the jobs by their Name().
func (j *JobInstances) ByName() map[string]scheduler.Job {
	out := make(map[string]scheduler.Job, 2)
	if j.ClientDataCleanup != nil {
		out[j.ClientDataCleanup.Name()] = j.ClientDataCleanup
	}
	if j.WatchlistRefresh != nil {
		out[j.WatchlistRefresh.Name()] = j.WatchlistRefresh
	}
	return out
}

// Close releases the container's databases.
func (c *Container) Close() error {
	if c.CacheDB != nil {
		return c.CacheDB.Close()
	}
	return nil
}
