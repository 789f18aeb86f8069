package server

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/qdr/internal/clientdata"
	"github.com/aristath/qdr/internal/database"
	"github.com/aristath/qdr/internal/di"
	"github.com/aristath/qdr/internal/scheduler"
)

// SystemHandlers handles system-wide monitoring and operations endpoints
type SystemHandlers struct {
	log       zerolog.Logger
	startedAt time.Time
	container *di.Container
	jobs      map[string]scheduler.Job
	cleanup   *clientdata.CleanupJob
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(log zerolog.Logger, container *di.Container, jobs *di.JobInstances) *SystemHandlers {
	h := &SystemHandlers{
		log:       log.With().Str("handler", "system").Logger(),
		startedAt: time.Now(),
		container: container,
		jobs:      map[string]scheduler.Job{},
	}
	if jobs != nil {
		h.jobs = jobs.ByName()
		h.cleanup = jobs.ClientDataCleanup
	}
	return h
}

// SystemStatusResponse represents the system status
type SystemStatusResponse struct {
	Status        string       `json:"status"` // "healthy" or "unhealthy"
	CPUPercent    float64      `json:"cpu_percent"`
	MemoryPercent float64      `json:"memory_percent"`
	Goroutines    int          `json:"goroutines"`
	Workers       int          `json:"workers"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	ScheduledJobs int          `json:"scheduled_jobs"`
	Jobs          []string     `json:"jobs"`
	Cache         *CacheStatus `json:"cache,omitempty"`
	Timestamp     string       `json:"timestamp"`
}

// CacheStatus summarises the market data cache
type CacheStatus struct {
	Database    *database.Stats           `json:"database,omitempty"`
	Rows        map[string]int64          `json:"rows"`
	LastCleanup *clientdata.CleanupReport `json:"last_cleanup,omitempty"`
}

// HandleSystemStatus returns host and process health
// GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	cpuPercent, memPercent := h.getSystemStats()

	response := SystemStatusResponse{
		Status:        "healthy",
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		Goroutines:    runtime.NumGoroutine(),
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		Jobs:          h.jobNames(),
		Timestamp:     time.Now().Format(time.RFC3339),
	}

	if h.container != nil {
		if h.container.Optimizer != nil {
			response.Workers = h.container.Optimizer.Settings().Workers
		}
		if h.container.Scheduler != nil {
			response.ScheduledJobs = h.container.Scheduler.Entries()
		}
		if h.container.CacheDB != nil {
			if err := h.container.CacheDB.HealthCheck(r.Context()); err != nil {
				h.log.Warn().Err(err).Msg("Cache database health check failed")
				response.Status = "unhealthy"
			}
			response.Cache = h.cacheStatus()
		}
	}

	h.writeJSON(w, response)
}

// HandleTriggerJob runs a registered job immediately
// POST /api/jobs/{name}
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	job, ok := h.jobs[name]
	if !ok || h.container == nil || h.container.Scheduler == nil {
		h.log.Warn().Str("job", name).Msg("Unknown job requested")
		h.writeJSONStatus(w, http.StatusNotFound, map[string]string{
			"status":  "error",
			"message": "Job not registered: " + name,
		})
		return
	}

	h.log.Info().Str("job", name).Msg("Manual job triggered")

	sched := h.container.Scheduler
	go func() {
		if err := sched.RunNow(job); err != nil {
			h.log.Error().Err(err).Str("job", name).Msg("Manual job failed")
		}
	}()

	h.writeJSONStatus(w, http.StatusAccepted, map[string]string{
		"status":  "success",
		"message": name + " triggered",
	})
}

func (h *SystemHandlers) cacheStatus() *CacheStatus {
	status := &CacheStatus{Rows: make(map[string]int64, len(clientdata.AllTables))}

	stats, err := h.container.CacheDB.GetStats()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get cache database statistics")
	} else {
		status.Database = stats
	}

	if h.container.ClientDataRepo != nil {
		for _, table := range clientdata.AllTables {
			count, err := h.container.ClientDataRepo.Count(table)
			if err != nil {
				h.log.Warn().Err(err).Str("table", table).Msg("Failed to count cache rows")
				continue
			}
			status.Rows[table] = count
		}
	}

	if h.cleanup != nil {
		status.LastCleanup = h.cleanup.LastReport()
	}

	return status
}

func (h *SystemHandlers) jobNames() []string {
	names := make([]string, 0, len(h.jobs))
	for name := range h.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// getSystemStats returns CPU and memory usage percentages
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil || len(cpuPercent) == 0 {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return cpuPercent[0], 0
	}

	return cpuPercent[0], memStat.UsedPercent
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, data interface{}) {
	h.writeJSONStatus(w, http.StatusOK, data)
}

func (h *SystemHandlers) writeJSONStatus(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
