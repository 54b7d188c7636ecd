package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/fincalc/internal/database"
	"github.com/aristath/fincalc/internal/scheduler"
	"github.com/aristath/fincalc/internal/version"
)

// SystemHandlers handles system monitoring and manual job trigger endpoints.
type SystemHandlers struct {
	log          zerolog.Logger
	dataDir      string
	databases    map[string]*database.DB
	priceSyncJob scheduler.Job
	backupJob    scheduler.Job
	startTime    time.Time
}

// NewSystemHandlers creates system handlers. Job arguments may be nil when
// the corresponding trigger is unavailable.
func NewSystemHandlers(
	log zerolog.Logger,
	dataDir string,
	databases map[string]*database.DB,
	priceSyncJob scheduler.Job,
	backupJob scheduler.Job,
) *SystemHandlers {
	return &SystemHandlers{
		log:          log.With().Str("component", "system_handlers").Logger(),
		dataDir:      dataDir,
		databases:    databases,
		priceSyncJob: priceSyncJob,
		backupJob:    backupJob,
		startTime:    time.Now(),
	}
}

// systemStatusResponse is the wire form of the system status.
type systemStatusResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	UptimeSeconds int64   `json:"uptime_seconds"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryUsedMB  float64 `json:"memory_used_mb"`
	DataDirMB     float64 `json:"data_dir_mb"`
}

// HandleSystemStatus returns process and host statistics.
// GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	// Short sample interval keeps the endpoint responsive for pollers.
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil || len(cpuPercent) == 0 {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	var memPercent, memUsedMB float64
	if memStat, err := mem.VirtualMemory(); err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
	} else {
		memPercent = memStat.UsedPercent
		memUsedMB = float64(memStat.Used) / 1024 / 1024
	}

	h.writeJSON(w, http.StatusOK, systemStatusResponse{
		Status:        "ok",
		Version:       version.Version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		CPUPercent:    cpuPercent[0],
		MemoryPercent: memPercent,
		MemoryUsedMB:  memUsedMB,
		DataDirMB:     h.dirSizeMB(h.dataDir),
	})
}

// databaseStats is the per-database slice of the stats response.
type databaseStats struct {
	Name   string  `json:"name"`
	SizeMB float64 `json:"size_mb"`
}

// HandleDatabaseStats returns the size of each SQLite database.
// GET /api/system/database/stats
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	stats := make([]databaseStats, 0, len(h.databases))
	for name, db := range h.databases {
		if db == nil {
			continue
		}

		var pageCount, pageSize int64
		if err := db.Conn().QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
			h.log.Warn().Err(err).Str("database", name).Msg("Failed to read page count")
			continue
		}
		if err := db.Conn().QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
			h.log.Warn().Err(err).Str("database", name).Msg("Failed to read page size")
			continue
		}

		stats = append(stats, databaseStats{
			Name:   name,
			SizeMB: float64(pageCount*pageSize) / 1024 / 1024,
		})
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"databases": stats})
}

// HandleTriggerPriceSync runs the price sync job in the background.
// POST /api/jobs/price-sync
func (h *SystemHandlers) HandleTriggerPriceSync(w http.ResponseWriter, r *http.Request) {
	h.triggerJob(w, h.priceSyncJob)
}

// HandleTriggerBackup runs the backup job in the background.
// POST /api/jobs/backup
func (h *SystemHandlers) HandleTriggerBackup(w http.ResponseWriter, r *http.Request) {
	h.triggerJob(w, h.backupJob)
}

func (h *SystemHandlers) triggerJob(w http.ResponseWriter, job scheduler.Job) {
	if job == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"error": "job not configured",
		})
		return
	}

	go func() {
		if err := job.Run(); err != nil {
			h.log.Error().Err(err).Str("job", job.Name()).Msg("Triggered job failed")
		}
	}()

	h.writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"status": "triggered",
		"job":    job.Name(),
	})
}

// dirSizeMB walks a directory tree and sums file sizes in megabytes.
func (h *SystemHandlers) dirSizeMB(dir string) float64 {
	var totalSize int64
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})
	if err != nil {
		h.log.Warn().Err(err).Str("dir", dir).Msg("Failed to walk data directory")
	}
	return float64(totalSize) / 1024 / 1024
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
