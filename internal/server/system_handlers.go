package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/paperprofit/internal/database"
	"github.com/aristath/paperprofit/internal/markethours"
	"github.com/aristath/paperprofit/internal/modules/syslog"
	"github.com/aristath/paperprofit/internal/scheduler"
)

// SystemHandlers serves health, status, job control, and log access.
type SystemHandlers struct {
	log         zerolog.Logger
	startupTime time.Time
	db          *database.DB
	jobs        *scheduler.Controller
	syslog      *syslog.Repository
}

// NewSystemHandlers creates the system handlers.
func NewSystemHandlers(log zerolog.Logger, db *database.DB, jobs *scheduler.Controller, syslogRepo *syslog.Repository) *SystemHandlers {
	return &SystemHandlers{
		log:         log.With().Str("component", "system_handlers").Logger(),
		startupTime: time.Now(),
		db:          db,
		jobs:        jobs,
		syslog:      syslogRepo,
	}
}

// SystemStatusResponse is the GET /api/system/status payload.
type SystemStatusResponse struct {
	Status       string  `json:"status"`
	UptimeHours  float64 `json:"uptime_hours"`
	CPUPercent   float64 `json:"cpu_percent"`
	RAMPercent   float64 `json:"ram_percent"`
	MarketOpen   bool    `json:"market_open"`
	DatabaseMB   float64 `json:"database_mb"`
	DatabaseName string  `json:"database_name"`
}

// HandleHealth answers the liveness probe. A failing database ping reports
// unhealthy with 503.
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.db.HealthCheck(r.Context()); err != nil {
		h.log.Error().Err(err).Msg("Health check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleSystemStatus returns process and host statistics.
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, ramPercent := h.systemStats()

	response := SystemStatusResponse{
		Status:      "ok",
		UptimeHours: time.Since(h.startupTime).Hours(),
		CPUPercent:  cpuPercent,
		RAMPercent:  ramPercent,
		MarketOpen:  markethours.IsOpen(),
	}

	if stats, err := h.db.GetStats(); err == nil {
		response.DatabaseMB = float64(stats.SizeBytes+stats.WALSizeBytes) / 1024 / 1024
		response.DatabaseName = h.db.Name()
	} else {
		h.log.Warn().Err(err).Msg("Failed to get database stats")
	}

	writeJSON(w, http.StatusOK, response)
}

// systemStats reads CPU and RAM usage. The 100ms sample keeps the endpoint
// responsive for pollers.
func (h *SystemHandlers) systemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}
	return cpuAvg, memStat.UsedPercent
}

// HandleJobsStatus returns a snapshot of every registered worker.
func (h *SystemHandlers) HandleJobsStatus(w http.ResponseWriter, r *http.Request) {
	status := h.jobs.Status()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total_jobs": len(status),
		"jobs":       status,
	})
}

// HandleJobStart starts the named worker.
func (h *SystemHandlers) HandleJobStart(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.jobs.Start(name); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	h.log.Info().Str("job", name).Msg("Job started via API")
	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "job": name})
}

// HandleJobStop stops the named worker.
func (h *SystemHandlers) HandleJobStop(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.jobs.Stop(name); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	h.log.Info().Str("job", name).Msg("Job stopped via API")
	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "job": name})
}

// logEntryResponse mirrors a system_logs row.
type logEntryResponse struct {
	ID        int64     `json:"id"`
	Level     string    `json:"level"`
	Module    string    `json:"module"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	AccountID string    `json:"account_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// HandleSystemLogs returns recent persisted log entries, newest first.
func (h *SystemHandlers) HandleSystemLogs(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100)

	entries, err := h.syslog.Recent(limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list system logs")
		writeError(w, http.StatusInternalServerError, "failed to list system logs")
		return
	}

	out := make([]logEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, logEntryResponse{
			ID:        e.ID,
			Level:     e.Level,
			Module:    e.Module,
			Message:   e.Message,
			Details:   e.Details,
			AccountID: e.AccountID,
			Timestamp: e.Timestamp,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// writeJSON serializes v with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error body.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// queryInt parses an integer query parameter, falling back on def.
func queryInt(r *http.Request, key string, def int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
