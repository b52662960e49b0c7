package httpapi

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

const healthTimeout = 2 * time.Second

type hostStats struct {
	Hostname      string  `json:"hostname,omitempty"`
	OS            string  `json:"os"`
	CPUs          int     `json:"cpus"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryTotal   uint64  `json:"memory_total_bytes"`
	UptimeSeconds uint64  `json:"uptime_seconds"`
	Goroutines    int     `json:"goroutines"`
}

type healthResponse struct {
	Status        string    `json:"status"`
	Version       string    `json:"version"`
	Timestamp     time.Time `json:"timestamp"`
	Database      string    `json:"database"`
	DatabaseError string    `json:"database_error,omitempty"`
	UptimeSeconds int64     `json:"uptime_seconds"`
	WSConnections int       `json:"websocket_connections"`
	ScheduledJobs int       `json:"scheduled_jobs"`
	Host          hostStats `json:"host"`
}

// health reports service liveness. A failing database ping degrades the
// status; the response code stays 200.
func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := healthResponse{
		Status:        "healthy",
		Version:       h.version,
		Timestamp:     time.Now().UTC(),
		Database:      "memory",
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		WSConnections: len(h.app.Hub.ConnectedUsers()),
		ScheduledJobs: len(h.app.Scheduler.Status()),
		Host:          collectHost(ctx),
	}
	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			resp.Status = "degraded"
			resp.Database = "unreachable"
			resp.DatabaseError = err.Error()
		} else {
			resp.Database = "connected"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// collectHost gathers best-effort host figures; probes that fail are left
// at zero.
func collectHost(ctx context.Context) hostStats {
	out := hostStats{
		OS:         runtime.GOOS,
		CPUs:       runtime.NumCPU(),
		Goroutines: runtime.NumGoroutine(),
	}
	if info, err := host.InfoWithContext(ctx); err == nil {
		out.Hostname = info.Hostname
		out.UptimeSeconds = info.Uptime
	}
	if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pct) > 0 {
		out.CPUPercent = pct[0]
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		out.MemoryPercent = vm.UsedPercent
		out.MemoryTotal = vm.Total
	}
	return out
}
