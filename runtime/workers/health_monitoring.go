package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"chat-broker/observability"

	"github.com/shirou/gopsutil/process"
)

// HealthMonitoringWorker periodically samples the broker's own process
// stats and logs them next to a snapshot of the pipeline counters.
type HealthMonitoringWorker struct {
	log        *slog.Logger
	monitoring *observability.Monitoring
	interval   time.Duration
}

func NewHealthMonitoringWorker(log *slog.Logger,
	monitoring *observability.Monitoring, interval time.Duration) *HealthMonitoringWorker {
	return &HealthMonitoringWorker{log: log, monitoring: monitoring, interval: interval}
}

func (w *HealthMonitoringWorker) Run(ctx context.Context) error {
	w.log.Info("Starting health monitoring worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			rss, cpu, status, err := selfStats(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}
			snapshot := w.monitoring.Snapshot()
			w.log.Info("Health",
				"pid_status", status,
				"cpu_percent", cpu,
				"ram_bytes", rss,
				"connections", snapshot.ActiveConnections,
				"messages_relayed", snapshot.MessagesRelayed,
				"events_fanned_out", snapshot.EventsFannedOut,
				"calls_started", snapshot.CallsStarted,
				"sessions_expired", snapshot.SessionsExpired,
			)
		}
	}
}

// selfStats retrieves memory, CPU and OS status for the given process.
func selfStats(p *process.Process) (uint64, float64, string, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, "", err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, "", err
	}
	status, err := p.Status()
	if err != nil {
		return 0, 0, "", err
	}
	return memInfo.RSS, cpuPercent, status, nil
}
