package workers

import (
	"context"
	"log/slog"
	"time"

	"chat-broker/domain"
)

// presenceSweeper is the narrow surface the worker needs from the registry.
type presenceSweeper interface {
	Sweep(ttl time.Duration) []domain.IdentityID
}

// PresenceSweeperWorker expires presence records that were not refreshed
// within the TTL, modelling transient store eviction.
type PresenceSweeperWorker struct {
	log      *slog.Logger
	presence presenceSweeper
	ttl      time.Duration
	interval time.Duration
}

func NewPresenceSweeperWorker(log *slog.Logger, presence presenceSweeper,
	ttl, interval time.Duration) *PresenceSweeperWorker {
	return &PresenceSweeperWorker{log: log, presence: presence, ttl: ttl, interval: interval}
}

func (w *PresenceSweeperWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if swept := w.presence.Sweep(w.ttl); len(swept) > 0 {
				w.log.Info("Swept stale presence records", "count", len(swept))
			}
		}
	}
}
