// Package observability aggregates broker telemetry for logs and the
// health worker. It is a counter surface, not a metrics backend.
package observability

import (
	"context"
	"sync/atomic"

	"chat-broker/domain/event"
)

// Stats is a point-in-time snapshot of the pipeline counters.
type Stats struct {
	ActiveConnections int64  `json:"active_connections"`
	MessagesRelayed   uint64 `json:"messages_relayed"`
	EventsFannedOut   uint64 `json:"events_fanned_out"`
	CallsStarted      uint64 `json:"calls_started"`
	SessionsStarted   uint64 `json:"sessions_started"`
	SessionsExpired   uint64 `json:"sessions_expired"`
}

type Monitoring struct {
	activeConnections int64
	messagesRelayed   uint64
	eventsFannedOut   uint64
	callsStarted      uint64
	sessionsStarted   uint64
	sessionsExpired   uint64
}

func NewMonitoring() *Monitoring {
	return &Monitoring{}
}

func (m *Monitoring) ConnectionOpened() { atomic.AddInt64(&m.activeConnections, 1) }
func (m *Monitoring) ConnectionClosed() { atomic.AddInt64(&m.activeConnections, -1) }

// Consume makes Monitoring a permanent fanout sink: it counts every event
// that travels through the pipeline.
func (m *Monitoring) Consume(_ context.Context, e event.DomainEvent) error {
	atomic.AddUint64(&m.eventsFannedOut, 1)
	switch e.(type) {
	case event.NewMessage:
		atomic.AddUint64(&m.messagesRelayed, 1)
	case event.IncomingCall:
		atomic.AddUint64(&m.callsStarted, 1)
	case event.ChatStarted:
		atomic.AddUint64(&m.sessionsStarted, 1)
	case event.ChatTimeEnded:
		atomic.AddUint64(&m.sessionsExpired, 1)
	}
	return nil
}

func (m *Monitoring) Snapshot() Stats {
	return Stats{
		ActiveConnections: atomic.LoadInt64(&m.activeConnections),
		MessagesRelayed:   atomic.LoadUint64(&m.messagesRelayed),
		EventsFannedOut:   atomic.LoadUint64(&m.eventsFannedOut),
		CallsStarted:      atomic.LoadUint64(&m.callsStarted),
		SessionsStarted:   atomic.LoadUint64(&m.sessionsStarted),
		SessionsExpired:   atomic.LoadUint64(&m.sessionsExpired),
	}
}
