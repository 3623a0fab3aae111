package domain

import "time"

type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusOffline PresenceStatus = "offline"
	StatusCustom  PresenceStatus = "custom"
)

// PresenceRecord is keyed by identity. At most one canonical connection per
// identity; last writer wins on reconnect. Records that are not refreshed
// within the registry TTL are swept back to offline.
type PresenceRecord struct {
	Identity     IdentityID
	Status       PresenceStatus
	CustomStatus string
	Connection   ConnectionID
	LastSeen     time.Time
}

func (p PresenceRecord) Online() bool {
	return p.Status != StatusOffline && p.Connection != ""
}
