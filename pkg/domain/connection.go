package domain

import (
	"time"

	"github.com/google/uuid"
)

// ConnectionStatus is the lifecycle state of a bank connection.
type ConnectionStatus string

const (
	// ConnectionPending is the initial state after a link is initiated and
	// before the user confirms it.
	ConnectionPending ConnectionStatus = "PENDING"
	// ConnectionActive means the link is confirmed and eligible for sync.
	ConnectionActive ConnectionStatus = "ACTIVE"
	// ConnectionError means repeated sync or webhook failures.
	ConnectionError ConnectionStatus = "ERROR"
	// ConnectionExpired means the provider reported the authorization lapsed.
	ConnectionExpired ConnectionStatus = "EXPIRED"
	// ConnectionInactive is the soft-deactivated state set by the cleanup
	// sweep. Reversible, never set by user action.
	ConnectionInactive ConnectionStatus = "INACTIVE"
)

// Connection represents one user's authorized link to one external bank
// data provider. ExternalID is the provider-issued opaque identifier; by
// convention each adapter prefixes the ids it issues with its provider code
// so the router can re-derive the provider on lookup.
type Connection struct {
	ID         uuid.UUID
	OwnerID    uuid.UUID
	Provider   string
	ExternalID string
	Status     ConnectionStatus
	LastSyncAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewConnection creates a pending connection for the given owner.
func NewConnection(ownerID uuid.UUID, provider, externalID string) *Connection {
	now := time.Now().UTC()
	return &Connection{
		ID:         uuid.New(),
		OwnerID:    ownerID,
		Provider:   provider,
		ExternalID: externalID,
		Status:     ConnectionPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// IsStale reports whether the connection needs a sync given the staleness
// threshold. A connection that never synced successfully is always stale.
func (c *Connection) IsStale(threshold time.Duration, now time.Time) bool {
	if c.LastSyncAt == nil {
		return true
	}
	return now.Sub(*c.LastSyncAt) > threshold
}

// MarkSynced stamps a successful sync.
func (c *Connection) MarkSynced(at time.Time) {
	t := at.UTC()
	c.LastSyncAt = &t
}
