// Package store persists team provisioning records: the mapping from a team
// key to the Discord role and channel created for it. Records are written once
// and never mutated or deleted; a team rename does not invalidate its record.
//
// Two backends exist: a JSON file rewritten wholesale on every write (the
// default, matching the legacy data.json layout) and Postgres for deployments
// that want shared state.
package store

import "context"

// Record is the provisioning record for one team.
type Record struct {
	RoleID    string `json:"role"`
	ChannelID string `json:"channel"`
}

// Store is the persistence contract. Keys are team identities, or (for records
// predating identity keying) sanitized team display names. Implementations must
// be safe for concurrent use, but callers serialize check-then-create sequences
// themselves; Put overwriting an existing key is allowed and idempotent.
type Store interface {
	Get(ctx context.Context, key string) (Record, bool, error)
	Put(ctx context.Context, key string, rec Record) error
	Len(ctx context.Context) (int, error)
	Close() error
}
