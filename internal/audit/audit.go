package audit

import (
	"context"
	"time"
)

// Entry is one immutable authorization decision record.
type Entry struct {
	ActorID    int64     `json:"actor_id"`
	ActorEmail string    `json:"actor_email"`
	Action     string    `json:"action"`
	Resource   string    `json:"resource"`
	ResourceID string    `json:"resource_id,omitempty"`
	Granted    bool      `json:"granted"`
	OccurredAt time.Time `json:"occurred_at"`
	RemoteAddr string    `json:"remote_addr"`
	UserAgent  string    `json:"user_agent"`
}

// Sink receives authorization decisions. Record must be atomic per entry;
// List returns entries in insertion order. Clear exists for test isolation.
type Sink interface {
	Record(ctx context.Context, entry Entry)
	List() []Entry
	Clear()
}
