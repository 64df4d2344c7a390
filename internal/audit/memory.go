package audit

import (
	"context"
	"sync"
	"time"
)

// MemorySink is the default in-process sink. It is append-only and safe for
// concurrent recorders; entries are lost on restart, which is acceptable for
// the default deployment (a database-backed sink can be wired instead).
type MemorySink struct {
	mu      sync.Mutex
	entries []Entry
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Record(_ context.Context, entry Entry) {
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
}

func (s *MemorySink) List() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *MemorySink) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
}
