package dispatch

import (
	"context"
	"errors"
	"sync"
)

// =============================================================================
// IN-MEMORY RECORDERS - For tests
// =============================================================================

// MemoryAudit records entries in memory.
type MemoryAudit struct {
	mu      sync.Mutex
	entries []AuditEntry

	// Fail forces Record to error, for exercising the swallow-and-log path.
	Fail bool
}

func (m *MemoryAudit) Record(_ context.Context, e AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return errors.New("audit sink unavailable")
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *MemoryAudit) Entries() []AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]AuditEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

// MemoryNotifier records notifications in memory.
type MemoryNotifier struct {
	mu    sync.Mutex
	notes []Notification

	Fail bool
}

func (m *MemoryNotifier) Notify(_ context.Context, n Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return errors.New("notifier unavailable")
	}
	m.notes = append(m.notes, n)
	return nil
}

func (m *MemoryNotifier) Notifications() []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Notification, len(m.notes))
	copy(out, m.notes)
	return out
}
