/*
Package lease provides the advisory debounce lease for attendance check-in.

PURPOSE:
  Collapses rapid duplicate submissions (client retries, double taps) by
  holding a short-TTL key per employee. The lease is ADVISORY ONLY: the
  attendance store's conditional updates and uniqueness constraints carry
  correctness. If the lease store is unreachable the caller fails open and
  proceeds - availability over strict exclusion at this layer.

SEMANTICS:
  Acquire is SET key value EX ttl NX: true when the key was absent,
  false when someone else holds it. Release is best-effort DEL.

IMPLEMENTATIONS:
  - RedisStore: production, backed by go-redis
  - MemoryStore: in-process, for tests and single-node deployments

SEE ALSO:
  - attendance/service.go: the only consumer, with the fail-open policy
*/
package lease

import (
	"context"
	"sync"
	"time"
)

// Store is the SET-EX-NX shaped lease interface.
type Store interface {
	// Acquire takes the lease when free. Returns false without error when
	// the lease is already held.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release drops the lease early. Best-effort; expiry covers the rest.
	Release(ctx context.Context, key string) error
}

// =============================================================================
// IN-MEMORY STORE
// =============================================================================

// MemoryStore is a process-local lease store.
type MemoryStore struct {
	mu    sync.Mutex
	held  map[string]time.Time
	clock func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{held: make(map[string]time.Time), clock: time.Now}
}

func (m *MemoryStore) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock()
	if expiry, ok := m.held[key]; ok && expiry.After(now) {
		return false, nil
	}
	m.held[key] = now.Add(ttl)
	return true, nil
}

func (m *MemoryStore) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, key)
	return nil
}
