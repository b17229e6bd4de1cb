package session

import (
	"context"
	"sync"
	"time"

	"ecoxchange/internal/marketplace"
)

type memoryEntry struct {
	state     marketplace.State
	expiresAt time.Time
}

// MemoryRepository keeps sessions in process memory. A zero ttl means
// sessions never expire.
type MemoryRepository struct {
	mu       sync.RWMutex
	sessions map[string]memoryEntry
	ttl      time.Duration
	now      func() time.Time
	onEvict  func(id string)
}

// NewMemoryRepository constructs an empty MemoryRepository.
func NewMemoryRepository(ttl time.Duration) *MemoryRepository {
	return &MemoryRepository{
		sessions: make(map[string]memoryEntry),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Load returns the stored state or ErrNotFound. Expired entries are evicted.
func (m *MemoryRepository) Load(ctx context.Context, id string) (marketplace.State, error) {
	m.mu.RLock()
	entry, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return marketplace.State{}, ErrNotFound
	}
	if entry.expired(m.now()) {
		m.evict([]string{id})
		return marketplace.State{}, ErrNotFound
	}
	return entry.state, nil
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Save stores state and refreshes the session's expiry.
func (m *MemoryRepository) Save(ctx context.Context, id string, state marketplace.State) error {
	entry := memoryEntry{state: state}
	if m.ttl > 0 {
		entry.expiresAt = m.now().Add(m.ttl)
	}
	m.mu.Lock()
	m.sessions[id] = entry
	m.mu.Unlock()
	return nil
}

// Delete removes the session. Deleting a missing session is not an error.
func (m *MemoryRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

// OnEvict registers fn to run, outside the repository lock, for every
// session dropped because it expired.
func (m *MemoryRepository) OnEvict(fn func(id string)) {
	m.mu.Lock()
	m.onEvict = fn
	m.mu.Unlock()
}

// Sweep drops every expired session and returns how many were removed.
func (m *MemoryRepository) Sweep() int {
	now := m.now()
	var expired []string
	m.mu.RLock()
	for id, entry := range m.sessions {
		if entry.expired(now) {
			expired = append(expired, id)
		}
	}
	m.mu.RUnlock()
	return len(m.evict(expired))
}

// RunSweeper calls Sweep every interval until ctx is done. It is a no-op
// for a repository without a ttl.
func (m *MemoryRepository) RunSweeper(ctx context.Context, interval time.Duration) {
	if m.ttl <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// evict deletes the ids that are still expired; a session saved again in
// the meantime is kept.
func (m *MemoryRepository) evict(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	now := m.now()
	evicted := ids[:0]
	m.mu.Lock()
	for _, id := range ids {
		if entry, ok := m.sessions[id]; ok && entry.expired(now) {
			delete(m.sessions, id)
			evicted = append(evicted, id)
		}
	}
	onEvict := m.onEvict
	m.mu.Unlock()

	if onEvict != nil {
		for _, id := range evicted {
			onEvict(id)
		}
	}
	return evicted
}

// Len returns the number of stored sessions, expired or not.
func (m *MemoryRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
