package share

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryStore keeps records in process memory. Entries disappear when the
// process exits; go-cache's janitor also evicts them once expired. Records
// that are already stale when stored are kept without a TTL and left to
// Cleanup, so expiry always follows the caller's clock.
type MemoryStore struct {
	c *cache.Cache
}

// NewMemoryStore returns a MemoryStore whose janitor runs every cleanupEvery.
func NewMemoryStore(cleanupEvery time.Duration) *MemoryStore {
	return &MemoryStore{c: cache.New(cache.NoExpiration, cleanupEvery)}
}

func (s *MemoryStore) Put(_ context.Context, r Record) error {
	ttl := time.Until(r.ExpiresAt)
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	s.c.Set(r.ID, r, ttl)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Record, error) {
	v, ok := s.c.Get(id)
	if !ok {
		return Record{}, ErrNotFound
	}
	return v.(Record), nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	if _, ok := s.c.Get(id); !ok {
		return ErrNotFound
	}
	s.c.Delete(id)
	return nil
}

// Cleanup evicts entries go-cache already considers expired plus any record
// whose ExpiresAt is not after now.
func (s *MemoryStore) Cleanup(_ context.Context, now time.Time) (int, error) {
	before := s.c.ItemCount()
	s.c.DeleteExpired()
	for id, it := range s.c.Items() {
		if r, ok := it.Object.(Record); ok && r.Expired(now) {
			s.c.Delete(id)
		}
	}
	removed := before - s.c.ItemCount()
	if removed < 0 {
		removed = 0
	}
	return removed, nil
}

func (s *MemoryStore) Stats(_ context.Context, now time.Time) (Stats, error) {
	items := s.c.Items()
	st := Stats{Total: s.c.ItemCount()}
	if len(items) > st.Total {
		st.Total = len(items)
	}
	// Entries go-cache has expired but not yet evicted are absent from Items.
	st.Expired = st.Total - len(items)
	for _, it := range items {
		if r, ok := it.Object.(Record); ok && r.Expired(now) {
			st.Expired++
		}
	}
	st.Active = st.Total - st.Expired
	return st, nil
}

func (s *MemoryStore) Close() error {
	s.c.Flush()
	return nil
}
