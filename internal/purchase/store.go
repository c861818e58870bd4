package purchase

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"spacepurchase/internal/types"
)

// Store keeps live sessions in memory. Sessions expire after the TTL; the
// least recently used one is dropped when capacity is reached.
type Store struct {
	cache *lru.LRU[string, *Session]
}

// NewStore creates a Store.
func NewStore(capacity int, ttl time.Duration) *Store {
	return &Store{cache: lru.NewLRU[string, *Session](capacity, nil, ttl)}
}

// Put adds s under its id.
func (st *Store) Put(s *Session) {
	st.cache.Add(s.ID(), s)
}

// Get returns the session with id.
func (st *Store) Get(id string) (*Session, error) {
	s, ok := st.cache.Get(id)
	if !ok {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeNotFoundSession, "purchase session not found", nil, map[string]any{"session_id": id})
	}
	return s, nil
}

// Delete discards a session.
func (st *Store) Delete(id string) {
	st.cache.Remove(id)
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	return st.cache.Len()
}
