package memory

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"snapvalue-be/pkg/store"
)

// SessionRepository keeps live capture sessions in an expiring in-memory
// cache. A session the operator abandons disappears on its own; eviction
// also cancels any submission it still had in flight.
type SessionRepository struct {
	cache *cache.Cache
}

func NewSessionRepository(ttl, purgeInterval time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = 1 * time.Hour
	}
	if purgeInterval <= 0 {
		purgeInterval = 10 * time.Minute
	}
	c := cache.New(ttl, purgeInterval)
	c.OnEvicted(func(_ string, value interface{}) {
		if s, ok := value.(*store.Session); ok && s.Pipeline != nil {
			s.Pipeline.Cancel()
		}
	})
	return &SessionRepository{
		cache: c,
	}
}

// Save stores the session and restarts its expiry clock.
func (r *SessionRepository) Save(session *store.Session) {
	r.cache.Set(session.ID.String(), session, cache.DefaultExpiration)
}

func (r *SessionRepository) Get(sessionID uuid.UUID) (*store.Session, bool) {
	if x, found := r.cache.Get(sessionID.String()); found {
		return x.(*store.Session), true
	}
	return nil, false
}

func (r *SessionRepository) Delete(sessionID uuid.UUID) {
	r.cache.Delete(sessionID.String())
}

// Count reports live sessions, expired ones included until the next purge.
func (r *SessionRepository) Count() int {
	return r.cache.ItemCount()
}
