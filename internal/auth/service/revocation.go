package service

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/idx"
)

// RevocationCache remembers session ids known to be revoked so hot paths can
// reject their access tokens without a store read. Revocation is terminal, so
// an entry can never go stale; a miss just falls through to the store.
type RevocationCache struct {
	c *gocache.Cache
}

// NewRevocationCache keeps entries for ttl, which should be at least the
// access token lifetime.
func NewRevocationCache(ttl time.Duration) *RevocationCache {
	return &RevocationCache{c: gocache.New(ttl, ttl)}
}

func (r *RevocationCache) Add(sessionID idx.ID) {
	if r == nil {
		return
	}
	r.c.SetDefault(sessionID.String(), struct{}{})
}

func (r *RevocationCache) Contains(sessionID idx.ID) bool {
	if r == nil {
		return false
	}
	_, ok := r.c.Get(sessionID.String())
	return ok
}

// Len reports how many revoked ids are cached, for the metrics gauge.
func (r *RevocationCache) Len() int {
	if r == nil {
		return 0
	}
	return r.c.ItemCount()
}
