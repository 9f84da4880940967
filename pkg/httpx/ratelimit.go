package httpx

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/slogx"
	"golang.org/x/time/rate"
)

// buckets holds one limiter per key. Entries expire after the limit's idle
// period and are swept lazily, so no janitor goroutine outlives the router.
type buckets struct {
	limit Limit
	c     *gocache.Cache

	mu        sync.Mutex
	nextSweep time.Time
}

func newBuckets(l Limit) *buckets {
	return &buckets{limit: l, c: gocache.New(l.idle(), 0), nextSweep: time.Now().Add(l.idle())}
}

func (b *buckets) take(key string) (time.Duration, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	if now.After(b.nextSweep) {
		b.c.DeleteExpired()
		b.nextSweep = now.Add(b.limit.idle())
	}

	var lim *rate.Limiter
	if v, ok := b.c.Get(key); ok {
		lim = v.(*rate.Limiter)
	} else {
		lim = rate.NewLimiter(b.limit.every(), b.limit.Burst)
	}
	b.c.SetDefault(key, lim)

	r := lim.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return delay, false
	}
	return 0, true
}

// RateLimit charges every request to the bucket named by key and answers 429
// rate_limit_exceeded once it is empty. Each call owns its buckets, so two
// routes sharing a profile are still counted apart.
func RateLimit(l Limit, key KeyFunc) Middleware {
	b := newBuckets(l)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k == "" {
				slogx.FromContext(r.Context()).Warn("rate limit: no key, request not counted")
				next.ServeHTTP(w, r)
				return
			}

			wait, ok := b.take(k)
			if ok {
				next.ServeHTTP(w, r)
				return
			}

			retry := int(math.Ceil(wait.Seconds()))
			slogx.FromContext(r.Context()).Warn("rate limit exceeded",
				"key", k,
				"path", r.URL.Path,
				"retry_after", retry,
			)
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.Requests))
			w.Header().Set("X-RateLimit-Window", l.Window.String())
			WriteError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "too many requests, retry later")
		})
	}
}

// RateLimitByIP counts per client address.
func RateLimitByIP(l Limit) Middleware {
	return RateLimit(l, ClientIP)
}

// RateLimitByPrincipal counts per principal and address; anonymous callers
// fall back to the address alone.
func RateLimitByPrincipal(l Limit) Middleware {
	return RateLimit(l, Join(Principal, ClientIP))
}

// RateLimitByIPAndField counts per address and JSON body field, so one
// address cannot spray a single account.
func RateLimitByIPAndField(l Limit, field string) Middleware {
	return RateLimit(l, Join(ClientIP, BodyField(field)))
}
