package httpx

import (
	"os"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// Limit is a token bucket refilled with Requests tokens every Window, holding
// at most Burst.
type Limit struct {
	Requests int
	Window   time.Duration
	Burst    int
}

// Profiles shared by the routers. Each can be tuned through
// RATELIMIT_<NAME>_REQUESTS, RATELIMIT_<NAME>_WINDOW_SEC and
// RATELIMIT_<NAME>_BURST.
var (
	// Strict guards credential endpoints: login, registration, resets.
	Strict = Limit{Requests: 5, Window: time.Minute, Burst: 5}
	// Moderate guards authenticated writes and token refresh.
	Moderate = Limit{Requests: 20, Window: time.Minute, Burst: 20}
	// Lenient guards probes that monitoring polls.
	Lenient = Limit{Requests: 100, Window: time.Minute, Burst: 100}
)

func init() {
	Strict = LimitFromEnv("STRICT", Strict)
	Moderate = LimitFromEnv("MODERATE", Moderate)
	Lenient = LimitFromEnv("LENIENT", Lenient)
}

// LimitFromEnv overlays the RATELIMIT_<name>_* variables on def. Values that
// are missing, malformed or not positive keep the default.
func LimitFromEnv(name string, def Limit) Limit {
	prefix := "RATELIMIT_" + name + "_"
	l := def
	if n, ok := positiveEnv(prefix + "REQUESTS"); ok {
		l.Requests = n
	}
	if n, ok := positiveEnv(prefix + "WINDOW_SEC"); ok {
		l.Window = time.Duration(n) * time.Second
	}
	if n, ok := positiveEnv(prefix + "BURST"); ok {
		l.Burst = n
	}
	return l
}

func positiveEnv(key string) (int, bool) {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func (l Limit) every() rate.Limit {
	return rate.Limit(float64(l.Requests) / l.Window.Seconds())
}

// idle is how long an untouched bucket is kept. By then it has refilled, so
// forgetting it is indistinguishable from keeping it.
func (l Limit) idle() time.Duration {
	return max(l.Window, time.Minute)
}
