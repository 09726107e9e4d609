package restapi

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// limiterEntry tracks one address's limiter and its last use for pruning.
type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// AddressRateLimiter throttles the read endpoints per queried address, so
// one hot wallet cannot starve lookups for everyone else.
type AddressRateLimiter struct {
	mu       sync.Mutex
	entries  map[string]*limiterEntry
	limit    rate.Limit
	burst    int
	maxIdle  time.Duration
	lastScan time.Time
}

// NewAddressRateLimiter creates a limiter allowing requestsPerMinute
// steady-state requests with the given burst per address.
func NewAddressRateLimiter(requestsPerMinute, burst int) *AddressRateLimiter {
	return &AddressRateLimiter{
		entries: make(map[string]*limiterEntry),
		limit:   rate.Limit(float64(requestsPerMinute) / 60.0),
		burst:   burst,
		maxIdle: 10 * time.Minute,
	}
}

// Middleware returns the gin handler enforcing the limit. Requests without
// an address parameter pass through; the handler rejects those itself.
func (l *AddressRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		address := strings.ToLower(c.Query("address"))
		if address == "" {
			c.Next()
			return
		}
		if !l.allow(address) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, APIErrorResponse{
				Error: "rate limit exceeded for this address, retry later",
			})
			return
		}
		c.Next()
	}
}

func (l *AddressRateLimiter) allow(address string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	entry, found := l.entries[address]
	if !found {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[address] = entry
	}
	entry.lastSeen = now

	if now.Sub(l.lastScan) > l.maxIdle {
		l.pruneLocked(now)
		l.lastScan = now
	}
	return entry.limiter.Allow()
}

// pruneLocked drops limiters idle past maxIdle. Caller holds the mutex.
func (l *AddressRateLimiter) pruneLocked(now time.Time) {
	for address, entry := range l.entries {
		if now.Sub(entry.lastSeen) > l.maxIdle {
			delete(l.entries, address)
		}
	}
}
