package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/apierror"
)

// ── Per-IP limiter store ──────────────────────────────────────────────────────

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiters hands out one token bucket per client IP. Buckets idle for
// longer than idleTTL are purged in the background.
type ipLimiters struct {
	mu      sync.Mutex
	entries map[string]*ipLimiter
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
}

const purgeInterval = 5 * time.Minute

func newIPLimiters(perMinute int, idleTTL time.Duration) *ipLimiters {
	if perMinute <= 0 {
		perMinute = math.MaxInt32
	}
	l := &ipLimiters{
		entries: make(map[string]*ipLimiter),
		limit:   rate.Limit(float64(perMinute) / 60),
		burst:   perMinute,
		idleTTL: idleTTL,
	}
	go l.purgeLoop()
	return l
}

func (l *ipLimiters) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[ip]
	if !ok {
		e = &ipLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[ip] = e
	}
	e.lastSeen = time.Now()
	return e.limiter
}

func (l *ipLimiters) purge(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	purged := 0
	for ip, e := range l.entries {
		if now.Sub(e.lastSeen) > l.idleTTL {
			delete(l.entries, ip)
			purged++
		}
	}
	return purged
}

func (l *ipLimiters) purgeLoop() {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for now := range ticker.C {
		if n := l.purge(now); n > 0 {
			log.Debug().Int("purged", n).Msg("rate limiter entries purged")
		}
	}
}

func limitMiddleware(store *ipLimiters, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		res := store.get(c.ClientIP()).Reserve()
		if delay := res.Delay(); delay > 0 {
			res.Cancel()
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New(message))
			return
		}
		c.Next()
	}
}

// LoginRateLimiter limits login attempts to 20 per minute per IP.
func LoginRateLimiter() gin.HandlerFunc {
	return limitMiddleware(newIPLimiters(20, 10*time.Minute), "Too many login attempts, try again in a minute")
}

// RateLimiter is the general API limiter: perMinute requests per IP, with a
// burst of the same size.
func RateLimiter(perMinute int) gin.HandlerFunc {
	return limitMiddleware(newIPLimiters(perMinute, 10*time.Minute), "Too many requests, slow down")
}
