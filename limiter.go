package spacetraveling

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RequestLimiter rate-limits requests per client IP with a token bucket
// that refills max tokens per window.
type RequestLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	max      int
	window   time.Duration
	stop     chan struct{}
	once     sync.Once
}

type visitor struct {
	limiter *rate.Limiter
	seen    time.Time
}

// NewRequestLimiter creates a RequestLimiter that allows max requests per window.
func NewRequestLimiter(max int, window time.Duration) *RequestLimiter {
	l := &RequestLimiter{
		visitors: make(map[string]*visitor),
		max:      max,
		window:   window,
		stop:     make(chan struct{}),
	}
	go l.cleanup()
	return l
}

func (l *RequestLimiter) cleanup() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-l.window)
			l.mu.Lock()
			for ip, v := range l.visitors {
				if v.seen.Before(cutoff) {
					delete(l.visitors, ip)
				}
			}
			l.mu.Unlock()
		}
	}
}

// Allow reports whether ip may make another request and consumes a token if so.
func (l *RequestLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Every(l.window/time.Duration(l.max)), l.max)}
		l.visitors[ip] = v
	}
	v.seen = time.Now()
	return v.limiter.Allow()
}

// Close stops the cleanup loop.
func (l *RequestLimiter) Close() {
	l.once.Do(func() { close(l.stop) })
}
