package resilience

import (
	"sync"
	"time"
)

// LeaseGuard prevents overlapping runs of a named job. A lease expires after
// its TTL so a crashed run cannot block the job forever.
type LeaseGuard struct {
	mu     sync.Mutex
	leases map[string]time.Time
	now    func() time.Time
}

func NewLeaseGuard() *LeaseGuard {
	return &LeaseGuard{
		leases: make(map[string]time.Time),
		now:    time.Now,
	}
}

// Acquire takes the lease for name if it is free or expired. It returns false
// while a previous holder's lease is still live.
func (g *LeaseGuard) Acquire(name string, ttl time.Duration) bool {
	if name == "" || ttl <= 0 {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if expiresAt, held := g.leases[name]; held && expiresAt.After(now) {
		return false
	}
	g.leases[name] = now.Add(ttl)
	return true
}

func (g *LeaseGuard) Release(name string) {
	g.mu.Lock()
	delete(g.leases, name)
	g.mu.Unlock()
}

// Held reports whether a live lease exists for name.
func (g *LeaseGuard) Held(name string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	expiresAt, held := g.leases[name]
	return held && expiresAt.After(g.now())
}
