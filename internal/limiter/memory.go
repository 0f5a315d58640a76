package limiter

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/avard/authd/internal/errs"
)

// purgeThreshold bounds how many idle address counters accumulate before a
// sweep drops the expired ones.
const purgeThreshold = 4096

// Memory is an in-memory Guard for a single tier.
type Memory struct {
	tier Tier

	mu   sync.Mutex
	seen map[string]*counter

	now func() time.Time // replaced in tests
}

type counter struct {
	start time.Time
	count int
}

// NewMemory constructs a Guard for the tier.
func NewMemory(tier Tier) *Memory {
	return &Memory{
		tier: tier,
		seen: make(map[string]*counter),
		now:  time.Now,
	}
}

// Reserve implements Guard. The counter update is atomic per address; the
// returned pause is awaited by the caller, not here.
func (m *Memory) Reserve(_ context.Context, addr string) (time.Duration, error) {
	host := addr
	if h, _, err := net.SplitHostPort(addr); err == nil {
		host = h
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return 0, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	c := m.seen[host]
	if c == nil || now.Sub(c.start) >= m.tier.Window {
		if len(m.seen) >= purgeThreshold {
			m.purgeLocked(now)
		}
		c = &counter{start: now}
		m.seen[host] = c
	}
	c.count++

	if m.tier.Max > 0 && c.count > m.tier.Max {
		return 0, errs.ErrRateLimited
	}
	if over := c.count - m.tier.DelayAfter; over > 0 {
		return time.Duration(over) * m.tier.Delay, nil
	}
	return 0, nil
}

// purgeLocked drops counters whose window has elapsed. Callers hold mu.
func (m *Memory) purgeLocked(now time.Time) {
	for host, c := range m.seen {
		if now.Sub(c.start) >= m.tier.Window {
			delete(m.seen, host)
		}
	}
}
