// Package limiter implements tiered per-address abuse control: a hard
// fixed-window request cap and a progressive response delay, both skipped
// for loopback callers.
//
// Counters are process-local and in memory. A multi-instance deployment
// needs a shared counter store behind the same Guard interface; a single
// instance does not.
package limiter

import (
	"context"
	"time"
)

// Tier names a protected operation class and its thresholds. Counters are
// independent across tiers: a caller throttled on login is not throttled
// on refresh.
type Tier struct {
	Name       string
	Window     time.Duration // fixed counting window
	Max        int           // hard cap per window; requests beyond it are rejected
	DelayAfter int           // requests allowed before the progressive delay starts
	Delay      time.Duration // added per request past DelayAfter, growing linearly
}

const window = 15 * time.Minute

// Preconfigured tiers for the service's operations.
var (
	HomeTier     = Tier{Name: "home", Window: window, Max: 500, DelayAfter: 500, Delay: 500 * time.Millisecond}
	LoginTier    = Tier{Name: "login", Window: window, Max: 5, DelayAfter: 5, Delay: 500 * time.Millisecond}
	RegisterTier = Tier{Name: "register", Window: window, Max: 10, DelayAfter: 10, Delay: 500 * time.Millisecond}
	RefreshTier  = Tier{Name: "refresh", Window: window, Max: 10, DelayAfter: 50, Delay: 500 * time.Millisecond}
)

// Guard admits or rejects requests for one tier.
type Guard interface {
	// Reserve counts a request from addr against the tier's window and
	// returns the pause the caller must observe before proceeding.
	// Returns errs.ErrRateLimited once the hard cap is exceeded.
	// Loopback addresses bypass both mechanisms.
	Reserve(ctx context.Context, addr string) (time.Duration, error)
}
