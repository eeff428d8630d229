package leadstore

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrStoreUnavailable is returned by [GuardedSaver.SaveLead] while the
// underlying store is considered down and save attempts are being rejected
// outright.
var ErrStoreUnavailable = errors.New("leadstore: store unavailable")

// breakerState is the operating mode of a [GuardedSaver].
type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case stateClosed:
		return "closed"
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// GuardedSaverConfig holds tuning knobs for a [GuardedSaver].
type GuardedSaverConfig struct {
	// MaxFailures is the number of consecutive save failures before further
	// attempts are rejected. Default: 5.
	MaxFailures int

	// ResetTimeout is how long saves stay rejected before a probe attempt is
	// allowed through. Default: 30s.
	ResetTimeout time.Duration

	// ProbeMax is the number of probe saves allowed after the reset timeout
	// before the guard decides whether the store has recovered. Default: 3.
	ProbeMax int
}

// GuardedSaver wraps a [Saver] with a three-state circuit breaker so a down
// database fails persistence fast instead of stalling every settling call on
// its own timeout. Safe for concurrent use.
type GuardedSaver struct {
	inner Saver

	maxFailures  int
	resetTimeout time.Duration
	probeMax     int

	mu              sync.Mutex
	state           breakerState
	consecutiveFail int
	lastFailure     time.Time
	probeCalls      int
	probeFails      int
}

var _ Saver = (*GuardedSaver)(nil)

// NewGuardedSaver wraps inner with the supplied configuration. Zero-value
// config fields are replaced with defaults.
func NewGuardedSaver(inner Saver, cfg GuardedSaverConfig) *GuardedSaver {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.ProbeMax <= 0 {
		cfg.ProbeMax = 3
	}
	return &GuardedSaver{
		inner:        inner,
		maxFailures:  cfg.MaxFailures,
		resetTimeout: cfg.ResetTimeout,
		probeMax:     cfg.ProbeMax,
		state:        stateClosed,
	}
}

// SaveLead forwards to the wrapped saver if the guard allows it. While the
// store is considered down it returns [ErrStoreUnavailable] without touching
// the database; after the reset timeout a limited number of probe saves are
// let through to detect recovery.
func (g *GuardedSaver) SaveLead(ctx context.Context, lead Lead) error {
	g.mu.Lock()
	switch g.state {
	case stateOpen:
		if time.Since(g.lastFailure) < g.resetTimeout {
			g.mu.Unlock()
			return ErrStoreUnavailable
		}
		g.state = stateHalfOpen
		g.probeCalls = 0
		g.probeFails = 0
		slog.Info("leadstore: probing store after outage")

	case stateHalfOpen:
		if g.probeCalls >= g.probeMax {
			g.mu.Unlock()
			return ErrStoreUnavailable
		}
	}

	probing := g.state == stateHalfOpen
	if probing {
		g.probeCalls++
	}
	g.mu.Unlock()

	err := g.inner.SaveLead(ctx, lead)

	g.mu.Lock()
	defer g.mu.Unlock()
	if err != nil {
		g.recordFailure(probing, lead.CallID)
	} else {
		g.recordSuccess(probing)
	}
	return err
}

// recordFailure handles failure accounting. Must be called with g.mu held.
func (g *GuardedSaver) recordFailure(probing bool, callID string) {
	g.lastFailure = time.Now()

	if probing {
		g.probeFails++
		// Any probe failure means the store is still down.
		g.state = stateOpen
		g.consecutiveFail = g.maxFailures
		slog.Warn("leadstore: store still unavailable after probe", "call_id", callID)
		return
	}

	g.consecutiveFail++
	if g.consecutiveFail >= g.maxFailures {
		g.state = stateOpen
		slog.Warn("leadstore: rejecting saves after consecutive failures",
			"call_id", callID,
			"consecutive_failures", g.consecutiveFail)
	}
}

// recordSuccess handles success accounting. Must be called with g.mu held.
func (g *GuardedSaver) recordSuccess(probing bool) {
	if probing {
		if g.probeCalls-g.probeFails >= g.probeMax {
			g.state = stateClosed
			g.consecutiveFail = 0
			g.probeCalls = 0
			g.probeFails = 0
			slog.Info("leadstore: store recovered, saves restored")
		}
		return
	}
	g.consecutiveFail = 0
}
