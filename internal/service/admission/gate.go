// Package admission implements the per-caller admission control gate that
// sits in front of all inbound interaction handling.
package admission

import (
	"log/slog"
	"sync"
	"time"
)

// Decision classifies an inbound event before any handler runs.
type Decision int

const (
	// Allow lets the event through to the handlers.
	Allow Decision = iota
	// Throttle drops the event silently. Mild rate violations are common
	// and a reply would itself contribute to the flood.
	Throttle
	// Ban blocks the event and is the only denial the caller gets told about.
	Ban
)

// String returns a label suitable for metrics and logs.
func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Throttle:
		return "throttle"
	case Ban:
		return "ban"
	default:
		return "unknown"
	}
}

// Result carries the decision and, for Ban, the remaining wait.
type Result struct {
	Decision   Decision
	RetryAfter time.Duration
}

// Config holds the gate thresholds. Zero values are replaced with the
// documented defaults in New.
type Config struct {
	MinInterval    time.Duration
	FloodThreshold int
	BanDuration    time.Duration
	ScoreDecay     time.Duration
	// OperatorID always passes the gate.
	OperatorID int64
}

const (
	defaultMinInterval    = 500 * time.Millisecond
	defaultFloodThreshold = 10
	defaultBanDuration    = 60 * time.Second
	defaultScoreDecay     = 30 * time.Second
)

type callerState struct {
	lastEvent  time.Time
	floodScore int
	banUntil   time.Time
}

// Gate tracks per-caller event timing and applies soft bans on sustained
// flooding. All state is in-memory for the process lifetime; the single mutex
// serializes access because handlers run on real OS threads.
type Gate struct {
	mu      sync.Mutex
	cfg     Config
	callers map[int64]*callerState
}

// New constructs a Gate, filling unset thresholds with defaults.
func New(cfg Config) *Gate {
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = defaultMinInterval
	}
	if cfg.FloodThreshold <= 0 {
		cfg.FloodThreshold = defaultFloodThreshold
	}
	if cfg.BanDuration <= 0 {
		cfg.BanDuration = defaultBanDuration
	}
	if cfg.ScoreDecay <= 0 {
		cfg.ScoreDecay = defaultScoreDecay
	}
	return &Gate{cfg: cfg, callers: make(map[int64]*callerState)}
}

// Admit decides whether the event for callerID at time now proceeds.
// The gate never fails; it only classifies.
func (g *Gate) Admit(callerID int64, now time.Time) Result {
	if callerID == g.cfg.OperatorID && callerID != 0 {
		return Result{Decision: Allow}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	st, ok := g.callers[callerID]
	if !ok {
		st = &callerState{}
		g.callers[callerID] = st
	}

	if now.Before(st.banUntil) {
		remaining := st.banUntil.Sub(now)
		slog.Warn("caller banned, dropping event",
			slog.Int64("caller_id", callerID),
			slog.Duration("remaining", remaining))
		return Result{Decision: Ban, RetryAfter: remaining}
	}

	delta := now.Sub(st.lastEvent)
	if delta < g.cfg.MinInterval {
		st.floodScore++
		if st.floodScore >= g.cfg.FloodThreshold {
			st.banUntil = now.Add(g.cfg.BanDuration)
			st.floodScore = 0
			slog.Warn("caller soft-banned for flooding",
				slog.Int64("caller_id", callerID),
				slog.Duration("ban", g.cfg.BanDuration))
			return Result{Decision: Ban, RetryAfter: g.cfg.BanDuration}
		}
		return Result{Decision: Throttle}
	}

	if delta > g.cfg.ScoreDecay {
		st.floodScore = 0
	}
	st.lastEvent = now
	return Result{Decision: Allow}
}

// ActiveBans counts callers whose ban window has not yet expired.
func (g *Gate) ActiveBans(now time.Time) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, st := range g.callers {
		if now.Before(st.banUntil) {
			n++
		}
	}
	return n
}

// Tracked returns the number of distinct callers seen so far.
func (g *Gate) Tracked() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.callers)
}
