package zenforce

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// SessionState is one consistent reading of the session controller: whether
// the backend is reachable, whether it holds a processed dataset, and the
// most recent summary if one was adopted. The triple is copied out as a unit,
// so readers never observe a torn update.
type SessionState struct {
	// Online reports whether the last reachability probe (or adopted
	// summary) proved the backend reachable.
	Online bool

	// HasSession reports whether the backend currently holds a processed
	// dataset. Always false while offline, regardless of cached data.
	HasSession bool

	// Data is the cached reconciliation summary, if any. The probe itself
	// never carries the dataset; Data is only set by AdoptSession.
	Data *ReconciliationSummary
}

// GateOpen reports whether dataset-dependent operations (visualize, ask)
// should currently be permitted.
func (s SessionState) GateOpen() bool {
	return s.Online && s.HasSession
}

// HealthProber is the probe surface the session controller needs.
// *Client satisfies it.
type HealthProber interface {
	Health(ctx context.Context) (*HealthStatus, error)
}

// SessionController is the single source of truth for backend reachability
// and dataset presence, read by every surface that gates on them.
//
// A new controller starts with an optimistic "online, no session" guess;
// call Refresh once after construction (and again whenever a dependent view
// regains focus) to reconcile with the backend. State is never persisted.
//
// All methods are safe for concurrent use. Concurrent Refresh calls do not
// corrupt state; whichever probe result is applied last wins.
type SessionController struct {
	prober HealthProber
	log    *zap.Logger

	mu    sync.RWMutex
	state SessionState
	subs  map[chan SessionState]struct{}
}

// NewSessionController creates a controller probing through prober.
// Pass nil for log to disable diagnostics.
func NewSessionController(prober HealthProber, log *zap.Logger) *SessionController {
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionController{
		prober: prober,
		log:    log,
		state:  SessionState{Online: true},
		subs:   make(map[chan SessionState]struct{}),
	}
}

// Refresh issues a reachability probe and reconciles state with the result:
//
//   - probe succeeds, has_session=false → online, no session, cached data cleared
//   - probe succeeds, has_session=true  → online, has session, cached data kept
//   - probe fails (network or status)   → offline, cached data dropped
//
// Refresh is idempotent and safe to run concurrently with itself. The probe
// failure is absorbed into state rather than returned; dependent views read
// the resulting snapshot.
func (c *SessionController) Refresh(ctx context.Context) SessionState {
	status, err := c.prober.Health(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.log.Debug("reachability probe failed", zap.Error(err))
		// Offline implies no session, independent of any cached dataset;
		// drop the data so nothing downstream treats it as current.
		c.state = SessionState{}
		c.notifyLocked()
		return c.state
	}

	c.state.Online = true
	c.state.HasSession = status.HasSession
	if !status.HasSession {
		c.state.Data = nil
	}
	c.notifyLocked()
	return c.state
}

// AdoptSession records a summary delivered by a completed reconcile stream.
// Receiving a summary is itself proof of a reachable, stateful backend, so
// the controller moves to online-with-session unconditionally.
func (c *SessionController) AdoptSession(data *ReconciliationSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = SessionState{Online: true, HasSession: true, Data: data}
	c.notifyLocked()
}

// ClearSession discards the cached dataset and moves to online-no-session
// without re-probing the network.
func (c *SessionController) ClearSession() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = SessionState{Online: true}
	c.notifyLocked()
}

// Snapshot returns the current state as one consistent copy.
func (c *SessionController) Snapshot() SessionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Subscribe registers for state-change notifications. Each transition
// delivers a snapshot; a slow subscriber only ever lags by one update, stale
// intermediate states are dropped in favor of the latest. Call Unsubscribe
// when done.
func (c *SessionController) Subscribe() <-chan SessionState {
	ch := make(chan SessionState, 1)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs[ch] = struct{}{}
	return ch
}

// Unsubscribe removes and closes a channel returned by Subscribe.
func (c *SessionController) Unsubscribe(ch <-chan SessionState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for sub := range c.subs {
		if sub == ch {
			delete(c.subs, sub)
			close(sub)
			return
		}
	}
}

// notifyLocked fans the current state out to subscribers. Callers hold mu.
func (c *SessionController) notifyLocked() {
	for sub := range c.subs {
		select {
		case sub <- c.state:
		default:
			// Replace the undelivered stale state with the latest.
			select {
			case <-sub:
			default:
			}
			sub <- c.state
		}
	}
}
