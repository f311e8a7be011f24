package zenforce

import (
	"context"
	"sync"
	"testing"
)

// fakeProber scripts /health responses for the session controller.
type fakeProber struct {
	mu     sync.Mutex
	status *HealthStatus
	err    error
	calls  int
}

func (p *fakeProber) Health(_ context.Context) (*HealthStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.status, nil
}

func (p *fakeProber) set(status *HealthStatus, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = status
	p.err = err
}

func TestSessionController_InitialStateOptimistic(t *testing.T) {
	ctl := NewSessionController(&fakeProber{}, nil)
	state := ctl.Snapshot()
	if !state.Online || state.HasSession || state.Data != nil {
		t.Errorf("initial state = %+v, want online without session", state)
	}
}

func TestSessionController_Refresh(t *testing.T) {
	summary := &ReconciliationSummary{Filename: "a.csv", OriginalRows: 100, CleanRows: 90, DuplicatesRemoved: 10}

	tests := []struct {
		name       string
		prime      func(*SessionController) // establish prior state
		status     *HealthStatus
		err        error
		wantOnline bool
		wantHas    bool
		wantData   bool
	}{
		{
			name:       "probe success without session",
			status:     &HealthStatus{Status: "ZenForce online", HasSession: false},
			wantOnline: true,
		},
		{
			name:       "probe success with session preserves cached data",
			prime:      func(c *SessionController) { c.AdoptSession(summary) },
			status:     &HealthStatus{Status: "ZenForce online", HasSession: true},
			wantOnline: true,
			wantHas:    true,
			wantData:   true,
		},
		{
			name:   "probe success without session clears cached data",
			prime:  func(c *SessionController) { c.AdoptSession(summary) },
			status: &HealthStatus{Status: "ZenForce online", HasSession: false},

			wantOnline: true,
		},
		{
			name:  "probe failure moves offline regardless of prior state",
			prime: func(c *SessionController) { c.AdoptSession(summary) },
			err:   ErrBackendUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prober := &fakeProber{}
			prober.set(tt.status, tt.err)
			ctl := NewSessionController(prober, nil)
			if tt.prime != nil {
				tt.prime(ctl)
			}

			state := ctl.Refresh(context.Background())

			if state.Online != tt.wantOnline {
				t.Errorf("Online = %v, want %v", state.Online, tt.wantOnline)
			}
			if state.HasSession != tt.wantHas {
				t.Errorf("HasSession = %v, want %v", state.HasSession, tt.wantHas)
			}
			if (state.Data != nil) != tt.wantData {
				t.Errorf("Data presence = %v, want %v", state.Data != nil, tt.wantData)
			}
			if state.GateOpen() != (tt.wantOnline && tt.wantHas) {
				t.Errorf("GateOpen() = %v", state.GateOpen())
			}
		})
	}
}

func TestSessionController_AdoptAndClear(t *testing.T) {
	ctl := NewSessionController(&fakeProber{err: ErrBackendUnavailable}, nil)
	ctl.Refresh(context.Background())
	if ctl.Snapshot().Online {
		t.Fatal("expected offline after failed probe")
	}

	// A summary is itself proof of a reachable, stateful backend.
	summary := &ReconciliationSummary{SessionID: "zen-1", Filename: "a.csv", OriginalRows: 100, CleanRows: 90, DuplicatesRemoved: 10}
	ctl.AdoptSession(summary)

	state := ctl.Snapshot()
	if !state.GateOpen() {
		t.Errorf("state after adopt = %+v, want gate open", state)
	}
	if state.Data == nil || state.Data.CleanRows != 90 || state.Data.DuplicatesRemoved != 10 {
		t.Errorf("adopted data = %+v, want row counts intact", state.Data)
	}

	ctl.ClearSession()
	state = ctl.Snapshot()
	if !state.Online || state.HasSession || state.Data != nil {
		t.Errorf("state after clear = %+v, want online without session", state)
	}
}

func TestSessionController_OfflineDropsCachedData(t *testing.T) {
	prober := &fakeProber{}
	prober.set(nil, ErrBackendUnavailable)
	ctl := NewSessionController(prober, nil)
	ctl.AdoptSession(&ReconciliationSummary{Filename: "a.csv", CleanRows: 90})

	state := ctl.Refresh(context.Background())
	if state.Online || state.HasSession || state.Data != nil {
		t.Fatalf("state after failed probe = %+v, want offline with no cached data", state)
	}

	// Recovery with has_session=true must not resurrect the pre-offline
	// dataset; only AdoptSession repopulates it.
	prober.set(&HealthStatus{HasSession: true}, nil)
	state = ctl.Refresh(context.Background())
	if !state.Online || !state.HasSession {
		t.Fatalf("state after recovery = %+v, want online with session", state)
	}
	if state.Data != nil {
		t.Errorf("recovery resurrected stale dataset %+v", state.Data)
	}
}

func TestSessionController_ConcurrentRefresh(t *testing.T) {
	prober := &fakeProber{status: &HealthStatus{HasSession: true}}
	ctl := NewSessionController(prober, nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctl.Refresh(context.Background())
		}()
	}
	wg.Wait()

	// All probes returned the same result, so whichever write landed last
	// must have produced a consistent snapshot.
	state := ctl.Snapshot()
	if !state.Online || !state.HasSession {
		t.Errorf("state after concurrent refresh = %+v", state)
	}
}

func TestSessionController_Subscribe(t *testing.T) {
	ctl := NewSessionController(&fakeProber{status: &HealthStatus{HasSession: false}}, nil)
	sub := ctl.Subscribe()

	summary := &ReconciliationSummary{Filename: "a.csv"}
	ctl.AdoptSession(summary)

	state := <-sub
	if !state.HasSession || state.Data == nil || state.Data.Filename != "a.csv" {
		t.Errorf("notified state = %+v, want adopted session", state)
	}

	// A slow subscriber sees only the latest of several transitions.
	ctl.ClearSession()
	ctl.AdoptSession(summary)
	state = <-sub
	if !state.HasSession {
		t.Errorf("slow subscriber got stale state %+v, want latest", state)
	}

	ctl.Unsubscribe(sub)
	if _, open := <-sub; open {
		t.Error("channel still open after Unsubscribe")
	}
}
