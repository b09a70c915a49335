package timer

import (
	"context"
	"sync"
	"time"

	"focusflow/internal/domain"
)

// Registry holds one timer per user.
type Registry struct {
	Recorder Recorder
	Now      func() time.Time

	mu        sync.Mutex
	timers    map[string]*Timer
	observers []func(domain.TimerSession)
}

func NewRegistry(rec Recorder) *Registry {
	return &Registry{Recorder: rec, Now: time.Now, timers: make(map[string]*Timer)}
}

// For returns the user's timer, creating an idle one on first use.
func (r *Registry) For(userID string) *Timer {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timers == nil {
		r.timers = make(map[string]*Timer)
	}
	if t, ok := r.timers[userID]; ok {
		return t
	}
	t := New(userID, r.Recorder)
	t.Now = r.Now
	t.OnComplete(r.notify)
	r.timers[userID] = t
	return t
}

// OnComplete registers fn for completions of every user's timer.
func (r *Registry) OnComplete(fn func(domain.TimerSession)) {
	r.mu.Lock()
	r.observers = append(r.observers, fn)
	r.mu.Unlock()
}

func (r *Registry) notify(s domain.TimerSession) {
	r.mu.Lock()
	observers := append([]func(domain.TimerSession){}, r.observers...)
	r.mu.Unlock()
	notify(observers, s)
}

// Run ticks t every interval until the session leaves the running and
// paused states or ctx is done. onTick may be nil.
func Run(ctx context.Context, t *Timer, interval time.Duration, onTick func(Snapshot)) (Snapshot, error) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return t.Snapshot(), ctx.Err()
		case <-ticker.C:
		}
		snap, _, err := t.Tick(ctx)
		if err != nil {
			return snap, err
		}
		if onTick != nil {
			onTick(snap)
		}
		if !snap.Active() {
			return snap, nil
		}
	}
}
