package engine

import (
	"context"
	"errors"
	"log"

	"focusflow/internal/domain"
	"focusflow/internal/events"
	"focusflow/internal/state"
	"focusflow/internal/timer"
)

type TimerStartOptions struct {
	UserID string
	// TaskID is optional; an empty id times free-standing focus.
	TaskID string
	Mode   domain.TimerMode
	// CustomSeconds applies to custom mode only.
	CustomSeconds int
}

var timerModes = map[domain.TimerMode]bool{
	domain.ModePomodoro:   true,
	domain.ModeShortBreak: true,
	domain.ModeLongBreak:  true,
	domain.ModeUrgent:     true,
	domain.ModeCustom:     true,
	domain.ModeDefault:    true,
}

func (e Engine) StartTimer(ctx context.Context, opts TimerStartOptions) (timer.Snapshot, error) {
	if opts.Mode != "" && !timerModes[opts.Mode] {
		return timer.Snapshot{}, invalid("mode", "unknown timer mode "+string(opts.Mode))
	}
	if opts.CustomSeconds < 0 {
		return timer.Snapshot{}, invalid("customSeconds", "must not be negative")
	}
	var task domain.Task
	if opts.TaskID != "" {
		t, err := e.Store.GetTask(ctx, opts.UserID, opts.TaskID)
		if err != nil {
			return timer.Snapshot{}, err
		}
		task = t
	}
	t := e.Timers.For(opts.UserID)
	snap, err := t.Start(ctx, task, opts.Mode, opts.CustomSeconds)
	if err != nil {
		return timer.Snapshot{}, err
	}
	e.setTimer(opts.UserID, snap)
	if e.TickInterval > 0 {
		go e.drive(opts.UserID, t, snap.SessionID)
	}
	return snap, nil
}

// drive ticks a started timer until its session ends or another session
// replaces it.
func (e Engine) drive(userID string, t *timer.Timer, sessionID string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	snap, err := timer.Run(ctx, t, e.TickInterval, func(s timer.Snapshot) {
		if s.SessionID != sessionID {
			cancel()
			return
		}
		e.refreshTimer(userID, t, sessionID)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("timer: user %s session %s: %v", userID, snap.SessionID, err)
	}
}

// refreshTimer publishes the live snapshot of sessionID. The timer is read
// under the session lock so a concurrent skip or restart cannot be
// overwritten by a stale tick.
func (e Engine) refreshTimer(userID string, t *timer.Timer, sessionID string) {
	e.session(userID).Set(func(s *state.State) {
		cur := t.Snapshot()
		if cur.SessionID != sessionID || !cur.Active() {
			return
		}
		s.ActiveTimer = &cur
	})
}

func (e Engine) PauseTimer(userID string) (timer.Snapshot, error) {
	snap, err := e.Timers.For(userID).Pause()
	if err != nil {
		return timer.Snapshot{}, err
	}
	e.setTimer(userID, snap)
	return snap, nil
}

func (e Engine) ResumeTimer(userID string) (timer.Snapshot, error) {
	snap, err := e.Timers.For(userID).Resume()
	if err != nil {
		return timer.Snapshot{}, err
	}
	e.setTimer(userID, snap)
	return snap, nil
}

// CompleteTimer stops the session early and records the time spent.
func (e Engine) CompleteTimer(ctx context.Context, userID string) (domain.TimerSession, error) {
	return e.Timers.For(userID).Complete(ctx)
}

// SkipTimer abandons the session without recording a completion.
func (e Engine) SkipTimer(userID string) (timer.Snapshot, error) {
	snap, err := e.Timers.For(userID).Skip()
	if err != nil {
		return timer.Snapshot{}, err
	}
	e.setTimer(userID, snap)
	return snap, nil
}

// TimerStatus advances the timer to the current time, completing it when
// the countdown has run out.
func (e Engine) TimerStatus(ctx context.Context, userID string) (timer.Snapshot, error) {
	snap, _, err := e.Timers.For(userID).Tick(ctx)
	if err != nil && !errors.Is(err, timer.ErrNoSession) {
		return snap, err
	}
	e.setTimer(userID, snap)
	return snap, nil
}

func (e Engine) TimerSessions(ctx context.Context, userID string) ([]domain.TimerSession, error) {
	return e.Store.ListTimerSessions(ctx, userID)
}

func (e Engine) setTimer(userID string, snap timer.Snapshot) {
	e.session(userID).Set(func(s *state.State) {
		if snap.Active() {
			cp := snap
			s.ActiveTimer = &cp
			return
		}
		s.ActiveTimer = nil
	})
}

// timerCompleted runs for every finished session, manual or counted down.
func (e Engine) timerCompleted(s domain.TimerSession) {
	seconds := 0
	if s.ActualDuration != nil {
		seconds = *s.ActualDuration
	}
	if err := e.addFocusTime(context.Background(), s.UserID, seconds); err != nil {
		log.Printf("timer: credit focus time for %s: %v", s.UserID, err)
	}
	e.setTimer(s.UserID, timer.Snapshot{Status: timer.StatusCompleted})
	e.publish(events.TimerCompleted, s.UserID, s.ID, events.Payload{
		"taskId":         s.TaskID,
		"mode":           string(s.Mode),
		"actualDuration": seconds,
		"interruptions":  s.Interruptions,
	})
}
