package timer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"focusflow/internal/domain"
	"focusflow/internal/repo"
	"focusflow/internal/scoring"
)

type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

var (
	ErrSessionActive     = errors.New("a timer session is already active")
	ErrNoSession         = errors.New("no active timer session")
	ErrInvalidTransition = errors.New("invalid timer transition")
)

const fallbackSeconds = 1500

var modeSeconds = map[domain.TimerMode]int{
	domain.ModePomodoro:   1500,
	domain.ModeShortBreak: 300,
	domain.ModeLongBreak:  900,
	domain.ModeUrgent:     300,
}

// PlannedDuration returns the session length in seconds. custom is only
// read for the custom mode.
func PlannedDuration(task domain.Task, mode domain.TimerMode, custom int) int {
	if secs, ok := modeSeconds[mode]; ok {
		return secs
	}
	switch mode {
	case domain.ModeCustom:
		if custom > 0 {
			return custom
		}
	default:
		if task.EstimatedMinutes != nil && *task.EstimatedMinutes > 0 {
			return *task.EstimatedMinutes * 60
		}
	}
	return fallbackSeconds
}

// Recorder persists sessions. repo.Store satisfies it.
type Recorder interface {
	CreateTimerSession(ctx context.Context, s domain.TimerSession) (domain.TimerSession, error)
	CompleteTimerSession(ctx context.Context, userID, id string, c repo.SessionCompletion) (domain.TimerSession, error)
}

type Snapshot struct {
	Status          Status           `json:"status" enum:"idle,running,paused,completed,cancelled"`
	SessionID       string           `json:"sessionId,omitempty"`
	TaskID          string           `json:"taskId,omitempty"`
	TaskTitle       string           `json:"taskTitle,omitempty"`
	Mode            domain.TimerMode `json:"mode,omitempty"`
	PlannedDuration int              `json:"plannedDuration"`
	Remaining       int              `json:"remaining"`
	Elapsed         int              `json:"elapsed"`
	Interruptions   int              `json:"interruptions"`
	StartedAt       *time.Time       `json:"startedAt,omitempty"`
	Display         string           `json:"display"`
}

// Active reports whether the snapshot is of a running or paused session.
func (s Snapshot) Active() bool {
	return s.Status == StatusRunning || s.Status == StatusPaused
}

// Timer is a single countdown session owned by one user. Remaining time is
// derived from the wall clock on every read, so missed ticks never drift.
type Timer struct {
	UserID   string
	Recorder Recorder
	Now      func() time.Time

	mu          sync.Mutex
	status      Status
	session     domain.TimerSession
	taskTitle   string
	pausedAt    time.Time
	pausedTotal time.Duration
	observers   []func(domain.TimerSession)
}

func New(userID string, rec Recorder) *Timer {
	return &Timer{UserID: userID, Recorder: rec, Now: time.Now, status: StatusIdle}
}

func (t *Timer) now() time.Time {
	if t.Now != nil {
		return t.Now().UTC()
	}
	return time.Now().UTC()
}

// OnComplete registers fn to receive every session finalized by this timer.
func (t *Timer) OnComplete(fn func(domain.TimerSession)) {
	t.mu.Lock()
	t.observers = append(t.observers, fn)
	t.mu.Unlock()
}

func (t *Timer) Start(ctx context.Context, task domain.Task, mode domain.TimerMode, custom int) (Snapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status == StatusRunning || t.status == StatusPaused {
		return t.snapshotLocked(), ErrSessionActive
	}
	if mode == "" {
		mode = domain.ModeDefault
	}
	sess := domain.TimerSession{
		TaskID:          task.ID,
		UserID:          t.UserID,
		Mode:            mode,
		PlannedDuration: PlannedDuration(task, mode, custom),
		StartedAt:       t.now(),
	}
	if t.Recorder != nil {
		created, err := t.Recorder.CreateTimerSession(ctx, sess)
		if err != nil {
			return t.snapshotLocked(), fmt.Errorf("record timer session: %w", err)
		}
		sess = created
	}
	t.session = sess
	t.taskTitle = task.Title
	t.pausedAt = time.Time{}
	t.pausedTotal = 0
	t.status = StatusRunning
	return t.snapshotLocked(), nil
}

// Pause freezes the countdown and counts one interruption.
func (t *Timer) Pause() (Snapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusRunning {
		return t.snapshotLocked(), t.transitionErr()
	}
	t.pausedAt = t.now()
	t.session.Interruptions++
	t.status = StatusPaused
	return t.snapshotLocked(), nil
}

func (t *Timer) Resume() (Snapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusPaused {
		return t.snapshotLocked(), t.transitionErr()
	}
	t.pausedTotal += t.now().Sub(t.pausedAt)
	t.pausedAt = time.Time{}
	t.status = StatusRunning
	return t.snapshotLocked(), nil
}

// Tick re-samples the clock. A running session whose remaining time has
// reached zero is completed and persisted; done reports that transition.
func (t *Timer) Tick(ctx context.Context) (snap Snapshot, done bool, err error) {
	t.mu.Lock()
	if t.status != StatusRunning || t.remainingLocked() > 0 {
		snap = t.snapshotLocked()
		t.mu.Unlock()
		return snap, false, nil
	}
	final, observers, err := t.finishLocked(ctx)
	snap = t.snapshotLocked()
	t.mu.Unlock()
	if err != nil {
		return snap, false, err
	}
	notify(observers, final)
	return snap, true, nil
}

// Complete finishes the session early. The persisted actual duration is the
// wall-clock time since start, paused time included.
func (t *Timer) Complete(ctx context.Context) (domain.TimerSession, error) {
	t.mu.Lock()
	if t.status != StatusRunning && t.status != StatusPaused {
		t.mu.Unlock()
		return domain.TimerSession{}, ErrNoSession
	}
	final, observers, err := t.finishLocked(ctx)
	t.mu.Unlock()
	if err != nil {
		return domain.TimerSession{}, err
	}
	notify(observers, final)
	return final, nil
}

// Skip abandons the session. Nothing further is persisted.
func (t *Timer) Skip() (Snapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusRunning && t.status != StatusPaused {
		return t.snapshotLocked(), ErrNoSession
	}
	t.status = StatusCancelled
	return t.snapshotLocked(), nil
}

func (t *Timer) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Timer) finishLocked(ctx context.Context) (domain.TimerSession, []func(domain.TimerSession), error) {
	end := t.now()
	actual := int(end.Sub(t.session.StartedAt) / time.Second)
	if actual < 0 {
		actual = 0
	}
	final := t.session
	if t.Recorder != nil {
		stored, err := t.Recorder.CompleteTimerSession(ctx, t.UserID, t.session.ID, repo.SessionCompletion{
			ActualDuration: actual,
			Interruptions:  t.session.Interruptions,
			EndedAt:        end,
		})
		if err != nil {
			return domain.TimerSession{}, nil, fmt.Errorf("complete timer session: %w", err)
		}
		final = stored
	} else {
		final.ActualDuration = &actual
		final.EndedAt = &end
		final.Completed = true
	}
	t.session = final
	t.status = StatusCompleted
	return final, append([]func(domain.TimerSession){}, t.observers...), nil
}

func (t *Timer) transitionErr() error {
	if t.status == StatusRunning || t.status == StatusPaused {
		return ErrInvalidTransition
	}
	return ErrNoSession
}

func (t *Timer) elapsedLocked() time.Duration {
	now := t.now()
	if t.status == StatusPaused {
		now = t.pausedAt
	}
	return now.Sub(t.session.StartedAt) - t.pausedTotal
}

func (t *Timer) remainingLocked() int {
	rem := t.session.PlannedDuration - int(t.elapsedLocked()/time.Second)
	if rem < 0 {
		return 0
	}
	return rem
}

func (t *Timer) snapshotLocked() Snapshot {
	snap := Snapshot{Status: t.status}
	if t.status == "" {
		snap.Status = StatusIdle
	}
	if snap.Status == StatusIdle {
		snap.Display = scoring.FormatTime(0)
		return snap
	}
	started := t.session.StartedAt
	snap.SessionID = t.session.ID
	snap.TaskID = t.session.TaskID
	snap.TaskTitle = t.taskTitle
	snap.Mode = t.session.Mode
	snap.PlannedDuration = t.session.PlannedDuration
	snap.Interruptions = t.session.Interruptions
	snap.StartedAt = &started
	switch snap.Status {
	case StatusRunning, StatusPaused:
		snap.Remaining = t.remainingLocked()
		snap.Elapsed = snap.PlannedDuration - snap.Remaining
	case StatusCompleted:
		if t.session.ActualDuration != nil {
			snap.Elapsed = *t.session.ActualDuration
		}
	}
	snap.Display = scoring.FormatTime(snap.Remaining)
	return snap
}

func notify(observers []func(domain.TimerSession), s domain.TimerSession) {
	for _, fn := range observers {
		fn(s)
	}
}
