package repo

import (
	"context"
	"errors"
	"sort"
	"time"

	"focusflow/internal/domain"
)

var ErrNotFound = errors.New("not found")

// DefaultMoodLimit is how many check-ins RecentMoods returns by default.
const DefaultMoodLimit = 7

// Store persists the four FocusFlow collections plus settings. Every call is
// scoped to one user id; no method reads across users.
type Store interface {
	CreateTask(ctx context.Context, t domain.Task) (domain.Task, error)
	GetTask(ctx context.Context, userID, id string) (domain.Task, error)
	ListTasks(ctx context.Context, userID string, f TaskFilter) ([]domain.Task, error)
	// UpdateTask overwrites the stored task in place.
	UpdateTask(ctx context.Context, t domain.Task) error
	DeleteTask(ctx context.Context, userID, id string) error

	EnsureUser(ctx context.Context, u domain.UserProfile) (domain.UserProfile, error)
	GetUser(ctx context.Context, userID string) (domain.UserProfile, error)
	UpdateUserStats(ctx context.Context, userID string, stats domain.UserStats) error

	CreateTimerSession(ctx context.Context, s domain.TimerSession) (domain.TimerSession, error)
	CompleteTimerSession(ctx context.Context, userID, id string, c SessionCompletion) (domain.TimerSession, error)
	ListTimerSessions(ctx context.Context, userID string) ([]domain.TimerSession, error)

	AddMood(ctx context.Context, m domain.MoodCheckIn) (domain.MoodCheckIn, error)
	RecentMoods(ctx context.Context, userID string, limit int) ([]domain.MoodCheckIn, error)

	GetSettings(ctx context.Context, userID string) (domain.Settings, error)
	SaveSettings(ctx context.Context, userID string, s domain.Settings) error

	Close() error
}

// TaskFilter narrows a per-user task fetch. Filtering happens after the
// full fetch.
type TaskFilter struct {
	Status        domain.TaskStatus
	Category      domain.Category
	ScheduledDate string
}

// SessionCompletion finalizes a timer session.
type SessionCompletion struct {
	ActualDuration int
	Interruptions  int
	EndedAt        time.Time
}

// FilterTasks applies f and orders the result newest first.
func FilterTasks(tasks []domain.Task, f TaskFilter) []domain.Task {
	res := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.Category != "" && t.Category != f.Category {
			continue
		}
		if f.ScheduledDate != "" && t.ScheduledDate != f.ScheduledDate {
			continue
		}
		res = append(res, t)
	}
	sort.SliceStable(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	return res
}

func sortMoodsDesc(moods []domain.MoodCheckIn, limit int) []domain.MoodCheckIn {
	sort.SliceStable(moods, func(i, j int) bool { return moods[i].Timestamp.After(moods[j].Timestamp) })
	if limit <= 0 {
		limit = DefaultMoodLimit
	}
	if len(moods) > limit {
		moods = moods[:limit]
	}
	return moods
}

func sortSessionsDesc(sessions []domain.TimerSession) []domain.TimerSession {
	sort.SliceStable(sessions, func(i, j int) bool { return sessions[i].StartedAt.After(sessions[j].StartedAt) })
	return sessions
}
