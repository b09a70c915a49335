package engine

import (
	"context"

	"focusflow/internal/domain"
	"focusflow/internal/repo"
	"focusflow/internal/scoring"
	"focusflow/internal/state"
)

// applyCompletion moves the user's counters after t was completed or
// reopened. Streaks are recomputed from the task history either way.
func (e Engine) applyCompletion(ctx context.Context, t domain.Task, completed bool) (domain.UserStats, error) {
	u, err := e.Store.EnsureUser(ctx, domain.UserProfile{ID: t.UserID})
	if err != nil {
		return domain.UserStats{}, err
	}
	st := u.Stats
	xp := scoring.XPForTask(t)
	if completed {
		st.TotalTasksCompleted++
		st.XP += xp
	} else {
		st.TotalTasksCompleted = max(st.TotalTasksCompleted-1, 0)
		st.XP = max(st.XP-xp, 0)
	}
	st.Level = scoring.LevelForXP(st.XP)

	tasks, err := e.Store.ListTasks(ctx, t.UserID, repo.TaskFilter{Status: domain.StatusCompleted})
	if err != nil {
		return domain.UserStats{}, err
	}
	now := e.now()
	st.CurrentStreak = scoring.Streak(tasks, now)
	st.LongestStreak = max(st.LongestStreak, scoring.LongestStreak(tasks, now.Location()))

	if err := e.Store.UpdateUserStats(ctx, t.UserID, st); err != nil {
		return domain.UserStats{}, err
	}
	u.Stats = st
	e.setUser(u)
	return st, nil
}

// addFocusTime credits a finished session to the user's focus total.
func (e Engine) addFocusTime(ctx context.Context, userID string, seconds int) error {
	if seconds <= 0 {
		return nil
	}
	u, err := e.Store.EnsureUser(ctx, domain.UserProfile{ID: userID})
	if err != nil {
		return err
	}
	u.Stats.TotalFocusTime += seconds
	if err := e.Store.UpdateUserStats(ctx, userID, u.Stats); err != nil {
		return err
	}
	e.setUser(u)
	return nil
}

func (e Engine) setUser(u domain.UserProfile) {
	e.session(u.ID).Set(func(s *state.State) { s.User = &u })
}
