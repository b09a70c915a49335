package engine

import (
	"context"

	"focusflow/internal/repo"
	"focusflow/internal/state"
	"focusflow/internal/views"
)

func (e Engine) show(userID string, v state.View) {
	e.session(userID).Set(func(s *state.State) { s.CurrentView = v })
}

func (e Engine) Today(ctx context.Context, userID string) (views.Today, error) {
	tasks, err := e.Store.ListTasks(ctx, userID, repo.TaskFilter{})
	if err != nil {
		return views.Today{}, err
	}
	e.show(userID, state.ViewToday)
	return views.BuildToday(tasks, e.now()), nil
}

func (e Engine) TaskList(ctx context.Context, userID string, q views.TaskQuery) (views.TaskList, error) {
	tasks, err := e.Store.ListTasks(ctx, userID, repo.TaskFilter{})
	if err != nil {
		return views.TaskList{}, err
	}
	e.show(userID, state.ViewTasks)
	return views.BuildTaskList(tasks, q), nil
}

func (e Engine) Stats(ctx context.Context, userID string) (views.Stats, error) {
	tasks, err := e.Store.ListTasks(ctx, userID, repo.TaskFilter{})
	if err != nil {
		return views.Stats{}, err
	}
	sessions, err := e.Store.ListTimerSessions(ctx, userID)
	if err != nil {
		return views.Stats{}, err
	}
	e.show(userID, state.ViewStats)
	return views.BuildStats(tasks, sessions, e.now()), nil
}

func (e Engine) Profile(ctx context.Context, userID string) (views.Profile, error) {
	u, err := e.Me(ctx, userID)
	if err != nil {
		return views.Profile{}, err
	}
	tasks, err := e.Store.ListTasks(ctx, userID, repo.TaskFilter{})
	if err != nil {
		return views.Profile{}, err
	}
	sessions, err := e.Store.ListTimerSessions(ctx, userID)
	if err != nil {
		return views.Profile{}, err
	}
	settings, err := e.GetSettings(ctx, userID)
	if err != nil {
		return views.Profile{}, err
	}
	e.show(userID, state.ViewProfile)
	return views.BuildProfile(u, tasks, sessions, settings), nil
}
