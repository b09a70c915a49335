package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"focusflow/internal/domain"
	"focusflow/internal/engine"
	"focusflow/internal/state"
	"focusflow/internal/timer"
	"focusflow/internal/views"
)

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerAuth(api huma.API, e engine.Engine, authCfg AuthConfig) {
	huma.Register(api, huma.Operation{
		OperationID: "anonymous-login",
		Method:      http.MethodPost,
		Path:        "/auth/anonymous",
		Summary:     "Start an anonymous session",
		Errors:      []int{http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body *AnonymousLoginRequest `json:"body,omitempty"`
	}) (*struct {
		Body AnonymousLoginResponse `json:"body"`
	}, error) {
		if authCfg.Issuer == nil {
			return nil, newAPIError(http.StatusInternalServerError, "internal_error", "anonymous sign-in is not configured", nil)
		}
		var displayName string
		if input.Body != nil {
			displayName = strings.TrimSpace(input.Body.DisplayName)
		}
		token, id, err := authCfg.Issuer.IssueAnonymous(displayName)
		if err != nil {
			return nil, newAPIError(http.StatusInternalServerError, "internal_error", err.Error(), nil)
		}
		if _, err := e.EnsureUser(ctx, domain.UserProfile{ID: id.UserID, DisplayName: id.DisplayName, IsAnonymous: true}); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body AnonymousLoginResponse `json:"body"`
		}{Body: AnonymousLoginResponse{Token: token, UserID: id.UserID}}, nil
	})
}

func registerMe(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/me",
		Summary:     "Current user profile",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body domain.UserProfile `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		u, err := e.Me(ctx, userID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.UserProfile `json:"body"`
		}{Body: u}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "session",
		Method:      http.MethodGet,
		Path:        "/session",
		Summary:     "Current session state",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body state.State `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return &struct {
			Body state.State `json:"body"`
		}{Body: e.Session(userID)}, nil
	})
}

func registerMoods(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "add-mood",
		Method:        http.MethodPost,
		Path:          "/moods",
		Summary:       "Record a mood check-in",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Body MoodRequest `json:"body"`
	}) (*struct {
		Body domain.MoodCheckIn `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		m, err := e.AddMood(ctx, userID, domain.Mood(input.Body.Mood), input.Body.Note)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.MoodCheckIn `json:"body"`
		}{Body: m}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-moods",
		Method:      http.MethodGet,
		Path:        "/moods",
		Summary:     "Recent mood check-ins, newest first",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Limit int `query:"limit" default:"7" minimum:"0" maximum:"100"`
	}) (*struct {
		Body MoodList `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.RecentMoods(ctx, userID, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.MoodCheckIn{}
		}
		return &struct {
			Body MoodList `json:"body"`
		}{Body: MoodList{Items: items}}, nil
	})
}

type timerOutput struct {
	Body timer.Snapshot `json:"body"`
}

// timerAction registers a bodiless POST that transitions the caller's timer.
func timerAction(api huma.API, id, p, summary string, fn func(ctx context.Context, userID string) (timer.Snapshot, error)) {
	huma.Register(api, huma.Operation{
		OperationID: id,
		Method:      http.MethodPost,
		Path:        p,
		Summary:     summary,
		Errors:      []int{http.StatusUnauthorized, http.StatusConflict},
	}, func(ctx context.Context, _ *struct{}) (*timerOutput, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		snap, err := fn(ctx, userID)
		if err != nil {
			return nil, handleError(err)
		}
		return &timerOutput{Body: snap}, nil
	})
}

func registerTimer(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "start-timer",
		Method:      http.MethodPost,
		Path:        "/timer/start",
		Summary:     "Start a focus session",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body *TimerStartRequest `json:"body,omitempty"`
	}) (*timerOutput, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		opts := engine.TimerStartOptions{UserID: userID}
		if b := input.Body; b != nil {
			opts.TaskID = b.TaskID
			opts.Mode = domain.TimerMode(b.Mode)
			opts.CustomSeconds = b.CustomSeconds
		}
		snap, err := e.StartTimer(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &timerOutput{Body: snap}, nil
	})

	timerAction(api, "pause-timer", "/timer/pause", "Pause the running session", func(_ context.Context, userID string) (timer.Snapshot, error) {
		return e.PauseTimer(userID)
	})
	timerAction(api, "resume-timer", "/timer/resume", "Resume the paused session", func(_ context.Context, userID string) (timer.Snapshot, error) {
		return e.ResumeTimer(userID)
	})
	timerAction(api, "skip-timer", "/timer/skip", "Abandon the session", func(_ context.Context, userID string) (timer.Snapshot, error) {
		return e.SkipTimer(userID)
	})

	huma.Register(api, huma.Operation{
		OperationID: "complete-timer",
		Method:      http.MethodPost,
		Path:        "/timer/complete",
		Summary:     "Finish the session now",
		Errors:      []int{http.StatusUnauthorized, http.StatusConflict},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body domain.TimerSession `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		s, err := e.CompleteTimer(ctx, userID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.TimerSession `json:"body"`
		}{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "timer-status",
		Method:      http.MethodGet,
		Path:        "/timer",
		Summary:     "Current timer state",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*timerOutput, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		snap, err := e.TimerStatus(ctx, userID)
		if err != nil {
			return nil, handleError(err)
		}
		return &timerOutput{Body: snap}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-timer-sessions",
		Method:      http.MethodGet,
		Path:        "/timer/sessions",
		Summary:     "Recorded timer sessions, newest first",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body SessionItems `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.TimerSessions(ctx, userID)
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.TimerSession{}
		}
		return &struct {
			Body SessionItems `json:"body"`
		}{Body: SessionItems{Items: items}}, nil
	})
}

func registerViews(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "view-today",
		Method:      http.MethodGet,
		Path:        "/views/today",
		Summary:     "Today view",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body views.Today `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		v, err := e.Today(ctx, userID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body views.Today `json:"body"`
		}{Body: v}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "view-tasks",
		Method:      http.MethodGet,
		Path:        "/views/tasks",
		Summary:     "Task list view",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Status   string `query:"status" enum:"all,todo,completed"`
		Category string `query:"category"`
		Q        string `query:"q"`
		Fuzzy    bool   `query:"fuzzy"`
		Sort     string `query:"sort" enum:"date,priority,category"`
	}) (*struct {
		Body views.TaskList `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		v, err := e.TaskList(ctx, userID, views.TaskQuery{
			Status:   input.Status,
			Category: input.Category,
			Search:   input.Q,
			Fuzzy:    input.Fuzzy,
			Sort:     input.Sort,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body views.TaskList `json:"body"`
		}{Body: v}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "view-stats",
		Method:      http.MethodGet,
		Path:        "/views/stats",
		Summary:     "Stats view",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body views.Stats `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		v, err := e.Stats(ctx, userID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body views.Stats `json:"body"`
		}{Body: v}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "view-profile",
		Method:      http.MethodGet,
		Path:        "/views/profile",
		Summary:     "Profile view",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body views.Profile `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		v, err := e.Profile(ctx, userID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body views.Profile `json:"body"`
		}{Body: v}, nil
	})
}

func registerSettings(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-settings",
		Method:      http.MethodGet,
		Path:        "/settings",
		Summary:     "User settings",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body domain.Settings `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		s, err := e.GetSettings(ctx, userID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Settings `json:"body"`
		}{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "put-settings",
		Method:      http.MethodPut,
		Path:        "/settings",
		Summary:     "Replace user settings",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Body domain.Settings `json:"body"`
	}) (*struct {
		Body domain.Settings `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		s, err := e.UpdateSettings(ctx, userID, input.Body)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Settings `json:"body"`
		}{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "export",
		Method:      http.MethodGet,
		Path:        "/export",
		Summary:     "Download all tasks and timer sessions",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		ContentDisposition string                `header:"Content-Disposition"`
		Body               domain.ExportDocument `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		doc, err := e.Export(ctx, userID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			ContentDisposition string                `header:"Content-Disposition"`
			Body               domain.ExportDocument `json:"body"`
		}{
			ContentDisposition: `attachment; filename="` + domain.ExportFileName(doc.ExportDate) + `"`,
			Body:               doc,
		}, nil
	})
}
