package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"focusflow/internal/ai"
	"focusflow/internal/config"
	"focusflow/internal/domain"
	"focusflow/internal/events"
	"focusflow/internal/repo"
	"focusflow/internal/scoring"
	"focusflow/internal/state"
	"focusflow/internal/timer"
	"focusflow/internal/views"
)

var (
	ErrAINotConfigured  = errors.New("ai breakdown is not configured")
	ErrBreakdownFailed  = errors.New("ai breakdown failed")
	ErrCategorizeFailed = errors.New("ai categorize failed")
)

// ValidationError rejects input before anything is written.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func invalid(field, msg string) error {
	return ValidationError{Field: field, Message: msg}
}

// Assistant is the language-model client; ai.Client implements it.
type Assistant interface {
	Configured() bool
	Breakdown(ctx context.Context, req ai.BreakdownRequest) ai.Result
	Categorize(ctx context.Context, title string) (ai.Suggestion, bool)
}

type Engine struct {
	Store    repo.Store
	Events   *events.Bus
	Config   *config.Config
	AI       Assistant
	Timers   *timer.Registry
	Sessions *state.Sessions
	Now      func() time.Time
	// TickInterval drives started timers in the background; zero leaves
	// ticking to status reads.
	TickInterval time.Duration
	// Pick chooses the feedback message; nil is random.
	Pick func(n int) int
}

func New(store repo.Store, cfg *config.Config, assistant Assistant) Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	e := Engine{
		Store:    store,
		Events:   events.NewBus(),
		Config:   cfg,
		AI:       assistant,
		Timers:   timer.NewRegistry(store),
		Sessions: state.NewSessions(),
		Now:      time.Now,
	}
	e.Timers.OnComplete(e.timerCompleted)
	return e
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) publish(evtType, userID, entityID string, payload events.Payload) {
	e.Events.Publish(events.Event{Type: evtType, UserID: userID, EntityID: entityID, Payload: payload})
}

func (e Engine) session(userID string) *state.Store {
	if e.Sessions == nil {
		return state.New()
	}
	return e.Sessions.For(userID)
}

// Session returns the user's current reactive state.
func (e Engine) Session(userID string) state.State {
	st := e.session(userID).Get()
	if st.ActiveTimer == nil && e.Timers != nil {
		if snap := e.Timers.For(userID).Snapshot(); snap.Active() {
			st.ActiveTimer = &snap
		}
	}
	return st
}

// EnsureUser creates the profile on first sign-in and records it as the
// session user.
func (e Engine) EnsureUser(ctx context.Context, p domain.UserProfile) (domain.UserProfile, error) {
	if strings.TrimSpace(p.ID) == "" {
		return domain.UserProfile{}, invalid("id", "user id is required")
	}
	u, err := e.Store.EnsureUser(ctx, p)
	if err != nil {
		return domain.UserProfile{}, err
	}
	e.session(u.ID).Set(func(s *state.State) { s.User = &u })
	return u, nil
}

func (e Engine) Me(ctx context.Context, userID string) (domain.UserProfile, error) {
	return e.Store.EnsureUser(ctx, domain.UserProfile{ID: userID})
}

type TaskCreateOptions struct {
	UserID           string
	Title            string
	Description      string
	Category         domain.Category
	EstimatedMinutes *int
	Urgency          int
	Importance       int
	ScheduledDate    string
	Steps            []domain.Step
}

func validateScore(field string, v int) error {
	if v < 1 || v > 10 {
		return invalid(field, "must be between 1 and 10")
	}
	return nil
}

func validateDate(field, v string) error {
	if v == "" {
		return nil
	}
	if _, err := time.Parse("2006-01-02", v); err != nil {
		return invalid(field, "must be YYYY-MM-DD")
	}
	return nil
}

func validateEstimate(v *int) error {
	if v != nil && *v <= 0 {
		return invalid("estimatedMinutes", "must be positive")
	}
	return nil
}

func validateCategory(c domain.Category) error {
	if c != "" && !c.Valid() {
		return invalid("category", fmt.Sprintf("unknown category %q", c))
	}
	return nil
}

func (e Engine) CreateTask(ctx context.Context, opts TaskCreateOptions) (domain.Task, error) {
	title := strings.TrimSpace(opts.Title)
	if title == "" {
		return domain.Task{}, invalid("title", "title is required")
	}
	if opts.Urgency == 0 {
		opts.Urgency = scoring.DefaultScore
	}
	if opts.Importance == 0 {
		opts.Importance = scoring.DefaultScore
	}
	for _, err := range []error{
		validateScore("urgency", opts.Urgency),
		validateScore("importance", opts.Importance),
		validateCategory(opts.Category),
		validateEstimate(opts.EstimatedMinutes),
		validateDate("scheduledDate", opts.ScheduledDate),
	} {
		if err != nil {
			return domain.Task{}, err
		}
	}
	steps := make([]domain.Step, 0, len(opts.Steps))
	for i, s := range opts.Steps {
		if strings.TrimSpace(s.Text) == "" {
			return domain.Task{}, invalid("steps", fmt.Sprintf("step %d has no text", i))
		}
		if s.EstimatedMinutes <= 0 {
			s.EstimatedMinutes = ai.DefaultStepMinutes
		}
		s.ID = domain.StepID(i)
		steps = append(steps, s)
	}
	now := e.now().UTC()
	t := domain.Task{
		UserID:           opts.UserID,
		Title:            title,
		Description:      strings.TrimSpace(opts.Description),
		Category:         opts.Category,
		EstimatedMinutes: opts.EstimatedMinutes,
		Urgency:          opts.Urgency,
		Importance:       opts.Importance,
		Quadrant:         scoring.Quadrant(opts.Urgency, opts.Importance),
		Status:           domain.StatusTodo,
		ScheduledDate:    opts.ScheduledDate,
		Steps:            steps,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	created, err := e.Store.CreateTask(ctx, t)
	if err != nil {
		return domain.Task{}, err
	}
	e.publish(events.TasksUpdated, created.UserID, created.ID, events.Payload{"action": "created"})
	return created, nil
}

func (e Engine) GetTask(ctx context.Context, userID, id string) (domain.Task, error) {
	return e.Store.GetTask(ctx, userID, id)
}

func (e Engine) ListTasks(ctx context.Context, userID string, f repo.TaskFilter) ([]domain.Task, error) {
	return e.Store.ListTasks(ctx, userID, f)
}

// TaskUpdateOptions carries a partial edit; nil fields are left unchanged.
type TaskUpdateOptions struct {
	UserID           string
	ID               string
	Title            *string
	Description      *string
	Category         *domain.Category
	EstimatedMinutes *int
	ClearEstimate    bool
	Urgency          *int
	Importance       *int
	ScheduledDate    *string
}

func (e Engine) UpdateTask(ctx context.Context, opts TaskUpdateOptions) (domain.Task, error) {
	if opts.Title != nil && strings.TrimSpace(*opts.Title) == "" {
		return domain.Task{}, invalid("title", "title is required")
	}
	if opts.Urgency != nil {
		if err := validateScore("urgency", *opts.Urgency); err != nil {
			return domain.Task{}, err
		}
	}
	if opts.Importance != nil {
		if err := validateScore("importance", *opts.Importance); err != nil {
			return domain.Task{}, err
		}
	}
	if opts.Category != nil {
		if err := validateCategory(*opts.Category); err != nil {
			return domain.Task{}, err
		}
	}
	if err := validateEstimate(opts.EstimatedMinutes); err != nil {
		return domain.Task{}, err
	}
	if opts.ScheduledDate != nil {
		if err := validateDate("scheduledDate", *opts.ScheduledDate); err != nil {
			return domain.Task{}, err
		}
	}

	t, err := e.Store.GetTask(ctx, opts.UserID, opts.ID)
	if err != nil {
		return domain.Task{}, err
	}
	if opts.Title != nil {
		t.Title = strings.TrimSpace(*opts.Title)
	}
	if opts.Description != nil {
		t.Description = strings.TrimSpace(*opts.Description)
	}
	if opts.Category != nil {
		t.Category = *opts.Category
	}
	if opts.ClearEstimate {
		t.EstimatedMinutes = nil
	} else if opts.EstimatedMinutes != nil {
		v := *opts.EstimatedMinutes
		t.EstimatedMinutes = &v
	}
	if opts.Urgency != nil {
		t.Urgency = *opts.Urgency
	}
	if opts.Importance != nil {
		t.Importance = *opts.Importance
	}
	if opts.ScheduledDate != nil {
		t.ScheduledDate = *opts.ScheduledDate
	}
	return e.save(ctx, t, "updated")
}

// save recomputes the quadrant and overwrites the stored task.
func (e Engine) save(ctx context.Context, t domain.Task, action string) (domain.Task, error) {
	t.Quadrant = scoring.Quadrant(t.Urgency, t.Importance)
	t.UpdatedAt = e.now().UTC()
	if t.Steps == nil {
		t.Steps = []domain.Step{}
	}
	if err := e.Store.UpdateTask(ctx, t); err != nil {
		return domain.Task{}, err
	}
	e.publish(events.TasksUpdated, t.UserID, t.ID, events.Payload{"action": action})
	return t, nil
}

type ToggleResult struct {
	Task     domain.Task      `json:"task"`
	Stats    domain.UserStats `json:"stats"`
	Feedback string           `json:"feedback,omitempty"`
}

// ToggleComplete flips a task between todo and completed and keeps the
// user's stats in step.
func (e Engine) ToggleComplete(ctx context.Context, userID, id string) (ToggleResult, error) {
	t, err := e.Store.GetTask(ctx, userID, id)
	if err != nil {
		return ToggleResult{}, err
	}
	completing := !t.Completed()
	if completing {
		now := e.now().UTC()
		t.Status = domain.StatusCompleted
		t.CompletedAt = &now
	} else {
		t.Status = domain.StatusTodo
		t.CompletedAt = nil
	}
	action := "reopened"
	if completing {
		action = "completed"
	}
	t, err = e.save(ctx, t, action)
	if err != nil {
		return ToggleResult{}, err
	}
	stats, err := e.applyCompletion(ctx, t, completing)
	if err != nil {
		return ToggleResult{}, err
	}
	res := ToggleResult{Task: t, Stats: stats}
	if completing {
		res.Feedback = views.PositiveFeedback(e.Pick)
		e.publish(events.TaskCompleted, userID, t.ID, events.Payload{"xp": scoring.XPForTask(t)})
	}
	return res, nil
}

// ToggleStep flips one step. Completing the last open step does not
// complete the task.
func (e Engine) ToggleStep(ctx context.Context, userID, id, stepID string) (domain.Task, error) {
	t, err := e.Store.GetTask(ctx, userID, id)
	if err != nil {
		return domain.Task{}, err
	}
	found := false
	for i := range t.Steps {
		if t.Steps[i].ID == stepID {
			t.Steps[i].Completed = !t.Steps[i].Completed
			found = true
			break
		}
	}
	if !found {
		return domain.Task{}, fmt.Errorf("step %s: %w", stepID, repo.ErrNotFound)
	}
	return e.save(ctx, t, "step-toggled")
}

// Reschedule moves a task to date (YYYY-MM-DD) and counts the move.
func (e Engine) Reschedule(ctx context.Context, userID, id, date string) (domain.Task, error) {
	if strings.TrimSpace(date) == "" {
		return domain.Task{}, invalid("date", "date is required")
	}
	if err := validateDate("date", date); err != nil {
		return domain.Task{}, err
	}
	t, err := e.Store.GetTask(ctx, userID, id)
	if err != nil {
		return domain.Task{}, err
	}
	t.ScheduledDate = date
	t.RescheduleCount++
	return e.save(ctx, t, "rescheduled")
}

func (e Engine) DeleteTask(ctx context.Context, userID, id string) error {
	if err := e.Store.DeleteTask(ctx, userID, id); err != nil {
		return err
	}
	e.publish(events.TasksUpdated, userID, id, events.Payload{"action": "deleted"})
	return nil
}

type BreakdownResult struct {
	Task    domain.Task `json:"task"`
	Outcome ai.Outcome  `json:"outcome" enum:"structured,fallback"`
}

func (e Engine) aiConfigured() bool {
	return e.AI != nil && e.AI.Configured()
}

// BreakdownTask replaces the task's steps with a model-generated list,
// styled by the user's latest mood check-in.
func (e Engine) BreakdownTask(ctx context.Context, userID, id string) (BreakdownResult, error) {
	if !e.aiConfigured() {
		return BreakdownResult{}, ErrAINotConfigured
	}
	t, err := e.Store.GetTask(ctx, userID, id)
	if err != nil {
		return BreakdownResult{}, err
	}
	mood := domain.DefaultMoodScore
	if moods, err := e.Store.RecentMoods(ctx, userID, 1); err == nil && len(moods) > 0 {
		mood = moods[0].Value
	}

	sess := e.session(userID)
	sess.Set(func(s *state.State) { s.IsLoading = true })
	res := e.AI.Breakdown(ctx, ai.BreakdownRequest{Title: t.Title, EstimatedMinutes: t.EstimatedMinutes, MoodScore: mood})
	sess.Set(func(s *state.State) { s.IsLoading = false })

	if !res.OK() {
		if errors.Is(res.Err, ai.ErrNotConfigured) {
			return BreakdownResult{}, ErrAINotConfigured
		}
		return BreakdownResult{}, fmt.Errorf("%w: %v", ErrBreakdownFailed, res.Err)
	}
	t.Steps = res.Steps
	t, err = e.save(ctx, t, "broken-down")
	if err != nil {
		return BreakdownResult{}, err
	}
	return BreakdownResult{Task: t, Outcome: res.Outcome}, nil
}

func (e Engine) Categorize(ctx context.Context, title string) (ai.Suggestion, error) {
	if strings.TrimSpace(title) == "" {
		return ai.Suggestion{}, invalid("title", "title is required")
	}
	if !e.aiConfigured() {
		return ai.Suggestion{}, ErrAINotConfigured
	}
	s, ok := e.AI.Categorize(ctx, title)
	if !ok {
		return ai.Suggestion{}, ErrCategorizeFailed
	}
	return s, nil
}

func (e Engine) AddMood(ctx context.Context, userID string, mood domain.Mood, note string) (domain.MoodCheckIn, error) {
	if !mood.Valid() {
		return domain.MoodCheckIn{}, invalid("mood", fmt.Sprintf("unknown mood %q", mood))
	}
	m, err := e.Store.AddMood(ctx, domain.MoodCheckIn{
		UserID:    userID,
		Mood:      mood,
		Value:     mood.Value(),
		Note:      strings.TrimSpace(note),
		Timestamp: e.now().UTC(),
	})
	if err != nil {
		return domain.MoodCheckIn{}, err
	}
	e.publish(events.MoodCheckedIn, userID, m.ID, events.Payload{"mood": string(m.Mood), "value": m.Value})
	return m, nil
}

func (e Engine) RecentMoods(ctx context.Context, userID string, limit int) ([]domain.MoodCheckIn, error) {
	if limit < 0 {
		return nil, invalid("limit", "must not be negative")
	}
	return e.Store.RecentMoods(ctx, userID, limit)
}

func (e Engine) defaultSettings() domain.Settings {
	if e.Config == nil {
		return config.Default().DefaultSettings()
	}
	return e.Config.DefaultSettings()
}

// GetSettings returns the stored settings or the configured defaults.
func (e Engine) GetSettings(ctx context.Context, userID string) (domain.Settings, error) {
	s, err := e.Store.GetSettings(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return e.defaultSettings(), nil
	}
	return s, err
}

func (e Engine) UpdateSettings(ctx context.Context, userID string, s domain.Settings) (domain.Settings, error) {
	for field, v := range map[string]int{
		"timerPomodoro":   s.TimerPomodoro,
		"timerShortBreak": s.TimerShortBreak,
		"timerLongBreak":  s.TimerLongBreak,
	} {
		if v <= 0 {
			return domain.Settings{}, invalid(field, "must be positive")
		}
	}
	if err := e.Store.SaveSettings(ctx, userID, s); err != nil {
		return domain.Settings{}, err
	}
	return s, nil
}

// Export gathers the user's tasks and timer sessions into one document.
func (e Engine) Export(ctx context.Context, userID string) (domain.ExportDocument, error) {
	u, err := e.Me(ctx, userID)
	if err != nil {
		return domain.ExportDocument{}, err
	}
	tasks, err := e.Store.ListTasks(ctx, userID, repo.TaskFilter{})
	if err != nil {
		return domain.ExportDocument{}, err
	}
	sessions, err := e.Store.ListTimerSessions(ctx, userID)
	if err != nil {
		return domain.ExportDocument{}, err
	}
	if sessions == nil {
		sessions = []domain.TimerSession{}
	}
	return domain.ExportDocument{
		ExportDate:    e.now().UTC(),
		User:          domain.ExportUser{Email: u.Email, DisplayName: u.DisplayName},
		Tasks:         tasks,
		TimerSessions: sessions,
	}, nil
}
