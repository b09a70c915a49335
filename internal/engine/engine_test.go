package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"focusflow/internal/ai"
	"focusflow/internal/config"
	"focusflow/internal/db"
	"focusflow/internal/domain"
	"focusflow/internal/events"
	"focusflow/internal/migrate"
	"focusflow/internal/repo"
	"focusflow/internal/state"
	"focusflow/internal/timer"
)

type fakeAssistant struct {
	configured bool
	result     ai.Result
	suggestion ai.Suggestion
	ok         bool
	requests   []ai.BreakdownRequest
}

func (f *fakeAssistant) Configured() bool { return f.configured }

func (f *fakeAssistant) Breakdown(_ context.Context, req ai.BreakdownRequest) ai.Result {
	f.requests = append(f.requests, req)
	return f.result
}

func (f *fakeAssistant) Categorize(context.Context, string) (ai.Suggestion, bool) {
	return f.suggestion, f.ok
}

type testEnv struct {
	eng   Engine
	ai    *fakeAssistant
	clock *time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if _, err := migrate.Migrate(context.Background(), conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	clock := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	assistant := &fakeAssistant{configured: true}
	env := &testEnv{ai: assistant, clock: &clock}
	env.eng = New(repo.NewSQLite(conn), config.Default(), assistant)
	env.eng.Now = func() time.Time { return *env.clock }
	env.eng.Timers.Now = env.eng.Now
	env.eng.Pick = func(int) int { return 0 }
	return env
}

func (env *testEnv) advance(d time.Duration) { *env.clock = env.clock.Add(d) }

func TestCreateTaskDefaultsAndValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	task, err := env.eng.CreateTask(ctx, TaskCreateOptions{UserID: "u1", Title: "  Write report  "})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.Title != "Write report" || task.Urgency != 5 || task.Importance != 5 || task.Quadrant != 1 || task.Status != domain.StatusTodo {
		t.Fatalf("unexpected defaults: %+v", task)
	}

	zero := 0
	cases := []TaskCreateOptions{
		{UserID: "u1", Title: "   "},
		{UserID: "u1", Title: "x", Urgency: 11},
		{UserID: "u1", Title: "x", Importance: -1},
		{UserID: "u1", Title: "x", Category: "chores"},
		{UserID: "u1", Title: "x", EstimatedMinutes: &zero},
		{UserID: "u1", Title: "x", ScheduledDate: "06/10/2024"},
	}
	for i, opts := range cases {
		_, err := env.eng.CreateTask(ctx, opts)
		var verr ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
	tasks, _ := env.eng.ListTasks(ctx, "u1", repo.TaskFilter{})
	if len(tasks) != 1 {
		t.Fatalf("invalid input must not be stored, got %d tasks", len(tasks))
	}
}

func TestCreateTaskQuadrantAndSteps(t *testing.T) {
	env := newTestEnv(t)
	task, err := env.eng.CreateTask(context.Background(), TaskCreateOptions{
		UserID: "u1", Title: "Tidy desk", Urgency: 3, Importance: 8,
		Steps: []domain.Step{{Text: "Clear papers"}, {Text: "Wipe", EstimatedMinutes: 5}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.Quadrant != 2 {
		t.Fatalf("quadrant=%d want 2", task.Quadrant)
	}
	if task.Steps[0].ID != "step-0" || task.Steps[0].EstimatedMinutes != ai.DefaultStepMinutes || task.Steps[1].ID != "step-1" {
		t.Fatalf("unexpected steps: %+v", task.Steps)
	}
}

func TestUpdateTaskRecomputesQuadrant(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	task, _ := env.eng.CreateTask(ctx, TaskCreateOptions{UserID: "u1", Title: "Call bank", Urgency: 8, Importance: 8})
	low := 2
	updated, err := env.eng.UpdateTask(ctx, TaskUpdateOptions{UserID: "u1", ID: task.ID, Urgency: &low, Importance: &low})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Quadrant != 4 {
		t.Fatalf("quadrant=%d want 4", updated.Quadrant)
	}
	if _, err := env.eng.UpdateTask(ctx, TaskUpdateOptions{UserID: "u2", ID: task.ID, Urgency: &low}); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected other user to get not found, got %v", err)
	}
}

func TestToggleCompleteMaintainsStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	var seen []string
	env.eng.Events.Subscribe(func(e events.Event) { seen = append(seen, e.Type) })

	task, _ := env.eng.CreateTask(ctx, TaskCreateOptions{UserID: "u1", Title: "Run", Urgency: 6, Importance: 7})
	res, err := env.eng.ToggleComplete(ctx, "u1", task.ID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !res.Task.Completed() || res.Task.CompletedAt == nil || res.Feedback == "" {
		t.Fatalf("unexpected completion: %+v", res)
	}
	if res.Stats.TotalTasksCompleted != 1 || res.Stats.XP != 23 || res.Stats.CurrentStreak != 1 || res.Stats.LongestStreak != 1 {
		t.Fatalf("unexpected stats: %+v", res.Stats)
	}
	if st := env.eng.Session("u1"); st.User == nil || st.User.Stats.XP != 23 {
		t.Fatalf("session user not refreshed: %+v", st.User)
	}

	res, err = env.eng.ToggleComplete(ctx, "u1", task.ID)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if res.Task.Completed() || res.Task.CompletedAt != nil || res.Feedback != "" {
		t.Fatalf("unexpected reopen: %+v", res)
	}
	if res.Stats.TotalTasksCompleted != 0 || res.Stats.XP != 0 || res.Stats.CurrentStreak != 0 || res.Stats.LongestStreak != 1 {
		t.Fatalf("unexpected stats after reopen: %+v", res.Stats)
	}

	want := []string{events.TasksUpdated, events.TasksUpdated, events.TaskCompleted, events.TasksUpdated}
	if len(seen) != len(want) {
		t.Fatalf("events=%v want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("events=%v want %v", seen, want)
		}
	}
}

func TestToggleStepAndReschedule(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	task, _ := env.eng.CreateTask(ctx, TaskCreateOptions{UserID: "u1", Title: "Essay", Steps: []domain.Step{{Text: "Draft"}}})

	toggled, err := env.eng.ToggleStep(ctx, "u1", task.ID, "step-0")
	if err != nil {
		t.Fatalf("toggle step: %v", err)
	}
	if !toggled.Steps[0].Completed || toggled.Completed() {
		t.Fatalf("last step must not complete the task: %+v", toggled)
	}
	if _, err := env.eng.ToggleStep(ctx, "u1", task.ID, "step-9"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected missing step, got %v", err)
	}

	moved, err := env.eng.Reschedule(ctx, "u1", task.ID, "2024-06-11")
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	moved, _ = env.eng.Reschedule(ctx, "u1", task.ID, "2024-06-12")
	if moved.ScheduledDate != "2024-06-12" || moved.RescheduleCount != 2 {
		t.Fatalf("unexpected reschedule: %+v", moved)
	}
	if _, err := env.eng.Reschedule(ctx, "u1", task.ID, "tomorrow"); err == nil {
		t.Fatalf("expected invalid date to fail")
	}
}

func TestBreakdownUsesLatestMood(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	task, _ := env.eng.CreateTask(ctx, TaskCreateOptions{UserID: "u1", Title: "Clean kitchen"})

	env.ai.result = ai.Result{Outcome: ai.Structured, Steps: []domain.Step{{ID: "step-0", Text: "Dishes", EstimatedMinutes: 10}}}
	res, err := env.eng.BreakdownTask(ctx, "u1", task.ID)
	if err != nil {
		t.Fatalf("breakdown: %v", err)
	}
	if env.ai.requests[0].MoodScore != domain.DefaultMoodScore {
		t.Fatalf("mood=%d want default", env.ai.requests[0].MoodScore)
	}
	if len(res.Task.Steps) != 1 || res.Task.Steps[0].Text != "Dishes" {
		t.Fatalf("steps not replaced: %+v", res.Task.Steps)
	}
	if env.eng.Session("u1").IsLoading {
		t.Fatalf("loading flag left on")
	}

	if _, err := env.eng.AddMood(ctx, "u1", domain.MoodStressed, ""); err != nil {
		t.Fatalf("add mood: %v", err)
	}
	if _, err := env.eng.BreakdownTask(ctx, "u1", task.ID); err != nil {
		t.Fatalf("second breakdown: %v", err)
	}
	if env.ai.requests[1].MoodScore != 1 {
		t.Fatalf("mood=%d want 1", env.ai.requests[1].MoodScore)
	}

	env.ai.result = ai.Result{Outcome: ai.Failed, Err: errors.New("boom")}
	if _, err := env.eng.BreakdownTask(ctx, "u1", task.ID); !errors.Is(err, ErrBreakdownFailed) {
		t.Fatalf("expected breakdown failure, got %v", err)
	}
	kept, _ := env.eng.GetTask(ctx, "u1", task.ID)
	if len(kept.Steps) != 1 {
		t.Fatalf("failed breakdown must keep steps: %+v", kept.Steps)
	}

	env.ai.configured = false
	if _, err := env.eng.BreakdownTask(ctx, "u1", task.ID); !errors.Is(err, ErrAINotConfigured) {
		t.Fatalf("expected not configured, got %v", err)
	}
}

func TestCategorize(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.ai.suggestion = ai.Suggestion{Category: domain.CategoryHealth, Urgency: 4, Importance: 9}
	env.ai.ok = true
	s, err := env.eng.Categorize(ctx, "Book dentist")
	if err != nil || s.Category != domain.CategoryHealth {
		t.Fatalf("categorize: %v %+v", err, s)
	}
	env.ai.ok = false
	if _, err := env.eng.Categorize(ctx, "Book dentist"); !errors.Is(err, ErrCategorizeFailed) {
		t.Fatalf("expected failure, got %v", err)
	}
}

func TestMoodValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if _, err := env.eng.AddMood(ctx, "u1", "ecstatic", ""); err == nil {
		t.Fatalf("expected unknown mood to fail")
	}
	m, err := env.eng.AddMood(ctx, "u1", domain.MoodGood, " fine ")
	if err != nil || m.Value != 4 || m.Note != "fine" {
		t.Fatalf("add mood: %v %+v", err, m)
	}
}

func TestTimerCompletionCreditsFocusTime(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	task, _ := env.eng.CreateTask(ctx, TaskCreateOptions{UserID: "u1", Title: "Read"})

	snap, err := env.eng.StartTimer(ctx, TimerStartOptions{UserID: "u1", TaskID: task.ID, Mode: domain.ModeShortBreak})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if snap.PlannedDuration != 300 || snap.TaskTitle != "Read" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if st := env.eng.Session("u1"); st.ActiveTimer == nil {
		t.Fatalf("expected active timer in session")
	}
	if _, err := env.eng.StartTimer(ctx, TimerStartOptions{UserID: "u1"}); !errors.Is(err, timer.ErrSessionActive) {
		t.Fatalf("expected active session error, got %v", err)
	}

	env.advance(301 * time.Second)
	snap, err = env.eng.TimerStatus(ctx, "u1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if snap.Status != timer.StatusCompleted {
		t.Fatalf("status=%s want completed", snap.Status)
	}
	if st := env.eng.Session("u1"); st.ActiveTimer != nil {
		t.Fatalf("expected no active timer, got %+v", st.ActiveTimer)
	}
	u, _ := env.eng.Me(ctx, "u1")
	if u.Stats.TotalFocusTime != 301 {
		t.Fatalf("focus=%d want 301", u.Stats.TotalFocusTime)
	}
	sessions, _ := env.eng.TimerSessions(ctx, "u1")
	if len(sessions) != 1 || !sessions[0].Completed {
		t.Fatalf("unexpected sessions: %+v", sessions)
	}
}

func TestSkipDoesNotCredit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if _, err := env.eng.StartTimer(ctx, TimerStartOptions{UserID: "u1", Mode: domain.ModePomodoro}); err != nil {
		t.Fatalf("start: %v", err)
	}
	env.advance(time.Minute)
	if _, err := env.eng.PauseTimer("u1"); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if _, err := env.eng.SkipTimer("u1"); err != nil {
		t.Fatalf("skip: %v", err)
	}
	u, _ := env.eng.Me(ctx, "u1")
	if u.Stats.TotalFocusTime != 0 {
		t.Fatalf("skip must not credit focus time: %+v", u.Stats)
	}
	sessions, _ := env.eng.TimerSessions(ctx, "u1")
	if len(sessions) != 1 || sessions[0].Completed {
		t.Fatalf("unexpected sessions: %+v", sessions)
	}
}

func TestStaleTickDoesNotRestoreSkippedTimer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	snap, err := env.eng.StartTimer(ctx, TimerStartOptions{UserID: "u1", Mode: domain.ModePomodoro})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := env.eng.SkipTimer("u1"); err != nil {
		t.Fatalf("skip: %v", err)
	}
	env.eng.refreshTimer("u1", env.eng.Timers.For("u1"), snap.SessionID)
	if st := env.eng.Session("u1"); st.ActiveTimer != nil {
		t.Fatalf("skipped timer came back: %+v", st.ActiveTimer)
	}
}

func TestDriveStopsWhenSessionReplaced(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	first, err := env.eng.StartTimer(ctx, TimerStartOptions{UserID: "u1", Mode: domain.ModePomodoro})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := env.eng.SkipTimer("u1"); err != nil {
		t.Fatalf("skip: %v", err)
	}
	second, err := env.eng.StartTimer(ctx, TimerStartOptions{UserID: "u1", Mode: domain.ModeShortBreak})
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if second.SessionID == first.SessionID {
		t.Fatalf("expected a new session id")
	}

	ticking := env.eng
	ticking.TickInterval = time.Millisecond
	done := make(chan struct{})
	go func() {
		ticking.drive("u1", ticking.Timers.For("u1"), first.SessionID)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("drive for a replaced session did not stop")
	}
	st := env.eng.Session("u1")
	if st.ActiveTimer == nil || st.ActiveTimer.SessionID != second.SessionID {
		t.Fatalf("active timer should be the new session: %+v", st.ActiveTimer)
	}
}

func TestViewsTrackCurrentView(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if _, err := env.eng.CreateTask(ctx, TaskCreateOptions{UserID: "u1", Title: "Today thing", ScheduledDate: "2024-06-10"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	today, err := env.eng.Today(ctx, "u1")
	if err != nil || today.Scheduled != 1 {
		t.Fatalf("today: %v %+v", err, today)
	}
	if _, err := env.eng.Stats(ctx, "u1"); err != nil {
		t.Fatalf("stats: %v", err)
	}
	if v := env.eng.Session("u1").CurrentView; v != state.ViewStats {
		t.Fatalf("view=%s want stats", v)
	}
	prof, err := env.eng.Profile(ctx, "u1")
	if err != nil || prof.TotalTasks != 1 || prof.Settings.TimerPomodoro != 25 {
		t.Fatalf("profile: %v %+v", err, prof)
	}
}

func TestSettingsAndExport(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	s, err := env.eng.GetSettings(ctx, "u1")
	if err != nil || s.TimerPomodoro != 25 {
		t.Fatalf("default settings: %v %+v", err, s)
	}
	s.TimerPomodoro = 0
	if _, err := env.eng.UpdateSettings(ctx, "u1", s); err == nil {
		t.Fatalf("expected zero duration to fail")
	}
	s.TimerPomodoro = 40
	if _, err := env.eng.UpdateSettings(ctx, "u1", s); err != nil {
		t.Fatalf("update settings: %v", err)
	}
	got, _ := env.eng.GetSettings(ctx, "u1")
	if got.TimerPomodoro != 40 {
		t.Fatalf("settings not saved: %+v", got)
	}

	if _, err := env.eng.EnsureUser(ctx, domain.UserProfile{ID: "u1", Email: "a@b.c", DisplayName: "Ana"}); err != nil {
		t.Fatalf("ensure user: %v", err)
	}
	env.eng.CreateTask(ctx, TaskCreateOptions{UserID: "u1", Title: "Export me"})
	doc, err := env.eng.Export(ctx, "u1")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if doc.User.Email != "a@b.c" || len(doc.Tasks) != 1 || doc.TimerSessions == nil || !doc.ExportDate.Equal(*env.clock) {
		t.Fatalf("unexpected export: %+v", doc)
	}
}
