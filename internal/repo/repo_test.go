package repo

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"focusflow/internal/db"
	"focusflow/internal/domain"
	"focusflow/internal/migrate"
)

func newSQLiteStore(t *testing.T) *SQLite {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if _, err := migrate.Migrate(context.Background(), conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return NewSQLite(conn)
}

func TestSQLiteStore(t *testing.T) {
	exerciseStore(t, newSQLiteStore(t))
}

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("FOCUSFLOW_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("FOCUSFLOW_TEST_MONGO_URI not set")
	}
	ctx := context.Background()
	s, err := OpenMongo(ctx, uri, "focusflow_test_"+time.Now().Format("20060102150405"))
	if err != nil {
		t.Fatalf("open mongo: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Drop(context.Background())
		_ = s.Close()
	})
	exerciseStore(t, s)
}

func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	est := 30

	first, err := s.CreateTask(ctx, domain.Task{
		UserID: "u1", Title: "Write report", Category: domain.CategoryWork, EstimatedMinutes: &est,
		Urgency: 7, Importance: 8, Quadrant: 1, ScheduledDate: "2024-05-01", CreatedAt: base,
		Steps: []domain.Step{{ID: "step-0", Text: "Outline", EstimatedMinutes: 10}},
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if first.ID == "" || first.Status != domain.StatusTodo || first.RescheduleCount != 0 {
		t.Fatalf("unexpected created task: %+v", first)
	}
	second, err := s.CreateTask(ctx, domain.Task{UserID: "u1", Title: "Laundry", Category: domain.CategoryHousehold, Urgency: 5, Importance: 5, Quadrant: 1, CreatedAt: base.Add(time.Hour)})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if _, err := s.CreateTask(ctx, domain.Task{UserID: "u2", Title: "Other user", Urgency: 5, Importance: 5, Quadrant: 1, CreatedAt: base}); err != nil {
		t.Fatalf("create foreign: %v", err)
	}

	got, err := s.GetTask(ctx, "u1", first.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.Title != "Write report" || got.EstimatedMinutes == nil || *got.EstimatedMinutes != 30 || len(got.Steps) != 1 || got.Steps[0].Text != "Outline" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if !got.CreatedAt.Equal(base) {
		t.Fatalf("createdAt=%v want %v", got.CreatedAt, base)
	}
	if _, err := s.GetTask(ctx, "u2", first.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected cross-user lookup to be not found, got %v", err)
	}

	all, err := s.ListTasks(ctx, "u1", TaskFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 || all[0].ID != second.ID {
		t.Fatalf("expected newest first for u1, got %+v", all)
	}
	work, err := s.ListTasks(ctx, "u1", TaskFilter{Category: domain.CategoryWork, ScheduledDate: "2024-05-01"})
	if err != nil || len(work) != 1 || work[0].ID != first.ID {
		t.Fatalf("filtered list: %v %+v", err, work)
	}

	doneAt := base.Add(2 * time.Hour)
	got.Status = domain.StatusCompleted
	got.CompletedAt = &doneAt
	got.Steps[0].Completed = true
	got.UpdatedAt = doneAt
	if err := s.UpdateTask(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	completed, err := s.ListTasks(ctx, "u1", TaskFilter{Status: domain.StatusCompleted})
	if err != nil || len(completed) != 1 || completed[0].CompletedAt == nil || !completed[0].Steps[0].Completed {
		t.Fatalf("completed list: %v %+v", err, completed)
	}
	foreign := got
	foreign.UserID = "u2"
	if err := s.UpdateTask(ctx, foreign); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected foreign update to fail, got %v", err)
	}

	if err := s.DeleteTask(ctx, "u1", second.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteTask(ctx, "u1", second.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected second delete not found, got %v", err)
	}

	user, err := s.EnsureUser(ctx, domain.UserProfile{ID: "u1", DisplayName: "Kim", IsAnonymous: true})
	if err != nil {
		t.Fatalf("ensure user: %v", err)
	}
	if user.Stats.Level != 1 || user.DisplayName != "Kim" {
		t.Fatalf("unexpected user: %+v", user)
	}
	if err := s.UpdateUserStats(ctx, "u1", domain.UserStats{TotalTasksCompleted: 1, XP: 33, Level: 1, CurrentStreak: 1, LongestStreak: 1}); err != nil {
		t.Fatalf("update stats: %v", err)
	}
	again, err := s.EnsureUser(ctx, domain.UserProfile{ID: "u1", DisplayName: "changed"})
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if again.Stats.XP != 33 || again.DisplayName != "Kim" {
		t.Fatalf("ensure must not overwrite: %+v", again)
	}
	if _, err := s.GetUser(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected missing user, got %v", err)
	}

	sess, err := s.CreateTimerSession(ctx, domain.TimerSession{TaskID: first.ID, UserID: "u1", Mode: domain.ModePomodoro, PlannedDuration: 1500, StartedAt: base})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if sess.Completed || sess.Interruptions != 0 {
		t.Fatalf("unexpected new session: %+v", sess)
	}
	fin, err := s.CompleteTimerSession(ctx, "u1", sess.ID, SessionCompletion{ActualDuration: 600, Interruptions: 2, EndedAt: base.Add(10 * time.Minute)})
	if err != nil {
		t.Fatalf("complete session: %v", err)
	}
	if !fin.Completed || fin.ActualDuration == nil || *fin.ActualDuration != 600 || fin.Interruptions != 2 || fin.EndedAt == nil {
		t.Fatalf("unexpected finished session: %+v", fin)
	}
	if _, err := s.CompleteTimerSession(ctx, "u1", sess.ID, SessionCompletion{ActualDuration: 1, EndedAt: base}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected second completion to fail, got %v", err)
	}
	sessions, err := s.ListTimerSessions(ctx, "u1")
	if err != nil || len(sessions) != 1 {
		t.Fatalf("list sessions: %v %+v", err, sessions)
	}

	for i := 0; i < 9; i++ {
		if _, err := s.AddMood(ctx, domain.MoodCheckIn{UserID: "u1", Mood: domain.MoodGood, Value: 4, Timestamp: base.Add(time.Duration(i) * time.Minute)}); err != nil {
			t.Fatalf("add mood: %v", err)
		}
	}
	moods, err := s.RecentMoods(ctx, "u1", 0)
	if err != nil {
		t.Fatalf("recent moods: %v", err)
	}
	if len(moods) != DefaultMoodLimit || !moods[0].Timestamp.Equal(base.Add(8*time.Minute)) {
		t.Fatalf("unexpected moods: %+v", moods)
	}

	if _, err := s.GetSettings(ctx, "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected no settings yet, got %v", err)
	}
	want := domain.Settings{Notifications: true, DarkMode: true, TimerPomodoro: 30, TimerShortBreak: 5, TimerLongBreak: 20}
	if err := s.SaveSettings(ctx, "u1", want); err != nil {
		t.Fatalf("save settings: %v", err)
	}
	if err := s.SaveSettings(ctx, "u1", want); err != nil {
		t.Fatalf("save settings twice: %v", err)
	}
	settings, err := s.GetSettings(ctx, "u1")
	if err != nil || settings != want {
		t.Fatalf("settings round trip: %v %+v", err, settings)
	}
}

func TestFilterTasksOrdersNewestFirst(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tasks := []domain.Task{
		{ID: "a", CreatedAt: base, Status: domain.StatusTodo},
		{ID: "b", CreatedAt: base.Add(time.Minute), Status: domain.StatusCompleted},
		{ID: "c", CreatedAt: base.Add(2 * time.Minute), Status: domain.StatusTodo},
	}
	res := FilterTasks(tasks, TaskFilter{Status: domain.StatusTodo})
	if len(res) != 2 || res[0].ID != "c" || res[1].ID != "a" {
		t.Fatalf("unexpected filter result: %+v", res)
	}
}
