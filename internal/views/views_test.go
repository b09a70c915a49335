package views

import (
	"testing"
	"time"

	"focusflow/internal/domain"
)

var now = time.Date(2024, 6, 10, 15, 0, 0, 0, time.UTC)

func completedAt(daysAgo int) *time.Time {
	t := now.AddDate(0, 0, -daysAgo)
	return &t
}

func TestBuildToday(t *testing.T) {
	tasks := []domain.Task{
		{ID: "low", Status: domain.StatusTodo, Urgency: 2, Importance: 3},
		{ID: "high", Status: domain.StatusTodo, Urgency: 9, Importance: 9, ScheduledDate: "2024-06-10"},
		{ID: "default", Status: domain.StatusTodo},
		{ID: "tomorrow", Status: domain.StatusTodo, Urgency: 10, Importance: 10, ScheduledDate: "2024-06-11"},
		{ID: "done-today", Status: domain.StatusCompleted, ScheduledDate: "2024-06-10", CompletedAt: completedAt(0)},
	}
	view := BuildToday(tasks, now)
	if view.Date != "2024-06-10" {
		t.Fatalf("date=%s", view.Date)
	}
	want := []string{"high", "default", "low"}
	if len(view.Tasks) != len(want) {
		t.Fatalf("got %d tasks, want %d", len(view.Tasks), len(want))
	}
	for i, id := range want {
		if view.Tasks[i].ID != id {
			t.Fatalf("position %d = %s, want %s", i, view.Tasks[i].ID, id)
		}
	}
	if view.Scheduled != 2 || view.Completed != 1 || view.Progress != 50 {
		t.Fatalf("unexpected progress: %+v", view)
	}
}

func TestBuildTaskListFiltersAndSorts(t *testing.T) {
	base := now.Add(-time.Hour)
	tasks := []domain.Task{
		{ID: "a", Title: "Buy groceries", Category: domain.CategoryHousehold, Status: domain.StatusTodo, Urgency: 3, Importance: 3, CreatedAt: base},
		{ID: "b", Title: "Quarterly report", Description: "finance numbers", Category: domain.CategoryWork, Status: domain.StatusTodo, Urgency: 9, Importance: 8, CreatedAt: base.Add(time.Minute)},
		{ID: "c", Title: "Run", Status: domain.StatusCompleted, CreatedAt: base.Add(2 * time.Minute)},
	}

	all := BuildTaskList(tasks, TaskQuery{})
	if all.Total != 3 || all.Todo != 2 || all.Completed != 1 {
		t.Fatalf("unexpected counters: %+v", all)
	}
	if all.Tasks[0].ID != "c" || all.Tasks[2].ID != "a" {
		t.Fatalf("default sort should be newest first: %v", ids(all.Tasks))
	}

	prio := BuildTaskList(tasks, TaskQuery{Status: "todo", Sort: SortPriority})
	if got := ids(prio.Tasks); len(got) != 2 || got[0] != "b" {
		t.Fatalf("priority sort got %v", got)
	}
	if prio.Tasks[0].Priority != "high" {
		t.Fatalf("priority label=%s", prio.Tasks[0].Priority)
	}

	cat := BuildTaskList(tasks, TaskQuery{Sort: SortCategory})
	if got := ids(cat.Tasks); got[0] != "a" || got[1] != "c" || got[2] != "b" {
		t.Fatalf("category sort got %v", got)
	}

	search := BuildTaskList(tasks, TaskQuery{Search: "FINANCE"})
	if got := ids(search.Tasks); len(got) != 1 || got[0] != "b" {
		t.Fatalf("substring search got %v", got)
	}

	fz := BuildTaskList(tasks, TaskQuery{Search: "qrtrly", Fuzzy: true})
	if got := ids(fz.Tasks); len(got) != 1 || got[0] != "b" {
		t.Fatalf("fuzzy search got %v", got)
	}

	byCat := BuildTaskList(tasks, TaskQuery{Category: "work", Status: "all"})
	if got := ids(byCat.Tasks); len(got) != 1 || got[0] != "b" {
		t.Fatalf("category filter got %v", got)
	}
}

func ids(cards []TaskCard) []string {
	out := make([]string, 0, len(cards))
	for _, c := range cards {
		out = append(out, c.ID)
	}
	return out
}

func TestBuildStats(t *testing.T) {
	var tasks []domain.Task
	for _, d := range []int{0, 0, 0, 1, 3, 4, 5, 40} {
		tasks = append(tasks, domain.Task{Status: domain.StatusCompleted, CompletedAt: completedAt(d)})
	}
	tasks = append(tasks,
		domain.Task{Status: domain.StatusTodo, Quadrant: 2},
		domain.Task{Status: domain.StatusTodo, Urgency: 1, Importance: 1},
	)
	sixty := 3600
	skipped := 120
	sessions := []domain.TimerSession{
		{Completed: true, ActualDuration: &sixty},
		{Completed: false, ActualDuration: &skipped},
		{Completed: true, ActualDuration: &skipped},
	}
	s := BuildStats(tasks, sessions, now)
	if s.Completed != 8 || s.CurrentStreak != 2 || s.LongestStreak != 3 || s.Level != 1 {
		t.Fatalf("unexpected stats: %+v", s)
	}
	if s.FocusSeconds != 3720 || s.FocusDisplay != "1h 2m" {
		t.Fatalf("focus=%d display=%q", s.FocusSeconds, s.FocusDisplay)
	}
	if len(s.Heatmap) != HeatmapDays || s.Heatmap[0].Date != "2024-05-14" || s.Heatmap[27].Date != "2024-06-10" {
		t.Fatalf("heatmap bounds wrong: first=%v last=%v", s.Heatmap[0], s.Heatmap[len(s.Heatmap)-1])
	}
	if s.Heatmap[27].Count != 3 || s.Heatmap[27].Intensity != 2 {
		t.Fatalf("today cell=%+v", s.Heatmap[27])
	}
	if s.Quadrants[1].Count != 1 || s.Quadrants[3].Count != 1 {
		t.Fatalf("quadrants=%+v", s.Quadrants)
	}
}

func TestBuildProfile(t *testing.T) {
	user := domain.UserProfile{ID: "u1", Stats: domain.UserStats{XP: 130, Level: 2}}
	d := 5400
	p := BuildProfile(user, []domain.Task{{Status: domain.StatusCompleted}, {Status: domain.StatusTodo}}, []domain.TimerSession{{ActualDuration: &d}}, domain.Settings{TimerPomodoro: 25})
	if p.XPToNextLevel != 70 || p.TotalTasks != 2 || p.CompletedTasks != 1 || p.TotalSessions != 1 || p.FocusHours != 2 || p.Settings.TimerPomodoro != 25 {
		t.Fatalf("unexpected profile: %+v", p)
	}
}

func TestPositiveFeedback(t *testing.T) {
	if PositiveFeedback(func(int) int { return 0 }) != feedbackMessages[0] {
		t.Fatalf("expected first message")
	}
	if PositiveFeedback(func(int) int { return 99 }) != feedbackMessages[0] {
		t.Fatalf("out of range pick should fall back to first message")
	}
	if PositiveFeedback(nil) == "" {
		t.Fatalf("expected a message")
	}
}
