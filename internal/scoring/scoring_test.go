package scoring

import (
	"testing"
	"time"

	"focusflow/internal/domain"
)

func TestQuadrantCoversGrid(t *testing.T) {
	for u := 1; u <= 10; u++ {
		for i := 1; i <= 10; i++ {
			q := Quadrant(u, i)
			if q < 1 || q > 4 {
				t.Fatalf("quadrant(%d,%d)=%d out of range", u, i, q)
			}
			if (q == 1) != (u >= 5 && i >= 5) {
				t.Fatalf("quadrant(%d,%d)=%d", u, i, q)
			}
		}
	}
	if Quadrant(4, 5) != 2 || Quadrant(5, 4) != 3 || Quadrant(4, 4) != 4 {
		t.Fatalf("unexpected boundary quadrants")
	}
}

func TestPriorityLabel(t *testing.T) {
	for u := 1; u <= 10; u++ {
		for i := 1; i <= 10; i++ {
			got := PriorityLabel(u, i)
			want := PriorityLow
			if u+i >= 16 {
				want = PriorityHigh
			} else if u+i >= 10 {
				want = PriorityMedium
			}
			if got != want {
				t.Fatalf("priority(%d,%d)=%s want %s", u, i, got, want)
			}
		}
	}
}

func TestProgressPercent(t *testing.T) {
	cases := []struct{ done, total, want int }{
		{0, 0, 0},
		{3, 4, 75},
		{1, 3, 33},
		{1, 8, 13},
		{1, 6, 17},
		{2, 3, 67},
		{5, 5, 100},
	}
	for _, c := range cases {
		if got := ProgressPercent(c.done, c.total); got != c.want {
			t.Errorf("progress(%d,%d)=%d want %d", c.done, c.total, got, c.want)
		}
	}
}

func TestXPAndLevel(t *testing.T) {
	task := domain.Task{Urgency: 5, Importance: 5, Steps: make([]domain.Step, 3)}
	if got := XPForTask(task); got != 26 {
		t.Fatalf("xp=%d want 26", got)
	}
	for xp, want := range map[int]int{0: 1, 99: 1, 100: 2, 250: 3, -5: 1} {
		if got := LevelForXP(xp); got != want {
			t.Errorf("level(%d)=%d want %d", xp, got, want)
		}
	}
	if got := XPToNextLevel(130); got != 70 {
		t.Fatalf("xp to next=%d want 70", got)
	}
}

func completedAt(ts time.Time) domain.Task {
	return domain.Task{Status: domain.StatusCompleted, CompletedAt: &ts}
}

func TestStreakStopsAtGap(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)
	tasks := []domain.Task{
		completedAt(now.Add(-2 * time.Hour)),
		completedAt(now.AddDate(0, 0, -1)),
		completedAt(now.AddDate(0, 0, -3)),
		{Status: domain.StatusCompleted},
		{Status: domain.StatusTodo},
	}
	if got := Streak(tasks, now); got != 2 {
		t.Fatalf("streak=%d want 2", got)
	}
	if got := Streak(nil, now); got != 0 {
		t.Fatalf("empty streak=%d", got)
	}
	if got := Streak(tasks[1:], now); got != 0 {
		t.Fatalf("streak without today=%d want 0", got)
	}
}

func TestLongestStreak(t *testing.T) {
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	tasks := []domain.Task{
		completedAt(base),
		completedAt(base.AddDate(0, 0, 1)),
		completedAt(base.AddDate(0, 0, 1).Add(time.Hour)),
		completedAt(base.AddDate(0, 0, 2)),
		completedAt(base.AddDate(0, 0, 5)),
	}
	if got := LongestStreak(tasks, time.UTC); got != 3 {
		t.Fatalf("longest=%d want 3", got)
	}
}

func TestHeatmapIntensityAndFormatting(t *testing.T) {
	for count, want := range map[int]int{0: 0, 1: 1, 2: 2, 3: 2, 8: 5, 20: 5} {
		if got := HeatmapIntensity(count); got != want {
			t.Errorf("intensity(%d)=%d want %d", count, got, want)
		}
	}
	if got := FormatTime(1500); got != "25:00" {
		t.Fatalf("format time %q", got)
	}
	if got := FormatTime(65); got != "01:05" {
		t.Fatalf("format time %q", got)
	}
	if got := FormatFocus(7500); got != "2h 5m" {
		t.Fatalf("format focus %q", got)
	}
	now := time.Date(2024, 3, 10, 23, 59, 0, 0, time.UTC)
	if !IsToday("2024-03-10", now) || IsToday("2024-03-09", now) || IsToday("", now) {
		t.Fatalf("is today mismatch")
	}
}
