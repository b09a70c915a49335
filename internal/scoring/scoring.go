// Package scoring holds the pure priority, progress, XP and streak rules.
package scoring

import (
	"fmt"
	"sort"
	"time"

	"focusflow/internal/domain"
)

// DefaultScore is the urgency/importance used when a task has none.
const DefaultScore = 5

// Quadrant classifies a task on the Eisenhower grid. Exactly 5 counts as
// urgent/important.
func Quadrant(urgency, importance int) int {
	switch {
	case urgency >= 5 && importance >= 5:
		return 1
	case urgency < 5 && importance >= 5:
		return 2
	case urgency >= 5 && importance < 5:
		return 3
	default:
		return 4
	}
}

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// PriorityLabel thresholds the urgency+importance sum. It does not agree
// with Quadrant at the boundaries and must stay separate.
func PriorityLabel(urgency, importance int) Priority {
	sum := urgency + importance
	switch {
	case sum >= 16:
		return PriorityHigh
	case sum >= 10:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// ProgressPercent rounds half up; zero total is 0%.
func ProgressPercent(completed, total int) int {
	if total <= 0 {
		return 0
	}
	if completed < 0 {
		completed = 0
	}
	return (200*completed + total) / (2 * total)
}

func XPForTask(t domain.Task) int {
	return 10 + t.Urgency + t.Importance + 2*len(t.Steps)
}

func LevelForXP(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return xp/100 + 1
}

// XPToNextLevel is the xp still missing for the next level.
func XPToNextLevel(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return LevelForXP(xp)*100 - xp
}

// DayKey formats t as a calendar day in its own location.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// DayStart truncates t to local midnight.
func DayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// IsToday reports whether the YYYY-MM-DD date falls on now's calendar day.
func IsToday(date string, now time.Time) bool {
	return date != "" && date == DayKey(now)
}

// completionDays returns the set of local days with at least one completion.
func completionDays(tasks []domain.Task, loc *time.Location) map[string]int {
	days := map[string]int{}
	for _, t := range tasks {
		if !t.Completed() || t.CompletedAt == nil {
			continue
		}
		days[DayKey(t.CompletedAt.In(loc))]++
	}
	return days
}

// CompletionsByDay counts completed tasks per local day.
func CompletionsByDay(tasks []domain.Task, loc *time.Location) map[string]int {
	return completionDays(tasks, loc)
}

// Streak counts consecutive days ending today with a completed task.
func Streak(tasks []domain.Task, now time.Time) int {
	days := completionDays(tasks, now.Location())
	if len(days) == 0 {
		return 0
	}
	streak := 0
	day := DayStart(now)
	for days[DayKey(day)] > 0 {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

// LongestStreak finds the longest run of consecutive completion days.
func LongestStreak(tasks []domain.Task, loc *time.Location) int {
	if loc == nil {
		loc = time.Local
	}
	days := completionDays(tasks, loc)
	keys := make([]string, 0, len(days))
	for k := range days {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	best, run := 0, 0
	var prev time.Time
	for i, k := range keys {
		d, err := time.ParseInLocation("2006-01-02", k, loc)
		if err != nil {
			continue
		}
		if i > 0 && DayKey(prev.AddDate(0, 0, 1)) == k {
			run++
		} else {
			run = 1
		}
		if run > best {
			best = run
		}
		prev = d
	}
	return best
}

func HeatmapIntensity(count int) int {
	if count <= 0 {
		return 0
	}
	if v := count/2 + 1; v < 5 {
		return v
	}
	return 5
}

// FormatTime renders seconds as MM:SS.
func FormatTime(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// FormatFocus renders a focus total such as "2h 5m".
func FormatFocus(seconds int) string {
	minutes := seconds / 60
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}
