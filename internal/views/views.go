// Package views computes the screen models for today, tasks, stats and
// profile. Rendering is left to callers.
package views

import (
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/sahilm/fuzzy"

	"focusflow/internal/domain"
	"focusflow/internal/scoring"
)

// HeatmapDays is the width of the stats heatmap.
const HeatmapDays = 28

var feedbackMessages = []string{
	"잘했어요! 한 걸음 더 나아갔네요! 🎉",
	"멋져요! 계속 이대로 가세요! ✨",
	"대단해요! 당신은 해낼 수 있어요! 💪",
	"훌륭합니다! 작은 성취가 모여 큰 변화를 만들어요! 🌟",
	"완벽해요! 오늘도 최선을 다하고 있네요! 🎯",
	"최고예요! 당신의 노력이 빛나고 있어요! ⭐",
	"굉장해요! 하나씩 해내고 있어요! 🔥",
}

// PositiveFeedback picks an encouragement line. pick(n) must return a value
// in [0,n); nil uses math/rand.
func PositiveFeedback(pick func(n int) int) string {
	if pick == nil {
		pick = rand.Intn
	}
	i := pick(len(feedbackMessages))
	if i < 0 || i >= len(feedbackMessages) {
		i = 0
	}
	return feedbackMessages[i]
}

type TaskCard struct {
	domain.Task
	Priority       scoring.Priority `json:"priority" enum:"high,medium,low"`
	Progress       int              `json:"progress"`
	CompletedSteps int              `json:"completedSteps"`
}

func Card(t domain.Task) TaskCard {
	done := t.CompletedSteps()
	return TaskCard{
		Task:           t,
		Priority:       scoring.PriorityLabel(score(t.Urgency), score(t.Importance)),
		Progress:       scoring.ProgressPercent(done, len(t.Steps)),
		CompletedSteps: done,
	}
}

func cards(tasks []domain.Task) []TaskCard {
	out := make([]TaskCard, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, Card(t))
	}
	return out
}

func score(v int) int {
	if v == 0 {
		return scoring.DefaultScore
	}
	return v
}

type Today struct {
	Date      string     `json:"date"`
	Tasks     []TaskCard `json:"tasks"`
	Scheduled int        `json:"scheduled"`
	Completed int        `json:"completed"`
	Progress  int        `json:"progress"`
}

// BuildToday lists open tasks that are unscheduled or scheduled today,
// highest urgency+importance first. Progress only counts tasks scheduled
// for today.
func BuildToday(tasks []domain.Task, now time.Time) Today {
	today := scoring.DayKey(now)
	var open []domain.Task
	scheduled, completed := 0, 0
	for _, t := range tasks {
		if t.ScheduledDate == today {
			scheduled++
			if t.Completed() {
				completed++
			}
		}
		if t.Status != domain.StatusTodo {
			continue
		}
		if t.ScheduledDate == "" || t.ScheduledDate == today {
			open = append(open, t)
		}
	}
	sort.SliceStable(open, func(i, j int) bool {
		return score(open[i].Urgency)+score(open[i].Importance) > score(open[j].Urgency)+score(open[j].Importance)
	})
	return Today{
		Date:      today,
		Tasks:     cards(open),
		Scheduled: scheduled,
		Completed: completed,
		Progress:  scoring.ProgressPercent(completed, scheduled),
	}
}

const (
	SortDate     = "date"
	SortPriority = "priority"
	SortCategory = "category"
)

type TaskQuery struct {
	Status   string
	Category string
	Search   string
	Fuzzy    bool
	Sort     string
}

type TaskList struct {
	Tasks     []TaskCard `json:"tasks"`
	Total     int        `json:"total"`
	Todo      int        `json:"todo"`
	Completed int        `json:"completed"`
}

type searchSource []domain.Task

func (s searchSource) String(i int) string { return s[i].Title + " " + s[i].Description }
func (s searchSource) Len() int            { return len(s) }

// BuildTaskList filters and sorts the full task set. Fuzzy search ranks by
// match score and ignores the sort key.
func BuildTaskList(tasks []domain.Task, q TaskQuery) TaskList {
	res := TaskList{Total: len(tasks)}
	for _, t := range tasks {
		if t.Completed() {
			res.Completed++
		} else {
			res.Todo++
		}
	}

	filtered := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if q.Status != "" && q.Status != "all" && string(t.Status) != q.Status {
			continue
		}
		if q.Category != "" && q.Category != "all" && string(t.Category) != q.Category {
			continue
		}
		filtered = append(filtered, t)
	}

	search := strings.TrimSpace(q.Search)
	if search != "" && q.Fuzzy {
		matches := fuzzy.FindFrom(search, searchSource(filtered))
		ranked := make([]domain.Task, 0, len(matches))
		for _, m := range matches {
			ranked = append(ranked, filtered[m.Index])
		}
		res.Tasks = cards(ranked)
		return res
	}
	if search != "" {
		needle := strings.ToLower(search)
		kept := filtered[:0]
		for _, t := range filtered {
			if strings.Contains(strings.ToLower(t.Title), needle) || strings.Contains(strings.ToLower(t.Description), needle) {
				kept = append(kept, t)
			}
		}
		filtered = kept
	}
	sortTasks(filtered, q.Sort)
	res.Tasks = cards(filtered)
	return res
}

func sortTasks(tasks []domain.Task, key string) {
	switch key {
	case SortPriority:
		sort.SliceStable(tasks, func(i, j int) bool {
			return score(tasks[i].Urgency)*score(tasks[i].Importance) > score(tasks[j].Urgency)*score(tasks[j].Importance)
		})
	case SortCategory:
		sort.SliceStable(tasks, func(i, j int) bool {
			return categoryKey(tasks[i]) < categoryKey(tasks[j])
		})
	default:
		sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].CreatedAt.After(tasks[j].CreatedAt) })
	}
}

func categoryKey(t domain.Task) string {
	if t.Category == "" {
		return string(domain.CategoryOther)
	}
	return string(t.Category)
}

type HeatmapDay struct {
	Date      string `json:"date"`
	Count     int    `json:"count"`
	Intensity int    `json:"intensity"`
}

type QuadrantCount struct {
	Quadrant int `json:"quadrant"`
	Count    int `json:"count"`
}

type Stats struct {
	Completed     int             `json:"completed"`
	FocusSeconds  int             `json:"focusSeconds"`
	FocusDisplay  string          `json:"focusDisplay"`
	CurrentStreak int             `json:"currentStreak"`
	LongestStreak int             `json:"longestStreak"`
	Level         int             `json:"level"`
	Heatmap       []HeatmapDay    `json:"heatmap"`
	Quadrants     []QuadrantCount `json:"quadrants"`
}

func BuildStats(tasks []domain.Task, sessions []domain.TimerSession, now time.Time) Stats {
	completed := 0
	quadrants := make([]QuadrantCount, 4)
	for i := range quadrants {
		quadrants[i].Quadrant = i + 1
	}
	for _, t := range tasks {
		if t.Completed() {
			completed++
			continue
		}
		q := t.Quadrant
		if q < 1 || q > 4 {
			q = scoring.Quadrant(score(t.Urgency), score(t.Importance))
		}
		quadrants[q-1].Count++
	}
	focus := FocusSeconds(sessions)

	byDay := scoring.CompletionsByDay(tasks, now.Location())
	heat := make([]HeatmapDay, 0, HeatmapDays)
	start := scoring.DayStart(now)
	for i := HeatmapDays - 1; i >= 0; i-- {
		key := scoring.DayKey(start.AddDate(0, 0, -i))
		heat = append(heat, HeatmapDay{Date: key, Count: byDay[key], Intensity: scoring.HeatmapIntensity(byDay[key])})
	}

	return Stats{
		Completed:     completed,
		FocusSeconds:  focus,
		FocusDisplay:  scoring.FormatFocus(focus),
		CurrentStreak: scoring.Streak(tasks, now),
		LongestStreak: scoring.LongestStreak(tasks, now.Location()),
		Level:         completed/10 + 1,
		Heatmap:       heat,
		Quadrants:     quadrants,
	}
}

// FocusSeconds sums the recorded duration of completed sessions.
func FocusSeconds(sessions []domain.TimerSession) int {
	total := 0
	for _, s := range sessions {
		if s.Completed && s.ActualDuration != nil {
			total += *s.ActualDuration
		}
	}
	return total
}

type Profile struct {
	User           domain.UserProfile `json:"user"`
	XPToNextLevel  int                `json:"xpToNextLevel"`
	TotalTasks     int                `json:"totalTasks"`
	CompletedTasks int                `json:"completedTasks"`
	TotalSessions  int                `json:"totalSessions"`
	FocusHours     int                `json:"focusHours"`
	Settings       domain.Settings    `json:"settings"`
}

func BuildProfile(user domain.UserProfile, tasks []domain.Task, sessions []domain.TimerSession, settings domain.Settings) Profile {
	completed := 0
	for _, t := range tasks {
		if t.Completed() {
			completed++
		}
	}
	focus := 0
	for _, s := range sessions {
		if s.ActualDuration != nil {
			focus += *s.ActualDuration
		}
	}
	return Profile{
		User:           user,
		XPToNextLevel:  scoring.XPToNextLevel(user.Stats.XP),
		TotalTasks:     len(tasks),
		CompletedTasks: completed,
		TotalSessions:  len(sessions),
		FocusHours:     int(math.Round(float64(focus) / 3600)),
		Settings:       settings,
	}
}
