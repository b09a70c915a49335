package domain

import (
	"fmt"
	"time"
)

type Category string

const (
	CategoryWork      Category = "work"
	CategoryPersonal  Category = "personal"
	CategoryHealth    Category = "health"
	CategoryLearning  Category = "learning"
	CategoryHousehold Category = "household"
	CategoryOther     Category = "other"
)

var Categories = []Category{CategoryWork, CategoryPersonal, CategoryHealth, CategoryLearning, CategoryHousehold, CategoryOther}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

type TaskStatus string

const (
	StatusTodo      TaskStatus = "todo"
	StatusCompleted TaskStatus = "completed"
)

type Step struct {
	ID               string `json:"id" bson:"id"`
	Text             string `json:"text" bson:"text"`
	Completed        bool   `json:"completed" bson:"completed"`
	EstimatedMinutes int    `json:"estimatedMinutes" bson:"estimatedMinutes"`
}

// StepID returns the positional id used for steps, e.g. "step-0".
func StepID(index int) string {
	return fmt.Sprintf("step-%d", index)
}

type Task struct {
	ID               string     `json:"id" bson:"_id"`
	UserID           string     `json:"userId" bson:"userId"`
	Title            string     `json:"title" bson:"title"`
	Description      string     `json:"description,omitempty" bson:"description,omitempty"`
	Category         Category   `json:"category,omitempty" bson:"category,omitempty" enum:"work,personal,health,learning,household,other"`
	EstimatedMinutes *int       `json:"estimatedMinutes,omitempty" bson:"estimatedMinutes,omitempty"`
	Urgency          int        `json:"urgency" bson:"urgency" minimum:"1" maximum:"10"`
	Importance       int        `json:"importance" bson:"importance" minimum:"1" maximum:"10"`
	Quadrant         int        `json:"quadrant" bson:"quadrant" minimum:"1" maximum:"4"`
	Status           TaskStatus `json:"status" bson:"status" enum:"todo,completed"`
	ScheduledDate    string     `json:"scheduledDate,omitempty" bson:"scheduledDate,omitempty" format:"date"`
	Steps            []Step     `json:"steps" bson:"steps"`
	CreatedAt        time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt" bson:"updatedAt"`
	CompletedAt      *time.Time `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
	RescheduleCount  int        `json:"rescheduleCount" bson:"rescheduleCount"`
}

func (t Task) Completed() bool { return t.Status == StatusCompleted }

// CompletedSteps counts finished steps.
func (t Task) CompletedSteps() int {
	n := 0
	for _, s := range t.Steps {
		if s.Completed {
			n++
		}
	}
	return n
}

type Mood string

const (
	MoodExcited  Mood = "excited"
	MoodGood     Mood = "good"
	MoodNeutral  Mood = "neutral"
	MoodTired    Mood = "tired"
	MoodStressed Mood = "stressed"
)

var moodValues = map[Mood]int{
	MoodExcited:  5,
	MoodGood:     4,
	MoodNeutral:  3,
	MoodTired:    2,
	MoodStressed: 1,
}

// Value maps the mood to its 1-5 score, 0 for unknown moods.
func (m Mood) Value() int { return moodValues[m] }

func (m Mood) Valid() bool {
	_, ok := moodValues[m]
	return ok
}

// DefaultMoodScore is used when no check-in exists.
const DefaultMoodScore = 3

type MoodCheckIn struct {
	ID        string    `json:"id" bson:"_id"`
	UserID    string    `json:"userId" bson:"userId"`
	Mood      Mood      `json:"mood" bson:"mood" enum:"excited,good,neutral,tired,stressed"`
	Value     int       `json:"value" bson:"value" minimum:"1" maximum:"5"`
	Note      string    `json:"note,omitempty" bson:"note,omitempty"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

type TimerMode string

const (
	ModePomodoro   TimerMode = "pomodoro"
	ModeShortBreak TimerMode = "short-break"
	ModeLongBreak  TimerMode = "long-break"
	ModeUrgent     TimerMode = "urgent"
	ModeCustom     TimerMode = "custom"
	// ModeDefault derives the duration from the task estimate.
	ModeDefault TimerMode = "default"
)

type TimerSession struct {
	ID              string     `json:"id" bson:"_id"`
	TaskID          string     `json:"taskId" bson:"taskId"`
	UserID          string     `json:"userId" bson:"userId"`
	Mode            TimerMode  `json:"mode" bson:"mode" enum:"pomodoro,short-break,long-break,urgent,custom,default"`
	PlannedDuration int        `json:"plannedDuration" bson:"plannedDuration"`
	ActualDuration  *int       `json:"actualDuration,omitempty" bson:"actualDuration,omitempty"`
	StartedAt       time.Time  `json:"startedAt" bson:"startedAt"`
	EndedAt         *time.Time `json:"endedAt,omitempty" bson:"endedAt,omitempty"`
	Completed       bool       `json:"completed" bson:"completed"`
	Interruptions   int        `json:"interruptions" bson:"interruptions"`
}

type UserStats struct {
	TotalTasksCompleted int `json:"totalTasksCompleted" bson:"totalTasksCompleted"`
	TotalFocusTime      int `json:"totalFocusTime" bson:"totalFocusTime"`
	CurrentStreak       int `json:"currentStreak" bson:"currentStreak"`
	LongestStreak       int `json:"longestStreak" bson:"longestStreak"`
	Level               int `json:"level" bson:"level"`
	XP                  int `json:"xp" bson:"xp"`
}

type UserProfile struct {
	ID          string    `json:"id" bson:"_id"`
	Email       string    `json:"email,omitempty" bson:"email,omitempty"`
	DisplayName string    `json:"displayName,omitempty" bson:"displayName,omitempty"`
	IsAnonymous bool      `json:"isAnonymous" bson:"isAnonymous"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	Stats       UserStats `json:"stats" bson:"stats"`
}

// Settings are per-user preferences. Durations are minutes.
type Settings struct {
	Notifications   bool `json:"notifications" bson:"notifications"`
	Sound           bool `json:"sound" bson:"sound"`
	DarkMode        bool `json:"darkMode" bson:"darkMode"`
	TimerPomodoro   int  `json:"timerPomodoro" bson:"timerPomodoro"`
	TimerShortBreak int  `json:"timerShortBreak" bson:"timerShortBreak"`
	TimerLongBreak  int  `json:"timerLongBreak" bson:"timerLongBreak"`
}

type ExportUser struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

type ExportDocument struct {
	ExportDate    time.Time      `json:"exportDate"`
	User          ExportUser     `json:"user"`
	Tasks         []Task         `json:"tasks"`
	TimerSessions []TimerSession `json:"timerSessions"`
}

// ExportFileName is the download name for an export taken at ts.
func ExportFileName(ts time.Time) string {
	return "focusflow-backup-" + ts.Format("2006-01-02") + ".json"
}
