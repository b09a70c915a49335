package server

import (
	"focusflow/internal/domain"
)

// Request payloads

type StepRequest struct {
	Text             string `json:"text"`
	EstimatedMinutes int    `json:"estimatedMinutes,omitempty"`
}

type CreateTaskRequest struct {
	Title            string        `json:"title" maxLength:"500"`
	Description      string        `json:"description,omitempty"`
	Category         string        `json:"category,omitempty" enum:"work,personal,health,learning,household,other"`
	EstimatedMinutes *int          `json:"estimatedMinutes,omitempty"`
	Urgency          int           `json:"urgency,omitempty"`
	Importance       int           `json:"importance,omitempty"`
	ScheduledDate    string        `json:"scheduledDate,omitempty"`
	Steps            []StepRequest `json:"steps,omitempty"`
}

// UpdateTaskRequest is a partial edit. An explicit null estimatedMinutes
// clears the estimate.
type UpdateTaskRequest struct {
	Title            *string `json:"title,omitempty"`
	Description      *string `json:"description,omitempty"`
	Category         *string `json:"category,omitempty" enum:"work,personal,health,learning,household,other"`
	EstimatedMinutes *int    `json:"estimatedMinutes,omitempty" nullable:"true"`
	Urgency          *int    `json:"urgency,omitempty"`
	Importance       *int    `json:"importance,omitempty"`
	ScheduledDate    *string `json:"scheduledDate,omitempty"`
}

type RescheduleRequest struct {
	Date string `json:"date" example:"2024-06-11"`
}

type CategorizeRequest struct {
	Title string `json:"title"`
}

type MoodRequest struct {
	Mood string `json:"mood" enum:"excited,good,neutral,tired,stressed"`
	Note string `json:"note,omitempty"`
}

type TimerStartRequest struct {
	TaskID        string `json:"taskId,omitempty"`
	Mode          string `json:"mode,omitempty" enum:"pomodoro,short-break,long-break,urgent,custom,default"`
	CustomSeconds int    `json:"customSeconds,omitempty"`
}

type AnonymousLoginRequest struct {
	DisplayName string `json:"displayName,omitempty"`
}

// Response payloads

type AnonymousLoginResponse struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

type MoodList struct {
	Items []domain.MoodCheckIn `json:"items"`
}

type TaskItems struct {
	Items []domain.Task `json:"items"`
}

type SessionItems struct {
	Items []domain.TimerSession `json:"items"`
}

func stepsFromRequest(in []StepRequest) []domain.Step {
	steps := make([]domain.Step, 0, len(in))
	for _, s := range in {
		steps = append(steps, domain.Step{Text: s.Text, EstimatedMinutes: s.EstimatedMinutes})
	}
	return steps
}

func nonNilTasks(items []domain.Task) []domain.Task {
	if items == nil {
		return []domain.Task{}
	}
	return items
}
