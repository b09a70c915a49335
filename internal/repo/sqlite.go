package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"focusflow/internal/domain"
)

// SQLite implements Store on the embedded database.
type SQLite struct {
	DB  *sqlx.DB
	Now func() time.Time
}

func NewSQLite(db *sqlx.DB) *SQLite {
	return &SQLite{DB: db, Now: time.Now}
}

func (s *SQLite) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *SQLite) Close() error { return s.DB.Close() }

type taskRow struct {
	ID               string         `db:"id"`
	UserID           string         `db:"user_id"`
	Title            string         `db:"title"`
	Description      sql.NullString `db:"description"`
	Category         sql.NullString `db:"category"`
	EstimatedMinutes sql.NullInt64  `db:"estimated_minutes"`
	Urgency          int            `db:"urgency"`
	Importance       int            `db:"importance"`
	Quadrant         int            `db:"quadrant"`
	Status           string         `db:"status"`
	ScheduledDate    sql.NullString `db:"scheduled_date"`
	StepsJSON        string         `db:"steps_json"`
	CreatedAt        string         `db:"created_at"`
	UpdatedAt        string         `db:"updated_at"`
	CompletedAt      sql.NullString `db:"completed_at"`
	RescheduleCount  int            `db:"reschedule_count"`
}

const taskColumns = `id,user_id,title,description,category,estimated_minutes,urgency,importance,quadrant,status,scheduled_date,steps_json,created_at,updated_at,completed_at,reschedule_count`

func newTaskRow(t domain.Task) (taskRow, error) {
	steps := t.Steps
	if steps == nil {
		steps = []domain.Step{}
	}
	data, err := json.Marshal(steps)
	if err != nil {
		return taskRow{}, fmt.Errorf("marshal steps: %w", err)
	}
	row := taskRow{
		ID:              t.ID,
		UserID:          t.UserID,
		Title:           t.Title,
		Description:     nullString(t.Description),
		Category:        nullString(string(t.Category)),
		Urgency:         t.Urgency,
		Importance:      t.Importance,
		Quadrant:        t.Quadrant,
		Status:          string(t.Status),
		ScheduledDate:   nullString(t.ScheduledDate),
		StepsJSON:       string(data),
		CreatedAt:       formatTime(t.CreatedAt),
		UpdatedAt:       formatTime(t.UpdatedAt),
		CompletedAt:     nullTime(t.CompletedAt),
		RescheduleCount: t.RescheduleCount,
	}
	if t.EstimatedMinutes != nil {
		row.EstimatedMinutes = sql.NullInt64{Int64: int64(*t.EstimatedMinutes), Valid: true}
	}
	return row, nil
}

func (r taskRow) task() (domain.Task, error) {
	t := domain.Task{
		ID:              r.ID,
		UserID:          r.UserID,
		Title:           r.Title,
		Description:     r.Description.String,
		Category:        domain.Category(r.Category.String),
		Urgency:         r.Urgency,
		Importance:      r.Importance,
		Quadrant:        r.Quadrant,
		Status:          domain.TaskStatus(r.Status),
		ScheduledDate:   r.ScheduledDate.String,
		RescheduleCount: r.RescheduleCount,
	}
	if r.EstimatedMinutes.Valid {
		v := int(r.EstimatedMinutes.Int64)
		t.EstimatedMinutes = &v
	}
	if err := json.Unmarshal([]byte(r.StepsJSON), &t.Steps); err != nil {
		return t, fmt.Errorf("decode steps for task %s: %w", r.ID, err)
	}
	if t.Steps == nil {
		t.Steps = []domain.Step{}
	}
	var err error
	if t.CreatedAt, err = parseTime(r.CreatedAt); err != nil {
		return t, err
	}
	if t.UpdatedAt, err = parseTime(r.UpdatedAt); err != nil {
		return t, err
	}
	if t.CompletedAt, err = parseNullTime(r.CompletedAt); err != nil {
		return t, err
	}
	return t, nil
}

func (s *SQLite) CreateTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := s.now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}
	if t.Status == "" {
		t.Status = domain.StatusTodo
	}
	if t.Steps == nil {
		t.Steps = []domain.Step{}
	}
	row, err := newTaskRow(t)
	if err != nil {
		return domain.Task{}, err
	}
	_, err = s.DB.NamedExecContext(ctx, `INSERT INTO tasks(`+taskColumns+`) VALUES (:id,:user_id,:title,:description,:category,:estimated_minutes,:urgency,:importance,:quadrant,:status,:scheduled_date,:steps_json,:created_at,:updated_at,:completed_at,:reschedule_count)`, row)
	if err != nil {
		return domain.Task{}, fmt.Errorf("insert task: %w", err)
	}
	return t, nil
}

func (s *SQLite) GetTask(ctx context.Context, userID, id string) (domain.Task, error) {
	var row taskRow
	err := s.DB.GetContext(ctx, &row, `SELECT `+taskColumns+` FROM tasks WHERE id=? AND user_id=?`, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Task{}, ErrNotFound
	}
	if err != nil {
		return domain.Task{}, err
	}
	return row.task()
}

func (s *SQLite) ListTasks(ctx context.Context, userID string, f TaskFilter) ([]domain.Task, error) {
	var rows []taskRow
	if err := s.DB.SelectContext(ctx, &rows, `SELECT `+taskColumns+` FROM tasks WHERE user_id=?`, userID); err != nil {
		return nil, err
	}
	tasks := make([]domain.Task, 0, len(rows))
	for _, row := range rows {
		t, err := row.task()
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return FilterTasks(tasks, f), nil
}

func (s *SQLite) UpdateTask(ctx context.Context, t domain.Task) error {
	row, err := newTaskRow(t)
	if err != nil {
		return err
	}
	res, err := s.DB.NamedExecContext(ctx, `UPDATE tasks SET title=:title,description=:description,category=:category,estimated_minutes=:estimated_minutes,
urgency=:urgency,importance=:importance,quadrant=:quadrant,status=:status,scheduled_date=:scheduled_date,steps_json=:steps_json,
updated_at=:updated_at,completed_at=:completed_at,reschedule_count=:reschedule_count WHERE id=:id AND user_id=:user_id`, row)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return requireAffected(res)
}

func (s *SQLite) DeleteTask(ctx context.Context, userID, id string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM tasks WHERE id=? AND user_id=?`, id, userID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

type userRow struct {
	ID                  string         `db:"id"`
	Email               sql.NullString `db:"email"`
	DisplayName         sql.NullString `db:"display_name"`
	IsAnonymous         bool           `db:"is_anonymous"`
	CreatedAt           string         `db:"created_at"`
	TotalTasksCompleted int            `db:"total_tasks_completed"`
	TotalFocusTime      int            `db:"total_focus_time"`
	CurrentStreak       int            `db:"current_streak"`
	LongestStreak       int            `db:"longest_streak"`
	Level               int            `db:"level"`
	XP                  int            `db:"xp"`
}

func (r userRow) profile() (domain.UserProfile, error) {
	created, err := parseTime(r.CreatedAt)
	if err != nil {
		return domain.UserProfile{}, err
	}
	return domain.UserProfile{
		ID:          r.ID,
		Email:       r.Email.String,
		DisplayName: r.DisplayName.String,
		IsAnonymous: r.IsAnonymous,
		CreatedAt:   created,
		Stats: domain.UserStats{
			TotalTasksCompleted: r.TotalTasksCompleted,
			TotalFocusTime:      r.TotalFocusTime,
			CurrentStreak:       r.CurrentStreak,
			LongestStreak:       r.LongestStreak,
			Level:               r.Level,
			XP:                  r.XP,
		},
	}, nil
}

// EnsureUser inserts the profile if missing and returns the stored one.
func (s *SQLite) EnsureUser(ctx context.Context, u domain.UserProfile) (domain.UserProfile, error) {
	if u.ID == "" {
		return domain.UserProfile{}, errors.New("user id is required")
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}
	if u.Stats.Level == 0 {
		u.Stats.Level = 1
	}
	_, err := s.DB.ExecContext(ctx, `INSERT INTO users(id,email,display_name,is_anonymous,created_at,total_tasks_completed,total_focus_time,current_streak,longest_streak,level,xp)
VALUES (?,?,?,?,?,?,?,?,?,?,?) ON CONFLICT(id) DO NOTHING`,
		u.ID, nullString(u.Email), nullString(u.DisplayName), u.IsAnonymous, formatTime(u.CreatedAt),
		u.Stats.TotalTasksCompleted, u.Stats.TotalFocusTime, u.Stats.CurrentStreak, u.Stats.LongestStreak, u.Stats.Level, u.Stats.XP)
	if err != nil {
		return domain.UserProfile{}, fmt.Errorf("insert user: %w", err)
	}
	return s.GetUser(ctx, u.ID)
}

func (s *SQLite) GetUser(ctx context.Context, userID string) (domain.UserProfile, error) {
	var row userRow
	err := s.DB.GetContext(ctx, &row, `SELECT id,email,display_name,is_anonymous,created_at,total_tasks_completed,total_focus_time,current_streak,longest_streak,level,xp FROM users WHERE id=?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.UserProfile{}, ErrNotFound
	}
	if err != nil {
		return domain.UserProfile{}, err
	}
	return row.profile()
}

func (s *SQLite) UpdateUserStats(ctx context.Context, userID string, st domain.UserStats) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE users SET total_tasks_completed=?,total_focus_time=?,current_streak=?,longest_streak=?,level=?,xp=? WHERE id=?`,
		st.TotalTasksCompleted, st.TotalFocusTime, st.CurrentStreak, st.LongestStreak, st.Level, st.XP, userID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

type sessionRow struct {
	ID              string         `db:"id"`
	TaskID          string         `db:"task_id"`
	UserID          string         `db:"user_id"`
	Mode            string         `db:"mode"`
	PlannedDuration int            `db:"planned_duration"`
	ActualDuration  sql.NullInt64  `db:"actual_duration"`
	StartedAt       string         `db:"started_at"`
	EndedAt         sql.NullString `db:"ended_at"`
	Completed       bool           `db:"completed"`
	Interruptions   int            `db:"interruptions"`
}

const sessionColumns = `id,task_id,user_id,mode,planned_duration,actual_duration,started_at,ended_at,completed,interruptions`

func (r sessionRow) session() (domain.TimerSession, error) {
	ts := domain.TimerSession{
		ID:              r.ID,
		TaskID:          r.TaskID,
		UserID:          r.UserID,
		Mode:            domain.TimerMode(r.Mode),
		PlannedDuration: r.PlannedDuration,
		Completed:       r.Completed,
		Interruptions:   r.Interruptions,
	}
	if r.ActualDuration.Valid {
		v := int(r.ActualDuration.Int64)
		ts.ActualDuration = &v
	}
	var err error
	if ts.StartedAt, err = parseTime(r.StartedAt); err != nil {
		return ts, err
	}
	if ts.EndedAt, err = parseNullTime(r.EndedAt); err != nil {
		return ts, err
	}
	return ts, nil
}

func (s *SQLite) CreateTimerSession(ctx context.Context, ts domain.TimerSession) (domain.TimerSession, error) {
	if ts.ID == "" {
		ts.ID = uuid.NewString()
	}
	if ts.StartedAt.IsZero() {
		ts.StartedAt = s.now()
	}
	ts.Completed = false
	ts.Interruptions = 0
	ts.ActualDuration = nil
	ts.EndedAt = nil
	_, err := s.DB.ExecContext(ctx, `INSERT INTO timer_sessions(`+sessionColumns+`) VALUES (?,?,?,?,?,NULL,?,NULL,0,0)`,
		ts.ID, ts.TaskID, ts.UserID, string(ts.Mode), ts.PlannedDuration, formatTime(ts.StartedAt))
	if err != nil {
		return domain.TimerSession{}, fmt.Errorf("insert timer session: %w", err)
	}
	return ts, nil
}

// CompleteTimerSession finalizes an open session; finalized sessions are not
// found again.
func (s *SQLite) CompleteTimerSession(ctx context.Context, userID, id string, c SessionCompletion) (domain.TimerSession, error) {
	res, err := s.DB.ExecContext(ctx, `UPDATE timer_sessions SET actual_duration=?,ended_at=?,completed=1,interruptions=? WHERE id=? AND user_id=? AND completed=0`,
		c.ActualDuration, formatTime(c.EndedAt), c.Interruptions, id, userID)
	if err != nil {
		return domain.TimerSession{}, err
	}
	if err := requireAffected(res); err != nil {
		return domain.TimerSession{}, err
	}
	var row sessionRow
	if err := s.DB.GetContext(ctx, &row, `SELECT `+sessionColumns+` FROM timer_sessions WHERE id=?`, id); err != nil {
		return domain.TimerSession{}, err
	}
	return row.session()
}

func (s *SQLite) ListTimerSessions(ctx context.Context, userID string) ([]domain.TimerSession, error) {
	var rows []sessionRow
	if err := s.DB.SelectContext(ctx, &rows, `SELECT `+sessionColumns+` FROM timer_sessions WHERE user_id=?`, userID); err != nil {
		return nil, err
	}
	res := make([]domain.TimerSession, 0, len(rows))
	for _, row := range rows {
		ts, err := row.session()
		if err != nil {
			return nil, err
		}
		res = append(res, ts)
	}
	return sortSessionsDesc(res), nil
}

type moodRow struct {
	ID     string         `db:"id"`
	UserID string         `db:"user_id"`
	Mood   string         `db:"mood"`
	Value  int            `db:"value"`
	Note   sql.NullString `db:"note"`
	TS     string         `db:"ts"`
}

func (s *SQLite) AddMood(ctx context.Context, m domain.MoodCheckIn) (domain.MoodCheckIn, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = s.now()
	}
	_, err := s.DB.ExecContext(ctx, `INSERT INTO mood_checkins(id,user_id,mood,value,note,ts) VALUES (?,?,?,?,?,?)`,
		m.ID, m.UserID, string(m.Mood), m.Value, nullString(m.Note), formatTime(m.Timestamp))
	if err != nil {
		return domain.MoodCheckIn{}, fmt.Errorf("insert mood: %w", err)
	}
	return m, nil
}

func (s *SQLite) RecentMoods(ctx context.Context, userID string, limit int) ([]domain.MoodCheckIn, error) {
	var rows []moodRow
	if err := s.DB.SelectContext(ctx, &rows, `SELECT id,user_id,mood,value,note,ts FROM mood_checkins WHERE user_id=?`, userID); err != nil {
		return nil, err
	}
	res := make([]domain.MoodCheckIn, 0, len(rows))
	for _, row := range rows {
		ts, err := parseTime(row.TS)
		if err != nil {
			return nil, err
		}
		res = append(res, domain.MoodCheckIn{
			ID:        row.ID,
			UserID:    row.UserID,
			Mood:      domain.Mood(row.Mood),
			Value:     row.Value,
			Note:      row.Note.String,
			Timestamp: ts,
		})
	}
	return sortMoodsDesc(res, limit), nil
}

type settingsRow struct {
	Notifications   bool `db:"notifications"`
	Sound           bool `db:"sound"`
	DarkMode        bool `db:"dark_mode"`
	TimerPomodoro   int  `db:"timer_pomodoro"`
	TimerShortBreak int  `db:"timer_short_break"`
	TimerLongBreak  int  `db:"timer_long_break"`
}

func (s *SQLite) GetSettings(ctx context.Context, userID string) (domain.Settings, error) {
	var row settingsRow
	err := s.DB.GetContext(ctx, &row, `SELECT notifications,sound,dark_mode,timer_pomodoro,timer_short_break,timer_long_break FROM settings WHERE user_id=?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Settings{}, ErrNotFound
	}
	if err != nil {
		return domain.Settings{}, err
	}
	return domain.Settings(row), nil
}

func (s *SQLite) SaveSettings(ctx context.Context, userID string, st domain.Settings) error {
	_, err := s.DB.ExecContext(ctx, `INSERT INTO settings(user_id,notifications,sound,dark_mode,timer_pomodoro,timer_short_break,timer_long_break,updated_at) VALUES (?,?,?,?,?,?,?,?)
ON CONFLICT(user_id) DO UPDATE SET notifications=excluded.notifications,sound=excluded.sound,dark_mode=excluded.dark_mode,
timer_pomodoro=excluded.timer_pomodoro,timer_short_break=excluded.timer_short_break,timer_long_break=excluded.timer_long_break,updated_at=excluded.updated_at`,
		userID, st.Notifications, st.Sound, st.DarkMode, st.TimerPomodoro, st.TimerShortBreak, st.TimerLongBreak, formatTime(s.now()))
	return err
}

func requireAffected(res sql.Result) error {
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTime(v string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", v, err)
	}
	return t, nil
}

func parseNullTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	t, err := parseTime(v.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
