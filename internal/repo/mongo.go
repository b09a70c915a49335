package repo

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"focusflow/internal/domain"
)

const (
	collTasks    = "tasks"
	collUsers    = "users"
	collSessions = "timerSessions"
	collMoods    = "moodCheckIns"
	collSettings = "settings"
)

// Mongo implements Store on a MongoDB database using the document
// collection names of the hosted deployment.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
	Now    func() time.Time
}

// OpenMongo connects and pings the server.
func OpenMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is required")
	}
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	log.Printf("mongo: connected to database %s", database)
	return &Mongo{client: client, db: client.Database(database), Now: time.Now}, nil
}

func (m *Mongo) now() time.Time {
	if m.Now != nil {
		return m.Now().UTC()
	}
	return time.Now().UTC()
}

func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

// Drop removes the whole database; tests use it for cleanup.
func (m *Mongo) Drop(ctx context.Context) error {
	return m.db.Drop(ctx)
}

func (m *Mongo) coll(name string) *mongo.Collection { return m.db.Collection(name) }

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

func (m *Mongo) CreateTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = m.now()
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
	if _, err := m.coll(collTasks).InsertOne(ctx, t); err != nil {
		return domain.Task{}, fmt.Errorf("insert task: %w", err)
	}
	return t, nil
}

func (m *Mongo) GetTask(ctx context.Context, userID, id string) (domain.Task, error) {
	var t domain.Task
	err := m.coll(collTasks).FindOne(ctx, bson.M{"_id": id, "userId": userID}).Decode(&t)
	if err != nil {
		return domain.Task{}, notFound(err)
	}
	if t.Steps == nil {
		t.Steps = []domain.Step{}
	}
	return t, nil
}

func (m *Mongo) ListTasks(ctx context.Context, userID string, f TaskFilter) ([]domain.Task, error) {
	cur, err := m.coll(collTasks).Find(ctx, bson.M{"userId": userID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var tasks []domain.Task
	if err := cur.All(ctx, &tasks); err != nil {
		return nil, err
	}
	for i := range tasks {
		if tasks[i].Steps == nil {
			tasks[i].Steps = []domain.Step{}
		}
	}
	return FilterTasks(tasks, f), nil
}

func (m *Mongo) UpdateTask(ctx context.Context, t domain.Task) error {
	if t.Steps == nil {
		t.Steps = []domain.Step{}
	}
	res, err := m.coll(collTasks).ReplaceOne(ctx, bson.M{"_id": t.ID, "userId": t.UserID}, t)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) DeleteTask(ctx context.Context, userID, id string) error {
	res, err := m.coll(collTasks).DeleteOne(ctx, bson.M{"_id": id, "userId": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) EnsureUser(ctx context.Context, u domain.UserProfile) (domain.UserProfile, error) {
	if u.ID == "" {
		return domain.UserProfile{}, errors.New("user id is required")
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = m.now()
	}
	if u.Stats.Level == 0 {
		u.Stats.Level = 1
	}
	_, err := m.coll(collUsers).UpdateOne(ctx, bson.M{"_id": u.ID}, bson.M{"$setOnInsert": bson.M{
		"email":       u.Email,
		"displayName": u.DisplayName,
		"isAnonymous": u.IsAnonymous,
		"createdAt":   u.CreatedAt,
		"stats":       u.Stats,
	}}, options.Update().SetUpsert(true))
	if err != nil {
		return domain.UserProfile{}, fmt.Errorf("upsert user: %w", err)
	}
	return m.GetUser(ctx, u.ID)
}

func (m *Mongo) GetUser(ctx context.Context, userID string) (domain.UserProfile, error) {
	var u domain.UserProfile
	if err := m.coll(collUsers).FindOne(ctx, bson.M{"_id": userID}).Decode(&u); err != nil {
		return domain.UserProfile{}, notFound(err)
	}
	return u, nil
}

func (m *Mongo) UpdateUserStats(ctx context.Context, userID string, st domain.UserStats) error {
	res, err := m.coll(collUsers).UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": bson.M{"stats": st}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) CreateTimerSession(ctx context.Context, s domain.TimerSession) (domain.TimerSession, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.StartedAt.IsZero() {
		s.StartedAt = m.now()
	}
	s.Completed = false
	s.Interruptions = 0
	s.ActualDuration = nil
	s.EndedAt = nil
	if _, err := m.coll(collSessions).InsertOne(ctx, s); err != nil {
		return domain.TimerSession{}, fmt.Errorf("insert timer session: %w", err)
	}
	return s, nil
}

func (m *Mongo) CompleteTimerSession(ctx context.Context, userID, id string, c SessionCompletion) (domain.TimerSession, error) {
	filter := bson.M{"_id": id, "userId": userID, "completed": false}
	update := bson.M{"$set": bson.M{
		"actualDuration": c.ActualDuration,
		"endedAt":        c.EndedAt.UTC(),
		"completed":      true,
		"interruptions":  c.Interruptions,
	}}
	var s domain.TimerSession
	err := m.coll(collSessions).FindOneAndUpdate(ctx, filter, update, options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&s)
	if err != nil {
		return domain.TimerSession{}, notFound(err)
	}
	return s, nil
}

func (m *Mongo) ListTimerSessions(ctx context.Context, userID string) ([]domain.TimerSession, error) {
	cur, err := m.coll(collSessions).Find(ctx, bson.M{"userId": userID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var sessions []domain.TimerSession
	if err := cur.All(ctx, &sessions); err != nil {
		return nil, err
	}
	return sortSessionsDesc(sessions), nil
}

func (m *Mongo) AddMood(ctx context.Context, c domain.MoodCheckIn) (domain.MoodCheckIn, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Timestamp.IsZero() {
		c.Timestamp = m.now()
	}
	if _, err := m.coll(collMoods).InsertOne(ctx, c); err != nil {
		return domain.MoodCheckIn{}, fmt.Errorf("insert mood: %w", err)
	}
	return c, nil
}

func (m *Mongo) RecentMoods(ctx context.Context, userID string, limit int) ([]domain.MoodCheckIn, error) {
	cur, err := m.coll(collMoods).Find(ctx, bson.M{"userId": userID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var moods []domain.MoodCheckIn
	if err := cur.All(ctx, &moods); err != nil {
		return nil, err
	}
	return sortMoodsDesc(moods, limit), nil
}

type settingsDoc struct {
	UserID    string          `bson:"_id"`
	Settings  domain.Settings `bson:",inline"`
	UpdatedAt time.Time       `bson:"updatedAt"`
}

func (m *Mongo) GetSettings(ctx context.Context, userID string) (domain.Settings, error) {
	var doc settingsDoc
	if err := m.coll(collSettings).FindOne(ctx, bson.M{"_id": userID}).Decode(&doc); err != nil {
		return domain.Settings{}, notFound(err)
	}
	return doc.Settings, nil
}

func (m *Mongo) SaveSettings(ctx context.Context, userID string, s domain.Settings) error {
	doc := settingsDoc{UserID: userID, Settings: s, UpdatedAt: m.now()}
	_, err := m.coll(collSettings).ReplaceOne(ctx, bson.M{"_id": userID}, doc, options.Replace().SetUpsert(true))
	return err
}
