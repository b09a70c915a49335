package events

import (
	"sync"
	"time"
)

const (
	TasksUpdated   = "tasks-updated"
	TaskCompleted  = "task-completed"
	TimerCompleted = "timer-completed"
	MoodCheckedIn  = "mood-checked-in"
)

// DefaultCapacity bounds the replay buffer kept for cursor readers.
const DefaultCapacity = 1024

type Payload map[string]any

type Event struct {
	ID       int64     `json:"id"`
	Type     string    `json:"type"`
	UserID   string    `json:"userId"`
	EntityID string    `json:"entityId,omitempty"`
	TS       time.Time `json:"ts"`
	Payload  Payload   `json:"payload"`
}

// Bus fans events out to in-process subscribers and keeps a bounded tail
// that cursor readers (the webhook dispatcher) poll with After.
// A nil *Bus drops everything.
type Bus struct {
	Now      func() time.Time
	Capacity int

	mu     sync.Mutex
	nextID int64
	tail   []Event
	subs   map[int]func(Event)
	subSeq int
	order  []int
}

func NewBus() *Bus {
	return &Bus{Now: time.Now, Capacity: DefaultCapacity}
}

func (b *Bus) now() time.Time {
	if b.Now != nil {
		return b.Now().UTC()
	}
	return time.Now().UTC()
}

// Publish stamps evt with the next id and timestamp, records it and calls
// subscribers in subscription order on the caller's goroutine.
func (b *Bus) Publish(evt Event) Event {
	if b == nil {
		return evt
	}
	b.mu.Lock()
	b.nextID++
	evt.ID = b.nextID
	evt.TS = b.now()
	if evt.Payload == nil {
		evt.Payload = Payload{}
	}
	b.tail = append(b.tail, evt)
	limit := b.Capacity
	if limit <= 0 {
		limit = DefaultCapacity
	}
	if over := len(b.tail) - limit; over > 0 {
		b.tail = append([]Event(nil), b.tail[over:]...)
	}
	subs := make([]func(Event), 0, len(b.order))
	for _, id := range b.order {
		subs = append(subs, b.subs[id])
	}
	b.mu.Unlock()

	for _, fn := range subs {
		fn(evt)
	}
	return evt
}

// Subscribe registers fn. The returned func removes it and may be called
// more than once.
func (b *Bus) Subscribe(fn func(Event)) func() {
	if b == nil || fn == nil {
		return func() {}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs == nil {
		b.subs = make(map[int]func(Event))
	}
	b.subSeq++
	id := b.subSeq
	b.subs[id] = fn
	b.order = append(b.order, id)
	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			for i, v := range b.order {
				if v == id {
					b.order = append(b.order[:i], b.order[i+1:]...)
					break
				}
			}
		})
	}
}

// After returns up to limit buffered events with id greater than cursor.
func (b *Bus) After(cursor int64, limit int) []Event {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	var res []Event
	for _, evt := range b.tail {
		if evt.ID <= cursor {
			continue
		}
		res = append(res, evt)
		if limit > 0 && len(res) >= limit {
			break
		}
	}
	return res
}

// Latest is the id of the last published event, 0 if none.
func (b *Bus) Latest() int64 {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nextID
}
