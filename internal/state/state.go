package state

import (
	"sync"

	"focusflow/internal/domain"
	"focusflow/internal/timer"
)

type View string

const (
	ViewToday   View = "today"
	ViewTasks   View = "tasks"
	ViewStats   View = "stats"
	ViewProfile View = "profile"
)

// State is the current session of one signed-in user.
type State struct {
	User        *domain.UserProfile `json:"user,omitempty"`
	CurrentView View                `json:"currentView" enum:"today,tasks,stats,profile"`
	ActiveTimer *timer.Snapshot     `json:"activeTimer,omitempty"`
	IsLoading   bool                `json:"isLoading"`
}

// Store owns a State and notifies listeners after every Set. Listeners run
// synchronously on the caller's goroutine, in subscription order.
type Store struct {
	mu        sync.Mutex
	notifyMu  sync.Mutex
	state     State
	listeners []listener
	seq       int
}

type listener struct {
	id int
	fn func(State)
}

func New() *Store {
	return &Store{state: State{CurrentView: ViewToday}}
}

func (s *Store) Get() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Set applies fn to a copy of the state, stores it and notifies listeners.
func (s *Store) Set(fn func(*State)) State {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	next := s.state
	fn(&next)
	s.state = next
	ls := make([]listener, len(s.listeners))
	copy(ls, s.listeners)
	s.mu.Unlock()

	for _, l := range ls {
		l.fn(next)
	}
	return next
}

func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	id := s.seq
	s.listeners = append(s.listeners, listener{id: id, fn: fn})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

// Sessions keeps one Store per user id.
type Sessions struct {
	mu     sync.Mutex
	stores map[string]*Store
}

func NewSessions() *Sessions {
	return &Sessions{stores: make(map[string]*Store)}
}

func (s *Sessions) For(userID string) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stores == nil {
		s.stores = make(map[string]*Store)
	}
	st, ok := s.stores[userID]
	if !ok {
		st = New()
		s.stores[userID] = st
	}
	return st
}
