package state

import (
	"testing"

	"focusflow/internal/domain"
)

func TestSetNotifiesInOrder(t *testing.T) {
	s := New()
	if s.Get().CurrentView != ViewToday {
		t.Fatalf("default view should be today")
	}
	var calls []string
	s.Subscribe(func(st State) { calls = append(calls, "first:"+string(st.CurrentView)) })
	s.Subscribe(func(st State) { calls = append(calls, "second:"+string(st.CurrentView)) })

	got := s.Set(func(st *State) { st.CurrentView = ViewStats })
	if got.CurrentView != ViewStats || s.Get().CurrentView != ViewStats {
		t.Fatalf("state not updated: %+v", got)
	}
	if len(calls) != 2 || calls[0] != "first:stats" || calls[1] != "second:stats" {
		t.Fatalf("unexpected notifications: %v", calls)
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	s := New()
	count := 0
	unsub := s.Subscribe(func(State) { count++ })
	other := 0
	s.Subscribe(func(State) { other++ })
	s.Set(func(st *State) { st.IsLoading = true })
	unsub()
	unsub()
	s.Set(func(st *State) { st.IsLoading = false })
	if count != 1 || other != 2 {
		t.Fatalf("count=%d other=%d", count, other)
	}
}

func TestSessionsArePerUser(t *testing.T) {
	sessions := NewSessions()
	a := sessions.For("a")
	a.Set(func(st *State) { st.User = &domain.UserProfile{ID: "a"} })
	if sessions.For("a") != a {
		t.Fatalf("expected same store")
	}
	if sessions.For("b").Get().User != nil {
		t.Fatalf("user b must not see user a's state")
	}
}
