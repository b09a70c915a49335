package events

import "log"

// Log writes one line per published event of the given types (all types
// when none are given) until the returned func is called.
func Log(b *Bus, logger *log.Logger, types ...string) func() {
	if logger == nil {
		logger = log.Default()
	}
	want := make(map[string]bool, len(types))
	for _, t := range types {
		want[t] = true
	}
	return b.Subscribe(func(e Event) {
		if len(want) > 0 && !want[e.Type] {
			return
		}
		if e.EntityID != "" {
			logger.Printf("event %d %s user=%s entity=%s", e.ID, e.Type, e.UserID, e.EntityID)
			return
		}
		logger.Printf("event %d %s user=%s", e.ID, e.Type, e.UserID)
	})
}
