package engine

import "sync"

// Severity classes for the user-facing message area. The values mirror the
// CSS classes the presentation layer applies.
const (
	ClassSuccess = "alert alert-success"
	ClassInfo    = "alert alert-info"
	ClassError   = "alert alert-danger"
)

// Status is the latest user-facing outcome. It is a single slot, not a
// queue: each operation's result replaces the previous one.
type Status struct {
	Text  string `json:"text"`
	Class string `json:"class"`
}

type statusState struct {
	mu   sync.Mutex
	cur  Status
	subs []func(Status)
}

func (s *statusState) set(text, class string) {
	s.mu.Lock()
	s.cur = Status{Text: text, Class: class}
	cur := s.cur
	subs := make([]func(Status), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(cur)
	}
}

func (s *statusState) get() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

func (s *statusState) subscribe(fn func(Status)) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}
