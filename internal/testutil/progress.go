package testutil

import (
	"sync"

	"dp-go/internal/dp"
)

// RecordingSink keeps every progress event it receives.
type RecordingSink struct {
	mu     sync.Mutex
	events []dp.ProgressEvent
}

func (s *RecordingSink) OnProgress(ev dp.ProgressEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

// Events returns a copy of the recorded events.
func (s *RecordingSink) Events() []dp.ProgressEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]dp.ProgressEvent(nil), s.events...)
}
