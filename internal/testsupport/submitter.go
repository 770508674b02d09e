package testsupport

import (
	"context"
	"sync"

	"github.com/nexelor/media-collector/internal/scheduler"
)

// Submission is one captured Submit call.
type Submission struct {
	Queue string
	Task  scheduler.Task
}

// Submitter records fan-out instead of running it.
type Submitter struct {
	mu   sync.Mutex
	subs []Submission
	Err  error
}

func (s *Submitter) Submit(_ context.Context, queue string, task scheduler.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.subs = append(s.subs, Submission{Queue: queue, Task: task})
	return nil
}

// Submissions returns a copy of every captured call in order.
func (s *Submitter) Submissions() []Submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Submission(nil), s.subs...)
}
