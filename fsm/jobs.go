package fsm

import (
	"sync"

	"github.com/amp-labs/amp-fsm/future"
)

// jobSet tracks the jobs that have been started and not yet settled.
type jobSet struct {
	mu   sync.Mutex
	jobs map[uint64]*future.Future[struct{}]
}

func newJobSet() *jobSet {
	return &jobSet{jobs: make(map[uint64]*future.Future[struct{}])}
}

func (s *jobSet) add(generation uint64, fut *future.Future[struct{}]) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs[generation] = fut
}

// outstanding returns the jobs that are still running, pruning settled ones.
func (s *jobSet) outstanding() []*future.Future[struct{}] {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pending []*future.Future[struct{}]

	for generation, fut := range s.jobs {
		if fut.IsDone() {
			delete(s.jobs, generation)

			continue
		}

		pending = append(pending, fut)
	}

	return pending
}

func (s *jobSet) len() int {
	return len(s.outstanding())
}
