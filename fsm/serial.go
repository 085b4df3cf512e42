package fsm

import "sync"

// serializer runs steps one at a time. A step submitted while another one is
// running, from any goroutine, is queued and run by the goroutine currently
// draining before it returns. Steps may therefore submit more steps without
// deadlocking.
type serializer struct {
	mu      sync.Mutex
	running bool
	queue   []func()
	onPanic func(recovered any)
}

// do runs step now if the serializer is idle and reports true. Otherwise the
// step is queued and do returns false immediately.
func (s *serializer) do(step func()) bool {
	s.mu.Lock()

	if s.running {
		s.queue = append(s.queue, step)
		s.mu.Unlock()

		return false
	}

	s.running = true
	s.mu.Unlock()

	for step != nil {
		s.run(step)

		s.mu.Lock()

		if len(s.queue) == 0 {
			s.running = false
			step = nil
		} else {
			step = s.queue[0]
			s.queue[0] = nil
			s.queue = s.queue[1:]
		}

		s.mu.Unlock()
	}

	return true
}

func (s *serializer) run(step func()) {
	defer func() {
		if r := recover(); r != nil && s.onPanic != nil {
			s.onPanic(r)
		}
	}()

	step()
}
