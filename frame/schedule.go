package frame

import (
	"sync"
	"time"
)

// scheduler runs delayed actions. By default every call schedules an
// independent timer. With supersede set, scheduling a key that is still
// pending cancels the earlier action first.
type scheduler struct {
	supersede bool

	mu      sync.Mutex
	nextID  int
	pending map[int]*time.Timer
	byKey   map[string]int
	stopped bool
}

func newScheduler(supersede bool) *scheduler {
	return &scheduler{
		supersede: supersede,
		pending:   make(map[int]*time.Timer),
		byKey:     make(map[string]int),
	}
}

func (s *scheduler) after(key string, d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if s.supersede {
		if id, ok := s.byKey[key]; ok {
			if t := s.pending[id]; t != nil {
				t.Stop()
			}
			delete(s.pending, id)
		}
	}
	s.nextID++
	id := s.nextID
	s.byKey[key] = id
	s.pending[id] = time.AfterFunc(d, func() {
		s.mu.Lock()
		_, live := s.pending[id]
		delete(s.pending, id)
		if s.byKey[key] == id {
			delete(s.byKey, key)
		}
		s.mu.Unlock()
		if live {
			fn()
		}
	})
}

// stop cancels everything pending and refuses new work.
func (s *scheduler) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for id, t := range s.pending {
		t.Stop()
		delete(s.pending, id)
	}
	s.byKey = make(map[string]int)
}
