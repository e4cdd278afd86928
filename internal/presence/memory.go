package presence

import "sync"

// MemoryStore is the in-process Store used in tests and when no Redis URL is
// configured. Status only survives as long as the process, which is acceptable
// for a single-instance deployment.
type MemoryStore struct {
	mu          sync.Mutex
	statuses    map[string]Status
	subscribers map[string]map[int]func(Status)
	nextSubID   int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		statuses:    make(map[string]Status),
		subscribers: make(map[string]map[int]func(Status)),
	}
}

func (s *MemoryStore) SetStatus(userID string, status Status) error {
	s.mu.Lock()
	s.statuses[userID] = status
	callbacks := make([]func(Status), 0, len(s.subscribers[userID]))
	for _, fn := range s.subscribers[userID] {
		callbacks = append(callbacks, fn)
	}
	s.mu.Unlock()

	for _, fn := range callbacks {
		fn(status)
	}
	return nil
}

func (s *MemoryStore) GetStatus(userID string) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statuses[userID], nil
}

func (s *MemoryStore) Subscribe(userID string, fn func(Status)) (func(), error) {
	s.mu.Lock()
	set, ok := s.subscribers[userID]
	if !ok {
		set = make(map[int]func(Status))
		s.subscribers[userID] = set
	}
	id := s.nextSubID
	s.nextSubID++
	set[id] = fn
	current := s.statuses[userID]
	s.mu.Unlock()

	fn(current)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if set, ok := s.subscribers[userID]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(s.subscribers, userID)
			}
		}
	}, nil
}
