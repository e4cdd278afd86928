package presence

import (
	"sync"
	"time"
)

// Tracker refcounts live client connections per user and publishes status
// transitions to the Store. Registering a connection when none existed
// publishes online; dropping the last one publishes offline. The hub calls
// Disconnect from its unregister path, so an ungraceful socket drop still
// flips the user offline without any explicit call from the client.
type Tracker struct {
	store Store

	mu    sync.Mutex
	conns map[string]int
}

func NewTracker(store Store) *Tracker {
	return &Tracker{
		store: store,
		conns: make(map[string]int),
	}
}

// Connect records one more live connection for the user. The first connection
// publishes {online: true, last_seen: now}.
func (t *Tracker) Connect(userID string) error {
	t.mu.Lock()
	t.conns[userID]++
	first := t.conns[userID] == 1
	t.mu.Unlock()

	if !first {
		return nil
	}
	return t.store.SetStatus(userID, online(time.Now().UTC()))
}

// Disconnect drops one live connection. The last one publishes
// {online: false, last_seen: now}.
func (t *Tracker) Disconnect(userID string) error {
	t.mu.Lock()
	count, ok := t.conns[userID]
	if !ok {
		t.mu.Unlock()
		return nil
	}
	count--
	if count <= 0 {
		delete(t.conns, userID)
	} else {
		t.conns[userID] = count
	}
	last := count <= 0
	t.mu.Unlock()

	if !last {
		return nil
	}
	return t.store.SetStatus(userID, offline(time.Now().UTC()))
}

// SetOffline forces the user offline regardless of open connections. Used for
// deliberate teardown, which is faster than waiting for the socket to drop.
func (t *Tracker) SetOffline(userID string) error {
	t.mu.Lock()
	delete(t.conns, userID)
	t.mu.Unlock()

	return t.store.SetStatus(userID, offline(time.Now().UTC()))
}

// Subscribe forwards to the underlying store.
func (t *Tracker) Subscribe(userID string, fn func(Status)) (func(), error) {
	return t.store.Subscribe(userID, fn)
}

// Status forwards to the underlying store.
func (t *Tracker) Status(userID string) (Status, error) {
	return t.store.GetStatus(userID)
}
