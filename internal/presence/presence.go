// Package presence tracks live online/offline status per user. The Store is an
// explicit capability handed to whichever component needs it, so the rest of
// the app never touches the backing Redis client directly and tests can run
// against the in-memory implementation.
package presence

import "time"

type Status struct {
	Online   bool      `json:"online"`
	LastSeen time.Time `json:"last_seen"`
}

// Store publishes and observes per-user status. Subscribe pushes the current
// value first, then every subsequent change, until the returned cancel func is
// called. Subscribers for the same user are independent.
type Store interface {
	SetStatus(userID string, status Status) error
	GetStatus(userID string) (Status, error)
	Subscribe(userID string, fn func(Status)) (func(), error)
}

func online(now time.Time) Status {
	return Status{Online: true, LastSeen: now}
}

func offline(now time.Time) Status {
	return Status{Online: false, LastSeen: now}
}
