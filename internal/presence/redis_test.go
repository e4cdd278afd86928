package presence

import (
	"testing"
	"time"
)

// The refresh loop keeps the keys of locally-online users alive; the
// bookkeeping it reads must follow every status write.
func TestRedisStoreTracksOnlineUsersForRefresh(t *testing.T) {
	store := &RedisStore{online: make(map[string]Status)}
	now := time.Now().UTC()

	store.trackOnline("alice", Status{Online: true, LastSeen: now})
	store.trackOnline("bob", Status{Online: true, LastSeen: now})

	snapshot := store.onlineSnapshot()
	if len(snapshot) != 2 {
		t.Fatalf("expected 2 online users, got %d", len(snapshot))
	}
	if !snapshot["alice"].Online || !snapshot["alice"].LastSeen.Equal(now) {
		t.Fatalf("unexpected tracked status: %+v", snapshot["alice"])
	}

	store.trackOnline("alice", Status{Online: false, LastSeen: now})

	snapshot = store.onlineSnapshot()
	if _, tracked := snapshot["alice"]; tracked {
		t.Fatal("offline user still tracked for TTL refresh")
	}
	if _, tracked := snapshot["bob"]; !tracked {
		t.Fatal("unrelated online user dropped from refresh set")
	}
}

func TestOnlineSnapshotIsACopy(t *testing.T) {
	store := &RedisStore{online: make(map[string]Status)}
	store.trackOnline("alice", Status{Online: true, LastSeen: time.Now().UTC()})

	snapshot := store.onlineSnapshot()
	delete(snapshot, "alice")

	if len(store.onlineSnapshot()) != 1 {
		t.Fatal("mutating a snapshot changed the tracked set")
	}
}
