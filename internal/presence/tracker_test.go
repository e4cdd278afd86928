package presence

import "testing"

func TestTrackerPublishesOnlineOnFirstConnection(t *testing.T) {
	store := NewMemoryStore()
	tracker := NewTracker(store)

	var seen []Status
	cancel, err := store.Subscribe("alice", func(status Status) {
		seen = append(seen, status)
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer cancel()

	if err := tracker.Connect("alice"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := tracker.Connect("alice"); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	// Initial value plus exactly one online transition for two connections.
	if len(seen) != 2 || !seen[1].Online {
		t.Fatalf("expected single online transition, got %+v", seen)
	}
}

func TestTrackerPublishesOfflineOnlyAfterLastDisconnect(t *testing.T) {
	store := NewMemoryStore()
	tracker := NewTracker(store)

	if err := tracker.Connect("bob"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := tracker.Connect("bob"); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	if err := tracker.Disconnect("bob"); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	status, err := store.GetStatus("bob")
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if !status.Online {
		t.Fatalf("expected bob to stay online with one connection left")
	}

	if err := tracker.Disconnect("bob"); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	status, err = store.GetStatus("bob")
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if status.Online {
		t.Fatalf("expected bob offline after last disconnect")
	}
	if status.LastSeen.IsZero() {
		t.Fatalf("expected last_seen to be set on offline transition")
	}
}

func TestTrackerSetOfflineForcesOffline(t *testing.T) {
	store := NewMemoryStore()
	tracker := NewTracker(store)

	if err := tracker.Connect("carol"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := tracker.SetOffline("carol"); err != nil {
		t.Fatalf("SetOffline: %v", err)
	}

	status, err := store.GetStatus("carol")
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if status.Online {
		t.Fatalf("expected carol offline after explicit SetOffline")
	}

	// A later disconnect for the cleared refcount must not publish again.
	if err := tracker.Disconnect("carol"); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
}
