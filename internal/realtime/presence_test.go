package realtime

import (
	"testing"

	"realtimehub/internal/models"
)

func trackChanges(pt *PresenceTracker) *[]models.PresenceState {
	var changes []models.PresenceState
	pt.OnChange(func(state models.PresenceState) {
		changes = append(changes, state)
	})
	return &changes
}

func TestPresenceMultipleConnections(t *testing.T) {
	pt := NewPresenceTracker()
	changes := trackChanges(pt)

	pt.OnConnect("proj-1", "alice", "conn-1")
	pt.OnConnect("proj-1", "alice", "conn-2")

	state, ok := pt.Get("proj-1", "alice")
	if !ok {
		t.Fatal("Get() found no state after connect")
	}
	if state.Status != models.PresenceOnline {
		t.Errorf("status = %s, want online", state.Status)
	}
	if len(*changes) != 1 {
		t.Fatalf("got %d change events after two connects, want 1", len(*changes))
	}

	// First disconnect: one connection still live, user stays online.
	pt.OnDisconnect("proj-1", "alice", "conn-1")
	state, _ = pt.Get("proj-1", "alice")
	if state.Status == models.PresenceOffline {
		t.Error("user went offline while a connection is still live")
	}
	if len(*changes) != 1 {
		t.Fatalf("got %d change events after first disconnect, want 1", len(*changes))
	}

	// Last disconnect flips offline, exactly once.
	pt.OnDisconnect("proj-1", "alice", "conn-2")
	state, _ = pt.Get("proj-1", "alice")
	if state.Status != models.PresenceOffline {
		t.Errorf("status after last disconnect = %s, want offline", state.Status)
	}
	if state.LastSeen.IsZero() {
		t.Error("last-seen not set on offline transition")
	}
	if len(*changes) != 2 {
		t.Fatalf("got %d change events, want 2 (online, offline)", len(*changes))
	}
	if (*changes)[1].Status != models.PresenceOffline {
		t.Errorf("second change = %s, want offline", (*changes)[1].Status)
	}
}

func TestPresenceReconnectAfterOffline(t *testing.T) {
	pt := NewPresenceTracker()
	changes := trackChanges(pt)

	pt.OnConnect("proj-1", "alice", "conn-1")
	pt.OnDisconnect("proj-1", "alice", "conn-1")
	pt.OnConnect("proj-1", "alice", "conn-2")

	state, _ := pt.Get("proj-1", "alice")
	if state.Status != models.PresenceOnline {
		t.Errorf("status after reconnect = %s, want online", state.Status)
	}
	if len(*changes) != 3 {
		t.Errorf("got %d change events, want 3 (online, offline, online)", len(*changes))
	}
}

func TestPresenceSetStatus(t *testing.T) {
	pt := NewPresenceTracker()
	changes := trackChanges(pt)

	pt.OnConnect("proj-1", "alice", "conn-1")

	pt.SetStatus("proj-1", "alice", models.PresenceAway, "")
	pt.SetStatus("proj-1", "alice", models.PresenceAway, "")

	state, _ := pt.Get("proj-1", "alice")
	if state.Status != models.PresenceAway {
		t.Errorf("status = %s, want away", state.Status)
	}
	// online + away; the repeated away is suppressed.
	if len(*changes) != 2 {
		t.Errorf("got %d change events, want 2", len(*changes))
	}
}

func TestPresenceSetStatusCustomLabel(t *testing.T) {
	pt := NewPresenceTracker()
	changes := trackChanges(pt)

	pt.OnConnect("proj-1", "alice", "conn-1")
	pt.SetStatus("proj-1", "alice", models.PresenceCustom, "in a meeting")
	pt.SetStatus("proj-1", "alice", models.PresenceCustom, "out to lunch")

	state, _ := pt.Get("proj-1", "alice")
	if state.CustomLabel != "out to lunch" {
		t.Errorf("custom label = %q, want %q", state.CustomLabel, "out to lunch")
	}
	// A changed label on the same status is a real transition.
	if len(*changes) != 3 {
		t.Errorf("got %d change events, want 3", len(*changes))
	}
}

func TestPresenceSetStatusUnknownUser(t *testing.T) {
	pt := NewPresenceTracker()
	changes := trackChanges(pt)

	pt.SetStatus("proj-1", "ghost", models.PresenceAway, "")

	if _, ok := pt.Get("proj-1", "ghost"); ok {
		t.Error("SetStatus created state for a user that never connected")
	}
	if len(*changes) != 0 {
		t.Errorf("got %d change events, want 0", len(*changes))
	}
}

func TestPresenceSnapshotIsProjectScoped(t *testing.T) {
	pt := NewPresenceTracker()

	pt.OnConnect("proj-1", "alice", "conn-1")
	pt.OnConnect("proj-1", "bob", "conn-2")
	pt.OnConnect("proj-2", "carol", "conn-3")
	pt.OnDisconnect("proj-1", "bob", "conn-2")

	states := pt.Snapshot("proj-1")
	if len(states) != 2 {
		t.Fatalf("Snapshot(proj-1) has %d entries, want 2", len(states))
	}
	for _, st := range states {
		if st.ProjectID != "proj-1" {
			t.Errorf("snapshot leaked state for project %s", st.ProjectID)
		}
	}
}
