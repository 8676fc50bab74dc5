package realtime

import (
	"context"
	"fmt"
	"testing"
	"time"

	"realtimehub/internal/models"
	"realtimehub/internal/services"
)

type fakeStore struct {
	rooms     map[string]*models.Room
	saveCalls int
	saveErr   error
}

func newFakeStore(roomNames ...string) *fakeStore {
	rooms := make(map[string]*models.Room)
	for i, name := range roomNames {
		rooms[name] = &models.Room{
			ID:        fmt.Sprintf("room-%d", i+1),
			ProjectID: "proj-1",
			Name:      name,
			Type:      models.RoomPublic,
		}
	}
	return &fakeStore{rooms: rooms}
}

func (f *fakeStore) RoomByName(_ context.Context, projectID, name string) (*models.Room, error) {
	room, ok := f.rooms[name]
	if !ok || room.ProjectID != projectID {
		return nil, services.ErrRoomNotFound
	}
	return room, nil
}

func (f *fakeStore) SaveMessage(_ context.Context, projectID, roomID, userID, content string, metadata map[string]any) (*models.Message, error) {
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	f.saveCalls++
	return &models.Message{
		ID:        fmt.Sprintf("msg-%d", f.saveCalls),
		ProjectID: projectID,
		RoomID:    roomID,
		UserID:    userID,
		Content:   content,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}, nil
}

// newTestHub wires presence changes to a project broadcast the way the
// server does at startup.
func newTestHub() *Hub {
	hub := NewHub()
	hub.Presence.OnChange(func(state models.PresenceState) {
		hub.Broadcast.ToProject(state.ProjectID, &models.ServerFrame{
			Type:         models.FramePresence,
			UserID:       state.UserID,
			Status:       state.Status,
			CustomStatus: state.CustomLabel,
		})
	})
	return hub
}

func connect(t *testing.T, hub *Hub, store MetadataStore, userID string) (*Session, *fakePusher) {
	t.Helper()
	pusher := &fakePusher{}
	session := NewSession(hub, store, NewConn(userID, "proj-1", pusher))
	if err := session.Start(); err != nil {
		t.Fatalf("Start() for %s: %v", userID, err)
	}
	return session, pusher
}

func send(s *Session, raw string) {
	s.handleRaw(context.Background(), []byte(raw))
}

func lastFrame(t *testing.T, p *fakePusher) models.ServerFrame {
	t.Helper()
	frames := decodeFrames(t, p)
	if len(frames) == 0 {
		t.Fatal("no frames received")
	}
	return frames[len(frames)-1]
}

func framesOfType(t *testing.T, p *fakePusher, frameType string) []models.ServerFrame {
	t.Helper()
	var out []models.ServerFrame
	for _, f := range decodeFrames(t, p) {
		if f.Type == frameType {
			out = append(out, f)
		}
	}
	return out
}

func TestSessionConnectedAck(t *testing.T) {
	hub := newTestHub()
	session, pusher := connect(t, hub, newFakeStore(), "alice")

	acks := framesOfType(t, pusher, models.FrameConnected)
	if len(acks) != 1 {
		t.Fatalf("got %d connected frames, want 1", len(acks))
	}
	if acks[0].SocketID != session.conn.ID || acks[0].UserID != "alice" {
		t.Errorf("connected ack = %+v", acks[0])
	}

	// Connect also flipped the user online.
	if got := framesOfType(t, pusher, models.FramePresence); len(got) != 1 || got[0].Status != models.PresenceOnline {
		t.Errorf("presence frames after connect = %+v", got)
	}
}

func TestSessionJoinAndNotify(t *testing.T) {
	hub := newTestHub()
	store := newFakeStore("lobby")
	a, ap := connect(t, hub, store, "alice")
	_, bp := connect(t, hub, store, "bob")

	send(a, `{"type":"join","room":"lobby"}`)

	joined := framesOfType(t, ap, models.FrameJoined)
	if len(joined) != 1 || joined[0].Room != "lobby" || joined[0].RoomID != "room-1" {
		t.Fatalf("joined frames = %+v", joined)
	}
	if got := hub.Rooms.MemberCount("room-1"); got != 1 {
		t.Errorf("membership after join = %d, want 1", got)
	}
	// bob is not in the room yet, so no user_joined reaches him.
	if got := framesOfType(t, bp, models.FrameUserJoined); len(got) != 0 {
		t.Errorf("bob received user_joined before joining: %+v", got)
	}

	b2, _ := connect(t, hub, store, "carol")
	send(b2, `{"type":"join","room":"lobby"}`)

	notices := framesOfType(t, ap, models.FrameUserJoined)
	if len(notices) != 1 || notices[0].UserID != "carol" {
		t.Errorf("alice's user_joined notices = %+v", notices)
	}
}

func TestSessionJoinUnknownRoom(t *testing.T) {
	hub := newTestHub()
	a, ap := connect(t, hub, newFakeStore(), "alice")

	send(a, `{"type":"join","room":"nowhere"}`)

	if f := lastFrame(t, ap); f.Type != models.FrameError {
		t.Errorf("frame after bad join = %+v, want error", f)
	}
	if got := hub.Rooms.ActiveRooms(); got != 0 {
		t.Errorf("bad join mutated the room index: %d active rooms", got)
	}
}

func TestSessionMessageEchoedToAllMembers(t *testing.T) {
	hub := newTestHub()
	store := newFakeStore("lobby")
	a, ap := connect(t, hub, store, "alice")
	b, bp := connect(t, hub, store, "bob")

	send(a, `{"type":"join","room":"lobby"}`)
	send(b, `{"type":"join","room":"lobby"}`)

	send(a, `{"type":"message","room":"lobby","content":"hi"}`)

	for who, p := range map[string]*fakePusher{"alice": ap, "bob": bp} {
		msgs := framesOfType(t, p, models.FrameMessage)
		if len(msgs) != 1 {
			t.Fatalf("%s received %d message frames, want 1", who, len(msgs))
		}
		m := msgs[0]
		if m.Content != "hi" || m.UserID != "alice" || m.Room != "lobby" {
			t.Errorf("%s's message frame = %+v", who, m)
		}
		if m.ID == "" || m.Timestamp == "" {
			t.Errorf("%s's message frame missing stored id/timestamp: %+v", who, m)
		}
	}
	if store.saveCalls != 1 {
		t.Errorf("store recorded %d saves, want 1", store.saveCalls)
	}
}

func TestSessionMessageToUnjoinedRoomIsDropped(t *testing.T) {
	hub := newTestHub()
	store := newFakeStore("lobby")
	a, ap := connect(t, hub, store, "alice")

	send(a, `{"type":"message","room":"lobby","content":"hi"}`)

	// Stale membership is a benign race: no error frame, no persistence.
	if got := framesOfType(t, ap, models.FrameError); len(got) != 0 {
		t.Errorf("got error frames %+v, want none", got)
	}
	if store.saveCalls != 0 {
		t.Errorf("store recorded %d saves, want 0", store.saveCalls)
	}
}

func TestSessionLeaveIsIdempotent(t *testing.T) {
	hub := newTestHub()
	store := newFakeStore("lobby")
	a, _ := connect(t, hub, store, "alice")
	b, bp := connect(t, hub, store, "bob")

	send(a, `{"type":"join","room":"lobby"}`)
	send(b, `{"type":"join","room":"lobby"}`)

	send(a, `{"type":"leave","room":"lobby"}`)
	send(a, `{"type":"leave","room":"lobby"}`)

	if got := framesOfType(t, bp, models.FrameUserLeft); len(got) != 1 {
		t.Errorf("bob received %d user_left frames, want 1", len(got))
	}
	if got := hub.Rooms.MemberCount("room-1"); got != 1 {
		t.Errorf("membership after leave = %d, want 1", got)
	}
}

func TestSessionTypingExcludesSender(t *testing.T) {
	hub := newTestHub()
	store := newFakeStore("lobby")
	a, ap := connect(t, hub, store, "alice")
	b, bp := connect(t, hub, store, "bob")

	send(a, `{"type":"join","room":"lobby"}`)
	send(b, `{"type":"join","room":"lobby"}`)

	send(a, `{"type":"typing","room":"lobby","isTyping":true}`)

	typing := framesOfType(t, bp, models.FrameTyping)
	if len(typing) != 1 {
		t.Fatalf("bob received %d typing frames, want 1", len(typing))
	}
	if typing[0].UserID != "alice" || typing[0].IsTyping == nil || !*typing[0].IsTyping {
		t.Errorf("typing frame = %+v", typing[0])
	}
	if got := framesOfType(t, ap, models.FrameTyping); len(got) != 0 {
		t.Errorf("sender received its own typing frame")
	}
}

func TestSessionPresenceEvent(t *testing.T) {
	hub := newTestHub()
	store := newFakeStore()
	a, _ := connect(t, hub, store, "alice")
	_, bp := connect(t, hub, store, "bob")

	send(a, `{"type":"presence","status":"away"}`)

	frames := framesOfType(t, bp, models.FramePresence)
	var away []models.ServerFrame
	for _, f := range frames {
		if f.Status == models.PresenceAway {
			away = append(away, f)
		}
	}
	if len(away) != 1 || away[0].UserID != "alice" {
		t.Errorf("bob's away presence frames = %+v", away)
	}
}

func TestSessionPresenceInvalidStatus(t *testing.T) {
	hub := newTestHub()
	a, ap := connect(t, hub, newFakeStore(), "alice")

	send(a, `{"type":"presence","status":"offline"}`)

	if f := lastFrame(t, ap); f.Type != models.FrameError {
		t.Errorf("frame after invalid presence = %+v, want error", f)
	}
	if state, _ := hub.Presence.Get("proj-1", "alice"); state.Status != models.PresenceOnline {
		t.Errorf("status mutated by rejected presence event: %s", state.Status)
	}
}

func TestSessionMalformedPayload(t *testing.T) {
	hub := newTestHub()
	a, ap := connect(t, hub, newFakeStore(), "alice")

	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{{{`},
		{"unknown type", `{"type":"dance"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(ap.frames)
			send(a, tt.raw)
			if f := lastFrame(t, ap); f.Type != models.FrameError {
				t.Errorf("frame = %+v, want error", f)
			}
			if len(ap.frames) != before+1 {
				t.Errorf("got %d new frames, want exactly 1 error reply", len(ap.frames)-before)
			}
		})
	}
}

func TestSessionDisconnectCleansUp(t *testing.T) {
	hub := newTestHub()
	store := newFakeStore("lobby")
	a, _ := connect(t, hub, store, "alice")
	b, bp := connect(t, hub, store, "bob")

	send(a, `{"type":"join","room":"lobby"}`)
	send(b, `{"type":"join","room":"lobby"}`)

	a.Shutdown()

	left := framesOfType(t, bp, models.FrameUserLeft)
	if len(left) != 1 || left[0].UserID != "alice" || left[0].Room != "lobby" {
		t.Fatalf("bob's user_left frames = %+v", left)
	}

	members := hub.Rooms.Members("room-1")
	if len(members) != 1 || members[0] != b.conn.ID {
		t.Errorf("membership after disconnect = %v", members)
	}
	if _, ok := hub.Registry.Get(a.conn.ID); ok {
		t.Error("registry still holds the closed connection")
	}

	// Double shutdown is a no-op: no second user_left.
	a.Shutdown()
	if got := framesOfType(t, bp, models.FrameUserLeft); len(got) != 1 {
		t.Errorf("double shutdown produced %d user_left frames, want 1", len(got))
	}
}

func TestSessionOfflineOnlyAfterLastConnection(t *testing.T) {
	hub := newTestHub()
	store := newFakeStore()
	c1, _ := connect(t, hub, store, "alice")
	c2, _ := connect(t, hub, store, "alice")
	_, bp := connect(t, hub, store, "bob")

	c1.Shutdown()
	if state, _ := hub.Presence.Get("proj-1", "alice"); state.Status == models.PresenceOffline {
		t.Fatal("user went offline with a live connection remaining")
	}

	c2.Shutdown()
	if state, _ := hub.Presence.Get("proj-1", "alice"); state.Status != models.PresenceOffline {
		t.Fatalf("user not offline after last disconnect")
	}

	var offline int
	for _, f := range framesOfType(t, bp, models.FramePresence) {
		if f.UserID == "alice" && f.Status == models.PresenceOffline {
			offline++
		}
	}
	if offline != 1 {
		t.Errorf("bob saw %d offline broadcasts for alice, want exactly 1", offline)
	}
}

func TestSessionEventsAfterShutdownDoNotMutate(t *testing.T) {
	hub := newTestHub()
	store := newFakeStore("lobby")
	a, _ := connect(t, hub, store, "alice")
	send(a, `{"type":"join","room":"lobby"}`)
	a.Shutdown()

	send(a, `{"type":"message","room":"lobby","content":"late"}`)

	// The conn left every room during shutdown, so the late message is
	// treated as stale membership and dropped.
	if store.saveCalls != 0 {
		t.Errorf("store recorded %d saves after shutdown, want 0", store.saveCalls)
	}
}
